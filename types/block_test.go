// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package types

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func sampleHeader() *Header {
	return &Header{
		ParentHash:      BytesToHash([]byte("parent")),
		StateRoot:       BytesToHash([]byte("state")),
		TxRoot:          BytesToHash([]byte("txs")),
		ReceiptRoot:     BytesToHash([]byte("receipts")),
		Timestamp:       1234567890,
		Proposer:        HexToAddress("0x0000000000000000000000000000000000000001"),
		ChainID:         31337,
		GasUsed:         21000,
		GasLimit:        30_000_000,
		BaseFee:         uint256.NewInt(7),
		ProtocolVersion: 1,
		BlockNumber:     42,
		Extra:           []byte("genesis"),
	}
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := sampleHeader()
	enc := h.Encode()

	got, err := DecodeHeader(enc)
	require.NoError(t, err)
	require.Equal(t, h.ParentHash, got.ParentHash)
	require.Equal(t, h.StateRoot, got.StateRoot)
	require.Equal(t, h.TxRoot, got.TxRoot)
	require.Equal(t, h.ReceiptRoot, got.ReceiptRoot)
	require.Equal(t, h.Timestamp, got.Timestamp)
	require.Equal(t, h.Proposer, got.Proposer)
	require.Equal(t, h.ChainID, got.ChainID)
	require.Equal(t, h.GasUsed, got.GasUsed)
	require.Equal(t, h.GasLimit, got.GasLimit)
	require.Equal(t, h.BaseFee.Bytes32(), got.BaseFee.Bytes32())
	require.Equal(t, h.ProtocolVersion, got.ProtocolVersion)
	require.Equal(t, h.BlockNumber, got.BlockNumber)
	require.Equal(t, h.Extra, got.Extra)
}

func TestDecodeHeaderRejectsTruncatedInput(t *testing.T) {
	h := sampleHeader()
	enc := h.Encode()
	_, err := DecodeHeader(enc[:len(enc)-len(h.Extra)-10])
	require.Error(t, err)
}

func TestHeaderHashIsDeterministicAndSensitiveToFields(t *testing.T) {
	h := sampleHeader()
	a := h.Hash()
	b := sampleHeader().Hash()
	require.Equal(t, a, b)

	h2 := sampleHeader()
	h2.BlockNumber = 43
	require.NotEqual(t, a, h2.Hash())
}

func TestBlockHashAndNumber(t *testing.T) {
	h := sampleHeader()
	block := &Block{Header: h}
	require.Equal(t, h.Hash(), block.Hash())
	require.Equal(t, h.BlockNumber, block.Number())
}
