// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package types

import (
	"encoding/binary"
	"errors"

	"github.com/basalt-chain/basalt/crypto"
	"github.com/holiman/uint256"
)

// Header is a block header. BlockHash is computed by hashing the header's
// canonical encoding; it is never stored on the struct itself so that a
// Header is always safe to mutate before the block is sealed.
type Header struct {
	ParentHash      Hash
	StateRoot       Hash
	TxRoot          Hash
	ReceiptRoot     Hash
	Timestamp       uint64
	Proposer        Address
	ChainID         uint32
	GasUsed         uint64
	GasLimit        uint64
	BaseFee         *uint256.Int
	ProtocolVersion uint32
	BlockNumber     uint64
	Extra           []byte
}

// Encode produces the canonical byte encoding hashed to derive the block
// hash. Field order is fixed and append-only: adding a field must append at
// the end so historical encodings remain stable.
func (h *Header) Encode() []byte {
	buf := make([]byte, 0, 256+len(h.Extra))
	buf = append(buf, h.ParentHash[:]...)
	buf = append(buf, h.StateRoot[:]...)
	buf = append(buf, h.TxRoot[:]...)
	buf = append(buf, h.ReceiptRoot[:]...)
	buf = appendU64(buf, h.Timestamp)
	buf = append(buf, h.Proposer[:]...)
	buf = appendU32(buf, h.ChainID)
	buf = appendU64(buf, h.GasUsed)
	buf = appendU64(buf, h.GasLimit)
	var feeBytes [32]byte
	if h.BaseFee != nil {
		feeBytes = h.BaseFee.Bytes32()
	}
	buf = append(buf, feeBytes[:]...)
	buf = appendU32(buf, h.ProtocolVersion)
	buf = appendU64(buf, h.BlockNumber)
	buf = appendU32(buf, uint32(len(h.Extra)))
	buf = append(buf, h.Extra...)
	return buf
}

// Hash returns the block hash: the default Hasher's digest of the header's
// canonical encoding.
func (h *Header) Hash() Hash {
	return BytesToHash(crypto.DefaultHasher().Sum(h.Encode()))
}

// DecodeHeader parses bytes produced by Encode.
func DecodeHeader(b []byte) (*Header, error) {
	if len(b) < HashLength*4+8+AddressLength+4+8+8+32+4+8+4 {
		return nil, errShortHeader
	}
	h := &Header{}
	h.ParentHash = BytesToHash(b[:HashLength])
	b = b[HashLength:]
	h.StateRoot = BytesToHash(b[:HashLength])
	b = b[HashLength:]
	h.TxRoot = BytesToHash(b[:HashLength])
	b = b[HashLength:]
	h.ReceiptRoot = BytesToHash(b[:HashLength])
	b = b[HashLength:]
	h.Timestamp = readU64(b)
	b = b[8:]
	copy(h.Proposer[:], b[:AddressLength])
	b = b[AddressLength:]
	h.ChainID = readU32(b)
	b = b[4:]
	h.GasUsed = readU64(b)
	b = b[8:]
	h.GasLimit = readU64(b)
	b = b[8:]
	h.BaseFee = new(uint256.Int).SetBytes32(b[:32])
	b = b[32:]
	h.ProtocolVersion = readU32(b)
	b = b[4:]
	h.BlockNumber = readU64(b)
	b = b[8:]
	extraLen := readU32(b)
	b = b[4:]
	if uint32(len(b)) < extraLen {
		return nil, errShortHeader
	}
	h.Extra = append([]byte(nil), b[:extraLen]...)
	return h, nil
}

// Block is a sealed header plus its ordered transaction list.
type Block struct {
	Header *Header
	Txs    []*Transaction
}

// Hash returns the block's header hash.
func (b *Block) Hash() Hash { return b.Header.Hash() }

// Number returns the block number.
func (b *Block) Number() uint64 { return b.Header.BlockNumber }

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

var errShortHeader = errors.New("types: truncated header encoding")

func readU64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }
func readU32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
