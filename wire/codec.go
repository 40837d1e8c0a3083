// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Hand-rolled codecs for the consensus message types carried over the
// wire. Basalt has no protobuf/SSZ toolchain in its build, so every
// message uses the same fixed-order, length-prefixed encoding as a block
// header (see types.Header.Encode).
package wire

import (
	"errors"

	"github.com/basalt-chain/basalt/types"
	"github.com/holiman/uint256"
)

var errTruncated = errors.New("wire: truncated message")

// EncodeVote serialises a Vote.
func EncodeVote(v *types.Vote) []byte {
	buf := make([]byte, 0, 64+len(v.Signature))
	buf = append(buf, byte(v.Phase))
	buf = appendU64(buf, uint64(v.View))
	buf = appendU64(buf, v.BlockNumber)
	buf = append(buf, v.BlockHash[:]...)
	buf = append(buf, v.ValidatorIndex)
	buf = appendBytes(buf, v.Signature)
	return buf
}

// DecodeVote parses bytes produced by EncodeVote.
func DecodeVote(b []byte) (*types.Vote, error) {
	if len(b) < 1+8+8+types.HashLength+1 {
		return nil, errTruncated
	}
	v := &types.Vote{Phase: types.Phase(b[0])}
	b = b[1:]
	view, b, ok := readU64(b)
	if !ok {
		return nil, errTruncated
	}
	v.View = types.View(view)
	v.BlockNumber, b, ok = readU64(b)
	if !ok {
		return nil, errTruncated
	}
	if len(b) < types.HashLength {
		return nil, errTruncated
	}
	v.BlockHash = types.BytesToHash(b[:types.HashLength])
	b = b[types.HashLength:]
	if len(b) < 1 {
		return nil, errTruncated
	}
	v.ValidatorIndex, b = b[0], b[1:]
	sig, _, ok := readBytes(b)
	if !ok {
		return nil, errTruncated
	}
	v.Signature = sig
	return v, nil
}

// EncodeQC serialises a QC.
func EncodeQC(qc *types.QC) []byte {
	buf := make([]byte, 0, 80+len(qc.AggregateSig))
	buf = append(buf, byte(qc.Phase))
	buf = appendU64(buf, uint64(qc.View))
	buf = appendU64(buf, qc.BlockNumber)
	buf = append(buf, qc.BlockHash[:]...)
	buf = appendU64(buf, qc.SignerBitmap)
	buf = appendBytes(buf, qc.AggregateSig)
	return buf
}

// DecodeQC parses bytes produced by EncodeQC.
func DecodeQC(b []byte) (*types.QC, error) {
	if len(b) < 1+8+8+types.HashLength+8 {
		return nil, errTruncated
	}
	qc := &types.QC{Phase: types.Phase(b[0])}
	b = b[1:]
	view, b, ok := readU64(b)
	if !ok {
		return nil, errTruncated
	}
	qc.View = types.View(view)
	qc.BlockNumber, b, ok = readU64(b)
	if !ok {
		return nil, errTruncated
	}
	if len(b) < types.HashLength {
		return nil, errTruncated
	}
	qc.BlockHash = types.BytesToHash(b[:types.HashLength])
	b = b[types.HashLength:]
	qc.SignerBitmap, b, ok = readU64(b)
	if !ok {
		return nil, errTruncated
	}
	sig, _, ok := readBytes(b)
	if !ok {
		return nil, errTruncated
	}
	qc.AggregateSig = sig
	return qc, nil
}

// EncodeProposal serialises a Proposal, embedding the full block's
// canonical header encoding plus its transaction count and every
// transaction in full, each encoded with EncodeTransaction.
func EncodeProposal(p *types.Proposal) []byte {
	buf := make([]byte, 0, 256)
	buf = appendU64(buf, uint64(p.View))
	buf = appendU64(buf, p.BlockNumber)
	buf = append(buf, p.BlockHash[:]...)
	buf = appendBytes(buf, p.LeaderSignature)
	headerBytes := p.Block.Header.Encode()
	buf = appendBytes(buf, headerBytes)
	buf = appendU32(buf, uint32(len(p.Block.Txs)))
	for _, tx := range p.Block.Txs {
		buf = appendBytes(buf, EncodeTransaction(tx))
	}
	return buf
}

// EncodeTransaction serialises a Transaction.
func EncodeTransaction(tx *types.Transaction) []byte {
	buf := make([]byte, 0, 96+len(tx.Payload)+len(tx.Signature))
	buf = append(buf, tx.Sender[:]...)
	buf = appendU64(buf, tx.Nonce)
	var gp [32]byte
	if tx.GasPrice != nil {
		gp = tx.GasPrice.Bytes32()
	}
	buf = append(buf, gp[:]...)
	buf = appendU64(buf, tx.GasLimit)
	buf = appendBytes(buf, tx.Payload)
	buf = appendBytes(buf, tx.Signature)
	return buf
}

// DecodeProposal parses bytes produced by EncodeProposal.
func DecodeProposal(b []byte) (*types.Proposal, error) {
	if len(b) < 8+8+types.HashLength {
		return nil, errTruncated
	}
	p := &types.Proposal{}
	view, b, ok := readU64(b)
	if !ok {
		return nil, errTruncated
	}
	p.View = types.View(view)
	p.BlockNumber, b, ok = readU64(b)
	if !ok {
		return nil, errTruncated
	}
	if len(b) < types.HashLength {
		return nil, errTruncated
	}
	p.BlockHash = types.BytesToHash(b[:types.HashLength])
	b = b[types.HashLength:]
	p.LeaderSignature, b, ok = readBytes(b)
	if !ok {
		return nil, errTruncated
	}
	headerBytes, b, ok := readBytes(b)
	if !ok {
		return nil, errTruncated
	}
	header, err := types.DecodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}
	txCount, b, ok := readU32(b)
	if !ok {
		return nil, errTruncated
	}
	txs := make([]*types.Transaction, 0, txCount)
	for i := uint32(0); i < txCount; i++ {
		var txBytes []byte
		txBytes, b, ok = readBytes(b)
		if !ok {
			return nil, errTruncated
		}
		tx, err := DecodeTransaction(txBytes)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	p.Block = &types.Block{Header: header, Txs: txs}
	return p, nil
}

// EncodeAggregateQC serialises an AggregateQC.
func EncodeAggregateQC(a *types.AggregateQC) []byte {
	return EncodeQC(a.QC)
}

// DecodeAggregateQC parses bytes produced by EncodeAggregateQC.
func DecodeAggregateQC(b []byte) (*types.AggregateQC, error) {
	qc, err := DecodeQC(b)
	if err != nil {
		return nil, err
	}
	return &types.AggregateQC{QC: qc}, nil
}

// EncodeViewChangeVote serialises a ViewChangeVote. HighQC is encoded as a
// length-prefixed blob, empty when nil, so the decoder can tell "no lock"
// apart from a present-but-zero-value QC.
func EncodeViewChangeVote(vc *types.ViewChangeVote) []byte {
	buf := make([]byte, 0, 64+len(vc.Signature))
	buf = appendU64(buf, uint64(vc.NewView))
	buf = append(buf, vc.ValidatorIndex)
	if vc.HighQC != nil {
		buf = appendBytes(buf, EncodeQC(vc.HighQC))
	} else {
		buf = appendBytes(buf, nil)
	}
	buf = appendBytes(buf, vc.Signature)
	return buf
}

// DecodeViewChangeVote parses bytes produced by EncodeViewChangeVote.
func DecodeViewChangeVote(b []byte) (*types.ViewChangeVote, error) {
	if len(b) < 8+1 {
		return nil, errTruncated
	}
	view, b, ok := readU64(b)
	if !ok {
		return nil, errTruncated
	}
	vc := &types.ViewChangeVote{NewView: types.View(view)}
	vc.ValidatorIndex, b = b[0], b[1:]
	qcBytes, b, ok := readBytes(b)
	if !ok {
		return nil, errTruncated
	}
	if len(qcBytes) > 0 {
		qc, err := DecodeQC(qcBytes)
		if err != nil {
			return nil, err
		}
		vc.HighQC = qc
	}
	sig, _, ok := readBytes(b)
	if !ok {
		return nil, errTruncated
	}
	vc.Signature = sig
	return vc, nil
}

// DecodeTransaction parses bytes produced by EncodeTransaction.
func DecodeTransaction(b []byte) (*types.Transaction, error) {
	if len(b) < types.AddressLength+8+32+8 {
		return nil, errTruncated
	}
	tx := &types.Transaction{}
	copy(tx.Sender[:], b[:types.AddressLength])
	b = b[types.AddressLength:]
	var ok bool
	tx.Nonce, b, ok = readU64(b)
	if !ok {
		return nil, errTruncated
	}
	if len(b) < 32 {
		return nil, errTruncated
	}
	tx.GasPrice = new(uint256.Int).SetBytes32(b[:32])
	b = b[32:]
	tx.GasLimit, b, ok = readU64(b)
	if !ok {
		return nil, errTruncated
	}
	tx.Payload, b, ok = readBytes(b)
	if !ok {
		return nil, errTruncated
	}
	tx.Signature, _, ok = readBytes(b)
	if !ok {
		return nil, errTruncated
	}
	return tx, nil
}
