// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package types

import (
	"encoding/binary"
	"time"

	"github.com/basalt-chain/basalt/crypto"
	"github.com/holiman/uint256"
)

// Transaction is an opaque, signed unit of work destined for the execution
// collaborator. Basalt's consensus core never interprets its payload; it
// only needs sender, nonce and effective gas price to order and prune it.
type Transaction struct {
	Sender    Address
	Nonce     uint64
	GasPrice  *uint256.Int
	GasLimit  uint64
	Payload   []byte
	Signature []byte
}

// Hash returns the transaction hash used as its mempool key.
func (tx *Transaction) Hash() Hash {
	buf := make([]byte, 0, 64+len(tx.Payload)+len(tx.Signature))
	buf = append(buf, tx.Sender[:]...)
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], tx.Nonce)
	buf = append(buf, nonceBytes[:]...)
	if tx.GasPrice != nil {
		gp := tx.GasPrice.Bytes32()
		buf = append(buf, gp[:]...)
	}
	buf = append(buf, tx.Payload...)
	buf = append(buf, tx.Signature...)
	return BytesToHash(crypto.DefaultHasher().Sum(buf))
}

// Receipt is the derived execution outcome of a Transaction.
type Receipt struct {
	TxHash      Hash
	Success     bool
	GasUsed     uint64
	Logs        [][]byte
	BlockNumber uint64
}

// MempoolEntry wraps a Transaction with the bookkeeping the mempool needs:
// its arrival time, used to break ties fairly (FIFO) among equally-priced
// transactions.
type MempoolEntry struct {
	Tx       *Transaction
	Arrived  time.Time
	GasPrice *uint256.Int
}
