// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package store defines the narrow storage capabilities the consensus core
// depends on. The real persistent engine backing these interfaces (a KV
// store, a database, a remote service) is out of scope; callers only ever
// see BlockStore, ReceiptStore and StateDB.
package store

import (
	"errors"

	"github.com/basalt-chain/basalt/types"
)

// ErrNotFound is returned by a getter when the requested key does not exist.
var ErrNotFound = errors.New("store: not found")

// BlockStore persists finalised blocks and the commit evidence that proves
// they were finalised. A block and its commit bitmap are always written
// together: the core never has a block without knowing who signed it.
type BlockStore interface {
	// PutFullBlock stores a block, its canonical encoding, and the bitmap of
	// validators whose signatures contributed to its commit QC.
	PutFullBlock(block *types.Block, rawBytes []byte, bitmap types.CommitBitmap) error
	GetRawBlockByNumber(number uint64) ([]byte, error)
	GetCommitBitmap(number uint64) (types.CommitBitmap, error)
	SetLatestBlockNumber(number uint64) error
	GetLatestBlockNumber() (uint64, error)
}

// ReceiptStore persists the execution receipts produced by applying a
// block.
type ReceiptStore interface {
	PutReceipts(blockNumber uint64, receipts []*types.Receipt) error
	GetReceipts(blockNumber uint64) ([]*types.Receipt, error)
}

// StateDB is the key-value state the execution collaborator mutates. Fork
// produces an isolated copy cheap enough to take once per pipelined round;
// Swap atomically installs a forked copy as the database every future
// reader observes, which is how a pipelined round's speculative state
// becomes canonical the instant its block commits.
type StateDB interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	// Fork returns an isolated copy of the database. Writes to the fork are
	// never visible through the parent until the fork is installed with
	// Swap.
	Fork() StateDB
	// Swap atomically replaces the receiver's contents with new's,
	// visible to every holder of the receiver from that instant on. new is
	// typically a StateDB previously returned by Fork.
	Swap(new StateDB) error
	// Root returns a content hash of the current key space, used as a
	// block header's StateRoot.
	Root() types.Hash
}
