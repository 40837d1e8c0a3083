// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package memstore is an in-memory reference implementation of the store
// interfaces, suitable for tests and single-node development. A production
// deployment swaps this for a disk-backed engine behind the same
// interfaces; the consensus core never notices the difference.
package memstore

import (
	"sync"

	"github.com/basalt-chain/basalt/store"
	"github.com/basalt-chain/basalt/types"
)

// BlockStore is an in-memory store.BlockStore.
type BlockStore struct {
	mu      sync.RWMutex
	raw     map[uint64][]byte
	bitmaps map[uint64]types.CommitBitmap
	latest  uint64
	hasAny  bool
}

// NewBlockStore returns an empty in-memory BlockStore.
func NewBlockStore() *BlockStore {
	return &BlockStore{
		raw:     make(map[uint64][]byte),
		bitmaps: make(map[uint64]types.CommitBitmap),
	}
}

func (s *BlockStore) PutFullBlock(block *types.Block, rawBytes []byte, bitmap types.CommitBitmap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := block.Number()
	s.raw[n] = append([]byte(nil), rawBytes...)
	s.bitmaps[n] = bitmap
	return nil
}

func (s *BlockStore) GetRawBlockByNumber(number uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.raw[number]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *BlockStore) GetCommitBitmap(number uint64) (types.CommitBitmap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bm, ok := s.bitmaps[number]
	if !ok {
		return 0, store.ErrNotFound
	}
	return bm, nil
}

func (s *BlockStore) SetLatestBlockNumber(number uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = number
	s.hasAny = true
	return nil
}

func (s *BlockStore) GetLatestBlockNumber() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasAny {
		return 0, store.ErrNotFound
	}
	return s.latest, nil
}

var _ store.BlockStore = (*BlockStore)(nil)
