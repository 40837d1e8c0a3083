// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package memstore

import (
	"sync"

	"github.com/basalt-chain/basalt/store"
	"github.com/basalt-chain/basalt/types"
)

// ReceiptStore is an in-memory store.ReceiptStore.
type ReceiptStore struct {
	mu       sync.RWMutex
	receipts map[uint64][]*types.Receipt
}

// NewReceiptStore returns an empty in-memory ReceiptStore.
func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{receipts: make(map[uint64][]*types.Receipt)}
}

func (s *ReceiptStore) PutReceipts(blockNumber uint64, receipts []*types.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]*types.Receipt, len(receipts))
	copy(cp, receipts)
	s.receipts[blockNumber] = cp
	return nil
}

func (s *ReceiptStore) GetReceipts(blockNumber uint64) ([]*types.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[blockNumber]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := make([]*types.Receipt, len(r))
	copy(cp, r)
	return cp, nil
}

var _ store.ReceiptStore = (*ReceiptStore)(nil)
