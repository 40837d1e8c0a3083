// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package memstore

import (
	"errors"
	"sort"
	"sync"

	"github.com/basalt-chain/basalt/crypto"
	"github.com/basalt-chain/basalt/store"
	"github.com/basalt-chain/basalt/types"
)

// StateDB is an in-memory store.StateDB. Every StateDB shares its mutex and
// holds a pointer to the current snapshot; Swap replaces that pointer under
// lock, so every holder of the same StateDB value observes the swap on its
// next Get without needing to be handed a new reference.
type StateDB struct {
	mu        *sync.RWMutex
	snapshot  **snapshot
}

type snapshot struct {
	data map[string][]byte
}

func newSnapshot() *snapshot {
	return &snapshot{data: make(map[string][]byte)}
}

func (s *snapshot) clone() *snapshot {
	cp := newSnapshot()
	for k, v := range s.data {
		cp.data[k] = append([]byte(nil), v...)
	}
	return cp
}

// NewStateDB returns an empty in-memory StateDB.
func NewStateDB() *StateDB {
	snap := newSnapshot()
	mu := &sync.RWMutex{}
	return &StateDB{mu: mu, snapshot: ptr(snap)}
}

func ptr(s *snapshot) **snapshot {
	p := &s
	return p
}

func (s *StateDB) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := (*s.snapshot).data[string(key)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *StateDB) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	(*s.snapshot).data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *StateDB) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete((*s.snapshot).data, string(key))
	return nil
}

// Fork returns an isolated copy: its own mutex and its own snapshot slot, so
// writes to the fork never touch the parent until Swap installs it back.
func (s *StateDB) Fork() store.StateDB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := (*s.snapshot).clone()
	return &StateDB{mu: &sync.RWMutex{}, snapshot: ptr(cp)}
}

// Swap installs new's contents as the receiver's contents, atomically, for
// every holder of the receiver.
func (s *StateDB) Swap(newDB store.StateDB) error {
	other, ok := newDB.(*StateDB)
	if !ok {
		return errors.New("memstore: Swap argument must be a *memstore.StateDB")
	}
	other.mu.RLock()
	replacement := (*other.snapshot).clone()
	other.mu.RUnlock()

	s.mu.Lock()
	*s.snapshot = replacement
	s.mu.Unlock()
	return nil
}

// Root hashes the sorted key/value pairs with the default Hasher. It is
// deterministic regardless of map iteration order.
func (s *StateDB) Root() types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data := (*s.snapshot).data
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf := make([]byte, 0, 64*len(keys))
	for _, k := range keys {
		buf = append(buf, []byte(k)...)
		buf = append(buf, data[k]...)
	}
	return types.BytesToHash(crypto.DefaultHasher().Sum(buf))
}

var _ store.StateDB = (*StateDB)(nil)
