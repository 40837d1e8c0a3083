// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package peers owns the PeerRecord table: the single source of truth for
// what Basalt knows about each connected peer's chain head and ban state.
// The transport layer keeps only peer ids and looks records up here; it
// never owns a PeerRecord itself.
package peers

import (
	"sync"
	"time"

	"github.com/basalt-chain/basalt/types"
)

// Manager is the process-wide peer record table.
type Manager struct {
	mu      sync.RWMutex
	records map[string]*types.PeerRecord
}

// New returns an empty peer manager.
func New() *Manager {
	return &Manager{records: make(map[string]*types.PeerRecord)}
}

// Upsert registers or updates a peer's endpoint and announced chain head.
func (m *Manager) Upsert(peerID, endpoint string, bestNumber uint64, bestHash types.Hash, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[peerID]
	if !ok {
		rec = &types.PeerRecord{PeerID: peerID}
		m.records[peerID] = rec
	}
	rec.Endpoint = endpoint
	rec.BestBlockNumber = bestNumber
	rec.BestBlockHash = bestHash
	rec.LastSeen = now
}

// Get returns a peer's record, if known.
func (m *Manager) Get(peerID string) (*types.PeerRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[peerID]
	return rec, ok
}

// Remove drops a peer record entirely, e.g. on disconnect.
func (m *Manager) Remove(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, peerID)
}

// Ban marks a peer as banned until the given time, used when the sync
// protocol receives an invalid block from it.
func (m *Manager) Ban(peerID string, until time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[peerID]
	if !ok {
		rec = &types.PeerRecord{PeerID: peerID}
		m.records[peerID] = rec
	}
	rec.BanUntil = until
}

// IsBanned reports whether a peer is currently banned.
func (m *Manager) IsBanned(peerID string, now time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[peerID]
	if !ok {
		return false
	}
	return rec.Banned(now)
}

// BestPeer returns the peer id advertising the highest block number,
// which the coordinator compares against its own height to decide whether
// to start a sync session.
func (m *Manager) BestPeer(now time.Time) (string, uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var bestID string
	var bestNumber uint64
	found := false
	for id, rec := range m.records {
		if rec.Banned(now) {
			continue
		}
		if !found || rec.BestBlockNumber > bestNumber {
			bestID, bestNumber, found = id, rec.BestBlockNumber, true
		}
	}
	return bestID, bestNumber, found
}

// Snapshot returns a defensive copy of every known peer record.
func (m *Manager) Snapshot() []*types.PeerRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.PeerRecord, 0, len(m.records))
	for _, rec := range m.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out
}
