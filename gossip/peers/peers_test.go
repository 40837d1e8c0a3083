// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package peers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/basalt-chain/basalt/types"
)

func TestUpsertAndGet(t *testing.T) {
	m := New()
	now := time.Unix(1000, 0)
	hash := types.BytesToHash([]byte("head"))
	m.Upsert("peer-a", "10.0.0.1:30303", 42, hash, now)

	rec, ok := m.Get("peer-a")
	require.True(t, ok)
	require.Equal(t, "10.0.0.1:30303", rec.Endpoint)
	require.Equal(t, uint64(42), rec.BestBlockNumber)
	require.Equal(t, hash, rec.BestBlockHash)
}

func TestUpsertUpdatesExistingRecord(t *testing.T) {
	m := New()
	now := time.Unix(1000, 0)
	m.Upsert("peer-a", "10.0.0.1:30303", 1, types.Hash{}, now)
	later := now.Add(time.Minute)
	m.Upsert("peer-a", "10.0.0.2:30303", 2, types.Hash{}, later)

	rec, ok := m.Get("peer-a")
	require.True(t, ok)
	require.Equal(t, "10.0.0.2:30303", rec.Endpoint)
	require.Equal(t, uint64(2), rec.BestBlockNumber)
	require.Equal(t, later, rec.LastSeen)
}

func TestGetUnknownPeer(t *testing.T) {
	m := New()
	_, ok := m.Get("nobody")
	require.False(t, ok)
}

func TestRemove(t *testing.T) {
	m := New()
	m.Upsert("peer-a", "", 0, types.Hash{}, time.Now())
	m.Remove("peer-a")
	_, ok := m.Get("peer-a")
	require.False(t, ok)
}

func TestBanAndIsBanned(t *testing.T) {
	m := New()
	now := time.Unix(1000, 0)
	m.Ban("peer-a", now.Add(time.Hour))

	require.True(t, m.IsBanned("peer-a", now))
	require.False(t, m.IsBanned("peer-a", now.Add(2*time.Hour)))
	require.False(t, m.IsBanned("nobody", now))
}

func TestBestPeerSkipsBannedAndPicksHighest(t *testing.T) {
	m := New()
	now := time.Unix(1000, 0)
	m.Upsert("low", "", 10, types.Hash{}, now)
	m.Upsert("high", "", 100, types.Hash{}, now)
	m.Upsert("banned-but-highest", "", 1000, types.Hash{}, now)
	m.Ban("banned-but-highest", now.Add(time.Hour))

	id, number, found := m.BestPeer(now)
	require.True(t, found)
	require.Equal(t, "high", id)
	require.Equal(t, uint64(100), number)
}

func TestBestPeerEmpty(t *testing.T) {
	m := New()
	_, _, found := m.BestPeer(time.Now())
	require.False(t, found)
}

func TestSnapshotIsDefensiveCopy(t *testing.T) {
	m := New()
	m.Upsert("peer-a", "ep", 5, types.Hash{}, time.Now())
	snap := m.Snapshot()
	require.Len(t, snap, 1)
	snap[0].BestBlockNumber = 999

	rec, ok := m.Get("peer-a")
	require.True(t, ok)
	require.Equal(t, uint64(5), rec.BestBlockNumber)
}
