// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package slashing

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/basalt-chain/basalt/staking"
	"github.com/basalt-chain/basalt/types"
)

func newEngine(t *testing.T, cfg Config) (*Engine, *staking.State, types.Address) {
	t.Helper()
	s := staking.New()
	var addr types.Address
	addr[19] = 1
	require.NoError(t, s.Register(addr, uint256.NewInt(1000)))
	return New(cfg, s), s, addr
}

func TestSlashEquivocationIsIdempotent(t *testing.T) {
	e, s, addr := newEngine(t, Config{EquivocationSlashPermille: 500, EvidenceWindowEpochs: 4, EpochLength: 256})
	ev := &types.EquivocationEvidence{ValidatorIndex: 0, BlockNumber: 10, View: 3, HashA: types.BytesToHash([]byte("a")), HashB: types.BytesToHash([]byte("b"))}

	require.NoError(t, e.SlashEquivocation(addr, ev, 10))
	require.Equal(t, uint256.NewInt(500), s.GetStake(addr))

	// the same evidence submitted again must not burn a second time
	require.NoError(t, e.SlashEquivocation(addr, ev, 10))
	require.Equal(t, uint256.NewInt(500), s.GetStake(addr))

	eq, _ := e.Evidence()
	require.Len(t, eq, 1)
}

func TestSlashEquivocationDistinguishesByKey(t *testing.T) {
	e, s, addr := newEngine(t, Config{EquivocationSlashPermille: 100, EvidenceWindowEpochs: 4, EpochLength: 256})
	ev1 := &types.EquivocationEvidence{ValidatorIndex: 0, BlockNumber: 10, View: 3}
	ev2 := &types.EquivocationEvidence{ValidatorIndex: 0, BlockNumber: 11, View: 3}

	require.NoError(t, e.SlashEquivocation(addr, ev1, 11))
	require.NoError(t, e.SlashEquivocation(addr, ev2, 11))

	eq, _ := e.Evidence()
	require.Len(t, eq, 2)
	require.Less(t, s.GetStake(addr).Uint64(), uint64(1000))
}

func TestSlashEquivocationRejectsStaleEvidence(t *testing.T) {
	e, _, addr := newEngine(t, Config{EquivocationSlashPermille: 500, EvidenceWindowEpochs: 1, EpochLength: 100})
	ev := &types.EquivocationEvidence{ValidatorIndex: 0, BlockNumber: 1, View: 1}
	err := e.SlashEquivocation(addr, ev, 500)
	require.ErrorIs(t, err, ErrStaleEvidence)
}

func TestSlashInactivityBurnsSmallerAmount(t *testing.T) {
	e, s, addr := newEngine(t, Config{InactivitySlashPermille: 10})
	ev := &types.InactivityEvidence{ValidatorIndex: 0, FirstMissed: 1, LastMissed: 128}
	require.NoError(t, e.SlashInactivity(addr, ev))
	require.Equal(t, uint256.NewInt(990), s.GetStake(addr))

	_, ia := e.Evidence()
	require.Len(t, ia, 1)
}

func TestPermilleOfZeroTotalIsZero(t *testing.T) {
	require.True(t, permilleOf(uint256.NewInt(0), 500).IsZero())
	require.True(t, permilleOf(uint256.NewInt(1000), 0).IsZero())
}
