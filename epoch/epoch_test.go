// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package epoch

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/basalt-chain/basalt/slashing"
	"github.com/basalt-chain/basalt/staking"
	"github.com/basalt-chain/basalt/types"
	"github.com/basalt-chain/basalt/validatorset"
)

func mkValidator(i int, stake uint64) *types.Validator {
	addr := types.Address{}
	addr[19] = byte(i + 1)
	return &types.Validator{Index: uint8(i), Address: addr, Stake: uint256.NewInt(stake), PeerID: string(rune('a' + i))}
}

func TestOnBlockFinalisedNoopMidEpoch(t *testing.T) {
	s := staking.New()
	slash := slashing.New(slashing.Config{}, s)
	mgr := New(Config{EpochLength: 4, LivenessMinCommits: 2, ValidatorSetSize: 4}, slash, s)

	roster := []*types.Validator{mkValidator(0, 10)}
	vs, err := validatorset.New(roster)
	require.NoError(t, err)

	next, ok, err := mgr.OnBlockFinalised(1, types.CommitBitmap(0b1), vs, map[uint8]types.Address{0: roster[0].Address})
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, next)
}

func TestOnBlockFinalisedRebuildsRosterAtEpochBoundary(t *testing.T) {
	s := staking.New()
	v0, v1 := mkValidator(0, 10), mkValidator(1, 100)
	require.NoError(t, s.Register(v0.Address, v0.Stake))
	require.NoError(t, s.Register(v1.Address, v1.Stake))

	slash := slashing.New(slashing.Config{InactivitySlashPermille: 10}, s)
	mgr := New(Config{EpochLength: 4, LivenessMinCommits: 3, ValidatorSetSize: 2}, slash, s)

	vs, err := validatorset.New([]*types.Validator{v0, v1})
	require.NoError(t, err)
	addrs := map[uint8]types.Address{0: v0.Address, 1: v1.Address}

	var next *validatorset.Set
	var ok bool
	// validator 0 commits every block, validator 1 never does
	for n := uint64(1); n <= 4; n++ {
		next, ok, err = mgr.OnBlockFinalised(n, types.CommitBitmap(0b1), vs, addrs)
		require.NoError(t, err)
	}
	require.True(t, ok)
	require.NotNil(t, next)
	require.Equal(t, 2, next.Size())

	// validator 1 missed liveness threshold and should have been slashed
	require.Less(t, s.GetStake(v1.Address).Uint64(), uint64(100))
	require.Equal(t, uint64(10), s.GetStake(v0.Address).Uint64())
}

func TestReplayFromStoreRebuildsCommitCounts(t *testing.T) {
	s := staking.New()
	slash := slashing.New(slashing.Config{}, s)
	mgr := New(Config{EpochLength: 4, LivenessMinCommits: 1, ValidatorSetSize: 1}, slash, s)

	src := fakeBitmapSource{4: types.CommitBitmap(0b1), 5: types.CommitBitmap(0b1), 6: types.CommitBitmap(0)}
	require.NoError(t, mgr.ReplayFromStore(6, src))
	require.Equal(t, uint64(2), mgr.commitCounts[0])
	require.Equal(t, uint64(4), mgr.epochStart)
}

type fakeBitmapSource map[uint64]types.CommitBitmap

var errBitmapNotFound = errors.New("epoch: no bitmap for block")

func (f fakeBitmapSource) GetCommitBitmap(n uint64) (types.CommitBitmap, error) {
	bm, ok := f[n]
	if !ok {
		return 0, errBitmapNotFound
	}
	return bm, nil
}
