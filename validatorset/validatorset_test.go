// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package validatorset

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/basalt-chain/basalt/types"
)

func mkValidator(i int, stake uint64) *types.Validator {
	addr := types.Address{}
	addr[19] = byte(i)
	return &types.Validator{
		Index:   uint8(i),
		PeerID:  string(rune('a' + i)),
		Address: addr,
		Stake:   uint256.NewInt(stake),
	}
}

func TestQuorumThresholdBoundaryValues(t *testing.T) {
	cases := map[int]int{
		1:  1,
		2:  2,
		3:  3,
		4:  3,
		7:  5,
		10: 7,
	}
	for n, want := range cases {
		require.Equal(t, want, QuorumThreshold(n), "n=%d", n)
	}
}

func TestNewRejectsEmptyRoster(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestNewRejectsNonDenseIndices(t *testing.T) {
	v0 := mkValidator(0, 1)
	v1 := mkValidator(0, 1) // duplicate index, should be 1
	_, err := New([]*types.Validator{v0, v1})
	require.Error(t, err)
}

func TestNewRejectsOversizedRoster(t *testing.T) {
	roster := make([]*types.Validator, types.MaxValidators+1)
	for i := range roster {
		roster[i] = mkValidator(i, 1)
	}
	_, err := New(roster)
	require.Error(t, err)
}

func TestSetGetAndGetByPeerID(t *testing.T) {
	roster := []*types.Validator{mkValidator(0, 10), mkValidator(1, 20)}
	set, err := New(roster)
	require.NoError(t, err)
	require.Equal(t, 2, set.Size())

	v, err := set.Get(1)
	require.NoError(t, err)
	require.Equal(t, uint8(1), v.Index)

	_, err = set.Get(5)
	require.ErrorIs(t, err, ErrUnknownValidator)

	v2, err := set.GetByPeerID(roster[0].PeerID)
	require.NoError(t, err)
	require.Equal(t, uint8(0), v2.Index)

	_, err = set.GetByPeerID("nobody")
	require.ErrorIs(t, err, ErrUnknownValidator)
}

func TestLeaderIsDeterministicAcrossCallsAndInstances(t *testing.T) {
	roster := []*types.Validator{mkValidator(0, 10), mkValidator(1, 20), mkValidator(2, 5)}
	setA, err := New(roster)
	require.NoError(t, err)
	setB, err := New([]*types.Validator{mkValidator(0, 10), mkValidator(1, 20), mkValidator(2, 5)})
	require.NoError(t, err)

	for view := types.View(0); view < 50; view++ {
		la := setA.Leader(view)
		lb := setB.Leader(view)
		require.Equal(t, la.Index, lb.Index, "view=%d", view)

		again := setA.Leader(view)
		require.Equal(t, la.Index, again.Index)
	}
}

func TestLeaderOnlyReturnsKnownValidators(t *testing.T) {
	roster := []*types.Validator{mkValidator(0, 1)}
	set, err := New(roster)
	require.NoError(t, err)
	for view := types.View(0); view < 20; view++ {
		l := set.Leader(view)
		require.Equal(t, uint8(0), l.Index)
	}
}

func TestUpdateIdentityReconcilesPeerIDWithoutChangingStakeOrIndex(t *testing.T) {
	roster := []*types.Validator{mkValidator(0, 10), mkValidator(1, 20)}
	set, err := New(roster)
	require.NoError(t, err)

	var pub [types.PubKeyLength]byte
	var aggPub [types.AggPubKeyLength]byte
	pub[0] = 0xAB

	require.NoError(t, set.UpdateIdentity(0, "new-peer-id", pub, aggPub))

	v, err := set.GetByPeerID("new-peer-id")
	require.NoError(t, err)
	require.Equal(t, uint8(0), v.Index)
	require.Equal(t, pub, v.PubKey)

	_, err = set.GetByPeerID(roster[0].PeerID)
	require.ErrorIs(t, err, ErrUnknownValidator)

	require.Equal(t, uint256.NewInt(10), v.Stake)
}

func TestUpdateIdentityRejectsUnknownIndex(t *testing.T) {
	roster := []*types.Validator{mkValidator(0, 1)}
	set, err := New(roster)
	require.NoError(t, err)
	var pub [types.PubKeyLength]byte
	var aggPub [types.AggPubKeyLength]byte
	require.ErrorIs(t, set.UpdateIdentity(9, "x", pub, aggPub), ErrUnknownValidator)
}

func TestSnapshotIsDefensiveCopy(t *testing.T) {
	roster := []*types.Validator{mkValidator(0, 10)}
	set, err := New(roster)
	require.NoError(t, err)

	snap := set.Snapshot()
	snap[0].Stake = uint256.NewInt(999)

	v, err := set.Get(0)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(10), v.Stake)
}

func TestSortAndIndexOrdersByAddressAndReassignsIndex(t *testing.T) {
	a := mkValidator(0, 1)
	a.Address[19] = 3
	b := mkValidator(0, 1)
	b.Address[19] = 1
	c := mkValidator(0, 1)
	c.Address[19] = 2

	sorted := SortAndIndex([]*types.Validator{a, b, c})
	require.Equal(t, uint8(0), sorted[0].Index)
	require.Equal(t, uint8(1), sorted[1].Index)
	require.Equal(t, uint8(2), sorted[2].Index)
	require.True(t, sorted[0].Address.String() < sorted[1].Address.String())
	require.True(t, sorted[1].Address.String() < sorted[2].Address.String())
}
