// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package staking

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/basalt-chain/basalt/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func TestRegisterAndGetStake(t *testing.T) {
	s := New()
	v := addr(1)
	require.NoError(t, s.Register(v, uint256.NewInt(100)))
	require.Equal(t, uint256.NewInt(100), s.GetStake(v))

	require.ErrorIs(t, s.Register(v, uint256.NewInt(1)), ErrAlreadyRegistered)
}

func TestGetStakeUnregisteredIsZero(t *testing.T) {
	s := New()
	require.True(t, s.GetStake(addr(9)).IsZero())
}

func TestDelegateAndUndelegate(t *testing.T) {
	s := New()
	v := addr(1)
	d := addr(2)
	require.NoError(t, s.Register(v, uint256.NewInt(100)))

	require.NoError(t, s.Delegate(d, v, uint256.NewInt(50)))
	require.Equal(t, uint256.NewInt(150), s.GetStake(v))

	require.NoError(t, s.Undelegate(d, v, uint256.NewInt(20)))
	require.Equal(t, uint256.NewInt(130), s.GetStake(v))
}

func TestDelegateUnknownValidatorFails(t *testing.T) {
	s := New()
	err := s.Delegate(addr(2), addr(1), uint256.NewInt(1))
	require.ErrorIs(t, err, ErrNotRegistered)
}

func TestUndelegateMoreThanDelegatedFails(t *testing.T) {
	s := New()
	v, d := addr(1), addr(2)
	require.NoError(t, s.Register(v, uint256.NewInt(100)))
	require.NoError(t, s.Delegate(d, v, uint256.NewInt(10)))
	err := s.Undelegate(d, v, uint256.NewInt(20))
	require.ErrorIs(t, err, ErrInsufficientDelegation)
}

func TestSnapshotTopKOrdersByStakeThenAddress(t *testing.T) {
	s := New()
	require.NoError(t, s.Register(addr(3), uint256.NewInt(50)))
	require.NoError(t, s.Register(addr(1), uint256.NewInt(100)))
	require.NoError(t, s.Register(addr(2), uint256.NewInt(100)))

	top := s.SnapshotTopK(2)
	require.Len(t, top, 2)
	require.Equal(t, uint256.NewInt(100), top[0].Stake)
	require.Equal(t, uint256.NewInt(100), top[1].Stake)
	require.Equal(t, addr(1), top[0].Addr)
	require.Equal(t, addr(2), top[1].Addr)
}

func TestSlashProportionalBurnsSelfAndDelegationsProportionally(t *testing.T) {
	s := New()
	v, d := addr(1), addr(2)
	require.NoError(t, s.Register(v, uint256.NewInt(80)))
	require.NoError(t, s.Delegate(d, v, uint256.NewInt(20)))
	// total 100, self 80%, delegated 20%

	require.NoError(t, s.SlashProportional(v, uint256.NewInt(50)))
	require.Equal(t, uint256.NewInt(50), s.GetStake(v))
}

func TestSlashProportionalCapsAtTotalStake(t *testing.T) {
	s := New()
	v := addr(1)
	require.NoError(t, s.Register(v, uint256.NewInt(30)))
	require.NoError(t, s.SlashProportional(v, uint256.NewInt(1000)))
	require.True(t, s.GetStake(v).IsZero())
}

func TestSlashProportionalUnknownValidatorFails(t *testing.T) {
	s := New()
	err := s.SlashProportional(addr(9), uint256.NewInt(1))
	require.ErrorIs(t, err, ErrNotRegistered)
}
