// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package mempool

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/basalt-chain/basalt/types"
)

type fakeState struct {
	nonces   map[types.Address]uint64
	balances map[types.Address]*uint256.Int
}

func (s *fakeState) Nonce(addr types.Address) uint64 { return s.nonces[addr] }
func (s *fakeState) Balance(addr types.Address) *uint256.Int {
	if b, ok := s.balances[addr]; ok {
		return b
	}
	return uint256.NewInt(0)
}

func mkTx(sender byte, nonce uint64, gasPrice uint64) *types.Transaction {
	var addr types.Address
	addr[19] = sender
	return &types.Transaction{
		Sender:   addr,
		Nonce:    nonce,
		GasPrice: uint256.NewInt(gasPrice),
		GasLimit: 21000,
		Payload:  []byte{sender, byte(nonce)},
	}
}

func TestAddRejectsDuplicate(t *testing.T) {
	p := New(uint256.NewInt(1))
	tx := mkTx(1, 0, 10)
	require.Equal(t, Added, p.Add(tx, 0))
	require.Equal(t, DuplicateTx, p.Add(tx, 0))
}

func TestAddRejectsNonceGap(t *testing.T) {
	p := New(uint256.NewInt(1))
	tx := mkTx(1, 3, 10)
	require.Equal(t, NonceGap, p.Add(tx, 5))
}

func TestAddRejectsUnderpriced(t *testing.T) {
	p := New(uint256.NewInt(100))
	tx := mkTx(1, 0, 10)
	require.Equal(t, Underpriced, p.Add(tx, 0))
}

func TestPendingOrdersByNonceThenGasPrice(t *testing.T) {
	p := New(uint256.NewInt(1))
	require.Equal(t, Added, p.Add(mkTx(1, 1, 5), 0))
	require.Equal(t, Added, p.Add(mkTx(1, 0, 5), 0))
	require.Equal(t, Added, p.Add(mkTx(2, 0, 50), 0))

	var a1, a2 types.Address
	a1[19], a2[19] = 1, 2
	state := &fakeState{
		nonces:   map[types.Address]uint64{},
		balances: map[types.Address]*uint256.Int{a1: uint256.NewInt(1_000_000), a2: uint256.NewInt(1_000_000)},
	}

	pending := p.Pending(10, state)
	require.Len(t, pending, 3)
	require.Equal(t, uint64(0), pending[0].Nonce)
}

func TestPendingSkipsInsufficientFunds(t *testing.T) {
	p := New(uint256.NewInt(1))
	tx := mkTx(1, 0, 5)
	require.Equal(t, Added, p.Add(tx, 0))

	state := &fakeState{
		nonces:   map[types.Address]uint64{},
		balances: map[types.Address]*uint256.Int{},
	}
	pending := p.Pending(10, state)
	require.Len(t, pending, 0)
}

func TestRemoveConfirmedEvictsTransactions(t *testing.T) {
	p := New(uint256.NewInt(1))
	tx := mkTx(1, 0, 5)
	require.Equal(t, Added, p.Add(tx, 0))
	require.Equal(t, 1, p.Len())

	p.RemoveConfirmed([]*types.Transaction{tx})
	require.Equal(t, 0, p.Len())
	require.False(t, p.Has(tx.Hash()))
}

func TestPruneStaleRemovesBehindNonceAndUnderpriced(t *testing.T) {
	p := New(uint256.NewInt(1))
	stale := mkTx(1, 0, 5)
	underpriced := mkTx(2, 0, 5)
	fresh := mkTx(3, 0, 20)
	require.Equal(t, Added, p.Add(stale, 0))
	require.Equal(t, Added, p.Add(underpriced, 0))
	require.Equal(t, Added, p.Add(fresh, 0))

	var a1 types.Address
	a1[19] = 1
	state := &fakeState{nonces: map[types.Address]uint64{a1: 1}}

	p.PruneStale(state, uint256.NewInt(10))

	require.False(t, p.Has(stale.Hash()))
	require.False(t, p.Has(underpriced.Hash()))
	require.True(t, p.Has(fresh.Hash()))
}

func TestHasAndGetMany(t *testing.T) {
	p := New(uint256.NewInt(1))
	tx1 := mkTx(1, 0, 5)
	tx2 := mkTx(2, 0, 5)
	require.Equal(t, Added, p.Add(tx1, 0))

	require.True(t, p.Has(tx1.Hash()))
	require.False(t, p.Has(tx2.Hash()))

	got := p.GetMany([]types.Hash{tx1.Hash(), tx2.Hash()})
	require.Len(t, got, 1)
	require.Equal(t, tx1.Hash(), got[0].Hash())
}

func TestAddOutcomeString(t *testing.T) {
	require.Equal(t, "Added", Added.String())
	require.Equal(t, "DuplicateTx", DuplicateTx.String())
	require.Equal(t, "NonceGap", NonceGap.String())
	require.Equal(t, "Underpriced", Underpriced.String())
	require.Equal(t, "Unknown", AddOutcome(99).String())
}
