// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package staking tracks per-address self-stake and delegations. It is the
// single source of truth ValidatorSet snapshots are built from; staking
// itself never reads a ValidatorSet back, so there is no cycle between the
// two packages.
package staking

import (
	"errors"
	"sort"
	"sync"

	"github.com/basalt-chain/basalt/types"
	"github.com/holiman/uint256"
)

var (
	// ErrAlreadyRegistered is returned by Register for a validator address
	// already present.
	ErrAlreadyRegistered = errors.New("staking: address already registered")
	// ErrNotRegistered is returned for operations against an unknown
	// validator address.
	ErrNotRegistered = errors.New("staking: validator not registered")
	// ErrInsufficientDelegation is returned when undelegating more than a
	// delegator currently has delegated to a validator.
	ErrInsufficientDelegation = errors.New("staking: undelegate amount exceeds delegation")
)

// account is one validator's stake bookkeeping: its own stake plus the sum
// of delegations it has received, broken out per delegator so a slash can
// burn proportionally from every contributor.
type account struct {
	self        *uint256.Int
	delegations map[types.Address]*uint256.Int
}

func newAccount(self *uint256.Int) *account {
	return &account{self: self.Clone(), delegations: make(map[types.Address]*uint256.Int)}
}

func (a *account) total() *uint256.Int {
	sum := a.self.Clone()
	for _, d := range a.delegations {
		sum.Add(sum, d)
	}
	return sum
}

// State is the process-wide staking ledger.
type State struct {
	mu       sync.RWMutex
	accounts map[types.Address]*account
}

// New returns an empty staking ledger.
func New() *State {
	return &State{accounts: make(map[types.Address]*account)}
}

// Register creates a new validator account with an initial self-stake.
func (s *State) Register(addr types.Address, selfStake *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[addr]; ok {
		return ErrAlreadyRegistered
	}
	s.accounts[addr] = newAccount(selfStake)
	return nil
}

// Delegate adds amount to delegator's delegation against validator.
func (s *State) Delegate(delegator, validator types.Address, amount *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[validator]
	if !ok {
		return ErrNotRegistered
	}
	cur, ok := acc.delegations[delegator]
	if !ok {
		cur = uint256.NewInt(0)
		acc.delegations[delegator] = cur
	}
	cur.Add(cur, amount)
	return nil
}

// Undelegate removes amount from delegator's delegation against validator.
func (s *State) Undelegate(delegator, validator types.Address, amount *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[validator]
	if !ok {
		return ErrNotRegistered
	}
	cur, ok := acc.delegations[delegator]
	if !ok || cur.Lt(amount) {
		return ErrInsufficientDelegation
	}
	cur.Sub(cur, amount)
	if cur.IsZero() {
		delete(acc.delegations, delegator)
	}
	return nil
}

// GetStake returns the total stake (self + delegated) behind addr. Returns
// zero for an address never registered.
func (s *State) GetStake(addr types.Address) *uint256.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[addr]
	if !ok {
		return uint256.NewInt(0)
	}
	return acc.total()
}

// StakeEntry pairs an address with its current total stake, as returned by
// SnapshotTopK.
type StakeEntry struct {
	Addr  types.Address
	Stake *uint256.Int
}

// SnapshotTopK returns the k validator addresses with the greatest total
// stake, ties broken by address for determinism, together with their
// stake at the moment of the call — exactly what ValidatorSet.New needs to
// install a new roster.
func (s *State) SnapshotTopK(k int) []StakeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]StakeEntry, 0, len(s.accounts))
	for addr, acc := range s.accounts {
		entries = append(entries, StakeEntry{Addr: addr, Stake: acc.total()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Stake.Cmp(entries[j].Stake); c != 0 {
			return c > 0
		}
		return entries[i].Addr.String() < entries[j].Addr.String()
	})
	if k < len(entries) {
		entries = entries[:k]
	}
	return entries
}

// SlashProportional burns amount from addr's total stake, taken from self
// and every delegation in proportion to their current share of the total.
// Idempotent-safe: callers (the slashing package) are responsible for
// evidence-level idempotence; this method always applies the burn it is
// given.
func (s *State) SlashProportional(addr types.Address, amount *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[addr]
	if !ok {
		return ErrNotRegistered
	}
	total := acc.total()
	if total.IsZero() {
		return nil
	}
	if amount.Gt(total) {
		amount = total
	}

	burnShare := func(share *uint256.Int) *uint256.Int {
		num := new(uint256.Int).Mul(share, amount)
		return new(uint256.Int).Div(num, total)
	}

	selfBurn := burnShare(acc.self)
	acc.self.Sub(acc.self, selfBurn)
	burned := selfBurn.Clone()

	for delegator, share := range acc.delegations {
		b := burnShare(share)
		share.Sub(share, b)
		burned.Add(burned, b)
		if share.IsZero() {
			delete(acc.delegations, delegator)
		}
	}

	// Rounding from integer division can leave a remainder unburned; take
	// it from self so the invariant total == self + Σdelegations still
	// holds exactly after an amount-bounded slash.
	if remainder := new(uint256.Int).Sub(amount, burned); !remainder.IsZero() && acc.self.Cmp(remainder) >= 0 {
		acc.self.Sub(acc.self, remainder)
	}
	return nil
}
