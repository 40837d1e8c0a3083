// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package validatorset holds the ordered validator roster the consensus
// core reads leader and quorum decisions from. A set is immutable once
// installed: the leader table is a deterministic function of the stake
// snapshot taken at install time, never of live stake, so every node
// running the same epoch's ValidatorSet elects the same leader for the
// same view regardless of what StakingState looks like right now.
package validatorset

import (
	"encoding/binary"
	"errors"
	"sort"
	"sync"

	"github.com/basalt-chain/basalt/crypto"
	"github.com/basalt-chain/basalt/types"
)

// ErrUnknownValidator is returned by Get when the index or peer id has no
// matching validator in the set.
var ErrUnknownValidator = errors.New("validatorset: unknown validator")

// Set is the installed, ordered validator roster for one epoch.
type Set struct {
	mu         sync.RWMutex
	byIndex    []*types.Validator // dense, index == slice position
	byPeerID   map[string]uint8
	aliasTable []uint8 // cumulative stake-weighted alias slots, len == aliasSlots
}

const aliasSlots = 65536

// New installs a roster snapshot as a ValidatorSet. roster must be sorted
// by Index with dense indices starting at 0; the aliasTable is built once
// here from the stake each Validator carries at this instant, so later
// mutation of the Validator values the caller retains has no effect on
// this Set's leader decisions.
func New(roster []*types.Validator) (*Set, error) {
	if len(roster) == 0 {
		return nil, errors.New("validatorset: empty roster")
	}
	if len(roster) > types.MaxValidators {
		return nil, errors.New("validatorset: roster exceeds max validator count")
	}
	byIndex := make([]*types.Validator, len(roster))
	byPeerID := make(map[string]uint8, len(roster))
	for i, v := range roster {
		if int(v.Index) != i {
			return nil, errors.New("validatorset: roster indices must be dense and sorted")
		}
		byIndex[i] = v.Clone()
		byPeerID[v.PeerID] = v.Index
	}
	s := &Set{byIndex: byIndex, byPeerID: byPeerID}
	s.aliasTable = buildAliasTable(byIndex)
	return s, nil
}

// buildAliasTable assigns each validator a contiguous band of aliasSlots
// slots proportional to its stake, then fills any remainder left by integer
// division onto the highest-index validator so the table always sums to
// aliasSlots exactly.
func buildAliasTable(roster []*types.Validator) []uint8 {
	total := new(bigUintAccumulator)
	for _, v := range roster {
		total.addUint256(v.Stake)
	}
	table := make([]uint8, aliasSlots)
	filled := 0
	for _, v := range roster {
		slots := 0
		if !total.isZero() {
			slots = int(total.shareOf(v.Stake, aliasSlots))
		}
		for i := 0; i < slots && filled < aliasSlots; i++ {
			table[filled] = v.Index
			filled++
		}
	}
	// Remainder (rounding, or all-zero stake) goes to the last validator by
	// index so the alias table always covers every slot.
	last := roster[len(roster)-1].Index
	for filled < aliasSlots {
		table[filled] = last
		filled++
	}
	return table
}

// Leader returns the deterministic leader for view v: hash v into the
// alias table built from this set's install-time stake snapshot.
func (s *Set) Leader(view types.View) *types.Validator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(view))
	digest := crypto.DefaultHasher().Sum(buf[:])
	slot := binary.BigEndian.Uint32(digest[:4]) % aliasSlots
	idx := s.aliasTable[slot]
	return s.byIndex[idx].Clone()
}

// Get returns the validator at a dense index.
func (s *Set) Get(index uint8) (*types.Validator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(index) >= len(s.byIndex) {
		return nil, ErrUnknownValidator
	}
	return s.byIndex[index].Clone(), nil
}

// GetByPeerID returns the validator registered under a gossip peer id.
func (s *Set) GetByPeerID(peerID string) (*types.Validator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byPeerID[peerID]
	if !ok {
		return nil, ErrUnknownValidator
	}
	return s.byIndex[idx].Clone(), nil
}

// Size returns the validator-set cardinality n.
func (s *Set) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byIndex)
}

// QuorumThreshold returns q = floor(2n/3) + 1.
func (s *Set) QuorumThreshold() int {
	s.mu.RLock()
	n := len(s.byIndex)
	s.mu.RUnlock()
	return QuorumThreshold(n)
}

// QuorumThreshold computes q = floor(2n/3) + 1 for an arbitrary set size,
// exposed standalone so EpochManager can reason about a not-yet-installed
// roster's quorum.
func QuorumThreshold(n int) int {
	return (2*n)/3 + 1
}

// UpdateIdentity reconciles a placeholder validator row (registered by
// address/stake before a network handshake) with the peer id and public
// keys learned once that validator connects. It never changes stake or
// index, so it cannot perturb the alias table.
func (s *Set) UpdateIdentity(index uint8, peerID string, pubKey [types.PubKeyLength]byte, aggPubKey [types.AggPubKeyLength]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(index) >= len(s.byIndex) {
		return ErrUnknownValidator
	}
	v := s.byIndex[index]
	delete(s.byPeerID, v.PeerID)
	v.PeerID = peerID
	v.PubKey = pubKey
	v.AggPubKey = aggPubKey
	s.byPeerID[peerID] = index
	return nil
}

// Snapshot returns a defensive copy of the roster in index order.
func (s *Set) Snapshot() []*types.Validator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Validator, len(s.byIndex))
	for i, v := range s.byIndex {
		out[i] = v.Clone()
	}
	return out
}

// SortAndIndex is a helper for callers assembling a roster (e.g. EpochManager)
// from an unordered stake snapshot: it sorts by address for a stable,
// reproducible index assignment and rewrites each Validator's Index field
// in place.
func SortAndIndex(validators []*types.Validator) []*types.Validator {
	sort.Slice(validators, func(i, j int) bool {
		return validators[i].Address.String() < validators[j].Address.String()
	})
	for i, v := range validators {
		v.Index = uint8(i)
	}
	return validators
}
