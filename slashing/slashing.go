// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package slashing applies equivocation and inactivity penalties against a
// staking ledger and keeps the evidence record that makes those penalties
// idempotent: the same piece of misbehaviour evidence, submitted any
// number of times, burns stake exactly once.
package slashing

import (
	"errors"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"

	"github.com/basalt-chain/basalt/staking"
	"github.com/basalt-chain/basalt/types"
)

// ErrStaleEvidence is returned when evidence references a block older than
// the configured evidence retention window.
var ErrStaleEvidence = errors.New("slashing: evidence older than retention window")

// Config controls penalty sizing and retention.
type Config struct {
	// EquivocationSlashPermille is the fraction of stake burned for a proven
	// equivocation, expressed in thousandths (1000 == 100%).
	EquivocationSlashPermille uint64
	// InactivitySlashPermille is the (smaller) fraction burned for failing
	// the epoch liveness threshold.
	InactivitySlashPermille uint64
	// EvidenceWindowEpochs bounds how many epochs back evidence may still
	// reference before it is rejected as stale.
	EvidenceWindowEpochs uint64
	EpochLength          uint64
}

// Engine is the process-wide slashing engine.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	staking *staking.State
	seen    mapset.Set[types.EvidenceKey]

	equivocations []*types.EquivocationEvidence
	inactivities  []*types.InactivityEvidence
}

// New returns a slashing engine bound to a staking ledger.
func New(cfg Config, stakingState *staking.State) *Engine {
	return &Engine{
		cfg:     cfg,
		staking: stakingState,
		seen:    mapset.NewSet[types.EvidenceKey](),
	}
}

// SlashEquivocation records and, unless already seen, applies an
// equivocation penalty. currentBlockNumber is used to enforce the
// evidence-window check.
func (e *Engine) SlashEquivocation(addr types.Address, ev *types.EquivocationEvidence, currentBlockNumber uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.EpochLength > 0 {
		windowBlocks := e.cfg.EvidenceWindowEpochs * e.cfg.EpochLength
		if currentBlockNumber > windowBlocks && ev.BlockNumber < currentBlockNumber-windowBlocks {
			return ErrStaleEvidence
		}
	}

	key := ev.Key()
	if e.seen.Contains(key) {
		return nil // idempotent: already slashed for this exact evidence
	}
	e.seen.Add(key)
	e.equivocations = append(e.equivocations, ev)

	total := e.staking.GetStake(addr)
	burn := permilleOf(total, e.cfg.EquivocationSlashPermille)
	return e.staking.SlashProportional(addr, burn)
}

// SlashInactivity applies the (smaller) inactivity penalty. Called only by
// EpochManager at an epoch boundary, never directly from the BFT engine.
func (e *Engine) SlashInactivity(addr types.Address, ev *types.InactivityEvidence) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.inactivities = append(e.inactivities, ev)
	total := e.staking.GetStake(addr)
	burn := permilleOf(total, e.cfg.InactivitySlashPermille)
	return e.staking.SlashProportional(addr, burn)
}

// Evidence returns copies of every evidence record accumulated so far, for
// persistence or API exposure.
func (e *Engine) Evidence() ([]*types.EquivocationEvidence, []*types.InactivityEvidence) {
	e.mu.Lock()
	defer e.mu.Unlock()
	eq := make([]*types.EquivocationEvidence, len(e.equivocations))
	copy(eq, e.equivocations)
	ia := make([]*types.InactivityEvidence, len(e.inactivities))
	copy(ia, e.inactivities)
	return eq, ia
}

func permilleOf(total *uint256.Int, permille uint64) *uint256.Int {
	if total == nil || total.IsZero() || permille == 0 {
		return uint256.NewInt(0)
	}
	num := new(uint256.Int).Mul(total, uint256.NewInt(permille))
	return num.Div(num, uint256.NewInt(1000))
}
