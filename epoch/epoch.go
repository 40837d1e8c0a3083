// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package epoch tracks per-block commit bitmaps and drives the
// epoch-boundary validator-set rebuild: liveness accounting, inactivity
// reporting to the slashing engine, and emitting the next ValidatorSet
// snapshot for the coordinator to install.
package epoch

import (
	"sync"

	"github.com/basalt-chain/basalt/slashing"
	"github.com/basalt-chain/basalt/staking"
	"github.com/basalt-chain/basalt/types"
	"github.com/basalt-chain/basalt/validatorset"
)

// Config controls epoch length and liveness thresholds.
type Config struct {
	EpochLength      uint64
	LivenessMinCommits uint64 // minimum commits participated in, out of EpochLength, to stay active
	ValidatorSetSize int
}

// BitmapSource is satisfied by the block store: epoch replay on restart
// reads bitmaps back out of it rather than trusting in-memory state.
type BitmapSource interface {
	GetCommitBitmap(number uint64) (types.CommitBitmap, error)
}

// Manager is the process-wide epoch manager.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	slashing *slashing.Engine
	staking  *staking.State

	// commitCounts[i] is how many blocks in the current epoch window
	// validator index i participated in, per the commit bitmap.
	commitCounts map[uint8]uint64
	epochStart   uint64
}

// New returns an epoch manager bound to the slashing engine and staking
// ledger it reports liveness and rebuilds rosters against.
func New(cfg Config, slashingEngine *slashing.Engine, stakingState *staking.State) *Manager {
	return &Manager{
		cfg:          cfg,
		slashing:     slashingEngine,
		staking:      stakingState,
		commitCounts: make(map[uint8]uint64),
	}
}

// OnBlockFinalised records bitmap against the in-progress epoch window and,
// if n closes an epoch, computes liveness, reports inactive validators,
// and returns a freshly installed ValidatorSet together with ok=true. When
// n does not close an epoch it returns ok=false.
func (m *Manager) OnBlockFinalised(n uint64, bitmap types.CommitBitmap, current *validatorset.Set, validatorAddrs map[uint8]types.Address) (*validatorset.Set, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := uint8(0); i < types.MaxValidators; i++ {
		if bitmap&(types.CommitBitmap(1)<<i) != 0 {
			m.commitCounts[i]++
		}
	}

	if m.cfg.EpochLength == 0 || n%m.cfg.EpochLength != 0 {
		return nil, false, nil
	}

	for i := 0; i < current.Size(); i++ {
		idx := uint8(i)
		if m.commitCounts[idx] < m.cfg.LivenessMinCommits {
			addr, ok := validatorAddrs[idx]
			if !ok {
				continue
			}
			ev := &types.InactivityEvidence{
				ValidatorIndex: idx,
				FirstMissed:    m.epochStart,
				LastMissed:     n,
			}
			if err := m.slashing.SlashInactivity(addr, ev); err != nil {
				return nil, false, err
			}
		}
	}

	top := m.staking.SnapshotTopK(m.cfg.ValidatorSetSize)
	roster := make([]*types.Validator, len(top))
	for i, entry := range top {
		var peerID string
		var pub [types.PubKeyLength]byte
		var aggPub [types.AggPubKeyLength]byte
		if v, err := current.Get(uint8(i)); err == nil {
			peerID, pub, aggPub = v.PeerID, v.PubKey, v.AggPubKey
		}
		roster[i] = &types.Validator{
			Index:     uint8(i),
			Address:   entry.Addr,
			Stake:     entry.Stake,
			PeerID:    peerID,
			PubKey:    pub,
			AggPubKey: aggPub,
		}
	}

	next, err := validatorset.New(roster)
	if err != nil {
		return nil, false, err
	}

	m.commitCounts = make(map[uint8]uint64)
	m.epochStart = n + 1
	return next, true, nil
}

// ReplayFromStore rebuilds in-memory commit counts for the current,
// still-open epoch window by re-reading bitmaps from store — the restart
// semantics the spec requires so an epoch boundary computed after a crash
// matches what the original process would have computed.
func (m *Manager) ReplayFromStore(currentBlockNumber uint64, src BitmapSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.EpochLength == 0 {
		return nil
	}
	start := currentBlockNumber - (currentBlockNumber % m.cfg.EpochLength)
	m.commitCounts = make(map[uint8]uint64)
	m.epochStart = start
	for n := start; n <= currentBlockNumber; n++ {
		bm, err := src.GetCommitBitmap(n)
		if err != nil {
			continue
		}
		for i := uint8(0); i < types.MaxValidators; i++ {
			if bm&(types.CommitBitmap(1)<<i) != 0 {
				m.commitCounts[i]++
			}
		}
	}
	return nil
}
