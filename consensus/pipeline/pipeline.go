// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package pipeline runs up to k concurrent bft.Round instances for
// consecutive block numbers so proposal and voting latency for block n+1
// overlaps block n's commit, while still finalising strictly in order.
package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/basalt-chain/basalt/consensus/bft"
	"github.com/basalt-chain/basalt/crypto"
	"github.com/basalt-chain/basalt/types"
	"github.com/basalt-chain/basalt/validatorset"
)

// ErrPipelineFull is returned by StartNext when k rounds are already
// in flight.
var ErrPipelineFull = errors.New("pipeline: max concurrent rounds reached")

// Config bounds the pipeline depth and each Round's own configuration.
type Config struct {
	Depth      int
	RoundCfg   bft.Config
}

// Pipeline owns up to Depth concurrent Rounds, keyed by block number, and
// enforces in-order finalisation: block n can only be reported finalised
// once n-1 has been.
type Pipeline struct {
	mu     sync.Mutex
	cfg    Config
	vs     *validatorset.Set
	signer crypto.AggregateSigner
	self   uint8

	rounds       map[uint64]*bft.Round
	nextToFinal  uint64
	minNextView  map[uint64]types.View // per block number, bumped on view change timeout
	pendingFinal map[uint64]*bft.FinalizedBlock
}

// New returns an empty pipeline starting from block number startAt.
func New(cfg Config, vs *validatorset.Set, signer crypto.AggregateSigner, self uint8, startAt uint64) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		vs:           vs,
		signer:       signer,
		self:         self,
		rounds:       make(map[uint64]*bft.Round),
		nextToFinal:  startAt,
		minNextView:  make(map[uint64]types.View),
		pendingFinal: make(map[uint64]*bft.FinalizedBlock),
	}
}

// StartNext begins a new Round for the next block number not yet in
// flight, provided fewer than Depth rounds are active.
func (p *Pipeline) StartNext(now time.Time) (*bft.Round, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rounds) >= p.cfg.Depth {
		return nil, 0, ErrPipelineFull
	}
	n := p.nextToFinal + uint64(len(p.rounds))
	if _, exists := p.rounds[n]; exists {
		return nil, 0, ErrPipelineFull
	}
	r := bft.New(p.cfg.RoundCfg, p.vs, p.signer, p.self)
	r.StartRound(n, now)
	p.rounds[n] = r
	return r, n, nil
}

// Round returns the in-flight Round for a block number, if any.
func (p *Pipeline) Round(blockNumber uint64) (*bft.Round, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.rounds[blockNumber]
	return r, ok
}

// MinNextView returns the floor BumpMinNextView has recorded for a block
// number's next attempt. Nothing in this module reads it: StartNext and
// Round do not consult it when choosing a view.
func (p *Pipeline) MinNextView(blockNumber uint64) types.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minNextView[blockNumber]
}

// BumpMinNextView records that blockNumber's round timed out at view v,
// raising the floor MinNextView reports to at least v+1.
func (p *Pipeline) BumpMinNextView(blockNumber uint64, v types.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur := p.minNextView[blockNumber]; v+1 > cur {
		p.minNextView[blockNumber] = v + 1
	}
}

// ReportFinalized records that a Round finalised. It returns the list of
// FinalizedBlock values now eligible for delivery in block-number order
// (this call's block, plus any previously buffered blocks that were
// waiting on it), and removes their Rounds from the pipeline.
func (p *Pipeline) ReportFinalized(fb *bft.FinalizedBlock) []*bft.FinalizedBlock {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingFinal[fb.BlockNumber] = fb

	var ready []*bft.FinalizedBlock
	for {
		next, ok := p.pendingFinal[p.nextToFinal]
		if !ok {
			break
		}
		ready = append(ready, next)
		delete(p.pendingFinal, p.nextToFinal)
		delete(p.rounds, p.nextToFinal)
		delete(p.minNextView, p.nextToFinal)
		p.nextToFinal++
	}
	return ready
}

// InFlight returns the number of rounds currently active.
func (p *Pipeline) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rounds)
}

// NextToFinalize returns the lowest block number still awaiting
// finalisation.
func (p *Pipeline) NextToFinalize() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextToFinal
}
