// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Per-tick duties: keep the pipeline topped up and propose where this
// replica leads, advance view-change timeouts, and ping connected peers
// for the latency samples gossip.Mesh.Rebalance scores tiers with.

package coordinator

import (
	"errors"
	"time"

	"github.com/basalt-chain/basalt/consensus/pipeline"
	"github.com/basalt-chain/basalt/types"
	"github.com/basalt-chain/basalt/wire"
)

// defaultGasLimit bounds a proposed block's declared gas limit. Basalt has
// no fee market of its own (the execution collaborator owns that), so this
// is a conservative fixed ceiling rather than a dynamically adjusted one.
const defaultGasLimit = 30_000_000

// tryPropose tops the pipeline up to its configured depth and, for every
// in-flight round this replica leads in the Proposing phase, builds and
// broadcasts a proposal exactly once.
func (c *Coordinator) tryPropose(now time.Time) error {
	for {
		_, n, err := c.pipe.StartNext(now)
		if err != nil {
			if errors.Is(err, pipeline.ErrPipelineFull) {
				break
			}
			return err
		}
		c.log.Debug("started pipeline round", "blockNumber", n)
	}

	start := c.pipe.NextToFinalize()
	for n := start; n < start+uint64(c.cfg.PipelineDepth); n++ {
		round, ok := c.pipe.Round(n)
		if !ok || !round.IsLeader() || round.Phase() != types.PhaseProposing {
			continue
		}

		c.mu.Lock()
		_, already := c.pendingBlocks[n]
		c.mu.Unlock()
		if already {
			continue
		}

		block, err := c.buildBlock(n, now)
		if err != nil {
			return err
		}
		proposal, err := round.BuildProposal(block)
		if err != nil {
			return err
		}

		c.mu.Lock()
		c.pendingBlocks[n] = block
		c.stats.BlocksProposed++
		c.mu.Unlock()

		c.mesh.Broadcast(c.frame(wire.TagConsensusProposal, wire.EncodeProposal(proposal)))

		// The mesh never delivers a broadcast back to its sender, so the
		// leader pre-votes its own proposal here.
		leader := c.validatorSet().Leader(proposal.View)
		ob, _, err := round.OnProposal(proposal, leader.PubKey[:], c.classical.Verify)
		if err != nil {
			return err
		}
		if ob != nil {
			if err := c.dispatchOutbound(n, ob); err != nil {
				c.classify(reported("dispatchOutbound", err))
			}
		}
	}
	return nil
}

// buildBlock assembles a candidate block for number out of pending
// transactions, priced and nonce-checked against the canonical account
// view. Its parent is the speculative predecessor still in flight if one
// exists, else the last block this replica has actually finalised.
func (c *Coordinator) buildBlock(number uint64, now time.Time) (*types.Block, error) {
	view := c.accountView()
	txs := c.mempool.Pending(c.cfg.MempoolBatchSize, view)

	header := &types.Header{
		ParentHash:      c.parentHashFor(number),
		StateRoot:       c.canonical.Root(),
		Timestamp:       uint64(now.Unix()),
		Proposer:        c.cfg.SelfAddress,
		ChainID:         c.cfg.ChainID,
		GasLimit:        defaultGasLimit,
		BaseFee:         c.baseFee,
		ProtocolVersion: 1,
		BlockNumber:     number,
	}
	return &types.Block{Header: header, Txs: txs}, nil
}

func (c *Coordinator) parentHashFor(number uint64) types.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if number == 0 {
		return c.parentHash
	}
	if prev, ok := c.pendingBlocks[number-1]; ok {
		return prev.Hash()
	}
	return c.parentHash
}

// checkViewTimeouts ticks every in-flight round's own deadline and
// dispatches whatever ViewChange vote falls out, and records the timed-out
// view with the pipeline's BumpMinNextView. The round's view itself
// advances only through OnViewChange.
func (c *Coordinator) checkViewTimeouts(now time.Time) {
	start := c.pipe.NextToFinalize()
	for n := start; n < start+uint64(c.cfg.PipelineDepth); n++ {
		round, ok := c.pipe.Round(n)
		if !ok {
			continue
		}
		priorView := round.View()
		ob, err := round.Tick(now)
		if err != nil {
			c.classify(reported("Tick", err))
			continue
		}
		if ob == nil {
			continue
		}
		c.pipe.BumpMinNextView(n, priorView)
		c.mu.Lock()
		c.stats.MissedRounds++
		c.mu.Unlock()
		if err := c.dispatchOutbound(n, ob); err != nil {
			c.classify(reported("dispatchOutbound", err))
		}
	}
}

// sendPings fires a keepalive at every known, unbanned peer so Pong
// round-trip times feed gossip.Mesh.Observe's latency EWMA.
func (c *Coordinator) sendPings(now time.Time) {
	for _, rec := range c.peerMgr.Snapshot() {
		if rec.Banned(now) {
			continue
		}
		c.mu.Lock()
		c.pingSeq++
		nonce := c.pingSeq
		c.pingSent[nonce] = now
		c.mu.Unlock()
		if err := c.mesh.SendToPeer(rec.PeerID, c.frame(wire.TagPing, wire.EncodePing(nonce))); err != nil {
			c.log.Debug("ping send failed", "peer", rec.PeerID, "error", err)
		}
	}
}
