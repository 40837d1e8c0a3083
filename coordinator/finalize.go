// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Block finalisation, batch sync, and the epoch-boundary validator-set
// rebuild. These three paths all eventually call back into the same
// execution/storage/mempool sequence, grounded on how the teacher's
// engine applied a decided slot to its ledger and rotated reputation.

package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/basalt-chain/basalt/consensus/bft"
	"github.com/basalt-chain/basalt/consensus/pipeline"
	"github.com/basalt-chain/basalt/sync"
	"github.com/basalt-chain/basalt/types"
	"github.com/basalt-chain/basalt/validatorset"
	"github.com/basalt-chain/basalt/wire"
)

// onBlockFinalised reports a Round's commit decision to the pipeline and
// applies every block the pipeline's in-order barrier now releases — the
// reporting round's own block, plus any later blocks that had already
// finalised out of order and were waiting on this one.
func (c *Coordinator) onBlockFinalised(fb *bft.FinalizedBlock) {
	for _, ready := range c.pipe.ReportFinalized(fb) {
		c.applyFinalized(ready)
	}
}

func (c *Coordinator) applyFinalized(fb *bft.FinalizedBlock) {
	c.mu.Lock()
	block, ok := c.pendingBlocks[fb.BlockNumber]
	delete(c.pendingBlocks, fb.BlockNumber)
	c.mu.Unlock()
	if !ok {
		c.classify(reported("applyFinalized", errMissingBlock))
		return
	}

	fork := c.canonical.Fork()
	result, err := c.executor.ApplyBlock(fork, block)
	if err != nil {
		c.classify(actionable("ApplyBlock", err))
		return
	}
	if err := c.canonical.Swap(fork); err != nil {
		c.classify(fatal("canonical.Swap", err))
		return
	}

	if err := c.blocks.PutFullBlock(block, block.Header.Encode(), fb.CommitBitmap); err != nil {
		c.classify(fatal("PutFullBlock", err))
		return
	}
	if err := c.receipts.PutReceipts(fb.BlockNumber, result.Receipts); err != nil {
		c.classify(actionable("PutReceipts", err))
	}
	if err := c.blocks.SetLatestBlockNumber(fb.BlockNumber); err != nil {
		c.classify(actionable("SetLatestBlockNumber", err))
	}

	c.mempool.RemoveConfirmed(block.Txs)
	c.mempool.PruneStale(c.accountView(), c.baseFee)

	c.mu.Lock()
	c.parentHash = fb.BlockHash
	c.stats.RoundsProcessed++
	c.stats.LastFinalizedBlock = fb.BlockNumber
	c.stats.LastRoundTime = time.Since(c.lastRound)
	c.updateAverageRoundTime(c.stats.LastRoundTime)
	c.lastRound = time.Now()
	c.mu.Unlock()

	vs := c.validatorSet()
	next, epochClosed, err := c.epochMgr.OnBlockFinalised(fb.BlockNumber, fb.CommitBitmap, vs, c.validatorAddresses(vs))
	if err != nil {
		c.classify(actionable("epoch.OnBlockFinalised", err))
	} else if epochClosed {
		c.setValidatorSet(next)
		c.log.Info("installed new validator set", "epochEndBlock", fb.BlockNumber, "size", next.Size())
	}

	announce := &types.BlockAnnounce{BlockNumber: fb.BlockNumber, BlockHash: fb.BlockHash}
	c.mesh.Broadcast(c.frame(wire.TagBlockAnnounce, wire.EncodeBlockAnnounce(announce)))
}

func (c *Coordinator) validatorAddresses(vs *validatorset.Set) map[uint8]types.Address {
	snap := vs.Snapshot()
	out := make(map[uint8]types.Address, len(snap))
	for _, v := range snap {
		out[v.Index] = v.Address
	}
	return out
}

// OnSyncedBlock satisfies epoch.EpochFeeder: every block a sync session
// applies is fed through the same epoch-boundary accounting a live
// commit would have gone through, so a node that caught up via sync ends
// up with the identical liveness/validator-set history as one that
// watched every block commit in real time.
func (c *Coordinator) OnSyncedBlock(number uint64, bitmap types.CommitBitmap) {
	vs := c.validatorSet()
	next, ok, err := c.epochMgr.OnBlockFinalised(number, bitmap, vs, c.validatorAddresses(vs))
	if err != nil {
		c.classify(actionable("epoch.OnBlockFinalised", err))
		return
	}
	if ok {
		c.setValidatorSet(next)
	}
}

// FetchBatch satisfies sync.BatchFetcher: it sends a SyncRequest to peerID
// and blocks until either a matching SyncResponse is dispatched back by
// onSyncResponse or ctx expires.
func (c *Coordinator) FetchBatch(ctx context.Context, peerID string, fromNumber uint64) ([]*sync.BlockWithBitmap, error) {
	ch := make(chan []*sync.BlockWithBitmap, 1)
	c.syncWaitersMu.Lock()
	c.syncWaiters[peerID] = ch
	c.syncWaitersMu.Unlock()
	defer func() {
		c.syncWaitersMu.Lock()
		delete(c.syncWaiters, peerID)
		c.syncWaitersMu.Unlock()
	}()

	req := &wire.SyncRequest{FromNumber: fromNumber}
	if err := c.mesh.SendToPeer(peerID, c.frame(wire.TagSyncRequest, wire.EncodeSyncRequest(req))); err != nil {
		return nil, err
	}
	select {
	case blocks := <-ch:
		return blocks, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// maybeStartSync compares the best peer-advertised height against our own
// and starts a sync session once the gap reaches the configured
// tolerance (SyncLagBlocks). A session already in flight, or no peer far enough ahead, is
// silently a no-op.
func (c *Coordinator) maybeStartSync(now time.Time) {
	if c.syncMgr.Active() {
		return
	}
	bestPeer, bestNumber, found := c.peerMgr.BestPeer(now)
	if !found {
		return
	}
	ourNumber, err := c.blocks.GetLatestBlockNumber()
	if err != nil {
		c.classify(reported("GetLatestBlockNumber", err))
		return
	}
	if bestNumber <= ourNumber || bestNumber-ourNumber < c.cfg.SyncLagBlocks {
		return
	}

	batches := (bestNumber-ourNumber)/sync.MaxBatchSize + 1
	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.SyncBatchTimeout*time.Duration(batches))
	defer cancel()

	res, err := c.syncMgr.Start(ctx, bestPeer, ourNumber+1, bestNumber, c.canonical)
	if err != nil {
		if errors.Is(err, sync.ErrSessionActive) {
			return
		}
		c.classify(reported("sync.Start", err))
		return
	}
	c.log.Info("sync session completed", "peer", bestPeer, "newLatestBlock", res.NewLatestBlock, "blocksApplied", res.BlocksApplied)
	if res.BlocksApplied > 0 {
		c.resetPipelineAfterSync(res.NewLatestBlock)
	}
}

// resetPipelineAfterSync discards every in-flight round (they raced
// against blocks the sync session just applied directly to canonical
// state) and starts a fresh pipeline at the block number sync left off
// at.
func (c *Coordinator) resetPipelineAfterSync(newLatest uint64) {
	hash, err := c.blockHashAt(newLatest)
	if err != nil {
		c.classify(reported("blockHashAt", err))
	}

	c.mu.Lock()
	c.parentHash = hash
	c.pendingBlocks = make(map[uint64]*types.Block)
	c.mu.Unlock()

	c.pipe = pipeline.New(pipeline.Config{
		Depth: c.cfg.PipelineDepth,
		RoundCfg: bft.Config{
			ViewTimeout:        c.cfg.RoundTimeout,
			FutureVoteCapacity: 64,
		},
	}, c.vs, c.signer, c.cfg.SelfIndex, newLatest+1)
}

func (c *Coordinator) blockHashAt(number uint64) (types.Hash, error) {
	raw, err := c.blocks.GetRawBlockByNumber(number)
	if err != nil {
		return types.Hash{}, err
	}
	header, err := types.DecodeHeader(raw)
	if err != nil {
		return types.Hash{}, err
	}
	return header.Hash(), nil
}
