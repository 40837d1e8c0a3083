// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package sync implements the batch chain-sync protocol: one session at a
// time, bounded batches of blocks executed against a forked state, and an
// atomic swap into canonical state only if the whole batch applies
// cleanly.
package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/basalt-chain/basalt/exec"
	"github.com/basalt-chain/basalt/gossip/peers"
	"github.com/basalt-chain/basalt/store"
	"github.com/basalt-chain/basalt/types"
)

// ErrSessionActive is returned by Start when a sync session is already
// running; re-entry is a documented no-op, not an error the caller must
// handle specially, but it is surfaced so callers can log it at debug.
var ErrSessionActive = errors.New("sync: a session is already active")

// MaxBatchSize bounds how many blocks are requested per batch.
const MaxBatchSize = 50

// BatchFetcher requests a batch of blocks (with their commit bitmaps) from
// a peer, starting at fromNumber, up to MaxBatchSize blocks.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, peerID string, fromNumber uint64) ([]*BlockWithBitmap, error)
}

// BlockWithBitmap is one block as served by a peer's SyncResponse.
type BlockWithBitmap struct {
	Block  *types.Block
	Bitmap types.CommitBitmap
}

// EpochFeeder is fed each synced block's bitmap in order, so the epoch
// manager's ring buffer replays deterministically.
type EpochFeeder interface {
	OnSyncedBlock(number uint64, bitmap types.CommitBitmap)
}

// Manager drives sync sessions, one Start call each. Only one session may
// be active at a time; Manager enforces that with an atomic guard.
type Manager struct {
	active   int32 // atomic guard: 0 idle, 1 running
	fetcher  BatchFetcher
	executor exec.Executor
	blocks   store.BlockStore
	receipts store.ReceiptStore
	peerMgr  *peers.Manager
	epoch    EpochFeeder
	batchTimeout time.Duration
}

// NewManager returns a sync manager wired to its collaborators.
func NewManager(fetcher BatchFetcher, executor exec.Executor, blocks store.BlockStore, receipts store.ReceiptStore, peerMgr *peers.Manager, epoch EpochFeeder, batchTimeout time.Duration) *Manager {
	return &Manager{
		fetcher:      fetcher,
		executor:     executor,
		blocks:       blocks,
		receipts:     receipts,
		peerMgr:      peerMgr,
		epoch:        epoch,
		batchTimeout: batchTimeout,
	}
}

// Result is what a completed sync session accomplished.
type Result struct {
	NewLatestBlock uint64
	BlocksApplied  int
}

// Start attempts to catch up to peerID's advertised height starting at
// fromNumber, against a forked copy of canonical. It returns
// ErrSessionActive immediately (a no-op) if a session is already running.
// On success it swaps fork into canonical atomically; on any failure the
// fork is discarded and canonical is untouched.
func (m *Manager) Start(ctx context.Context, peerID string, fromNumber, targetNumber uint64, canonical store.StateDB) (*Result, error) {
	if !atomic.CompareAndSwapInt32(&m.active, 0, 1) {
		return nil, ErrSessionActive
	}
	defer atomic.StoreInt32(&m.active, 0)

	fork := canonical.Fork()
	applied := 0
	next := fromNumber

	for next <= targetNumber {
		batchCtx, cancel := context.WithTimeout(ctx, m.batchTimeout)
		batch, err := m.fetcher.FetchBatch(batchCtx, peerID, next)
		cancel()
		if err != nil {
			return nil, err // silence/timeout: abort without banning
		}
		if len(batch) == 0 {
			break
		}

		g, _ := errgroup.WithContext(ctx)
		results := make([]*exec.Result, len(batch))
		for i, bwb := range batch {
			i, bwb := i, bwb
			g.Go(func() error {
				res, err := m.executor.ApplyBlock(fork, bwb.Block)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			m.peerMgr.Ban(peerID, time.Now().Add(24*time.Hour))
			return nil, err
		}

		for i, bwb := range batch {
			raw := encodeForStorage(bwb.Block)
			if err := m.blocks.PutFullBlock(bwb.Block, raw, bwb.Bitmap); err != nil {
				return nil, err
			}
			if err := m.receipts.PutReceipts(bwb.Block.Number(), results[i].Receipts); err != nil {
				return nil, err
			}
			if err := m.blocks.SetLatestBlockNumber(bwb.Block.Number()); err != nil {
				return nil, err
			}
			m.epoch.OnSyncedBlock(bwb.Block.Number(), bwb.Bitmap)
			applied++
			next = bwb.Block.Number() + 1
		}
	}

	if applied == 0 {
		return &Result{NewLatestBlock: fromNumber - 1, BlocksApplied: 0}, nil
	}
	if err := canonical.Swap(fork); err != nil {
		return nil, err
	}
	return &Result{NewLatestBlock: next - 1, BlocksApplied: applied}, nil
}

// Active reports whether a sync session is currently running.
func (m *Manager) Active() bool {
	return atomic.LoadInt32(&m.active) == 1
}

func encodeForStorage(b *types.Block) []byte {
	return b.Header.Encode()
}
