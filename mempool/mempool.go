// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package mempool holds transactions waiting to be proposed. Fairness
// policy is intentionally simple: ordered by sender nonce, then by gas
// price, then FIFO by arrival, with no priority auction — general-purpose
// mempool fairness is out of scope for a permissioned validator set.
package mempool

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/basalt-chain/basalt/types"
	"github.com/holiman/uint256"
)

// AddOutcome is the result of Add.
type AddOutcome int

const (
	Added AddOutcome = iota
	DuplicateTx
	NonceGap
	Underpriced
)

func (o AddOutcome) String() string {
	switch o {
	case Added:
		return "Added"
	case DuplicateTx:
		return "DuplicateTx"
	case NonceGap:
		return "NonceGap"
	case Underpriced:
		return "Underpriced"
	default:
		return "Unknown"
	}
}

// ErrUnknownOutcome is not returned by any function in this package; Add
// never returns an error, it returns an AddOutcome the caller switches on.
var ErrUnknownOutcome = errors.New("mempool: unknown outcome")

// AccountState is the narrow read-only view the mempool needs from the
// execution side to validate nonces and funds. The canonical StateDB
// never exposes nonce/balance directly (it is an opaque byte store), so
// the coordinator wires a small adapter satisfying this interface.
type AccountState interface {
	Nonce(addr types.Address) uint64
	Balance(addr types.Address) *uint256.Int
}

// config bounds how far below the account nonce an incoming tx may be
// before it is rejected as a gap versus simply stale.
const nonceGapTolerance = 0

// Pool is the process-wide pending transaction pool.
type Pool struct {
	mu       sync.RWMutex
	byHash   map[types.Hash]*types.MempoolEntry
	bySender map[types.Address]map[uint64]types.Hash // sender -> nonce -> hash
	baseFee  *uint256.Int
}

// New returns an empty pool with an initial base fee floor.
func New(baseFee *uint256.Int) *Pool {
	return &Pool{
		byHash:   make(map[types.Hash]*types.MempoolEntry),
		bySender: make(map[types.Address]map[uint64]types.Hash),
		baseFee:  baseFee.Clone(),
	}
}

// Add inserts tx if it passes dedup, nonce-gap and base-fee checks.
func (p *Pool) Add(tx *types.Transaction, accountNonce uint64) AddOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := tx.Hash()
	if _, exists := p.byHash[h]; exists {
		return DuplicateTx
	}
	if tx.Nonce+nonceGapTolerance < accountNonce {
		return NonceGap
	}
	if tx.GasPrice == nil || tx.GasPrice.Lt(p.baseFee) {
		return Underpriced
	}

	entry := &types.MempoolEntry{Tx: tx, Arrived: time.Now(), GasPrice: tx.GasPrice.Clone()}
	p.byHash[h] = entry
	if p.bySender[tx.Sender] == nil {
		p.bySender[tx.Sender] = make(map[uint64]types.Hash)
	}
	p.bySender[tx.Sender][tx.Nonce] = h
	return Added
}

// Pending returns at most limit transactions ordered by sender nonce, then
// by descending gas price, omitting any whose sender lacks funds to cover
// gas price * gas limit against the given account state.
func (p *Pool) Pending(limit int, state AccountState) []*types.Transaction {
	p.mu.RLock()
	entries := make([]*types.MempoolEntry, 0, len(p.byHash))
	for _, e := range p.byHash {
		entries = append(entries, e)
	}
	p.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Tx.Nonce != entries[j].Tx.Nonce {
			return entries[i].Tx.Nonce < entries[j].Tx.Nonce
		}
		if !entries[i].GasPrice.Eq(entries[j].GasPrice) {
			return entries[i].GasPrice.Gt(entries[j].GasPrice)
		}
		return entries[i].Arrived.Before(entries[j].Arrived)
	})

	out := make([]*types.Transaction, 0, limit)
	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		cost := new(uint256.Int).Mul(e.Tx.GasPrice, uint256.NewInt(e.Tx.GasLimit))
		if state.Balance(e.Tx.Sender).Lt(cost) {
			continue
		}
		out = append(out, e.Tx)
	}
	return out
}

// RemoveConfirmed evicts every transaction in txs from the pool, called
// once a block containing them finalises.
func (p *Pool) RemoveConfirmed(txs []*types.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, tx := range txs {
		h := tx.Hash()
		delete(p.byHash, h)
		if bySender, ok := p.bySender[tx.Sender]; ok {
			delete(bySender, tx.Nonce)
			if len(bySender) == 0 {
				delete(p.bySender, tx.Sender)
			}
		}
	}
}

// PruneStale removes every entry whose nonce has fallen behind its
// account's current nonce, or whose gas price is now below baseFee,
// restoring the mempool monotonicity invariant after a commit.
func (p *Pool) PruneStale(state AccountState, baseFee *uint256.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseFee = baseFee.Clone()
	for h, e := range p.byHash {
		accNonce := state.Nonce(e.Tx.Sender)
		if e.Tx.Nonce < accNonce || e.GasPrice.Lt(p.baseFee) {
			delete(p.byHash, h)
			if bySender, ok := p.bySender[e.Tx.Sender]; ok {
				delete(bySender, e.Tx.Nonce)
				if len(bySender) == 0 {
					delete(p.bySender, e.Tx.Sender)
				}
			}
		}
	}
}

// Len returns the number of pending transactions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byHash)
}

// Has reports whether hash is already pending, used to answer a peer's
// TxAnnounce without re-requesting transactions already held.
func (p *Pool) Has(hash types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byHash[hash]
	return ok
}

// GetMany returns whichever of hashes are present, in no particular
// order, to serve a peer's TxRequest.
func (p *Pool) GetMany(hashes []types.Hash) []*types.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*types.Transaction, 0, len(hashes))
	for _, h := range hashes {
		if e, ok := p.byHash[h]; ok {
			out = append(out, e.Tx)
		}
	}
	return out
}
