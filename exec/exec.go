// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package exec defines the narrow capability the consensus core uses to
// turn a proposed block into state changes and receipts. The real
// transaction-execution semantics (a VM, a ledger, arbitrary business
// logic) are out of scope; Basalt only needs a component that can apply a
// block against a forked StateDB and report what happened.
package exec

import (
	"github.com/basalt-chain/basalt/store"
	"github.com/basalt-chain/basalt/types"
)

// Result is what applying a block against state produced.
type Result struct {
	Receipts []*types.Receipt
	GasUsed  uint64
	StateRoot types.Hash
}

// Executor applies transactions to a forked copy of state. The core always
// calls ApplyBlock against a StateDB returned by Fork, never against the
// live database directly, so a rejected or abandoned speculative round
// never leaks into canonical state.
type Executor interface {
	ApplyBlock(forked store.StateDB, block *types.Block) (*Result, error)
}

// noopExecutor applies every transaction as a no-op balance-free state
// mutation: it writes the transaction hash as a key so StateRoot changes
// deterministically with block content, and reports every transaction as
// successful. It stands in for the ledger/VM a real deployment plugs in.
type noopExecutor struct{}

// NewNoopExecutor returns the reference Executor used by tests and
// single-node development where no real ledger is wired.
func NewNoopExecutor() Executor { return &noopExecutor{} }

func (e *noopExecutor) ApplyBlock(forked store.StateDB, block *types.Block) (*Result, error) {
	receipts := make([]*types.Receipt, 0, len(block.Txs))
	var gasUsed uint64
	for _, tx := range block.Txs {
		h := tx.Hash()
		if err := forked.Set(h[:], []byte{1}); err != nil {
			return nil, err
		}
		gasUsed += tx.GasLimit
		receipts = append(receipts, &types.Receipt{
			TxHash:      h,
			Success:     true,
			GasUsed:     tx.GasLimit,
			BlockNumber: block.Number(),
		})
	}
	return &Result{Receipts: receipts, GasUsed: gasUsed, StateRoot: forked.Root()}, nil
}

var _ Executor = (*noopExecutor)(nil)
