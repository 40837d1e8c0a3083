// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package coordinator

import "github.com/basalt-chain/basalt/types"

// evidenceWindow remembers, for every (view, block_number, proposer) seen
// recently, the one block hash that proposer signed there. A second,
// different hash for the same key is equivocation. A bare view number is
// not a safe key on its own — a round's first view equals its block
// number and rises with each view change, so the same view number recurs
// across different block numbers — so the key always carries all three
// fields.
//
// All mutation happens on the Coordinator's single dispatch goroutine, so
// this is a plain map, not a concurrent one.
type evidenceWindow struct {
	capacity int
	hashes   map[types.EvidenceKey]types.Hash
	order    []types.EvidenceKey // insertion order, for bounded pruning
}

func newEvidenceWindow(capacity int) *evidenceWindow {
	return &evidenceWindow{
		capacity: capacity,
		hashes:   make(map[types.EvidenceKey]types.Hash),
	}
}

// Observe records proposer's hash for key. If a different hash was
// already recorded for the same key, it returns that earlier hash and
// equivocated = true, meaning the caller has equivocation evidence in hand.
func (w *evidenceWindow) Observe(key types.EvidenceKey, hash types.Hash) (priorHash types.Hash, equivocated bool) {
	if prior, seen := w.hashes[key]; seen {
		if prior != hash {
			return prior, true
		}
		return types.Hash{}, false
	}
	w.hashes[key] = hash
	w.order = append(w.order, key)
	w.prune()
	return types.Hash{}, false
}

func (w *evidenceWindow) prune() {
	for len(w.order) > w.capacity {
		oldest := w.order[0]
		w.order = w.order[1:]
		delete(w.hashes, oldest)
	}
}
