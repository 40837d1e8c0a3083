// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package types

// EvidenceKey is the canonical key used to deduplicate equivocation
// evidence. A bare view number is not a safe key: a round starts at a view
// equal to its block number and view changes raise it, so the same view
// number recurs across different block numbers (spec Open Questions), and
// the key must include the block number and proposer as well.
type EvidenceKey struct {
	View        View
	BlockNumber uint64
	Proposer    uint8
}

// EquivocationEvidence records that a validator signed two different block
// hashes for the same (view, block_number).
type EquivocationEvidence struct {
	ValidatorIndex uint8
	BlockNumber    uint64
	View           View
	HashA          Hash
	HashB          Hash
}

// Key returns the canonical dedup key for this evidence.
func (e *EquivocationEvidence) Key() EvidenceKey {
	return EvidenceKey{View: e.View, BlockNumber: e.BlockNumber, Proposer: e.ValidatorIndex}
}

// InactivityEvidence records that a validator missed every commit across a
// contiguous range of blocks.
type InactivityEvidence struct {
	ValidatorIndex uint8
	FirstMissed    uint64
	LastMissed     uint64
}
