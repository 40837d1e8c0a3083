// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package types

// Proposal is the leader's block proposal for a (view, block_number).
type Proposal struct {
	View            View
	BlockNumber     uint64
	BlockHash       Hash
	Block           *Block
	LeaderSignature []byte
}

// AggregateQC is the leader-only message publishing a freshly formed
// Quorum Certificate so replicas do not each have to accumulate votes
// themselves. It is the only consensus message carrying an aggregated
// signature.
type AggregateQC struct {
	QC *QC
}

// BlockAnnounce tells peers a new block has been finalised, without
// necessarily including the full body.
type BlockAnnounce struct {
	BlockNumber uint64
	BlockHash   Hash
}
