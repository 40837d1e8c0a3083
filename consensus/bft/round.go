// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package bft implements the single-round BFT state machine: Proposing ->
// PreVote -> PreCommit -> Commit, with view-change timeouts and
// lock-on-highest-QC safety. A Round never talks to the network or the
// store directly; every handler returns the Outbound messages the caller
// (PipelinedBft, ultimately the Coordinator) is responsible for sending,
// which keeps this package free of a dependency on gossip or storage.
package bft

import (
	"errors"
	"time"

	"github.com/basalt-chain/basalt/crypto"
	"github.com/basalt-chain/basalt/types"
	"github.com/basalt-chain/basalt/validatorset"
)

// Errors declared for Round handlers. The handlers in this package drop
// malformed input silently instead (stale votes, and votes for any view
// other than the current one); none of them returns these.
var (
	ErrWrongBlockNumber = errors.New("bft: message is for a different block number")
	ErrUnknownValidator = errors.New("bft: signer is not in the validator set")
)

// Config bounds a Round's timeouts. FutureVoteCapacity is carried but not
// consulted: OnVote drops votes for any view other than the current one.
type Config struct {
	ViewTimeout        time.Duration
	FutureVoteCapacity int
}

// Outbound is one message a Round handler wants sent. Exactly one of the
// pointer fields is non-nil.
type Outbound struct {
	Vote        *types.Vote
	ViewChange  *types.ViewChangeVote
	AggregateQC *types.AggregateQC
}

// FinalizedBlock is returned by a handler exactly once per Round, the
// instant a Commit QC is observed.
type FinalizedBlock struct {
	BlockNumber  uint64
	BlockHash    types.Hash
	CommitBitmap types.CommitBitmap
	CommitQC     *types.QC
}

// SafetyViolation is evidence-worthy equivocation detected locally: two
// different proposals/votes for the same (view, block_number) signed by
// the same validator, or a replica's own double-sign attempt refused.
type SafetyViolation struct {
	ValidatorIndex uint8
	BlockNumber    uint64
	View           types.View
	HashA, HashB   types.Hash
}

// voteKey identifies one (phase, view, hash) vote bucket the leader
// accumulates signature shares into.
type voteKey struct {
	phase types.Phase
	view  types.View
	hash  types.Hash
}

// Round drives one block number through the single-round protocol.
type Round struct {
	cfg       Config
	vs        *validatorset.Set
	signer    crypto.AggregateSigner
	selfIndex uint8

	blockNumber uint64
	view        types.View
	phase       types.Phase

	// lockedQC is the highest-view PreCommit QC this replica has observed
	// for this block number; it survives view changes (lock-on-highest-QC)
	// and constrains which proposal hash future views may PreVote for —
	// which is exactly the safety rule against pre-voting a different hash
	// than one already pre-committed at an earlier view.
	lockedQC *types.QC

	votes       map[voteKey]map[uint8][]byte // leader-only accumulation
	viewChanges map[types.View]map[uint8]*types.ViewChangeVote

	finalised    bool
	viewDeadline time.Time
}

// New returns a Round ready to have StartRound called on it.
func New(cfg Config, vs *validatorset.Set, signer crypto.AggregateSigner, selfIndex uint8) *Round {
	return &Round{
		cfg:         cfg,
		vs:          vs,
		signer:      signer,
		selfIndex:   selfIndex,
		votes:       make(map[voteKey]map[uint8][]byte),
		viewChanges: make(map[types.View]map[uint8]*types.ViewChangeVote),
	}
}

// IsLeader reports whether this replica leads the round's current view.
func (r *Round) IsLeader() bool {
	return r.vs.Leader(r.view).Index == r.selfIndex
}

// View returns the round's current view.
func (r *Round) View() types.View { return r.view }

// Phase returns the round's current phase.
func (r *Round) Phase() types.Phase { return r.phase }

// Finalised reports whether this round has already fired its one
// FinalizedBlock.
func (r *Round) Finalised() bool { return r.finalised }

// ViewDeadline returns when the current view should time out.
func (r *Round) ViewDeadline() time.Time { return r.viewDeadline }

// StartRound resets the round for blockNumber: view = blockNumber, phase =
// Proposing, per spec. It clears lockedQC along with the vote buckets, so
// every call starts the round with no lock; a lock survives view changes
// only within one StartRound, through OnViewChange.
func (r *Round) StartRound(blockNumber uint64, now time.Time) {
	r.blockNumber = blockNumber
	r.view = types.View(blockNumber)
	r.phase = types.PhaseProposing
	r.votes = make(map[voteKey]map[uint8][]byte)
	r.viewChanges = make(map[types.View]map[uint8]*types.ViewChangeVote)
	r.finalised = false
	r.lockedQC = nil
	r.viewDeadline = now.Add(r.cfg.ViewTimeout)
}

// BuildProposal is called on the leader only, once it has a block ready
// (built against a forked state by the caller). It signs and returns the
// Proposal to broadcast; the leader does not separately emit a PreVote for
// its own proposal — like every other replica, it evaluates the Proposal
// through OnProposal, which the Coordinator calls on the leader's own
// Round right after broadcasting it.
func (r *Round) BuildProposal(block *types.Block) (*types.Proposal, error) {
	if !r.IsLeader() || r.phase != types.PhaseProposing {
		return nil, errors.New("bft: not leader or not in Proposing phase")
	}
	hash := block.Hash()
	sig, err := r.signer.Sign(proposalSignBytes(r.view, r.blockNumber, hash))
	if err != nil {
		return nil, err
	}
	return &types.Proposal{
		View:            r.view,
		BlockNumber:     r.blockNumber,
		BlockHash:       hash,
		Block:           block,
		LeaderSignature: sig,
	}, nil
}

func proposalSignBytes(view types.View, blockNumber uint64, hash types.Hash) []byte {
	buf := make([]byte, 0, 48)
	buf = appendViewBlock(buf, view, blockNumber)
	return append(buf, hash[:]...)
}

func voteSignBytes(phase types.Phase, view types.View, blockNumber uint64, hash types.Hash) []byte {
	buf := make([]byte, 0, 49)
	buf = append(buf, byte(phase))
	buf = appendViewBlock(buf, view, blockNumber)
	return append(buf, hash[:]...)
}

func appendViewBlock(buf []byte, view types.View, blockNumber uint64) []byte {
	var v [8]byte
	putUint64(v[:], uint64(view))
	buf = append(buf, v[:]...)
	var b [8]byte
	putUint64(b[:], blockNumber)
	return append(buf, b[:]...)
}

func putUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
