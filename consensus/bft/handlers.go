// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package bft

import (
	"time"

	"github.com/basalt-chain/basalt/types"
)

// ProposalVerifier checks a leader's signature over a proposal; satisfied
// by crypto.AggregateSigner.Verify or crypto.ClassicalSigner.Verify.
type ProposalVerifier func(pubKey, msg, sig []byte) bool

// OnProposal validates a proposal and, if acceptable and unlocked (or
// matching the current lock), returns a PreVote addressed to the leader.
// A nil Outbound with no error means the proposal was silently ignored
// (wrong view/block number, or it conflicts with this replica's lock).
func (r *Round) OnProposal(p *types.Proposal, leaderPubKey []byte, verify ProposalVerifier) (*Outbound, *SafetyViolation, error) {
	if p.BlockNumber != r.blockNumber {
		return nil, nil, nil // past or unrelated block number: silently dropped
	}
	if p.View != r.view || r.phase != types.PhaseProposing {
		return nil, nil, nil
	}
	if !verify(leaderPubKey, proposalSignBytes(p.View, p.BlockNumber, p.BlockHash), p.LeaderSignature) {
		return nil, nil, nil
	}

	// Lock-on-highest-QC: once locked to a hash, only a proposal matching
	// that hash may be pre-voted for.
	if r.lockedQC != nil && r.lockedQC.BlockHash != p.BlockHash {
		return nil, nil, nil
	}

	sig, err := r.signer.Sign(voteSignBytes(types.PhasePreVote, r.view, r.blockNumber, p.BlockHash))
	if err != nil {
		return nil, nil, err
	}
	r.phase = types.PhasePreVote
	vote := &types.Vote{
		Phase:          types.PhasePreVote,
		View:           r.view,
		BlockNumber:    r.blockNumber,
		BlockHash:      p.BlockHash,
		ValidatorIndex: r.selfIndex,
		Signature:      sig,
	}
	return &Outbound{Vote: vote}, nil, nil
}

// OnVote is called on the leader only: it accumulates a vote share and,
// once a quorum has signed the same (phase, view, hash), forms a QC and
// returns it as an AggregateQC to broadcast. The leader applies the QC to
// its own Round the same way every other replica does: by feeding the
// broadcast AggregateQC back through OnAggregateQC, so there is exactly
// one code path for the phase transition a QC causes.
func (r *Round) OnVote(v *types.Vote) (*Outbound, error) {
	if v.BlockNumber != r.blockNumber || v.View != r.view {
		return nil, nil
	}
	key := voteKey{phase: v.Phase, view: v.View, hash: v.BlockHash}
	bucket := r.votes[key]
	if bucket == nil {
		bucket = make(map[uint8][]byte)
		r.votes[key] = bucket
	}
	bucket[v.ValidatorIndex] = v.Signature

	if len(bucket) < r.vs.QuorumThreshold() {
		return nil, nil
	}

	var bitmap types.CommitBitmap
	shares := make([][]byte, 0, len(bucket))
	for idx, sig := range bucket {
		bitmap |= 1 << idx
		shares = append(shares, sig)
	}
	aggSig, err := r.signer.Aggregate(shares)
	if err != nil {
		return nil, err
	}
	qc := &types.QC{
		Phase:        v.Phase,
		View:         v.View,
		BlockNumber:  v.BlockNumber,
		BlockHash:    v.BlockHash,
		SignerBitmap: uint64(bitmap),
		AggregateSig: aggSig,
	}
	return &Outbound{AggregateQC: &types.AggregateQC{QC: qc}}, nil
}

// OnAggregateQC is called on every replica (including the leader, fed its
// own just-formed QC) when a leader-published AggregateQC arrives. It
// drives the phase transition the QC's phase implies.
func (r *Round) OnAggregateQC(msg *types.AggregateQC, now time.Time) (*Outbound, *FinalizedBlock, error) {
	if msg.QC.BlockNumber != r.blockNumber || msg.QC.View != r.view {
		return nil, nil, nil
	}
	return r.applyQC(msg.QC, now)
}

// applyQC advances phase/lock state for a QC formed or received at the
// round's current view, and returns the next vote to emit (on the leader
// too, which then feeds it to its own OnVote) plus a FinalizedBlock the
// instant a Commit QC lands.
func (r *Round) applyQC(qc *types.QC, now time.Time) (*Outbound, *FinalizedBlock, error) {
	switch qc.Phase {
	case types.PhasePreVote:
		if r.phase != types.PhasePreVote && r.phase != types.PhaseProposing {
			return nil, nil, nil
		}
		r.phase = types.PhasePreCommit
		r.viewDeadline = now.Add(r.cfg.ViewTimeout)
		sig, err := r.signer.Sign(voteSignBytes(types.PhasePreCommit, r.view, r.blockNumber, qc.BlockHash))
		if err != nil {
			return nil, nil, err
		}
		vote := &types.Vote{
			Phase:          types.PhasePreCommit,
			View:           r.view,
			BlockNumber:    r.blockNumber,
			BlockHash:      qc.BlockHash,
			ValidatorIndex: r.selfIndex,
			Signature:      sig,
		}
		return &Outbound{Vote: vote}, nil, nil

	case types.PhasePreCommit:
		if r.phase != types.PhasePreCommit {
			return nil, nil, nil
		}
		r.phase = types.PhaseCommit
		r.lockedQC = qc
		r.viewDeadline = now.Add(r.cfg.ViewTimeout)
		sig, err := r.signer.Sign(voteSignBytes(types.PhaseCommit, r.view, r.blockNumber, qc.BlockHash))
		if err != nil {
			return nil, nil, err
		}
		vote := &types.Vote{
			Phase:          types.PhaseCommit,
			View:           r.view,
			BlockNumber:    r.blockNumber,
			BlockHash:      qc.BlockHash,
			ValidatorIndex: r.selfIndex,
			Signature:      sig,
		}
		return &Outbound{Vote: vote}, nil, nil

	case types.PhaseCommit:
		if r.finalised {
			return nil, nil, nil
		}
		r.finalised = true
		r.phase = types.PhaseCommit
		return nil, &FinalizedBlock{
			BlockNumber:  r.blockNumber,
			BlockHash:    qc.BlockHash,
			CommitBitmap: types.CommitBitmap(qc.SignerBitmap),
			CommitQC:     qc,
		}, nil
	}
	return nil, nil, nil
}

// Tick checks the view deadline and, if it has elapsed and the round is
// not yet finalised, emits a ViewChange vote for view+1.
func (r *Round) Tick(now time.Time) (*Outbound, error) {
	if r.finalised || now.Before(r.viewDeadline) {
		return nil, nil
	}
	newView := r.view + 1
	sig, err := r.signer.Sign(viewChangeSignBytes(newView, r.blockNumber))
	if err != nil {
		return nil, err
	}
	vc := &types.ViewChangeVote{
		NewView:        newView,
		ValidatorIndex: r.selfIndex,
		HighQC:         r.lockedQC,
		Signature:      sig,
	}
	return &Outbound{ViewChange: vc}, nil
}

// OnViewChange accumulates a ViewChange vote for its NewView; once a
// quorum is observed the round advances to that view in the Proposing
// phase, preserving the highest-view locked QC across the transition
// (lock-on-highest-QC), and the new leader is given the chance to
// propose again via BuildProposal.
func (r *Round) OnViewChange(vc *types.ViewChangeVote, now time.Time) (advanced bool) {
	bucket := r.viewChanges[vc.NewView]
	if bucket == nil {
		bucket = make(map[uint8]*types.ViewChangeVote)
		r.viewChanges[vc.NewView] = bucket
	}
	bucket[vc.ValidatorIndex] = vc

	if len(bucket) < r.vs.QuorumThreshold() {
		return false
	}
	if vc.NewView <= r.view {
		return false
	}

	// Adopt the highest-view QC any view-change voter attached, so the new
	// leader proposes under the strongest lock observed by the quorum.
	var highest *types.QC
	for _, v := range bucket {
		if v.HighQC != nil && (highest == nil || v.HighQC.View > highest.View) {
			highest = v.HighQC
		}
	}
	if highest != nil {
		r.lockedQC = highest
	}

	r.view = vc.NewView
	r.phase = types.PhaseProposing
	r.viewDeadline = now.Add(r.cfg.ViewTimeout)
	return true
}

func viewChangeSignBytes(newView types.View, blockNumber uint64) []byte {
	return appendViewBlock(nil, newView, blockNumber)
}
