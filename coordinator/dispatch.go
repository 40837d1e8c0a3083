// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Routing for every inbound wire message. handleEnvelope is the single
// switch the dispatch loop calls into; each handler decodes its payload,
// feeds the right collaborator, and sends back whatever that
// collaborator's Outbound demands.
package coordinator

import (
	"bytes"
	"errors"
	"time"

	"github.com/basalt-chain/basalt/consensus/bft"
	"github.com/basalt-chain/basalt/mempool"
	"github.com/basalt-chain/basalt/sync"
	"github.com/basalt-chain/basalt/types"
	"github.com/basalt-chain/basalt/wire"
)

var (
	errUnknownTag   = errors.New("coordinator: unrecognised wire tag")
	errMissingBlock = errors.New("coordinator: finalised block number has no cached body")
)

// frame wraps a payload in a length-prefixed, tagged wire frame so the
// receiving side's transport can recover the tag with wire.ReadFrame. The
// Sender interfaces gossip.Mesh and peers traffic ride over only accept a
// single byte slice, so the tag has to travel inside it.
func (c *Coordinator) frame(tag wire.Tag, payload []byte) []byte {
	var buf bytes.Buffer
	if err := wire.WriteFrame(&buf, tag, payload); err != nil {
		c.log.Error("failed to frame outbound message", "tag", tag, "error", err)
		return nil
	}
	return buf.Bytes()
}

func (c *Coordinator) handleEnvelope(env Envelope) error {
	switch env.Tag {
	case wire.TagConsensusProposal:
		return c.onProposalMsg(env)
	case wire.TagConsensusVote:
		return c.onVoteMsg(env)
	case wire.TagAggregateVote:
		return c.onAggregateQCMsg(env)
	case wire.TagViewChange:
		return c.onViewChangeMsg(env)
	case wire.TagTxAnnounce:
		return c.onTxAnnounce(env)
	case wire.TagTxRequest:
		return c.onTxRequest(env)
	case wire.TagTxPayload:
		return c.onTxPayload(env)
	case wire.TagBlockAnnounce:
		return c.onBlockAnnounceMsg(env)
	case wire.TagSyncRequest:
		return c.onSyncRequest(env)
	case wire.TagSyncResponse:
		return c.onSyncResponse(env)
	case wire.TagPing:
		return c.onPing(env)
	case wire.TagPong:
		return c.onPong(env)
	case wire.TagIHave, wire.TagIWant, wire.TagGraft, wire.TagPrune:
		// Tier promotion/demotion happens via gossip.Mesh.Rebalance's
		// latency/duplicate-rate scoring rather than explicit plumtree
		// control RPCs, so these are acknowledged and dropped.
		c.log.Debug("ignoring mesh control message", "peer", env.PeerID, "tag", env.Tag)
		return nil
	case wire.TagHello:
		return nil // the transport layer completes the handshake before any envelope reaches here
	default:
		return recoverable("handleEnvelope", errUnknownTag)
	}
}

func (c *Coordinator) onProposalMsg(env Envelope) error {
	p, err := wire.DecodeProposal(env.Payload)
	if err != nil {
		return recoverable("DecodeProposal", err)
	}
	round, ok := c.pipe.Round(p.BlockNumber)
	if !ok {
		return nil
	}
	leader := c.validatorSet().Leader(p.View)
	c.checkProposalEquivocation(leader, p)

	ob, _, err := round.OnProposal(p, leader.PubKey[:], c.classical.Verify)
	if err != nil {
		return reported("OnProposal", err)
	}
	if ob == nil {
		return nil
	}
	c.mu.Lock()
	c.pendingBlocks[p.BlockNumber] = p.Block
	c.mu.Unlock()
	return c.dispatchOutbound(p.BlockNumber, ob)
}

// checkProposalEquivocation records the leader's proposed hash for this
// (view, block_number) and slashes if a different hash was already seen
// for the same key — a leader that proposes conflicting blocks at the
// same view without ever reaching a second view change.
func (c *Coordinator) checkProposalEquivocation(leader *types.Validator, p *types.Proposal) {
	key := types.EvidenceKey{View: p.View, BlockNumber: p.BlockNumber, Proposer: leader.Index}
	prior, equivocated := c.evidence.Observe(key, p.BlockHash)
	if !equivocated {
		return
	}
	ev := &types.EquivocationEvidence{
		ValidatorIndex: leader.Index,
		BlockNumber:    p.BlockNumber,
		View:           p.View,
		HashA:          prior,
		HashB:          p.BlockHash,
	}
	if err := c.slashing.SlashEquivocation(leader.Address, ev, c.pipe.NextToFinalize()); err != nil {
		c.classify(actionable("SlashEquivocation", err))
	}
}

func (c *Coordinator) onVoteMsg(env Envelope) error {
	v, err := wire.DecodeVote(env.Payload)
	if err != nil {
		return recoverable("DecodeVote", err)
	}
	if _, ok := c.pipe.Round(v.BlockNumber); !ok {
		return nil
	}
	return c.sendVote(v.BlockNumber, v)
}

// sendVote is the single place a Vote either gets consumed (this replica
// is the view's leader) or forwarded on toward whoever is, used both for
// votes this replica just produced and for votes arriving secondhand off
// the mesh.
func (c *Coordinator) sendVote(blockNumber uint64, v *types.Vote) error {
	leader := c.validatorSet().Leader(v.View)
	if leader.Index == c.cfg.SelfIndex {
		round, ok := c.pipe.Round(blockNumber)
		if !ok {
			return nil
		}
		ob, err := round.OnVote(v)
		if err != nil {
			return reported("OnVote", err)
		}
		if ob != nil {
			return c.dispatchOutbound(blockNumber, ob)
		}
		return nil
	}
	if leader.PeerID == "" {
		return nil
	}
	return c.mesh.SendToPeer(leader.PeerID, c.frame(wire.TagConsensusVote, wire.EncodeVote(v)))
}

func (c *Coordinator) onAggregateQCMsg(env Envelope) error {
	a, err := wire.DecodeAggregateQC(env.Payload)
	if err != nil {
		return recoverable("DecodeAggregateQC", err)
	}
	return c.applyAggregateQC(a.QC.BlockNumber, a, time.Now())
}

func (c *Coordinator) applyAggregateQC(blockNumber uint64, a *types.AggregateQC, now time.Time) error {
	round, ok := c.pipe.Round(blockNumber)
	if !ok {
		return nil
	}
	ob, fb, err := round.OnAggregateQC(a, now)
	if err != nil {
		return reported("OnAggregateQC", err)
	}
	if ob != nil {
		if err := c.dispatchOutbound(blockNumber, ob); err != nil {
			return err
		}
	}
	if fb != nil {
		c.onBlockFinalised(fb)
	}
	return nil
}

func (c *Coordinator) onViewChangeMsg(env Envelope) error {
	m, err := wire.DecodeViewChangeMsg(env.Payload)
	if err != nil {
		return recoverable("DecodeViewChangeMsg", err)
	}
	round, ok := c.pipe.Round(m.BlockNumber)
	if !ok {
		return nil
	}
	if round.OnViewChange(m.Vote, time.Now()) {
		c.log.Info("view advanced", "blockNumber", m.BlockNumber, "newView", round.View())
	}
	return nil
}

// dispatchOutbound sends whichever single non-nil field of ob the caller
// produced. A leader's own freshly-formed AggregateQC is fed back through
// OnAggregateQC here too, so there is exactly one code path for the phase
// transition a QC causes, whether it was formed locally or received.
func (c *Coordinator) dispatchOutbound(blockNumber uint64, ob *bft.Outbound) error {
	switch {
	case ob.Vote != nil:
		return c.sendVote(blockNumber, ob.Vote)
	case ob.ViewChange != nil:
		msg := &wire.ViewChangeMsg{BlockNumber: blockNumber, Vote: ob.ViewChange}
		c.mesh.Broadcast(c.frame(wire.TagViewChange, wire.EncodeViewChangeMsg(msg)))
		return nil
	case ob.AggregateQC != nil:
		c.mesh.Broadcast(c.frame(wire.TagAggregateVote, wire.EncodeAggregateQC(ob.AggregateQC)))
		return c.applyAggregateQC(blockNumber, ob.AggregateQC, time.Now())
	}
	return nil
}

func (c *Coordinator) onTxAnnounce(env Envelope) error {
	hashes, err := wire.DecodeHashList(env.Payload)
	if err != nil {
		return recoverable("DecodeHashList", err)
	}
	want := make([]types.Hash, 0, len(hashes))
	for _, h := range hashes {
		if !c.mempool.Has(h) {
			want = append(want, h)
		}
	}
	if len(want) == 0 {
		return nil
	}
	payload := wire.EncodeHashList(want)
	return c.mesh.SendToPeer(env.PeerID, c.frame(wire.TagTxRequest, payload))
}

func (c *Coordinator) onTxRequest(env Envelope) error {
	hashes, err := wire.DecodeHashList(env.Payload)
	if err != nil {
		return recoverable("DecodeHashList", err)
	}
	txs := c.mempool.GetMany(hashes)
	if len(txs) == 0 {
		return nil
	}
	payload := wire.EncodeTxPayload(txs)
	return c.mesh.SendToPeer(env.PeerID, c.frame(wire.TagTxPayload, payload))
}

func (c *Coordinator) onTxPayload(env Envelope) error {
	txs, err := wire.DecodeTxPayload(env.Payload)
	if err != nil {
		return recoverable("DecodeTxPayload", err)
	}
	view := c.accountView()
	for _, tx := range txs {
		outcome := c.mempool.Add(tx, view.Nonce(tx.Sender))
		if outcome != mempool.Added && outcome != mempool.DuplicateTx {
			c.log.Debug("rejected tx from peer", "peer", env.PeerID, "outcome", outcome.String())
		}
	}
	return nil
}

func (c *Coordinator) onBlockAnnounceMsg(env Envelope) error {
	a, err := wire.DecodeBlockAnnounce(env.Payload)
	if err != nil {
		return recoverable("DecodeBlockAnnounce", err)
	}
	endpoint := ""
	if rec, ok := c.peerMgr.Get(env.PeerID); ok {
		endpoint = rec.Endpoint
	}
	c.peerMgr.Upsert(env.PeerID, endpoint, a.BlockNumber, a.BlockHash, time.Now())
	return nil
}

func (c *Coordinator) onSyncRequest(env Envelope) error {
	req, err := wire.DecodeSyncRequest(env.Payload)
	if err != nil {
		return recoverable("DecodeSyncRequest", err)
	}
	latest, err := c.blocks.GetLatestBlockNumber()
	if err != nil {
		return reported("GetLatestBlockNumber", err)
	}
	batch := make([]*sync.BlockWithBitmap, 0, sync.MaxBatchSize)
	for n := req.FromNumber; n <= latest && len(batch) < sync.MaxBatchSize; n++ {
		raw, err := c.blocks.GetRawBlockByNumber(n)
		if err != nil {
			break
		}
		header, err := types.DecodeHeader(raw)
		if err != nil {
			break
		}
		bitmap, err := c.blocks.GetCommitBitmap(n)
		if err != nil {
			break
		}
		batch = append(batch, &sync.BlockWithBitmap{Block: &types.Block{Header: header}, Bitmap: bitmap})
	}
	payload := wire.EncodeSyncResponse(batch)
	return c.mesh.SendToPeer(env.PeerID, c.frame(wire.TagSyncResponse, payload))
}

func (c *Coordinator) onSyncResponse(env Envelope) error {
	blocks, err := wire.DecodeSyncResponse(env.Payload)
	if err != nil {
		return recoverable("DecodeSyncResponse", err)
	}
	c.syncWaitersMu.Lock()
	ch, ok := c.syncWaiters[env.PeerID]
	if ok {
		delete(c.syncWaiters, env.PeerID)
	}
	c.syncWaitersMu.Unlock()
	if !ok {
		return nil
	}
	select {
	case ch <- blocks:
	default:
	}
	return nil
}

func (c *Coordinator) onPing(env Envelope) error {
	nonce, err := wire.DecodePing(env.Payload)
	if err != nil {
		return recoverable("DecodePing", err)
	}
	return c.mesh.SendToPeer(env.PeerID, c.frame(wire.TagPong, wire.EncodePing(nonce)))
}

func (c *Coordinator) onPong(env Envelope) error {
	nonce, err := wire.DecodePing(env.Payload)
	if err != nil {
		return recoverable("DecodePing", err)
	}
	c.mu.Lock()
	sentAt, ok := c.pingSent[nonce]
	if ok {
		delete(c.pingSent, nonce)
	}
	c.mu.Unlock()
	if ok {
		c.mesh.Observe(env.PeerID, time.Since(sentAt).Seconds(), false)
	}
	return nil
}
