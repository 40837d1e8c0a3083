// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Codecs for the remaining typed wire records: tx/block announcements,
// sync batches, and the keepalive ping/pong pair. Grouped separately from
// codec.go because these carry peer-to-peer bookkeeping data rather than
// consensus state.
package wire

import (
	"github.com/basalt-chain/basalt/sync"
	"github.com/basalt-chain/basalt/types"
)

// EncodeBlockAnnounce serialises a BlockAnnounce.
func EncodeBlockAnnounce(a *types.BlockAnnounce) []byte {
	buf := make([]byte, 0, 8+types.HashLength)
	buf = appendU64(buf, a.BlockNumber)
	buf = append(buf, a.BlockHash[:]...)
	return buf
}

// DecodeBlockAnnounce parses bytes produced by EncodeBlockAnnounce.
func DecodeBlockAnnounce(b []byte) (*types.BlockAnnounce, error) {
	n, b, ok := readU64(b)
	if !ok {
		return nil, errTruncated
	}
	if len(b) < types.HashLength {
		return nil, errTruncated
	}
	return &types.BlockAnnounce{BlockNumber: n, BlockHash: types.BytesToHash(b[:types.HashLength])}, nil
}

// EncodeHashList serialises a list of hashes, the shape shared by
// TxAnnounce (hashes being offered) and TxRequest (hashes being pulled).
func EncodeHashList(hashes []types.Hash) []byte {
	buf := appendU32(nil, uint32(len(hashes)))
	for _, h := range hashes {
		buf = append(buf, h[:]...)
	}
	return buf
}

// DecodeHashList parses bytes produced by EncodeHashList.
func DecodeHashList(b []byte) ([]types.Hash, error) {
	count, b, ok := readU32(b)
	if !ok {
		return nil, errTruncated
	}
	out := make([]types.Hash, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(b) < types.HashLength {
			return nil, errTruncated
		}
		out = append(out, types.BytesToHash(b[:types.HashLength]))
		b = b[types.HashLength:]
	}
	return out, nil
}

// EncodeTxPayload serialises a batch of full transactions, the body
// delivered in answer to a TxRequest.
func EncodeTxPayload(txs []*types.Transaction) []byte {
	buf := appendU32(nil, uint32(len(txs)))
	for _, tx := range txs {
		buf = appendBytes(buf, EncodeTransaction(tx))
	}
	return buf
}

// DecodeTxPayload parses bytes produced by EncodeTxPayload.
func DecodeTxPayload(b []byte) ([]*types.Transaction, error) {
	count, b, ok := readU32(b)
	if !ok {
		return nil, errTruncated
	}
	out := make([]*types.Transaction, 0, count)
	for i := uint32(0); i < count; i++ {
		var txBytes []byte
		txBytes, b, ok = readBytes(b)
		if !ok {
			return nil, errTruncated
		}
		tx, err := DecodeTransaction(txBytes)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// SyncRequest asks a peer for up to MaxBatchSize blocks starting at
// FromNumber.
type SyncRequest struct {
	FromNumber uint64
}

// EncodeSyncRequest serialises a SyncRequest.
func EncodeSyncRequest(r *SyncRequest) []byte {
	return appendU64(nil, r.FromNumber)
}

// DecodeSyncRequest parses bytes produced by EncodeSyncRequest.
func DecodeSyncRequest(b []byte) (*SyncRequest, error) {
	n, _, ok := readU64(b)
	if !ok {
		return nil, errTruncated
	}
	return &SyncRequest{FromNumber: n}, nil
}

// EncodeSyncResponse serialises a batch of blocks with their commit
// bitmaps, the body of a SyncResponse.
func EncodeSyncResponse(blocks []*sync.BlockWithBitmap) []byte {
	buf := appendU32(nil, uint32(len(blocks)))
	for _, bwb := range blocks {
		proposal := &types.Proposal{Block: bwb.Block, BlockNumber: bwb.Block.Number(), BlockHash: bwb.Block.Hash()}
		buf = appendBytes(buf, EncodeProposal(proposal))
		buf = appendU64(buf, uint64(bwb.Bitmap))
	}
	return buf
}

// DecodeSyncResponse parses bytes produced by EncodeSyncResponse.
func DecodeSyncResponse(b []byte) ([]*sync.BlockWithBitmap, error) {
	count, b, ok := readU32(b)
	if !ok {
		return nil, errTruncated
	}
	out := make([]*sync.BlockWithBitmap, 0, count)
	for i := uint32(0); i < count; i++ {
		var propBytes []byte
		propBytes, b, ok = readBytes(b)
		if !ok {
			return nil, errTruncated
		}
		p, err := DecodeProposal(propBytes)
		if err != nil {
			return nil, err
		}
		var bitmap uint64
		bitmap, b, ok = readU64(b)
		if !ok {
			return nil, errTruncated
		}
		out = append(out, &sync.BlockWithBitmap{Block: p.Block, Bitmap: types.CommitBitmap(bitmap)})
	}
	return out, nil
}

// ViewChangeMsg pairs a ViewChangeVote with the block number it applies
// to. types.ViewChangeVote itself only carries the new view, since views
// are scoped per in-flight pipelined round rather than globally, so the
// block number has to travel alongside it on the wire.
type ViewChangeMsg struct {
	BlockNumber uint64
	Vote        *types.ViewChangeVote
}

// EncodeViewChangeMsg serialises a ViewChangeMsg.
func EncodeViewChangeMsg(m *ViewChangeMsg) []byte {
	buf := appendU64(nil, m.BlockNumber)
	return append(buf, EncodeViewChangeVote(m.Vote)...)
}

// DecodeViewChangeMsg parses bytes produced by EncodeViewChangeMsg.
func DecodeViewChangeMsg(b []byte) (*ViewChangeMsg, error) {
	n, b, ok := readU64(b)
	if !ok {
		return nil, errTruncated
	}
	vc, err := DecodeViewChangeVote(b)
	if err != nil {
		return nil, err
	}
	return &ViewChangeMsg{BlockNumber: n, Vote: vc}, nil
}

// EncodePing/EncodePong carry a nonce the responder echoes back, letting
// the requester measure round-trip latency for gossip tier scoring.
func EncodePing(nonce uint64) []byte { return appendU64(nil, nonce) }
func DecodePing(b []byte) (uint64, error) {
	n, _, ok := readU64(b)
	if !ok {
		return 0, errTruncated
	}
	return n, nil
}
