// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package transport

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/basalt-chain/basalt/coordinator"
	"github.com/basalt-chain/basalt/crypto"
	"github.com/basalt-chain/basalt/gossip/peers"
	"github.com/basalt-chain/basalt/internal/xlog"
	"github.com/basalt-chain/basalt/store/memstore"
	"github.com/basalt-chain/basalt/types"
	"github.com/basalt-chain/basalt/wire"
)

// frameTestMessage mirrors the coordinator's own frame(tag, payload)
// helper: a complete wire.WriteFrame blob, the unit SendToPeer expects.
func frameTestMessage(t *testing.T, tag wire.Tag, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, wire.WriteFrame(&buf, tag, payload))
	return buf.Bytes()
}

type captureHandler struct {
	mu  sync.Mutex
	got []coordinator.Envelope
}

func (h *captureHandler) HandleInbound(env coordinator.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.got = append(h.got, env)
}

func (h *captureHandler) wait(t *testing.T, n int) []coordinator.Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		got := len(h.got)
		h.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]coordinator.Envelope(nil), h.got...)
}

func seedBlocks(t *testing.T, chainID uint32) (*memstore.BlockStore, types.Hash) {
	t.Helper()
	blocks := memstore.NewBlockStore()
	header := &types.Header{ChainID: chainID, BlockNumber: 0}
	block := &types.Block{Header: header}
	require.NoError(t, blocks.PutFullBlock(block, header.Encode(), 0))
	require.NoError(t, blocks.SetLatestBlockNumber(0))
	return blocks, block.Hash()
}

func newTestTransport(t *testing.T, chainID uint32, genesisHash types.Hash, selfPeerID string, handler *captureHandler) *Transport {
	t.Helper()
	classical, err := crypto.NewClassicalSigner(nil)
	require.NoError(t, err)
	aggregate, err := crypto.NewAggregateSigner(nil)
	require.NoError(t, err)
	blocks, _ := seedBlocks(t, chainID)

	tr := New(Config{
		ChainID:        chainID,
		GenesisHash:    genesisHash,
		SelfPeerID:     selfPeerID,
		ListenHostname: "127.0.0.1",
		ListenPort:     0,
		DialTimeout:    2 * time.Second,
	}, handler, peers.New(), blocks, classical, aggregate, xlog.Default())
	return tr
}

func TestHandshakeAndSendToPeer(t *testing.T) {
	_, genesisHash := seedBlocks(t, 7)

	hA, hB := &captureHandler{}, &captureHandler{}
	a := newTestTransport(t, 7, genesisHash, "peer-a", hA)
	b := newTestTransport(t, 7, genesisHash, "peer-b", hB)

	require.NoError(t, a.Listen())
	defer a.Close()
	require.NoError(t, b.Listen())
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Connect(ctx, b.Addr().String()))

	// give the responder's accept loop time to register the connection
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.RLock()
		_, ok := b.conns["peer-a"]
		b.mu.RUnlock()
		if ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	payload := wire.EncodePing(42)
	frame := frameTestMessage(t, wire.TagPing, payload)
	require.NoError(t, a.SendToPeer("peer-b", frame))

	got := hB.wait(t, 1)
	require.Len(t, got, 1)
	require.Equal(t, "peer-a", got[0].PeerID)
	require.Equal(t, wire.TagPing, got[0].Tag)

	nonce, err := wire.DecodePing(got[0].Payload)
	require.NoError(t, err)
	require.Equal(t, uint64(42), nonce)
}

func TestHandshakeRejectsChainIDMismatch(t *testing.T) {
	_, genesisHash := seedBlocks(t, 7)

	hA, hB := &captureHandler{}, &captureHandler{}
	a := newTestTransport(t, 7, genesisHash, "peer-a", hA)
	b := newTestTransport(t, 8, genesisHash, "peer-b", hB)

	require.NoError(t, a.Listen())
	defer a.Close()
	require.NoError(t, b.Listen())
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := a.Connect(ctx, b.Addr().String())
	require.Error(t, err)
}

func TestSendToPeerUnknownPeerFails(t *testing.T) {
	_, genesisHash := seedBlocks(t, 7)
	a := newTestTransport(t, 7, genesisHash, "peer-a", &captureHandler{})
	err := a.SendToPeer("nobody", []byte("x"))
	require.ErrorIs(t, err, errPeerUnknown)
}
