// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package main

import (
	"strings"
	"time"

	"github.com/basalt-chain/basalt/config"
	"github.com/basalt-chain/basalt/coordinator"
	"github.com/basalt-chain/basalt/crypto"
	"github.com/basalt-chain/basalt/gossip/peers"
	"github.com/basalt-chain/basalt/internal/xlog"
	"github.com/basalt-chain/basalt/store"
	"github.com/basalt-chain/basalt/store/memstore"
	"github.com/basalt-chain/basalt/transport"
	"github.com/basalt-chain/basalt/types"
)

// inboundForwarder breaks the construction cycle between transport.New
// (which needs a handler) and coordinator.New (which needs the mesh
// transport.Transport backs as a gossip.Sender): it is built first, wired
// into transport, and only gets a real target once the Coordinator
// exists.
type inboundForwarder struct {
	c *coordinator.Coordinator
}

func (h *inboundForwarder) HandleInbound(env coordinator.Envelope) {
	if h.c != nil {
		h.c.HandleInbound(env)
	}
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// seedGenesis writes block 0 (an empty-transaction header sealed with the
// zero parent hash) so GetLatestBlockNumber and the coordinator's parent-
// hash bookkeeping have a real starting point, then returns its hash for
// use as the genesis_hash exchanged in every peer handshake.
func seedGenesis(blocks store.BlockStore, chainID uint32) (types.Hash, error) {
	header := &types.Header{
		ChainID:         chainID,
		ProtocolVersion: 1,
		BlockNumber:     0,
		Timestamp:       uint64(genesisTimestamp().Unix()),
		GasLimit:        30_000_000,
	}
	block := &types.Block{Header: header}
	if err := blocks.PutFullBlock(block, header.Encode(), 0); err != nil {
		return types.Hash{}, err
	}
	if err := blocks.SetLatestBlockNumber(0); err != nil {
		return types.Hash{}, err
	}
	return block.Hash(), nil
}

// genesisTimestamp is split out so a future test can override it; today
// it is simply wall-clock time at first startup.
func genesisTimestamp() time.Time { return time.Now() }

func buildTransport(cfg config.Config, genesisHash types.Hash, selfPeerID string, handler transport.InboundHandler, peerMgr *peers.Manager, blocks *memstore.BlockStore, classical crypto.ClassicalSigner, aggregate crypto.AggregateSigner, log *xlog.Logger) *transport.Transport {
	return transport.New(transport.Config{
		ChainID:        cfg.ChainID,
		GenesisHash:    genesisHash,
		SelfPeerID:     selfPeerID,
		ListenHostname: "0.0.0.0",
		ListenPort:     cfg.P2PPort,
		DialTimeout:    10 * time.Second,
	}, handler, peerMgr, blocks, classical, aggregate, log)
}
