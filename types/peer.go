// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package types

import "time"

// PeerRecord is everything the peer manager tracks about one remote node.
type PeerRecord struct {
	PeerID           string
	Endpoint         string // host:port
	BestBlockNumber  uint64
	BestBlockHash    Hash
	LastSeen         time.Time
	BanUntil         time.Time
}

// Banned reports whether the peer is currently under a ban.
func (p *PeerRecord) Banned(now time.Time) bool {
	return p != nil && now.Before(p.BanUntil)
}
