// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package gossip implements the eager/lazy pubsub mesh that carries
// consensus and transaction traffic between peers. Eager peers receive
// full message payloads; lazy peers receive only message-id
// announcements (IHave) and must explicitly pull (IWant) — the same
// push/pull split used by plumtree-style gossip meshes, scaled down for a
// permissioned validator set capped at 64 members.
package gossip

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/dchest/siphash"

	"github.com/basalt-chain/basalt/crypto"
)

// Sender delivers framed bytes to one peer; satisfied by the wire
// transport layer.
type Sender interface {
	SendToPeer(peerID string, msg []byte) error
}

// PeerStats tracks the rolling observations used to promote/demote a peer
// between tiers.
type PeerStats struct {
	LatencyEWMA   float64
	DuplicateRate float64
}

// Config bounds mesh size and dedup memory.
type Config struct {
	EagerFanout     int
	DedupCacheBytes int // sized for fastcache, must be >= 32*1024
	SipHashKey0     uint64
	SipHashKey1     uint64
}

// Mesh is one topic's eager/lazy peer split plus the id-dedup boundary
// cache every inbound/outbound message passes through.
type Mesh struct {
	mu     sync.Mutex
	cfg    Config
	sender Sender

	eager map[string]struct{}
	lazy  map[string]struct{}
	stats map[string]*PeerStats

	seen *fastcache.Cache // message-id -> presence, bounds memory via LRU-like eviction

	ihaveQueue map[string][]MessageID
}

// NewMesh returns an empty mesh for one topic.
func NewMesh(cfg Config, sender Sender) *Mesh {
	return &Mesh{
		cfg:        cfg,
		sender:     sender,
		eager:      make(map[string]struct{}),
		lazy:       make(map[string]struct{}),
		stats:      make(map[string]*PeerStats),
		seen:       fastcache.New(cfg.DedupCacheBytes),
		ihaveQueue: make(map[string][]MessageID),
	}
}

// MessageID is a message's dedup key: a hash of its serialised bytes.
type MessageID [32]byte

func computeMessageID(payload []byte) MessageID {
	return MessageID(crypto.DefaultHasher().Sum(payload))
}

// bucketOf assigns a peer id to one of 256 mesh buckets via SipHash.
// Rebalance does not use it; it scans every tracked peer on each call.
func (m *Mesh) bucketOf(peerID string) byte {
	h := siphash.Hash(m.cfg.SipHashKey0, m.cfg.SipHashKey1, []byte(peerID))
	return byte(h)
}

// AddPeer registers a peer into the lazy tier by default; promotion to
// eager happens via Rebalance.
func (m *Mesh) AddPeer(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lazy[peerID] = struct{}{}
	m.stats[peerID] = &PeerStats{}
}

// RemovePeer drops a peer from both tiers.
func (m *Mesh) RemovePeer(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.eager, peerID)
	delete(m.lazy, peerID)
	delete(m.stats, peerID)
	delete(m.ihaveQueue, peerID)
}

// Observe records a round-trip latency sample and a duplicate/unique
// delivery outcome for a peer, feeding Rebalance's promotion decision.
func (m *Mesh) Observe(peerID string, latencySeconds float64, duplicate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stats[peerID]
	if !ok {
		st = &PeerStats{}
		m.stats[peerID] = st
	}
	const alpha = 0.2
	st.LatencyEWMA = alpha*latencySeconds + (1-alpha)*st.LatencyEWMA
	dup := 0.0
	if duplicate {
		dup = 1.0
	}
	st.DuplicateRate = alpha*dup + (1-alpha)*st.DuplicateRate
}

// Rebalance promotes the EagerFanout peers with the lowest latency and
// lowest duplicate rate into the eager tier, demoting everyone else to
// lazy. Called periodically by the coordinator's dispatch tick.
func (m *Mesh) Rebalance() {
	m.mu.Lock()
	defer m.mu.Unlock()

	type scored struct {
		peerID string
		score  float64
	}
	all := make([]scored, 0, len(m.stats))
	for id, st := range m.stats {
		all = append(all, scored{peerID: id, score: st.LatencyEWMA + 1000*st.DuplicateRate})
	}
	sortByScore(all)

	m.eager = make(map[string]struct{})
	m.lazy = make(map[string]struct{})
	for i, s := range all {
		if i < m.cfg.EagerFanout {
			m.eager[s.peerID] = struct{}{}
		} else {
			m.lazy[s.peerID] = struct{}{}
		}
	}
}

func sortByScore(s []struct {
	peerID string
	score  float64
}) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].score < s[j-1].score; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// Broadcast serialises msg once (the caller passes already-serialised
// bytes), sends the full payload to every eager peer, and queues an IHave
// announcement for every lazy peer. Returns the message id.
func (m *Mesh) Broadcast(payload []byte) MessageID {
	id := computeMessageID(payload)
	key := id[:]

	m.mu.Lock()
	if m.seen.Has(key) {
		m.mu.Unlock()
		return id
	}
	m.seen.Set(key, []byte{1})
	eagerPeers := make([]string, 0, len(m.eager))
	for p := range m.eager {
		eagerPeers = append(eagerPeers, p)
	}
	for p := range m.lazy {
		m.ihaveQueue[p] = append(m.ihaveQueue[p], id)
	}
	m.mu.Unlock()

	for _, p := range eagerPeers {
		_ = m.sender.SendToPeer(p, payload)
	}
	return id
}

// SendToPeer delivers msg directly to one peer (votes to the leader, sync
// responses) bypassing the mesh entirely.
func (m *Mesh) SendToPeer(peerID string, payload []byte) error {
	return m.sender.SendToPeer(peerID, payload)
}

// DrainIHave returns and clears the queued IHave ids for a lazy peer,
// ready to be sent as a single announcement batch.
func (m *Mesh) DrainIHave(peerID string) []MessageID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.ihaveQueue[peerID]
	delete(m.ihaveQueue, peerID)
	return ids
}

// MarkSeen records an id as seen without broadcasting, used when a full
// payload for an IWant pull arrives.
func (m *Mesh) MarkSeen(id MessageID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := id[:]
	if m.seen.Has(key) {
		return true
	}
	m.seen.Set(key, []byte{1})
	return false
}
