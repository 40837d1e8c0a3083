// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package coordinator owns the single dispatch loop: a ticker plus an
// inbound message channel, generalized directly from the teacher's
// Engine (slot ticker + slot processor + finality checker + reputation
// updater goroutines), with "slot" renamed to "round" throughout. Every
// other component in this module returns the actions it wants taken
// rather than performing I/O itself; Coordinator is the only place those
// actions become network sends, storage writes, or state swaps.
package coordinator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/basalt-chain/basalt/consensus/bft"
	"github.com/basalt-chain/basalt/consensus/pipeline"
	"github.com/basalt-chain/basalt/crypto"
	"github.com/basalt-chain/basalt/epoch"
	"github.com/basalt-chain/basalt/exec"
	"github.com/basalt-chain/basalt/gossip"
	"github.com/basalt-chain/basalt/gossip/peers"
	"github.com/basalt-chain/basalt/internal/xlog"
	"github.com/basalt-chain/basalt/mempool"
	"github.com/basalt-chain/basalt/slashing"
	"github.com/basalt-chain/basalt/staking"
	"github.com/basalt-chain/basalt/store"
	"github.com/basalt-chain/basalt/sync"
	"github.com/basalt-chain/basalt/types"
	"github.com/basalt-chain/basalt/validatorset"
	"github.com/basalt-chain/basalt/wire"
	"github.com/holiman/uint256"
)

// Config bounds the dispatch loop's timing and resource limits. All
// fields are explicit per spec.md §5's "Resource bounds" requirement.
type Config struct {
	TickInterval     time.Duration
	BlockPeriod      time.Duration
	PipelineDepth    int
	RoundTimeout     time.Duration
	SyncLagBlocks    uint64
	SyncBatchTimeout time.Duration
	EvidenceWindow   int
	PeerRateLimit    rate.Limit
	PeerRateBurst    int
	MempoolBatchSize int
	InboundQueueSize int
	ChainID          uint32
	SelfIndex        uint8
	SelfAddress      types.Address
	SelfPeerID       string
}

// Deps bundles the process-wide singletons the Coordinator wires
// together. None of these types know about each other beyond the narrow
// interfaces declared in their own packages; Coordinator is where the
// graph is actually assembled.
type Deps struct {
	ValidatorSet *validatorset.Set
	Staking      *staking.State
	Slashing     *slashing.Engine
	Mempool      *mempool.Pool
	EpochMgr     *epoch.Manager
	Blocks       store.BlockStore
	Receipts     store.ReceiptStore
	Canonical    store.StateDB
	Executor     exec.Executor
	Mesh         *gossip.Mesh
	PeerMgr      *peers.Manager
	Signer       crypto.AggregateSigner
	Classical    crypto.ClassicalSigner
	BaseFee      *uint256.Int
	Log          *xlog.Logger
	StartBlock   uint64
	ParentHash   types.Hash
}

// Coordinator is the process-wide single-writer dispatch loop.
type Coordinator struct {
	mu  sync.RWMutex
	cfg Config
	log *xlog.Logger

	vs       *validatorset.Set
	stakingS *staking.State
	slashing *slashing.Engine
	mempool  *mempool.Pool
	epochMgr *epoch.Manager
	pipe     *pipeline.Pipeline

	blocks    store.BlockStore
	receipts  store.ReceiptStore
	canonical store.StateDB
	executor  exec.Executor
	baseFee   *uint256.Int

	mesh      *gossip.Mesh
	peerMgr   *peers.Manager
	syncMgr   *sync.Manager
	signer    crypto.AggregateSigner
	classical crypto.ClassicalSigner

	evidence   *evidenceWindow
	parentHash types.Hash

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	pendingBlocks map[uint64]*types.Block
	pingSent      map[uint64]time.Time
	pingSeq       uint64
	lastRound     time.Time

	syncWaitersMu sync.Mutex
	syncWaiters   map[string]chan []*sync.BlockWithBitmap

	inbound chan Envelope

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats *Stats
}

// Envelope is one inbound wire message, tagged with the peer it arrived
// from. The transport layer (package transport) is responsible for
// framing, decrypting, and constructing these and handing them to
// HandleInbound.
type Envelope struct {
	PeerID  string
	Tag     wire.Tag
	Payload []byte
}

// New assembles a Coordinator from its configuration and dependency
// graph, including the sync manager (which needs the Coordinator itself
// as its batch fetcher and epoch feeder).
func New(cfg Config, deps Deps) *Coordinator {
	c := &Coordinator{
		cfg:           cfg,
		log:           deps.Log.Module("coordinator"),
		vs:            deps.ValidatorSet,
		stakingS:      deps.Staking,
		slashing:      deps.Slashing,
		mempool:       deps.Mempool,
		epochMgr:      deps.EpochMgr,
		blocks:        deps.Blocks,
		receipts:      deps.Receipts,
		canonical:     deps.Canonical,
		executor:      deps.Executor,
		baseFee:       deps.BaseFee,
		mesh:          deps.Mesh,
		peerMgr:       deps.PeerMgr,
		signer:        deps.Signer,
		classical:     deps.Classical,
		evidence:      newEvidenceWindow(cfg.EvidenceWindow),
		parentHash:    deps.ParentHash,
		limiters:      make(map[string]*rate.Limiter),
		pendingBlocks: make(map[uint64]*types.Block),
		pingSent:      make(map[uint64]time.Time),
		syncWaiters:   make(map[string]chan []*sync.BlockWithBitmap),
		inbound:       make(chan Envelope, cfg.InboundQueueSize),
		stats:         &Stats{StartTime: time.Now()},
		lastRound:     time.Now(),
	}
	c.pipe = pipeline.New(pipeline.Config{
		Depth: cfg.PipelineDepth,
		RoundCfg: bft.Config{
			ViewTimeout:        cfg.RoundTimeout,
			FutureVoteCapacity: 64,
		},
	}, c.vs, c.signer, cfg.SelfIndex, deps.StartBlock)
	c.syncMgr = sync.NewManager(c, deps.Executor, deps.Blocks, deps.Receipts, deps.PeerMgr, c, cfg.SyncBatchTimeout)
	return c
}

// Start launches the dispatch loop's goroutines: the tick driver and the
// inbound-message processor, mirroring the teacher's slotTicker +
// slotProcessor split so a slow tick handler never backs up message
// delivery and vice versa.
func (c *Coordinator) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(2)
	go c.tickLoop()
	go c.dispatchLoop()

	c.log.Info("coordinator started", "selfIndex", c.cfg.SelfIndex, "chainId", c.cfg.ChainID)
}

// Stop cancels the dispatch loop and waits for its goroutines to drain.
func (c *Coordinator) Stop() {
	c.log.Info("coordinator stopping")
	c.cancel()
	c.wg.Wait()
	c.log.Info("coordinator stopped")
}

// HandleInbound enqueues a message for the dispatch loop. It never
// blocks: a full queue drops the message with a warning, the same
// backpressure policy the teacher's slot channel uses.
func (c *Coordinator) HandleInbound(env Envelope) {
	if !c.allow(env.PeerID) {
		c.log.Debug("peer rate limited, dropping message", "peer", env.PeerID, "tag", env.Tag)
		return
	}
	select {
	case c.inbound <- env:
	default:
		c.log.Warn("inbound queue full, dropping message", "peer", env.PeerID, "tag", env.Tag)
	}
}

func (c *Coordinator) allow(peerID string) bool {
	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()
	lim, ok := c.limiters[peerID]
	if !ok {
		lim = rate.NewLimiter(c.cfg.PeerRateLimit, c.cfg.PeerRateBurst)
		c.limiters[peerID] = lim
	}
	return lim.Allow()
}

func (c *Coordinator) tickLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case now := <-ticker.C:
			c.onTick(now)
		}
	}
}

func (c *Coordinator) dispatchLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case env := <-c.inbound:
			if err := c.handleEnvelope(env); err != nil {
				c.classify(err)
			}
		}
	}
}

// onTick runs the three per-tick duties: propose if it is our turn,
// check every in-flight round's view deadline, and rebalance the gossip
// mesh tiers.
func (c *Coordinator) onTick(now time.Time) {
	if err := c.tryPropose(now); err != nil {
		c.classify(reported("tryPropose", err))
	}
	c.checkViewTimeouts(now)
	c.mesh.Rebalance()
	c.sendPings(now)
	c.maybeStartSync(now)
}

// classify logs an error at the severity its Kind implies. Actionable
// errors are already applied by the time they reach here (evidence
// submission, sync start are side effects performed inline). For every
// kind but Fatal this only writes to the log; a Fatal error goes through
// Crit, which also terminates the process with exit code 1.
func (c *Coordinator) classify(err error) {
	ce, ok := err.(*Error)
	if !ok {
		c.log.Warn("unclassified error", "error", err)
		return
	}
	switch ce.Kind {
	case Recoverable:
		c.log.Debug("recoverable error", "op", ce.Op, "error", ce.Err)
	case Reported:
		c.log.Warn("reported error", "op", ce.Op, "error", ce.Err)
	case Actionable:
		c.log.Error("actionable error", "op", ce.Op, "error", ce.Err)
	case Fatal:
		c.log.Crit("fatal error", "op", ce.Op, "error", ce.Err)
	}
}

// validatorSet returns the currently installed roster under lock, since
// EpochManager can replace it from the dispatch goroutine itself (no
// cross-goroutine race, but the pointer swap is still made atomic for
// any concurrent reader, e.g. an API layer).
func (c *Coordinator) validatorSet() *validatorset.Set {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vs
}

func (c *Coordinator) setValidatorSet(vs *validatorset.Set) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vs = vs
}

func (c *Coordinator) accountView() stateAccountView {
	return stateAccountView{db: c.canonical}
}
