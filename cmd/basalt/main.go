// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// basalt is the node entrypoint: flags override an environment-style
// config.Config, which wires together the validator set, staking,
// slashing, mempool, epoch, storage, transport, gossip, and coordinator
// into a single running process. Structurally generalized from
// cmd/equa-beacon-engine/main.go's flag-parse-then-construct-then-run
// shape onto the urfave/cli/v2 convention cmd/geth's go.mod carries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/basalt-chain/basalt/config"
	"github.com/basalt-chain/basalt/coordinator"
	"github.com/basalt-chain/basalt/crypto"
	"github.com/basalt-chain/basalt/epoch"
	"github.com/basalt-chain/basalt/exec"
	"github.com/basalt-chain/basalt/gossip"
	"github.com/basalt-chain/basalt/gossip/peers"
	"github.com/basalt-chain/basalt/internal/xlog"
	"github.com/basalt-chain/basalt/mempool"
	"github.com/basalt-chain/basalt/slashing"
	"github.com/basalt-chain/basalt/staking"
	"github.com/basalt-chain/basalt/store/memstore"
	"github.com/basalt-chain/basalt/types"
	"github.com/basalt-chain/basalt/validatorset"
)

func main() {
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintf(os.Stderr, "automaxprocs: %v\n", err)
	}

	app := &cli.App{
		Name:  "basalt",
		Usage: "run a Basalt consensus-core node",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "chain-id", Usage: "overrides BASALT_CHAIN_ID"},
			&cli.StringFlag{Name: "network-name", Usage: "overrides BASALT_NETWORK_NAME"},
			&cli.IntFlag{Name: "validator-index", Value: -2, Usage: "overrides BASALT_VALIDATOR_INDEX (-2 = unset)"},
			&cli.StringFlag{Name: "validator-address", Usage: "overrides BASALT_VALIDATOR_ADDRESS"},
			&cli.StringFlag{Name: "validator-key", Usage: "overrides BASALT_VALIDATOR_KEY"},
			&cli.UintFlag{Name: "http-port", Usage: "overrides BASALT_HTTP_PORT"},
			&cli.UintFlag{Name: "p2p-port", Usage: "overrides BASALT_P2P_PORT"},
			&cli.StringFlag{Name: "data-dir", Usage: "overrides BASALT_DATA_DIR"},
			&cli.StringFlag{Name: "peers", Usage: "overrides BASALT_PEERS"},
			&cli.BoolFlag{Name: "use-pipelining", Usage: "overrides BASALT_USE_PIPELINING"},
			&cli.BoolFlag{Name: "use-sandbox", Usage: "overrides BASALT_USE_SANDBOX"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn, error"},
		},
		Commands: []*cli.Command{doctorCommand},
		Action:   run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("fatal: %v", err))
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	applyFlagOverrides(c, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	lock, err := config.AcquireDataDir(cfg.DataDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	log := xlog.Default()
	log.SetLevel(c.String("log-level"))
	log.AddFileOutput(cfg.DataDir+"/basalt.log", 64, 5, 14)

	printBanner(cfg)

	runID := uuid.NewString()
	log = log.Module("run-" + runID[:8])

	var keySeed []byte
	if cfg.ValidatorIndex >= 0 {
		seed := cfg.ValidatorKey
		keySeed = seed[:]
	}
	classical, err := crypto.NewClassicalSigner(keySeed)
	if err != nil {
		return fmt.Errorf("%w: classical signer: %v", config.ErrFatal, err)
	}
	aggregate, err := crypto.NewAggregateSigner(keySeed)
	if err != nil {
		return fmt.Errorf("%w: aggregate signer: %v", config.ErrFatal, err)
	}
	selfPeerID := crypto.DerivePeerID(classical.PublicKey())

	selfIndex := uint8(0)
	selfAddr := cfg.ValidatorAddress
	if cfg.ValidatorIndex >= 0 {
		selfIndex = uint8(cfg.ValidatorIndex)
	} else if selfAddr.IsZero() {
		selfAddr = types.HexToAddress("0x0000000000000000000000000000000000000001")
	}

	self := &types.Validator{
		Index:   selfIndex,
		PeerID:  selfPeerID,
		Address: selfAddr,
		Stake:   uint256.NewInt(1),
	}
	copy(self.PubKey[:], classical.PublicKey())
	copy(self.AggPubKey[:], aggregate.PublicKey())

	vs, err := validatorset.New([]*types.Validator{self})
	if err != nil {
		return fmt.Errorf("%w: validator set: %v", config.ErrFatal, err)
	}

	stakingState := staking.New()
	if err := stakingState.Register(self.Address, self.Stake); err != nil {
		return fmt.Errorf("%w: staking bootstrap: %v", config.ErrFatal, err)
	}

	slashingEngine := slashing.New(slashing.Config{
		EquivocationSlashPermille: 500,
		InactivitySlashPermille:   10,
		EvidenceWindowEpochs:      4,
		EpochLength:               256,
	}, stakingState)

	epochMgr := epoch.New(epoch.Config{
		EpochLength:        256,
		LivenessMinCommits: 128,
		ValidatorSetSize:   types.MaxValidators,
	}, slashingEngine, stakingState)

	baseFee := uint256.NewInt(1)
	pool := mempool.New(baseFee)

	blocks := memstore.NewBlockStore()
	receipts := memstore.NewReceiptStore()
	state := memstore.NewStateDB()
	genesisHash, err := seedGenesis(blocks, cfg.ChainID)
	if err != nil {
		return fmt.Errorf("%w: genesis: %v", config.ErrFatal, err)
	}

	peerMgr := peers.New()
	handlerSlot := &inboundForwarder{}

	tr := buildTransport(cfg, genesisHash, selfPeerID, handlerSlot, peerMgr, blocks, classical, aggregate, log)

	mesh := gossip.NewMesh(gossip.Config{
		EagerFanout:     4,
		DedupCacheBytes: 32 * 1024 * 1024,
		SipHashKey0:     0x0ddc0ffeebadf00d,
		SipHashKey1:     0xfeedfacecafebabe,
	}, tr)

	coord := coordinator.New(coordinator.Config{
		TickInterval:     cfg.TickInterval,
		BlockPeriod:      cfg.BlockPeriod,
		PipelineDepth:    cfg.PipelineDepth,
		RoundTimeout:     cfg.RoundTimeout,
		SyncLagBlocks:    cfg.SyncLagBlocks,
		SyncBatchTimeout: cfg.SyncBatchTimeout,
		EvidenceWindow:   cfg.EvidenceWindow,
		PeerRateLimit:    cfg.PeerRateLimit,
		PeerRateBurst:    cfg.PeerRateBurst,
		MempoolBatchSize: cfg.MempoolBatchSize,
		InboundQueueSize: cfg.InboundQueueSize,
		ChainID:          cfg.ChainID,
		SelfIndex:        selfIndex,
		SelfAddress:      selfAddr,
		SelfPeerID:       selfPeerID,
	}, coordinator.Deps{
		ValidatorSet: vs,
		Staking:      stakingState,
		Slashing:     slashingEngine,
		Mempool:      pool,
		EpochMgr:     epochMgr,
		Blocks:       blocks,
		Receipts:     receipts,
		Canonical:    state,
		Executor:     exec.NewNoopExecutor(),
		Mesh:         mesh,
		PeerMgr:      peerMgr,
		Signer:       aggregate,
		Classical:    classical,
		BaseFee:      baseFee,
		Log:          log,
		StartBlock:   1,
		ParentHash:   genesisHash,
	})
	handlerSlot.c = coord

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tr.Listen(); err != nil {
		return fmt.Errorf("%w: listen: %v", config.ErrFatal, err)
	}
	defer tr.Close()

	for _, addr := range cfg.Peers {
		if err := tr.Connect(ctx, addr); err != nil {
			log.Warn("failed to connect to configured peer", "addr", addr, "error", err)
		}
	}

	coord.Start(ctx)
	defer coord.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case sig := <-sigCh:
			log.Info("received shutdown signal", "signal", sig.String())
			return nil
		case <-statsTicker.C:
			s := coord.GetStats()
			log.Info("node stats", "roundsProcessed", s.RoundsProcessed, "lastFinalizedBlock", s.LastFinalizedBlock, "uptime", s.Uptime)
		}
	}
}

func applyFlagOverrides(c *cli.Context, cfg *config.Config) {
	if c.IsSet("chain-id") {
		cfg.ChainID = uint32(c.Uint("chain-id"))
	}
	if c.IsSet("network-name") {
		cfg.NetworkName = c.String("network-name")
	}
	if c.IsSet("validator-index") {
		if v := c.Int("validator-index"); v != -2 {
			cfg.ValidatorIndex = int32(v)
		}
	}
	if c.IsSet("validator-address") {
		if addr, err := types.ParseAddress(c.String("validator-address")); err == nil {
			cfg.ValidatorAddress = addr
		}
	}
	if c.IsSet("validator-key") {
		if key, err := config.ParseValidatorKey(c.String("validator-key")); err == nil {
			cfg.ValidatorKey = key
		}
	}
	if c.IsSet("http-port") {
		cfg.HTTPPort = uint16(c.Uint("http-port"))
	}
	if c.IsSet("p2p-port") {
		cfg.P2PPort = uint16(c.Uint("p2p-port"))
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("peers") {
		cfg.Peers = append([]string(nil), splitAndTrim(c.String("peers"))...)
	}
	if c.IsSet("use-pipelining") {
		cfg.UsePipelining = c.Bool("use-pipelining")
	}
	if c.IsSet("use-sandbox") {
		cfg.UseSandbox = c.Bool("use-sandbox")
	}
}

func printBanner(cfg config.Config) {
	banner := color.New(color.FgHiCyan, color.Bold)
	banner.Println("basalt")
	fmt.Printf("  network   %s (chain id %d)\n", cfg.NetworkName, cfg.ChainID)
	fmt.Printf("  data dir  %s\n", cfg.DataDir)
	fmt.Printf("  p2p port  %d\n", cfg.P2PPort)
	mode := "observer (consensus disabled)"
	if cfg.ValidatorIndex >= 0 {
		mode = fmt.Sprintf("validator index %d", cfg.ValidatorIndex)
	}
	fmt.Printf("  mode      %s\n", mode)
}
