// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package config is the closed environment-style configuration set a
// Basalt node starts from, generalized from the teacher's beacon-engine
// flag surface (cmd/equa-beacon-engine/main.go) into an env-first layer
// that cmd/basalt's CLI flags override rather than replace.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/basalt-chain/basalt/types"
)

// Config is the complete closed configuration set. Every field here is
// either part of the external env-style surface or a resource bound the
// coordinator needs at construction time; there is no third tier.
type Config struct {
	ChainID     uint32
	NetworkName string

	// ValidatorIndex < 0 disables consensus mode: the node still syncs
	// and serves gossip/sync traffic but never proposes or votes.
	ValidatorIndex   int32
	ValidatorAddress types.Address
	ValidatorKey     [32]byte

	HTTPPort uint16
	P2PPort  uint16

	DataDir string
	Peers   []string

	UsePipelining bool
	UseSandbox    bool

	// Resource bounds, not part of the external env surface but fixed
	// at construction time alongside it (spec.md §5 "Resource bounds").
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
}

// Defaults returns a Config pre-populated with every value spec.md §6
// names a default for, plus the resource bounds the rest of the core
// needs. FromEnv starts from this and overrides what it finds set.
func Defaults() Config {
	return Config{
		ChainID:     31337,
		NetworkName: "basalt-devnet",

		ValidatorIndex: -1,

		HTTPPort: 5000,
		P2PPort:  30303,

		DataDir: "./basalt-data",

		TickInterval:     200 * time.Millisecond,
		BlockPeriod:      2 * time.Second,
		PipelineDepth:    4,
		RoundTimeout:     4 * time.Second,
		SyncLagBlocks:    8,
		SyncBatchTimeout: 10 * time.Second,
		EvidenceWindow:   1024,
		PeerRateLimit:    rate.Limit(50),
		PeerRateBurst:    100,
		MempoolBatchSize: 256,
		InboundQueueSize: 4096,
	}
}

// envSpec is one entry in the closed env-style surface: the variable
// name and a setter applied if the variable is present and non-empty.
type envSpec struct {
	name string
	set  func(cfg *Config, value string) error
}

var envTable = []envSpec{
	{"BASALT_CHAIN_ID", func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("chain_id: %w", err)
		}
		c.ChainID = uint32(n)
		return nil
	}},
	{"BASALT_NETWORK_NAME", func(c *Config, v string) error {
		c.NetworkName = v
		return nil
	}},
	{"BASALT_VALIDATOR_INDEX", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("validator_index: %w", err)
		}
		c.ValidatorIndex = int32(n)
		return nil
	}},
	{"BASALT_VALIDATOR_ADDRESS", func(c *Config, v string) error {
		addr, err := types.ParseAddress(v)
		if err != nil {
			return fmt.Errorf("validator_address: %w", err)
		}
		c.ValidatorAddress = addr
		return nil
	}},
	{"BASALT_VALIDATOR_KEY", func(c *Config, v string) error {
		key, err := ParseValidatorKey(v)
		if err != nil {
			return fmt.Errorf("validator_key: %w", err)
		}
		c.ValidatorKey = key
		return nil
	}},
	{"BASALT_HTTP_PORT", func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("http_port: %w", err)
		}
		c.HTTPPort = uint16(n)
		return nil
	}},
	{"BASALT_P2P_PORT", func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("p2p_port: %w", err)
		}
		c.P2PPort = uint16(n)
		return nil
	}},
	{"BASALT_DATA_DIR", func(c *Config, v string) error {
		c.DataDir = v
		return nil
	}},
	{"BASALT_PEERS", func(c *Config, v string) error {
		c.Peers = splitPeers(v)
		return nil
	}},
	{"BASALT_USE_PIPELINING", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("use_pipelining: %w", err)
		}
		c.UsePipelining = b
		return nil
	}},
	{"BASALT_USE_SANDBOX", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("use_sandbox: %w", err)
		}
		c.UseSandbox = b
		return nil
	}},
}

// FromEnv builds a Config from Defaults() overridden by whichever
// BASALT_* variables are present in the process environment.
func FromEnv() (Config, error) {
	cfg := Defaults()
	for _, spec := range envTable {
		v, ok := os.LookupEnv(spec.name)
		if !ok || v == "" {
			continue
		}
		if err := spec.set(&cfg, v); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func splitPeers(v string) []string {
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

// ParseValidatorKey decodes a 32-byte hex-encoded validator key, with or
// without a "0x" prefix. It only checks shape; entropy is checked
// separately by Validate so a syntactically valid but weak key is still
// caught before startup completes.
func ParseValidatorKey(v string) ([32]byte, error) {
	return decodeHexKey(v)
}

func decodeHexKey(v string) ([32]byte, error) {
	var key [32]byte
	v = strings.TrimPrefix(strings.TrimPrefix(v, "0x"), "0X")
	if len(v) != 64 {
		return key, fmt.Errorf("want 32 bytes hex-encoded, got %d hex chars", len(v))
	}
	decoded, err := decodeHex(v)
	if err != nil {
		return key, err
	}
	copy(key[:], decoded)
	return key, nil
}

func decodeHex(s string) ([]byte, error) {
	out := make([]byte, len(s)/2)
	for i := range out {
		hi, err := hexNibble(s[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(s[i*2+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex character %q", c)
	}
}

// systemDirs is the set of paths data_dir must never resolve to, the
// fatal startup check spec.md §6 requires.
var systemDirs = []string{
	"/", "/bin", "/boot", "/dev", "/etc", "/lib", "/lib64",
	"/proc", "/root", "/sbin", "/sys", "/usr", "/var",
}

// Validate checks the closed configuration set for the conditions
// spec.md §7 classifies as fatal: a validator key of the wrong length or
// with insufficient entropy, and a data_dir resolving to a system
// directory. It does not touch the filesystem beyond resolving DataDir
// to an absolute path.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrFatal)
	}
	abs, err := filepath.Abs(c.DataDir)
	if err != nil {
		return fmt.Errorf("%w: resolving data_dir: %v", ErrFatal, err)
	}
	clean := filepath.Clean(abs)
	for _, sys := range systemDirs {
		if clean == sys {
			return fmt.Errorf("%w: data_dir %q resolves to a system directory", ErrFatal, clean)
		}
	}
	c.DataDir = clean

	if c.ValidatorIndex >= 0 {
		if err := validateKeyEntropy(c.ValidatorKey); err != nil {
			return fmt.Errorf("%w: validator_key: %v", ErrFatal, err)
		}
		if c.ValidatorAddress.IsZero() {
			return fmt.Errorf("%w: validator_address must be set when validator_index >= 0", ErrFatal)
		}
	}
	if c.HTTPPort == c.P2PPort {
		return fmt.Errorf("%w: http_port and p2p_port must differ", ErrFatal)
	}
	return nil
}

// validateKeyEntropy rejects an all-zero key and a key with too few
// distinct byte values to plausibly be real key material — a coarse but
// cheap guard against a copy-pasted placeholder or truncated value
// reaching production, the entropy check spec.md §6/§7 calls for.
func validateKeyEntropy(key [32]byte) error {
	if key == ([32]byte{}) {
		return fmt.Errorf("all-zero key")
	}
	var seen [256]bool
	distinct := 0
	for _, b := range key {
		if !seen[b] {
			seen[b] = true
			distinct++
		}
	}
	const minDistinct = 8
	if distinct < minDistinct {
		return fmt.Errorf("only %d distinct byte values, want at least %d", distinct, minDistinct)
	}
	if bytes.Equal(key[:16], key[16:]) {
		return fmt.Errorf("key is two repeated 16-byte halves")
	}
	return nil
}
