// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, spec := range envTable {
		require.NoError(t, os.Unsetenv(spec.name))
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, uint32(31337), cfg.ChainID)
	require.Equal(t, int32(-1), cfg.ValidatorIndex)
	require.Equal(t, uint16(5000), cfg.HTTPPort)
	require.Equal(t, uint16(30303), cfg.P2PPort)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASALT_CHAIN_ID", "7")
	t.Setenv("BASALT_PEERS", " 10.0.0.1:30303 ,10.0.0.2:30303,")
	t.Setenv("BASALT_USE_PIPELINING", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, uint32(7), cfg.ChainID)
	require.Equal(t, []string{"10.0.0.1:30303", "10.0.0.2:30303"}, cfg.Peers)
	require.True(t, cfg.UsePipelining)
}

func TestFromEnvRejectsMalformedValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASALT_CHAIN_ID", "not-a-number")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestValidateRejectsSystemDataDir(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = "/etc"
	err := cfg.Validate()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrFatal)
}

func TestValidateAcceptsOrdinaryDataDir(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = t.TempDir()
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresValidatorKeyWhenConsensusEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = t.TempDir()
	cfg.ValidatorIndex = 0
	err := cfg.Validate()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrFatal)
}

func TestValidateRejectsLowEntropyKey(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = t.TempDir()
	cfg.ValidatorIndex = 0
	cfg.ValidatorAddress[0] = 1
	// all-zero key
	err := cfg.Validate()
	require.Error(t, err)

	// two repeated 16-byte halves
	for i := 0; i < 16; i++ {
		cfg.ValidatorKey[i] = byte(i)
		cfg.ValidatorKey[i+16] = byte(i)
	}
	err = cfg.Validate()
	require.Error(t, err)
}

func TestValidateAcceptsHighEntropyKey(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = t.TempDir()
	cfg.ValidatorIndex = 0
	cfg.ValidatorAddress[0] = 1
	for i := range cfg.ValidatorKey {
		cfg.ValidatorKey[i] = byte(i * 7 + 13)
	}
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsSamePortForHTTPAndP2P(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = t.TempDir()
	cfg.P2PPort = cfg.HTTPPort
	err := cfg.Validate()
	require.Error(t, err)
}

func TestParseValidatorKeyRoundTrip(t *testing.T) {
	hex := "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
	key, err := ParseValidatorKey(hex)
	require.NoError(t, err)
	require.Equal(t, byte(0x01), key[0])
	require.Equal(t, byte(0x20), key[31])

	_, err = ParseValidatorKey("0x" + hex)
	require.NoError(t, err)

	_, err = ParseValidatorKey("too-short")
	require.Error(t, err)
}
