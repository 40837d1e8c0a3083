// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package crypto

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassicalSignerSignVerify(t *testing.T) {
	signer, err := NewClassicalSigner(nil)
	require.NoError(t, err)

	msg := []byte("propose block 7")
	sig, err := signer.Sign(msg)
	require.NoError(t, err)
	require.True(t, signer.Verify(signer.PublicKey(), msg, sig))
	require.False(t, signer.Verify(signer.PublicKey(), []byte("propose block 8"), sig))
}

func TestClassicalSignerRejectsShortSeed(t *testing.T) {
	_, err := NewClassicalSigner(make([]byte, 16))
	require.Error(t, err)
}

func TestClassicalSignerDeterministicFromSeed(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	a, err := NewClassicalSigner(seed)
	require.NoError(t, err)
	b, err := NewClassicalSigner(seed)
	require.NoError(t, err)
	require.Equal(t, a.PublicKey(), b.PublicKey())
}

func TestAggregateSignerFastAggregateVerify(t *testing.T) {
	const n = 4
	var pubKeys [][]byte
	var sigs [][]byte
	msg := []byte("precommit view 9 block 42")

	for i := 0; i < n; i++ {
		signer, err := NewAggregateSigner(nil)
		require.NoError(t, err)
		sig, err := signer.Sign(msg)
		require.NoError(t, err)
		pubKeys = append(pubKeys, signer.PublicKey())
		sigs = append(sigs, sig)
	}

	agg, err := NewAggregateSigner(nil)
	require.NoError(t, err)

	aggSig, err := agg.Aggregate(sigs)
	require.NoError(t, err)
	require.True(t, agg.FastAggregateVerify(pubKeys, msg, aggSig))

	// a single corrupted share must break verification
	aggSig[0] ^= 0xFF
	require.False(t, agg.FastAggregateVerify(pubKeys, msg, aggSig))
}

func TestAggregateSignerAggregateRejectsEmpty(t *testing.T) {
	signer, err := NewAggregateSigner(nil)
	require.NoError(t, err)
	_, err = signer.Aggregate(nil)
	require.Error(t, err)
}

func TestBlake3HasherDeterministic(t *testing.T) {
	h := NewBlake3Hasher()
	a := h.Sum([]byte("basalt"))
	b := h.Sum([]byte("basalt"))
	require.Equal(t, a, b)
	require.Len(t, a, 32)
	require.Equal(t, 32, h.Size())

	c := h.Sum([]byte("basalt2"))
	require.NotEqual(t, a, c)
}

func TestDerivePeerIDStableAndDistinct(t *testing.T) {
	seedA := make([]byte, ed25519.SeedSize)
	seedB := make([]byte, ed25519.SeedSize)
	seedB[0] = 1

	a, err := NewClassicalSigner(seedA)
	require.NoError(t, err)
	b, err := NewClassicalSigner(seedB)
	require.NoError(t, err)

	idA1 := DerivePeerID(a.PublicKey())
	idA2 := DerivePeerID(a.PublicKey())
	idB := DerivePeerID(b.PublicKey())

	require.Equal(t, idA1, idA2)
	require.NotEqual(t, idA1, idB)
	require.Len(t, idA1, 64) // 32-byte pubkey, hex-encoded
}
