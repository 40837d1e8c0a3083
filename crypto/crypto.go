// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package crypto defines the narrow, opaque capabilities the consensus core
// consumes from the signature-primitive layer: a classical signer for
// handshake and leader-proposal signatures, an aggregate-capable signer for
// votes that must combine into a quorum certificate, and a hasher for block
// and message ids. The primitives themselves (Ed25519, BLS12-381, Blake3)
// are out of this module's scope; only these interfaces and a
// development-grade default implementation of each live here.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
)

// ClassicalSigner signs and verifies single-signer messages (handshake
// proofs, block proposals). Production deployments back this with Ed25519.
type ClassicalSigner interface {
	PublicKey() []byte
	Sign(msg []byte) ([]byte, error)
	Verify(pubKey, msg, sig []byte) bool
}

// AggregateSigner produces signature shares that can be combined into a
// single short aggregate signature verifiable against a combined public
// key — the capability a Quorum Certificate is built from.
type AggregateSigner interface {
	PublicKey() []byte
	Sign(msg []byte) ([]byte, error)
	// Verify checks a single share against a single public key.
	Verify(pubKey, msg, sig []byte) bool
	// Aggregate combines signature shares, all over the same message, into
	// one aggregate signature.
	Aggregate(sigs [][]byte) ([]byte, error)
	// FastAggregateVerify checks an aggregate signature where every signer
	// signed the identical message — the common case for a QC.
	FastAggregateVerify(pubKeys [][]byte, msg, aggSig []byte) bool
}

// Hasher produces a fixed-size digest used for block hashes and gossip
// message ids.
type Hasher interface {
	Sum(data []byte) []byte
	Size() int
}

// ed25519Signer is the default ClassicalSigner backend.
type ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewClassicalSigner wraps a 32-byte Ed25519 seed into a ClassicalSigner. A
// nil seed generates a fresh random key, useful for tests.
func NewClassicalSigner(seed []byte) (ClassicalSigner, error) {
	var priv ed25519.PrivateKey
	if seed == nil {
		_, p, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		priv = p
	} else {
		if len(seed) != ed25519.SeedSize {
			return nil, errors.New("crypto: classical signer seed must be 32 bytes")
		}
		priv = ed25519.NewKeyFromSeed(seed)
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &ed25519Signer{priv: priv, pub: pub}, nil
}

func (s *ed25519Signer) PublicKey() []byte { return append([]byte(nil), s.pub...) }

func (s *ed25519Signer) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, msg), nil
}

func (s *ed25519Signer) Verify(pubKey, msg, sig []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pubKey), msg, sig)
}

var defaultHasher Hasher = NewBlake3Hasher()

// DefaultHasher returns the module-wide default Hasher (Blake3-backed).
func DefaultHasher() Hasher { return defaultHasher }

// SetDefaultHasher overrides the module-wide default; used by tests that
// need deterministic, dependency-free hashing.
func SetDefaultHasher(h Hasher) { defaultHasher = h }
