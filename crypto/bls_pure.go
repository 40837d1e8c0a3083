// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
)

// pureGoAggregateSigner is the development-grade AggregateSigner backend. It
// does not perform real elliptic-curve aggregation; it wraps Ed25519 and
// "aggregates" by concatenating shares, which is correct for single-process
// tests and local networks but must never be used across a trust boundary.
// This file carries no build tag, so NewAggregateSigner returns this
// backend in every build; the "blst" tag only adds
// NewAggregateSignerFromIKM for the blst backend.
type pureGoAggregateSigner struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewAggregateSigner returns the default, pure-Go AggregateSigner backend.
func NewAggregateSigner(seed []byte) (AggregateSigner, error) {
	var priv ed25519.PrivateKey
	if seed == nil {
		_, p, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		priv = p
	} else {
		if len(seed) != ed25519.SeedSize {
			return nil, errors.New("crypto: aggregate signer seed must be 32 bytes")
		}
		priv = ed25519.NewKeyFromSeed(seed)
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &pureGoAggregateSigner{priv: priv, pub: pub}, nil
}

func (s *pureGoAggregateSigner) PublicKey() []byte { return append([]byte(nil), s.pub...) }

func (s *pureGoAggregateSigner) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, msg), nil
}

func (s *pureGoAggregateSigner) Verify(pubKey, msg, sig []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pubKey), msg, sig)
}

// Aggregate concatenates the shares in order. The resulting "aggregate" is
// only verifiable by FastAggregateVerify against the same ordered pubkey
// list, which is all the pure-Go backend promises.
func (s *pureGoAggregateSigner) Aggregate(sigs [][]byte) ([]byte, error) {
	if len(sigs) == 0 {
		return nil, errors.New("crypto: no signatures to aggregate")
	}
	out := make([]byte, 0, len(sigs)*ed25519.SignatureSize)
	for _, sig := range sigs {
		if len(sig) != ed25519.SignatureSize {
			return nil, errors.New("crypto: malformed signature share")
		}
		out = append(out, sig...)
	}
	return out, nil
}

func (s *pureGoAggregateSigner) FastAggregateVerify(pubKeys [][]byte, msg, aggSig []byte) bool {
	n := len(pubKeys)
	if n == 0 || len(aggSig) != n*ed25519.SignatureSize {
		return false
	}
	for i, pk := range pubKeys {
		share := aggSig[i*ed25519.SignatureSize : (i+1)*ed25519.SignatureSize]
		if len(pk) != ed25519.PublicKeySize || !ed25519.Verify(ed25519.PublicKey(pk), msg, share) {
			return false
		}
	}
	return true
}
