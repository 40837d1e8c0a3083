//go:build blst

// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Production AggregateSigner backend using the supranational/blst library
// (MinPk scheme: public keys in G1, signatures in G2). Build with
// `-tags blst` on a platform with a cgo toolchain.
package crypto

import (
	"errors"

	blst "github.com/supranational/blst/bindings/go"
)

var aggregateDST = []byte("BASALT_BFT_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

// blstAggregateSigner implements AggregateSigner over real BLS12-381
// arithmetic.
type blstAggregateSigner struct {
	sk  *blst.SecretKey
	pub []byte
}

// NewAggregateSignerFromIKM derives a blst-backed AggregateSigner from at
// least 32 bytes of key material.
func NewAggregateSignerFromIKM(ikm []byte) (AggregateSigner, error) {
	if len(ikm) < 32 {
		return nil, errors.New("crypto: ikm must be at least 32 bytes")
	}
	sk := blst.KeyGen(ikm)
	if sk == nil {
		return nil, errors.New("crypto: blst key generation failed")
	}
	pub := new(blst.P1Affine).From(sk).Compress()
	return &blstAggregateSigner{sk: sk, pub: pub}, nil
}

func (s *blstAggregateSigner) PublicKey() []byte { return append([]byte(nil), s.pub...) }

func (s *blstAggregateSigner) Sign(msg []byte) ([]byte, error) {
	sig := new(blst.P2Affine).Sign(s.sk, msg, aggregateDST)
	if sig == nil {
		return nil, errors.New("crypto: blst signing failed")
	}
	return sig.Compress(), nil
}

func (s *blstAggregateSigner) Verify(pubKey, msg, sig []byte) bool {
	pk := new(blst.P1Affine).Uncompress(pubKey)
	if pk == nil {
		return false
	}
	sg := new(blst.P2Affine).Uncompress(sig)
	if sg == nil {
		return false
	}
	return sg.Verify(true, pk, true, msg, aggregateDST)
}

func (s *blstAggregateSigner) Aggregate(sigs [][]byte) ([]byte, error) {
	if len(sigs) == 0 {
		return nil, errors.New("crypto: no signatures to aggregate")
	}
	agg := new(blst.P2Aggregate)
	if !agg.AggregateCompressed(sigs, true) {
		return nil, errors.New("crypto: signature aggregation failed")
	}
	return agg.ToAffine().Compress(), nil
}

func (s *blstAggregateSigner) FastAggregateVerify(pubKeys [][]byte, msg, aggSig []byte) bool {
	n := len(pubKeys)
	if n == 0 {
		return false
	}
	sg := new(blst.P2Affine).Uncompress(aggSig)
	if sg == nil {
		return false
	}
	pks := make([]*blst.P1Affine, n)
	for i, pk := range pubKeys {
		pks[i] = new(blst.P1Affine).Uncompress(pk)
		if pks[i] == nil {
			return false
		}
	}
	return sg.FastAggregateVerify(true, pks, msg, aggregateDST)
}
