// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package types

import "github.com/holiman/uint256"

// Validator is a single row of a ValidatorSet: a stable index, network and
// cryptographic identity, and the current stake snapshot it was installed
// with.
type Validator struct {
	Index     uint8   // stable index in [0, MaxValidators)
	PeerID    string  // peer identifier, reconciled after handshake
	PubKey    [PubKeyLength]byte    // classical (Ed25519) public key
	AggPubKey [AggPubKeyLength]byte // aggregate-capable (BLS12-381) public key
	Address   Address
	Stake     *uint256.Int
}

// Clone returns a deep copy, since Stake is a pointer.
func (v *Validator) Clone() *Validator {
	if v == nil {
		return nil
	}
	cp := *v
	if v.Stake != nil {
		cp.Stake = new(uint256.Int).Set(v.Stake)
	}
	return &cp
}
