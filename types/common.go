// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package types

import (
	"encoding/hex"
	"fmt"
)

// AddressLength is the length in bytes of an on-chain address.
const AddressLength = 20

// HashLength is the length in bytes of a content hash.
const HashLength = 32

// PubKeyLength is the length in bytes of a classical (Ed25519) public key.
const PubKeyLength = 32

// AggPubKeyLength is the length in bytes of a compressed aggregate-capable
// (BLS12-381 G1) public key.
const AggPubKeyLength = 48

// MaxValidators is the hard cap on validator-set size imposed by the 64-bit
// signer bitmap used throughout the protocol (spec.md Non-goals).
const MaxValidators = 64

// Address is an on-chain account/validator address.
type Address [AddressLength]byte

// Hex renders the address with a 0x prefix.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool { return a == Address{} }

// HexToAddress parses a 0x-prefixed or bare hex string into an Address. It
// panics on malformed input; callers that need a recoverable parse should
// use ParseAddress.
func HexToAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAddress parses a 0x-prefixed or bare hex string into an Address.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = trim0x(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("types: invalid address %q: %w", s, err)
	}
	if len(b) != AddressLength {
		return a, fmt.Errorf("types: address %q has %d bytes, want %d", s, len(b), AddressLength)
	}
	copy(a[:], b)
	return a, nil
}

// Hash is a 32-byte content hash (block hash, tx hash, message id, ...).
type Hash [HashLength]byte

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// IsZero reports whether the hash is the zero value.
func (h Hash) IsZero() bool { return h == Hash{} }

// BytesToHash left-truncates/right-pads b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
