// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// basalt-peerid derives the wire-level peer id a validator key will
// present in its Hello handshake, the same offline key-to-identity
// calculation the teacher's docker/scripts/calculate-enode.go performed
// against an ECDSA node key before writing it into a static-nodes file.
package main

import (
	"fmt"
	"os"

	"github.com/basalt-chain/basalt/config"
	"github.com/basalt-chain/basalt/crypto"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: basalt-peerid <validator_key_hex>")
		os.Exit(1)
	}

	key, err := config.ParseValidatorKey(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error decoding validator key: %v\n", err)
		os.Exit(1)
	}

	classical, err := crypto.NewClassicalSigner(key[:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error deriving classical key: %v\n", err)
		os.Exit(1)
	}
	aggregate, err := crypto.NewAggregateSigner(key[:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error deriving aggregate key: %v\n", err)
		os.Exit(1)
	}

	peerID := crypto.DerivePeerID(classical.PublicKey())
	fmt.Printf("classical pubkey:  %x\n", classical.PublicKey())
	fmt.Printf("aggregate pubkey:  %x\n", aggregate.PublicKey())
	fmt.Printf("peer id:           %s\n", peerID)
}
