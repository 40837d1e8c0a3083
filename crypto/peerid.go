// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package crypto

import "encoding/hex"

// DerivePeerID turns a classical public key into the stable wire-level
// peer identifier exchanged in every Hello handshake, the same
// pubkey-to-identity derivation the teacher's enode calculator performed
// against an ECDSA node key (there: the uncompressed pubkey minus its
// prefix byte, hex-encoded into an enode node id; here: the full Ed25519
// public key, hex-encoded directly, since Basalt's classical key has no
// compressed/uncompressed encoding distinction to strip).
func DerivePeerID(classicalPub []byte) string {
	return hex.EncodeToString(classicalPub)
}
