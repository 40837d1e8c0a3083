// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package crypto

import "lukechampine.com/blake3"

// blake3Hasher is the default Hasher backend. Blake3 is used instead of the
// standard library's sha256 for its parallel-friendly tree construction,
// matching the hashing choice favoured elsewhere in the pack for
// high-throughput block and message ids.
type blake3Hasher struct {
	size int
}

// NewBlake3Hasher returns a Hasher producing 32-byte Blake3 digests.
func NewBlake3Hasher() Hasher { return &blake3Hasher{size: 32} }

func (h *blake3Hasher) Sum(data []byte) []byte {
	sum := blake3.Sum256(data)
	return sum[:]
}

func (h *blake3Hasher) Size() int { return h.size }
