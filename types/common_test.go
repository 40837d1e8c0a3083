// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddressRoundTrip(t *testing.T) {
	a, err := ParseAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	require.NoError(t, err)
	require.Equal(t, "0x0102030405060708090a0b0c0d0e0f1011121314", a.Hex())
	require.False(t, a.IsZero())

	b, err := ParseAddress("0102030405060708090a0b0c0d0e0f1011121314")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestParseAddressRejectsWrongLength(t *testing.T) {
	_, err := ParseAddress("0x0102")
	require.Error(t, err)
}

func TestParseAddressRejectsMalformedHex(t *testing.T) {
	_, err := ParseAddress("0xzz02030405060708090a0b0c0d0e0f1011121314")
	require.Error(t, err)
}

func TestHexToAddressPanicsOnInvalid(t *testing.T) {
	require.Panics(t, func() { HexToAddress("0xnotanaddress") })
}

func TestZeroAddress(t *testing.T) {
	var a Address
	require.True(t, a.IsZero())
}

func TestBytesToHashPadsAndTruncates(t *testing.T) {
	h := BytesToHash([]byte{1, 2, 3})
	require.True(t, h[HashLength-1] == 3)
	require.True(t, h[0] == 0)

	long := make([]byte, HashLength+8)
	for i := range long {
		long[i] = byte(i)
	}
	h2 := BytesToHash(long)
	require.Equal(t, long[len(long)-HashLength:], h2[:])
}

func TestHashZeroAndHex(t *testing.T) {
	var h Hash
	require.True(t, h.IsZero())
	h[0] = 0xab
	require.False(t, h.IsZero())
	require.Equal(t, "0xab", h.Hex()[:4])
}
