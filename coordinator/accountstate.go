// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package coordinator

import (
	"encoding/binary"

	"github.com/basalt-chain/basalt/store"
	"github.com/basalt-chain/basalt/types"
	"github.com/holiman/uint256"
)

// stateAccountView adapts the opaque key/value StateDB into the narrow
// mempool.AccountState view: nonce and balance stored under a fixed key
// per address, written by the execution collaborator as it applies a
// block. Never-seen addresses read as nonce 0, balance 0.
type stateAccountView struct {
	db store.StateDB
}

func accountKey(addr types.Address) []byte {
	key := make([]byte, 0, 5+types.AddressLength)
	key = append(key, "acct/"...)
	return append(key, addr[:]...)
}

func (v stateAccountView) Nonce(addr types.Address) uint64 {
	raw, err := v.db.Get(accountKey(addr))
	if err != nil || len(raw) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw[:8])
}

func (v stateAccountView) Balance(addr types.Address) *uint256.Int {
	raw, err := v.db.Get(accountKey(addr))
	if err != nil || len(raw) < 8+32 {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).SetBytes32(raw[8:40])
}
