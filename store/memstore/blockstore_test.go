// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package memstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basalt-chain/basalt/store"
	"github.com/basalt-chain/basalt/types"
)

func TestBlockStorePutGetRoundTrip(t *testing.T) {
	bs := NewBlockStore()
	header := &types.Header{ChainID: 7, BlockNumber: 3}
	block := &types.Block{Header: header}
	raw := header.Encode()

	require.NoError(t, bs.PutFullBlock(block, raw, types.CommitBitmap(0b111)))

	got, err := bs.GetRawBlockByNumber(3)
	require.NoError(t, err)
	require.Equal(t, raw, got)

	bm, err := bs.GetCommitBitmap(3)
	require.NoError(t, err)
	require.Equal(t, types.CommitBitmap(0b111), bm)
}

func TestBlockStoreGetMissingReturnsErrNotFound(t *testing.T) {
	bs := NewBlockStore()
	_, err := bs.GetRawBlockByNumber(99)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = bs.GetCommitBitmap(99)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestBlockStoreLatestBlockNumberUnsetIsErrNotFound(t *testing.T) {
	bs := NewBlockStore()
	_, err := bs.GetLatestBlockNumber()
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, bs.SetLatestBlockNumber(5))
	n, err := bs.GetLatestBlockNumber()
	require.NoError(t, err)
	require.Equal(t, uint64(5), n)
}
