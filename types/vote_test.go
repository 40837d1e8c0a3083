// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQCPopCount(t *testing.T) {
	var qc *QC
	require.Equal(t, 0, qc.PopCount())

	qc = &QC{SignerBitmap: 0b1011}
	require.Equal(t, 3, qc.PopCount())

	qc.SignerBitmap = 0
	require.Equal(t, 0, qc.PopCount())
}

func TestCommitBitmapPopCount(t *testing.T) {
	var b CommitBitmap
	require.Equal(t, 0, b.PopCount())

	b = CommitBitmap(0xFF)
	require.Equal(t, 8, b.PopCount())
}

func TestPhaseString(t *testing.T) {
	cases := map[Phase]string{
		PhaseProposing:  "proposing",
		PhasePreVote:    "pre-vote",
		PhasePreCommit:  "pre-commit",
		PhaseCommit:     "commit",
		PhaseViewChange: "view-change",
		Phase(99):       "unknown",
	}
	for phase, want := range cases {
		require.Equal(t, want, phase.String())
	}
}
