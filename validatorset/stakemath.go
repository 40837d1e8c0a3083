// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package validatorset

import "github.com/holiman/uint256"

// bigUintAccumulator totals validator stake and divides out proportional
// alias-table shares without ever dropping into floating point.
type bigUintAccumulator struct {
	total uint256.Int
}

func (a *bigUintAccumulator) addUint256(v *uint256.Int) {
	if v == nil {
		return
	}
	a.total.Add(&a.total, v)
}

func (a *bigUintAccumulator) isZero() bool {
	return a.total.IsZero()
}

// shareOf returns floor(stake * slots / total). Both operands are bounded
// well under 2^256 for any realistic stake distribution, so the
// intermediate product never overflows.
func (a *bigUintAccumulator) shareOf(stake *uint256.Int, slots uint64) uint64 {
	if stake == nil || a.total.IsZero() {
		return 0
	}
	var num uint256.Int
	num.Mul(stake, uint256.NewInt(slots))
	var out uint256.Int
	out.Div(&num, &a.total)
	return out.Uint64()
}
