// Package circuit
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package circuit

import "github.com/distributed-lab/gkr-orion/field"

// NewSquareLayer builds a GKR^2 layer: one whose only gates are UniGates of
// a single fixed odd SBOX power (5 or 7), one per wire. This is the
// composition that lets a GKR reduction step emit power+1 field elements
// instead of the usual 2/3, without introducing any MulGates.
func NewSquareLayer(eng field.Engine, varNum int, power int) *Layer {
	if power != 5 && power != 7 {
		panic("circuit: GKR^2 layer power must be 5 or 7")
	}

	n := 1 << uint(varNum)
	uni := make([]UniGate, n)
	for i := 0; i < n; i++ {
		uni[i] = UniGate{In: i, Out: i, Power: power, Coeff: eng.One()}
	}

	return &Layer{
		InputVarNum:  varNum,
		OutputVarNum: varNum,
		Uni:          uni,
	}
}
