// Package circuit
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package circuit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/distributed-lab/gkr-orion/field"
)

// TestTwoGateCircuit checks a tiny two-gate layer: inputs [1,1,1,1],
// MulGate(0,1->0, c=1) and AddGate(2->1, c=1), outputs [1, 1].
func TestTwoGateCircuit(t *testing.T) {
	eng := field.BN254Scalar()
	one := eng.One()

	layer := &Layer{
		InputVarNum:  2,
		OutputVarNum: 1,
		Mul:          []MulGate{{In1: 0, In2: 1, Out: 0, Coeff: one}},
		Add:          []AddGate{{In: 2, Out: 1, Coeff: one}},
		InputVals:    []field.Element{one, one, one, one},
	}

	c := NewCircuit([]*Layer{layer}, 0)
	c.Evaluate(eng)

	require.True(t, layer.OutputVals[0].Equal(one))
	require.True(t, layer.OutputVals[1].Equal(one))
	require.True(t, layer.SkipSumcheckPhaseTwo() == false)
}

// TestOutputZeroInvariant checks that an honest witness zeroes the
// designated output-zero prefix, and a tampered one does not.
func TestOutputZeroInvariant(t *testing.T) {
	eng := field.BN254Scalar()
	zero := eng.Zero()
	one := eng.One()

	layer := &Layer{
		InputVarNum:  2,
		OutputVarNum: 2,
		Add: []AddGate{
			{In: 0, Out: 0, Coeff: zero},
			{In: 1, Out: 1, Coeff: one},
		},
		InputVals: []field.Element{one, eng.ElementFromInt(7), zero, zero},
	}

	c := NewCircuit([]*Layer{layer}, 1)
	c.Evaluate(eng)

	require.True(t, c.CheckOutputZeros())

	layer.OutputVals[0] = one
	require.False(t, c.CheckOutputZeros())
}

func TestLayerChainValidation(t *testing.T) {
	require.Panics(t, func() {
		NewCircuit([]*Layer{
			{InputVarNum: 2, OutputVarNum: 2},
			{InputVarNum: 3, OutputVarNum: 1},
		}, 0)
	})
}

func TestNewSquareLayer(t *testing.T) {
	eng := field.BN254Scalar()
	layer := NewSquareLayer(eng, 1, 5)
	layer.InputVals = []field.Element{eng.ElementFromInt(2), eng.ElementFromInt(3)}

	c := NewCircuit([]*Layer{layer}, 0)
	c.Evaluate(eng)

	want0 := eng.ElementFromInt(2)
	for i := 0; i < 4; i++ {
		want0 = want0.Mul(eng.ElementFromInt(2))
	}
	require.True(t, layer.OutputVals[0].Equal(want0))
	require.True(t, layer.SkipSumcheckPhaseTwo())
}
