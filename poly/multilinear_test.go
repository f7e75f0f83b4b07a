// Package poly
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package poly

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/distributed-lab/gkr-orion/field"
)

// TestTrivialMultilinear checks the single-variable case: n=1, c=[0,1],
// r=[5] -> eval = 5, eq_r = [-4, 5].
func TestTrivialMultilinear(t *testing.T) {
	eng := field.BN254Scalar()
	c := []field.Element{eng.ElementFromInt(0), eng.ElementFromInt(1)}
	r := []field.Element{eng.ElementFromInt(5)}

	got := EvalWithBuffer(c, r, nil)
	require.True(t, got.Equal(eng.ElementFromInt(5)))

	eq := BuildEqXR(eng, r)
	require.True(t, eq[0].Equal(eng.ElementFromInt(-4)))
	require.True(t, eq[1].Equal(eng.ElementFromInt(5)))
}

// TestEqPolynomialDoublingRule checks the two-variable case: for r=[a,b],
// build_eq_x_r(r) = [(1-a)(1-b), a(1-b), (1-a)b, ab].
func TestEqPolynomialDoublingRule(t *testing.T) {
	eng := field.BN254Scalar()
	a := eng.ElementFromInt(7)
	b := eng.ElementFromInt(11)

	eq := BuildEqXR(eng, []field.Element{a, b})
	require.Len(t, eq, 4)

	one := eng.One()
	oneMinusA := one.Sub(a)
	oneMinusB := one.Sub(b)

	require.True(t, eq[0].Equal(oneMinusA.Mul(oneMinusB)))
	require.True(t, eq[1].Equal(a.Mul(oneMinusB)))
	require.True(t, eq[2].Equal(oneMinusA.Mul(b)))
	require.True(t, eq[3].Equal(a.Mul(b)))
}

// TestMultilinearExtensionSumsAgainstEq is P7: for random c and r,
// eval_with_buffer(c, r) = sum_i c[i] * eq_r[i].
func TestMultilinearExtensionSumsAgainstEq(t *testing.T) {
	eng := field.BN254Scalar()
	c := []field.Element{
		eng.ElementFromInt(3), eng.ElementFromInt(9),
		eng.ElementFromInt(27), eng.ElementFromInt(81),
	}
	r := []field.Element{eng.ElementFromInt(13), eng.ElementFromInt(17)}

	got := EvalWithBuffer(c, r, nil)

	eq := BuildEqXR(eng, r)
	want := eng.Zero()
	for i := range c {
		want = want.Add(c[i].Mul(eq[i]))
	}

	require.True(t, got.Equal(want))
}

func TestFixTopVariableMatchesEval(t *testing.T) {
	eng := field.BN254Scalar()
	vals := []field.Element{
		eng.ElementFromInt(1), eng.ElementFromInt(2),
		eng.ElementFromInt(3), eng.ElementFromInt(4),
	}
	r := eng.ElementFromInt(5)

	tbl := NewTable(append([]field.Element(nil), vals...))
	tbl.FixTopVariable(r)
	require.Equal(t, 2, tbl.Len())

	want0 := EvalWithBuffer([]field.Element{vals[0], vals[2]}, []field.Element{r}, nil)
	want1 := EvalWithBuffer([]field.Element{vals[1], vals[3]}, []field.Element{r}, nil)

	require.True(t, tbl.Vals[0].Equal(want0))
	require.True(t, tbl.Vals[1].Equal(want1))
}
