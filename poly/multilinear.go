// Package poly
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package poly represents a multilinear polynomial by its 2^n evaluations
// over the Boolean hypercube, evaluated or bound one variable at a time by
// a fold-by-half recurrence: interpolate each adjacent pair against a
// challenge and halve the buffer, generalized from *big.Int vector folding
// to field.Element.
package poly

import "github.com/distributed-lab/gkr-orion/field"

// EvalWithBuffer evaluates the multilinear extension of coeffs (length 2^n)
// at point (length n). scratch is reused as the recurrence's
// arena so repeated calls avoid reallocating; pass a nil/short scratch and
// it will be grown once.
func EvalWithBuffer(coeffs []field.Element, point []field.Element, scratch []field.Element) field.Element {
	n := len(point)
	if len(coeffs) != 1<<uint(n) {
		panic("poly: coeffs length does not match 2^len(point)")
	}

	cur := ensureLen(scratch, len(coeffs))
	copy(cur, coeffs)

	for _, r := range point {
		half := len(cur) / 2
		for i := 0; i < half; i++ {
			diff := cur[2*i+1].Sub(cur[2*i])
			cur[i] = cur[2*i].Add(diff.Mul(r))
		}
		cur = cur[:half]
	}

	return cur[0]
}

func ensureLen(buf []field.Element, n int) []field.Element {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]field.Element, n)
}

// Table is a mutable multilinear table over the Boolean hypercube, supporting
// FixTopVariable in place — a shrink-by-half step that binds one variable.
type Table struct {
	Vals []field.Element
}

// NewTable wraps a slice of 2^n hypercube evaluations.
func NewTable(vals []field.Element) *Table {
	return &Table{Vals: vals}
}

// Len reports the current table size (2^k for k the number of unbound
// variables).
func (t *Table) Len() int { return len(t.Vals) }

// FixTopVariable halves the table, binding the highest-indexed remaining
// variable to r via the same recurrence EvalWithBuffer uses for a single
// variable, applied to the pairs (Vals[i], Vals[i+half]).
func (t *Table) FixTopVariable(r field.Element) {
	if len(t.Vals) <= 1 {
		panic("poly: cannot fix a variable on a table of length <= 1")
	}
	half := len(t.Vals) / 2
	out := make([]field.Element, half)
	for i := 0; i < half; i++ {
		diff := t.Vals[i+half].Sub(t.Vals[i])
		out[i] = t.Vals[i].Add(diff.Mul(r))
	}
	t.Vals = out
}

// Scalar returns the single remaining value once the table has been bound
// down to length 1 (the scalar claim V(rx) after the last variable is
// bound).
func (t *Table) Scalar() field.Element {
	if len(t.Vals) != 1 {
		panic("poly: Scalar() called before table fully bound")
	}
	return t.Vals[0]
}

// BuildEqXR constructs the equality polynomial eq(r, .) by the doubling
// rule: start with [1]; for each r_i, replace each entry v by the pair
// (v*(1-r_i), v*r_i).
func BuildEqXR(eng field.Engine, r []field.Element) []field.Element {
	one := eng.One()
	cur := []field.Element{one}

	for _, ri := range r {
		oneMinusRi := one.Sub(ri)
		next := make([]field.Element, len(cur)*2)
		for i, v := range cur {
			next[2*i] = v.Mul(oneMinusRi)
			next[2*i+1] = v.Mul(ri)
		}
		cur = next
	}

	return cur
}
