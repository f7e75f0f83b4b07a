// Package circuit
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package circuit implements the data model: a fan-in-two arithmetic
// circuit made of Add/Mul/Const/Uni gates, organized into layers, with a
// deterministic forward evaluator. There is no direct teacher analogue —
// BP++'s Wl/Wm sparse coefficient matrices in circuit.go
// (calculateMRL/calculateMO) are the closest prior art for "a gate's
// contribution is a coefficient times one or two wire values", and are the
// grounding for representing gates as sparse (input, output, coefficient)
// tuples rather than a dense matrix.
package circuit

import "github.com/distributed-lab/gkr-orion/field"

// AddGate contributes Coeff * V[In] to output Out.
type AddGate struct {
	In, Out int
	Coeff   field.Element
}

// MulGate contributes Coeff * V[In1] * V[In2] to output Out.
type MulGate struct {
	In1, In2, Out int
	Coeff         field.Element
}

// ConstGate contributes Coeff to output Out. Public marks that Coeff should
// be read from a public-input slot instead of being baked into the circuit.
type ConstGate struct {
	Out    int
	Coeff  field.Element
	Public bool
}

// UniGate contributes Coeff * V[In]^Power to output Out. Only Power == 1 and
// a field-specific fixed odd SBOX power (5 or 7) are supported.
type UniGate struct {
	In, Out int
	Coeff   field.Element
	Power   int
}

// Layer is one CircuitLayer: input/output variable counts, the four gate
// lists, and (once Evaluate has run) the cached input/output values.
type Layer struct {
	InputVarNum  int
	OutputVarNum int

	Add  []AddGate
	Mul  []MulGate
	Cnst []ConstGate
	Uni  []UniGate

	// InputVals/OutputVals hold one field.Element per wire, drawn from the
	// engine the circuit is evaluated with; with a SIMD pack engine
	// (field.Packed) each entry holds P lane values for P parallel circuit
	// instances.
	InputVals  []field.Element
	OutputVals []field.Element
}

// SkipSumcheckPhaseTwo reports whether the layer has no MulGates, letting
// the sumcheck helper stop after phase one.
func (l *Layer) SkipSumcheckPhaseTwo() bool {
	return len(l.Mul) == 0
}

// Circuit is an ordered list of layers: layer 0's InputVals is the public
// input + witness, the last layer's OutputVals is the circuit output.
type Circuit struct {
	Layers []*Layer

	// ExpectedNumOutputZeros bounds a prefix of the last layer's output
	// that an honest assignment must zero out.
	ExpectedNumOutputZeros int
}

// NewCircuit validates the layer-to-layer variable-count chain
// (layers[k].OutputVarNum == layers[k+1].InputVarNum) and wraps layers.
func NewCircuit(layers []*Layer, expectedNumOutputZeros int) *Circuit {
	for i := 0; i+1 < len(layers); i++ {
		if layers[i].OutputVarNum != layers[i+1].InputVarNum {
			panic("circuit: layer output/input variable count mismatch")
		}
	}
	return &Circuit{Layers: layers, ExpectedNumOutputZeros: expectedNumOutputZeros}
}

// Evaluate runs the deterministic forward pass: layer 0 starts from the
// InputVals already populated on it (the public input + witness);
// each subsequent layer's InputVals is set to the previous layer's
// OutputVals, and every layer's OutputVals is recomputed lane-parallel from
// its gate lists.
func (c *Circuit) Evaluate(eng field.Engine) {
	for i, layer := range c.Layers {
		if i > 0 {
			layer.InputVals = c.Layers[i-1].OutputVals
		}
		layer.OutputVals = evaluateLayer(eng, layer)
	}
}

func evaluateLayer(eng field.Engine, layer *Layer) []field.Element {
	out := make([]field.Element, 1<<uint(layer.OutputVarNum))
	for i := range out {
		out[i] = eng.Zero()
	}

	for _, g := range layer.Add {
		out[g.Out] = out[g.Out].Add(g.Coeff.Mul(layer.InputVals[g.In]))
	}
	for _, g := range layer.Mul {
		out[g.Out] = out[g.Out].Add(g.Coeff.Mul(layer.InputVals[g.In1]).Mul(layer.InputVals[g.In2]))
	}
	for _, g := range layer.Cnst {
		out[g.Out] = out[g.Out].Add(g.Coeff)
	}
	for _, g := range layer.Uni {
		v := layer.InputVals[g.In]
		p := eng.One()
		for i := 0; i < g.Power; i++ {
			p = p.Mul(v)
		}
		out[g.Out] = out[g.Out].Add(g.Coeff.Mul(p))
	}

	return out
}

// CheckOutputZeros verifies that the first ExpectedNumOutputZeros lanes of
// the last layer's output are zero in every SIMD slot, which must hold iff
// the witness is honest.
func (c *Circuit) CheckOutputZeros() bool {
	if len(c.Layers) == 0 {
		return c.ExpectedNumOutputZeros == 0
	}
	last := c.Layers[len(c.Layers)-1]
	if c.ExpectedNumOutputZeros > len(last.OutputVals) {
		return false
	}
	for i := 0; i < c.ExpectedNumOutputZeros; i++ {
		if !last.OutputVals[i].IsZero() {
			return false
		}
	}
	return true
}
