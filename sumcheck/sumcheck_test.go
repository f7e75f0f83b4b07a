// Package sumcheck
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package sumcheck

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/distributed-lab/gkr-orion/circuit"
	"github.com/distributed-lab/gkr-orion/field"
	"github.com/distributed-lab/gkr-orion/poly"
	"github.com/distributed-lab/gkr-orion/transcript"
)

func twoGateLayer(eng field.Engine) *circuit.Layer {
	return &circuit.Layer{
		InputVarNum:  2,
		OutputVarNum: 1,
		Add:          []circuit.AddGate{{Out: 0, In: 0, Coeff: eng.One()}},
		Mul:          []circuit.MulGate{{Out: 0, In1: 1, In2: 2, Coeff: eng.One()}},
		InputVals: []field.Element{
			eng.ElementFromInt(3),
			eng.ElementFromInt(5),
			eng.ElementFromInt(7),
			eng.ElementFromInt(11),
		},
	}
}

// TestPhaseOneClaimMatchesDirectEvaluation checks that running the sumcheck
// reduction to completion reveals claim_x equal to the multilinear
// extension of the layer's input values at the bound point.
func TestPhaseOneClaimMatchesDirectEvaluation(t *testing.T) {
	eng := field.BN254Scalar()
	layer := twoGateLayer(eng)

	rz0 := []field.Element{eng.ElementFromInt(9)}
	eqRz0 := poly.BuildEqXR(eng, rz0)

	// output claim = add(3) + mul(5*7) = 3 + 35 = 38, weighted by eq_rz0.
	outVals := []field.Element{
		eng.ElementFromInt(3).Add(eng.ElementFromInt(5).Mul(eng.ElementFromInt(7))),
		eng.Zero(),
	}
	claim := outVals[0].Mul(eqRz0[0]).Add(outVals[1].Mul(eqRz0[1]))

	h := NewHelper(eng, layer, rz0, nil, nil, claim)
	tr := transcript.New()

	rx, err := h.RunAllPhaseOneRounds(tr)
	require.NoError(t, err)
	require.Len(t, rx, 2)

	require.False(t, layer.SkipSumcheckPhaseTwo())

	claimX := h.ClaimX()

	h.BeginPhaseTwo(claimX)
	ry, err := h.RunAllPhaseTwoRounds(tr)
	require.NoError(t, err)
	require.Len(t, ry, 2)

	claimY := h.ClaimY()

	scratch := make([]field.Element, len(layer.InputVals))
	wantX := poly.EvalWithBuffer(layer.InputVals, rx, scratch)
	wantY := poly.EvalWithBuffer(layer.InputVals, ry, scratch)

	require.True(t, claimX.Equal(wantX))
	require.True(t, claimY.Equal(wantY))
}

// TestTamperedRunningClaimRejected checks that mutating the running claim
// before a round surfaces ErrRoundMismatch rather than silently accepting a
// bad proof.
func TestTamperedRunningClaimRejected(t *testing.T) {
	eng := field.BN254Scalar()
	layer := twoGateLayer(eng)

	rz0 := []field.Element{eng.ElementFromInt(9)}
	h := NewHelper(eng, layer, rz0, nil, nil, eng.ElementFromInt(999)) // wrong claim
	tr := transcript.New()

	_, err := h.RunPhaseOneRound(tr)
	require.ErrorIs(t, err, ErrRoundMismatch)
}

func TestSkipPhaseTwoWhenNoMulGates(t *testing.T) {
	eng := field.BN254Scalar()
	layer := &circuit.Layer{
		InputVarNum:  1,
		OutputVarNum: 1,
		Add:          []circuit.AddGate{{Out: 0, In: 0, Coeff: eng.One()}, {Out: 1, In: 1, Coeff: eng.One()}},
		InputVals:    []field.Element{eng.ElementFromInt(4), eng.ElementFromInt(6)},
	}
	require.True(t, layer.SkipSumcheckPhaseTwo())

	rz0 := []field.Element{eng.ElementFromInt(2)}
	eqRz0 := poly.BuildEqXR(eng, rz0)
	claim := layer.InputVals[0].Mul(eqRz0[0]).Add(layer.InputVals[1].Mul(eqRz0[1]))

	h := NewHelper(eng, layer, rz0, nil, nil, claim)
	tr := transcript.New()
	rx, err := h.RunAllPhaseOneRounds(tr)
	require.NoError(t, err)

	scratch := make([]field.Element, len(layer.InputVals))
	want := poly.EvalWithBuffer(layer.InputVals, rx, scratch)
	require.True(t, h.ClaimX().Equal(want))
}

// TestVerifyRoundsMatchesHelper checks that the witness-free VerifyRounds,
// replayed over exactly the round messages a Helper produced, reaches the
// same randomness and the same final claim the Helper computed internally —
// the property gkr.Verify depends on.
func TestVerifyRoundsMatchesHelper(t *testing.T) {
	eng := field.BN254Scalar()
	layer := twoGateLayer(eng)

	rz0 := []field.Element{eng.ElementFromInt(9)}
	eqRz0 := poly.BuildEqXR(eng, rz0)
	outVals := []field.Element{
		eng.ElementFromInt(3).Add(eng.ElementFromInt(5).Mul(eng.ElementFromInt(7))),
		eng.Zero(),
	}
	initialClaim := outVals[0].Mul(eqRz0[0]).Add(outVals[1].Mul(eqRz0[1]))

	proverTr := transcript.New()
	h := NewHelper(eng, layer, rz0, nil, nil, initialClaim)
	var msgs []RoundMessage
	for i := 0; i < layer.InputVarNum; i++ {
		msg, err := h.RunPhaseOneRound(proverTr)
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	wantRx := h.Rx()
	wantClaim := h.ClaimAfterPhaseOne()

	claimAfterConst := initialClaim.Sub(ConstantContribution(eng, layer, eqRz0))
	verifierTr := transcript.New()
	gotRx, gotClaim, err := VerifyRounds(eng, claimAfterConst, msgs, verifierTr)
	require.NoError(t, err)
	require.Equal(t, len(wantRx), len(gotRx))
	for i := range wantRx {
		require.True(t, wantRx[i].Equal(gotRx[i]))
	}
	require.True(t, wantClaim.Equal(gotClaim))
}

// TestKnownPartPhaseOneMatchesMulResidual checks that
// claimAfterPhaseOne - KnownPartPhaseOne exactly equals the MulGate-only
// residual BuildHgTwoPublic+phase-two reduces to zero against, for a layer
// with both Add and Mul gates.
func TestKnownPartPhaseOneMatchesMulResidual(t *testing.T) {
	eng := field.BN254Scalar()
	layer := twoGateLayer(eng)

	rz0 := []field.Element{eng.ElementFromInt(9)}
	eqRz0 := poly.BuildEqXR(eng, rz0)
	outVals := []field.Element{
		eng.ElementFromInt(3).Add(eng.ElementFromInt(5).Mul(eng.ElementFromInt(7))),
		eng.Zero(),
	}
	claim := outVals[0].Mul(eqRz0[0]).Add(outVals[1].Mul(eqRz0[1]))

	h := NewHelper(eng, layer, rz0, nil, nil, claim)
	tr := transcript.New()
	rx, err := h.RunAllPhaseOneRounds(tr)
	require.NoError(t, err)
	claimX := h.ClaimX()

	known := KnownPartPhaseOne(eng, layer, eqRz0, rx, claimX)
	deferred := h.ClaimAfterPhaseOne().Sub(known)

	h.BeginPhaseTwo(claimX)
	// BeginPhaseTwo seeds the running claim with exactly the MulGate-only
	// residual phase one's own bookkeeping deferred to phase two: this is
	// the identity gkr.Verify relies on to connect the public known/deferred
	// split to the honest prover's internal phase-two seed.
	require.True(t, deferred.Equal(h.claim))

	ry, err := h.RunAllPhaseTwoRounds(tr)
	require.NoError(t, err)
	claimY := h.ClaimY()

	// h.claim, after the last phase-two round, is the running claim phase
	// two's own round messages reduce to; gkr.Verify recomputes the same
	// value purely publicly, via BuildHgTwoPublic + EvalWithBuffer, and
	// checks it against what VerifyRounds derives from the round messages.
	hg2 := BuildHgTwoPublic(eng, layer, eqRz0, rx, claimX)
	want := poly.EvalWithBuffer(hg2, ry, nil).Mul(claimY)
	require.True(t, want.Equal(h.claim))
}

// squareLayer builds a tiny GKR^2-style layer (UniGates of power 3, below
// the field-specific SBOX powers circuit.NewSquareLayer restricts itself
// to) purely to exercise MaxDegree/BuildHgUni/roundEvals at a degree other
// than 2 without pulling in circuit.NewSquareLayer's power restriction.
func squareLayer(eng field.Engine) *circuit.Layer {
	return &circuit.Layer{
		InputVarNum:  1,
		OutputVarNum: 1,
		Uni:          []circuit.UniGate{{In: 0, Out: 0, Power: 3, Coeff: eng.One()}, {In: 1, Out: 1, Power: 3, Coeff: eng.One()}},
		InputVals:    []field.Element{eng.ElementFromInt(2), eng.ElementFromInt(3)},
	}
}

// TestPowerUniGateDegree checks that a layer with a power-3 UniGate emits
// degree-4 (power+1) round messages and still reveals the correct claim_x —
// the dead-code bug a single hardcoded degree-2 round used to hide.
func TestPowerUniGateDegree(t *testing.T) {
	eng := field.BN254Scalar()
	layer := squareLayer(eng)
	require.Equal(t, 4, MaxDegree(layer))

	rz0 := []field.Element{eng.ElementFromInt(9)}
	eqRz0 := poly.BuildEqXR(eng, rz0)
	outVals := []field.Element{
		powElem(eng, layer.InputVals[0], 3),
		powElem(eng, layer.InputVals[1], 3),
	}
	claim := outVals[0].Mul(eqRz0[0]).Add(outVals[1].Mul(eqRz0[1]))

	h := NewHelper(eng, layer, rz0, nil, nil, claim)
	tr := transcript.New()
	msg, err := h.RunPhaseOneRound(tr)
	require.NoError(t, err)
	require.Len(t, msg.Evals, 5) // s(0)..s(4)

	rx := h.Rx()
	scratch := make([]field.Element, len(layer.InputVals))
	want := poly.EvalWithBuffer(layer.InputVals, rx, scratch)
	require.True(t, h.ClaimX().Equal(want))
}
