// Package sumcheck
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sumcheck is the algebraic heart of a GKR layer reduction: for one
// layer it builds the gate-structure book-keeping table (Hg), runs the
// two-phase sumcheck reduction against the circuit's V table, and reveals
// claim_x/claim_y. It is the same fold-by-challenge recursion a WNLA vector
// reduction uses to shrink a claim about a large vector to one about a
// half-sized vector, but unrolled into an explicit round loop driven by a
// layer's gate lists instead of a fixed linear form.
//
// Every round-consistency check (s(0)+s(1)==claim, then interpolate at
// the drawn challenge) only needs the round's revealed evaluations, never
// the witness: VerifyRounds implements exactly that and is called by
// gkr.Verify over the round messages a Proof carries. The prover-side
// Helper runs the same s(0)+s(1) check on its own evaluations.
package sumcheck

import (
	"errors"

	"github.com/distributed-lab/gkr-orion/circuit"
	"github.com/distributed-lab/gkr-orion/field"
	"github.com/distributed-lab/gkr-orion/poly"
	"github.com/distributed-lab/gkr-orion/transcript"
)

// ErrRoundMismatch is returned when a round's sum of evaluations disagreed
// with the running claim.
var ErrRoundMismatch = errors.New("sumcheck: s(0)+s(1) over the boolean domain != running claim")

// RoundMessage carries the D+1 evaluations s(0)..s(D) a sumcheck round
// emits. D is 2 for a plain Add/Mul round, or power+1 for a phase-one round
// touching a UniGate of that power (GKR^2 square layers).
type RoundMessage struct {
	Evals []field.Element
}

// foldAt halves table by the eval_with_buffer recurrence against t, without
// mutating table.
func foldAt(table []field.Element, t field.Element) []field.Element {
	half := len(table) / 2
	out := make([]field.Element, half)
	for i := 0; i < half; i++ {
		diff := table[2*i+1].Sub(table[2*i])
		out[i] = table[2*i].Add(diff.Mul(t))
	}
	return out
}

func sumProduct(eng field.Engine, tables ...[]field.Element) field.Element {
	sum := eng.Zero()
	n := len(tables[0])
	for i := 0; i < n; i++ {
		prod := tables[0][i]
		for _, tbl := range tables[1:] {
			prod = prod.Mul(tbl[i])
		}
		sum = sum.Add(prod)
	}
	return sum
}

// powElem computes v^k for small, non-negative k via repeated squaring-free
// multiplication (k never exceeds the SBOX power, at most single digits).
func powElem(eng field.Engine, v field.Element, k int) field.Element {
	out := eng.One()
	for i := 0; i < k; i++ {
		out = out.Mul(v)
	}
	return out
}

func powerTable(eng field.Engine, v []field.Element, k int) []field.Element {
	out := make([]field.Element, len(v))
	for i, x := range v {
		out[i] = powElem(eng, x, k)
	}
	return out
}

// sumWeightedPower computes Σ_i weights[i] * v[i]^k.
func sumWeightedPower(eng field.Engine, weights, v []field.Element, k int) field.Element {
	return sumProduct(eng, weights, powerTable(eng, v, k))
}

// InterpolateAt evaluates, at x, the unique degree-len(evals)-1 polynomial
// through the points (0, evals[0]), (1, evals[1]), ..., (len(evals)-1,
// evals[len(evals)-1]) via Lagrange interpolation. This is the only
// operation a verifier needs to advance a running claim from one round's
// revealed evaluations: it never touches any witness table.
func InterpolateAt(eng field.Engine, evals []field.Element, x field.Element) field.Element {
	n := len(evals)
	nodes := make([]field.Element, n)
	for i := range nodes {
		nodes[i] = eng.ElementFromInt(int64(i))
	}

	sum := eng.Zero()
	for i := 0; i < n; i++ {
		num := eng.One()
		den := eng.One()
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			num = num.Mul(x.Sub(nodes[j]))
			den = den.Mul(nodes[i].Sub(nodes[j]))
		}
		invDen, ok := den.Inverse()
		if !ok {
			panic("sumcheck: interpolation nodes collided")
		}
		sum = sum.Add(evals[i].Mul(num).Mul(invDen))
	}
	return sum
}

// VerifyRounds is the pure, witness-free sumcheck round verifier shared by
// both phases (phase one and phase two):
// for each round message it checks s(0)+s(1) against the running claim,
// appends the evaluations to tr in the same order the prover did, draws the
// round's challenge, and advances the claim via InterpolateAt. It returns
// the drawn randomness and the claim surviving the final round.
func VerifyRounds(eng field.Engine, claim field.Element, msgs []RoundMessage, tr *transcript.Transcript) ([]field.Element, field.Element, error) {
	randoms := make([]field.Element, 0, len(msgs))
	for _, m := range msgs {
		if len(m.Evals) < 2 {
			return nil, nil, ErrRoundMismatch
		}
		if !m.Evals[0].Add(m.Evals[1]).Equal(claim) {
			return nil, nil, ErrRoundMismatch
		}
		for _, e := range m.Evals {
			tr.AppendFieldElement(e)
		}
		r := tr.ChallengeField(eng)
		randoms = append(randoms, r)
		claim = InterpolateAt(eng, m.Evals, r)
	}
	return randoms, claim, nil
}

// ConstantContribution computes the ConstGate contribution to the claimed
// sum, which is subtracted from the running claim before phase one begins.
// Purely public: it only reads gate coefficients and combinedEq.
func ConstantContribution(eng field.Engine, layer *circuit.Layer, combinedEq []field.Element) field.Element {
	sum := eng.Zero()
	for _, g := range layer.Cnst {
		sum = sum.Add(g.Coeff.Mul(combinedEq[g.Out]))
	}
	return sum
}

// BuildHgAdd accumulates the degree-1 book-keeping table: Add gates plus any
// UniGate of Power == 1 (which behaves identically to an Add gate). Purely
// public: no witness value is read.
func BuildHgAdd(eng field.Engine, layer *circuit.Layer, combinedEq []field.Element) []field.Element {
	n := 1 << uint(layer.InputVarNum)
	hg := make([]field.Element, n)
	for i := range hg {
		hg[i] = eng.Zero()
	}
	for _, g := range layer.Add {
		hg[g.In] = hg[g.In].Add(g.Coeff.Mul(combinedEq[g.Out]))
	}
	for _, g := range layer.Uni {
		if g.Power == 1 {
			hg[g.In] = hg[g.In].Add(g.Coeff.Mul(combinedEq[g.Out]))
		}
	}
	return hg
}

// BuildHgUni accumulates, per distinct UniGate power k >= 2, the table
// hgUniK(x) = sum over power-k UniGates with In == x of coeff*combinedEq[out].
// Purely public: no witness value is read. A prior approach baked
// V(In)^(k-1) (evaluated at the *unbound* witness value) into a single
// degree-2 table, which is only ever correct for k == 1 and is what made
// GKR^2 square layers dead code.
func BuildHgUni(eng field.Engine, layer *circuit.Layer, combinedEq []field.Element) map[int][]field.Element {
	n := 1 << uint(layer.InputVarNum)
	out := map[int][]field.Element{}
	for _, g := range layer.Uni {
		if g.Power < 2 {
			continue
		}
		tbl, ok := out[g.Power]
		if !ok {
			tbl = make([]field.Element, n)
			for i := range tbl {
				tbl[i] = eng.Zero()
			}
			out[g.Power] = tbl
		}
		tbl[g.In] = tbl[g.In].Add(g.Coeff.Mul(combinedEq[g.Out]))
	}
	return out
}

// MaxDegree returns the phase-one round-polynomial degree a layer requires:
// 2 for a layer with only Add/Mul gates (or Power==1 UniGates), or
// power+1 for the highest-power UniGate present (a GKR^2 square layer).
func MaxDegree(layer *circuit.Layer) int {
	d := 2
	for _, g := range layer.Uni {
		if g.Power+1 > d {
			d = g.Power + 1
		}
	}
	return d
}

// KnownPartPhaseOne computes the publicly-checkable portion of the claim
// phase one's rounds reduce to: hgAdd(rx)*claimX + sum_k hgUniK(rx)*claimX^k.
// Both the prover and the verifier call this with identical inputs (rx and
// claimX are both public once phase one's rounds and the claim_x reveal have
// happened); the remainder (claimAfterPhaseOne - this value) is the
// MulGate-only residual deferred to phase two, and is zero when the layer
// has no MulGates at all.
func KnownPartPhaseOne(eng field.Engine, layer *circuit.Layer, combinedEq []field.Element, rx []field.Element, claimX field.Element) field.Element {
	hgAdd := BuildHgAdd(eng, layer, combinedEq)
	known := poly.EvalWithBuffer(hgAdd, rx, nil).Mul(claimX)

	hgUni := BuildHgUni(eng, layer, combinedEq)
	for k, tbl := range hgUni {
		known = known.Add(poly.EvalWithBuffer(tbl, rx, nil).Mul(powElem(eng, claimX, k)))
	}
	return known
}

// BuildHgTwoPublic builds phase two's book-keeping table once rx and
// claim_x are both known: hg2(i2) = sum over MulGates with In2 == i2 of
// coeff*combinedEq[out]*eqRx[In1]*claimX. Entirely public (no witness
// read), which is what makes phase two's own round-consistency checks and
// its final check witness-free as well.
func BuildHgTwoPublic(eng field.Engine, layer *circuit.Layer, combinedEq []field.Element, rx []field.Element, claimX field.Element) []field.Element {
	eqRx := poly.BuildEqXR(eng, rx)
	n := 1 << uint(layer.InputVarNum)
	hg := make([]field.Element, n)
	for i := range hg {
		hg[i] = eng.Zero()
	}
	for _, g := range layer.Mul {
		term := g.Coeff.Mul(combinedEq[g.Out]).Mul(eqRx[g.In1]).Mul(claimX)
		hg[g.In2] = hg[g.In2].Add(term)
	}
	return hg
}

// Helper is the per-layer book-keeping engine the PROVER drives: it holds
// the witness (v) alongside the public hg tables, and folds both in lock
// step every round. One Helper is constructed per layer reduction and
// discarded afterward.
type Helper struct {
	eng   field.Engine
	layer *circuit.Layer

	v        []field.Element
	hgLinear []field.Element         // public hgAdd + witness-dependent MulGate phase-one term
	hgUni    map[int][]field.Element // power -> public table, paired with v^power
	degree   int

	combinedEq []field.Element // eq_rz0 (+ alpha*eq_rz1), indexed by output wire

	rx []field.Element
	ry []field.Element

	claim field.Element
}

// NewHelper builds the Hg tables for phase one from layer's gate lists and
// the incoming output-layer challenge point(s). rz1/alpha are nil when the
// previous layer did not run phase two.
func NewHelper(eng field.Engine, layer *circuit.Layer, rz0 []field.Element, rz1 []field.Element, alpha field.Element, initialClaim field.Element) *Helper {
	eqRz0 := poly.BuildEqXR(eng, rz0)
	combined := eqRz0
	if rz1 != nil {
		eqRz1 := poly.BuildEqXR(eng, rz1)
		combined = make([]field.Element, len(eqRz0))
		for i := range combined {
			combined[i] = eqRz0[i].Add(alpha.Mul(eqRz1[i]))
		}
	}

	h := &Helper{
		eng:        eng,
		layer:      layer,
		combinedEq: combined,
		claim:      initialClaim,
		degree:     MaxDegree(layer),
	}
	h.claim = h.claim.Sub(ConstantContribution(eng, layer, combined))
	h.v = append([]field.Element(nil), layer.InputVals...)
	h.hgLinear = h.buildHgLinearPhaseOne()
	h.hgUni = BuildHgUni(eng, layer, combined)
	return h
}

// buildHgLinearPhaseOne is BuildHgAdd plus the MulGate phase-one term,
// which needs the (unbound) witness value at each gate's second input wire
// — the one piece of phase one that genuinely cannot be made public.
func (h *Helper) buildHgLinearPhaseOne() []field.Element {
	hg := BuildHgAdd(h.eng, h.layer, h.combinedEq)
	in := h.layer.InputVals
	for _, g := range h.layer.Mul {
		term := g.Coeff.Mul(h.combinedEq[g.Out]).Mul(in[g.In2])
		hg[g.In1] = hg[g.In1].Add(term)
	}
	return hg
}

// roundEvals computes s(0)..s(degree) from the current v/hgLinear/hgUni
// tables without mutating them.
func (h *Helper) roundEvals() []field.Element {
	out := make([]field.Element, h.degree+1)
	for x := 0; x <= h.degree; x++ {
		xe := h.eng.ElementFromInt(int64(x))
		vX := foldAt(h.v, xe)
		linX := foldAt(h.hgLinear, xe)
		s := sumProduct(h.eng, vX, linX)
		for k, tbl := range h.hgUni {
			tblX := foldAt(tbl, xe)
			s = s.Add(sumWeightedPower(h.eng, tblX, vX, k))
		}
		out[x] = s
	}
	return out
}

// RunPhaseOneRound runs one phase-one round: computes s(0)..s(degree) from
// the current tables, checks s(0)+s(1) against the running claim
// (ErrRoundMismatch on failure), appends the evaluations, draws r_nu, binds
// every table, and updates the running claim.
func (h *Helper) RunPhaseOneRound(tr *transcript.Transcript) (RoundMessage, error) {
	evals := h.roundEvals()
	if !evals[0].Add(evals[1]).Equal(h.claim) {
		return RoundMessage{}, ErrRoundMismatch
	}
	for _, e := range evals {
		tr.AppendFieldElement(e)
	}

	r := tr.ChallengeField(h.eng)

	h.v = foldAt(h.v, r)
	h.hgLinear = foldAt(h.hgLinear, r)
	for k, tbl := range h.hgUni {
		h.hgUni[k] = foldAt(tbl, r)
	}
	h.rx = append(h.rx, r)

	claim := sumProduct(h.eng, h.v, h.hgLinear)
	for k, tbl := range h.hgUni {
		claim = claim.Add(sumWeightedPower(h.eng, tbl, h.v, k))
	}
	h.claim = claim

	return RoundMessage{Evals: evals}, nil
}

// RunAllPhaseOneRounds runs InputVarNum rounds of phase one and returns the
// bound randomness rx.
func (h *Helper) RunAllPhaseOneRounds(tr *transcript.Transcript) ([]field.Element, error) {
	for i := 0; i < h.layer.InputVarNum; i++ {
		if _, err := h.RunPhaseOneRound(tr); err != nil {
			return nil, err
		}
	}
	return h.rx, nil
}

// ClaimX is V(rx) once phase one's n rounds have bound v down to a scalar
// (or a SIMD-packed scalar awaiting the SIMD/cohort fold gkr runs after the
// last layer).
func (h *Helper) ClaimX() field.Element {
	if len(h.v) != 1 {
		panic("sumcheck: ClaimX() called before phase one fully bound")
	}
	return h.v[0]
}

// ClaimAfterPhaseOne is the running claim surviving phase one's last round,
// before any known/deferred split. An honest prover's value here always
// equals KnownPartPhaseOne(...) + the MulGate residual that seeds phase two.
func (h *Helper) ClaimAfterPhaseOne() field.Element { return h.claim }

// BeginPhaseTwo rebuilds hg for the y variables once claim_x is known and
// seeds the running claim with the MulGate-only residual deferred from
// phase one. Only called when the layer has MulGates
// (SkipSumcheckPhaseTwo() == false).
func (h *Helper) BeginPhaseTwo(claimX field.Element) {
	h.hgLinear = BuildHgTwoPublic(h.eng, h.layer, h.combinedEq, h.rx, claimX)
	h.hgUni = nil
	h.v = append([]field.Element(nil), h.layer.InputVals...)
	h.claim = sumProduct(h.eng, h.v, h.hgLinear)
}

// RunPhaseTwoRound mirrors RunPhaseOneRound (always degree 2: phase two
// only ever carries the MulGate residual), folding over the y variables.
func (h *Helper) RunPhaseTwoRound(tr *transcript.Transcript) (RoundMessage, error) {
	zero, one, two := h.eng.Zero(), h.eng.One(), h.eng.ElementFromInt(2)

	s0 := sumProduct(h.eng, foldAt(h.v, zero), foldAt(h.hgLinear, zero))
	s1 := sumProduct(h.eng, foldAt(h.v, one), foldAt(h.hgLinear, one))
	s2 := sumProduct(h.eng, foldAt(h.v, two), foldAt(h.hgLinear, two))

	if !s0.Add(s1).Equal(h.claim) {
		return RoundMessage{}, ErrRoundMismatch
	}

	tr.AppendFieldElement(s0)
	tr.AppendFieldElement(s1)
	tr.AppendFieldElement(s2)

	r := tr.ChallengeField(h.eng)

	h.v = foldAt(h.v, r)
	h.hgLinear = foldAt(h.hgLinear, r)
	h.ry = append(h.ry, r)
	h.claim = sumProduct(h.eng, h.v, h.hgLinear)

	return RoundMessage{Evals: []field.Element{s0, s1, s2}}, nil
}

// RunAllPhaseTwoRounds runs InputVarNum rounds of phase two and returns ry.
func (h *Helper) RunAllPhaseTwoRounds(tr *transcript.Transcript) ([]field.Element, error) {
	for i := 0; i < h.layer.InputVarNum; i++ {
		if _, err := h.RunPhaseTwoRound(tr); err != nil {
			return nil, err
		}
	}
	return h.ry, nil
}

// ClaimY is V(ry) once phase two's rounds have bound v down to a scalar.
func (h *Helper) ClaimY() field.Element {
	if len(h.v) != 1 {
		panic("sumcheck: ClaimY() called before phase two fully bound")
	}
	return h.v[0]
}

// Rx/Ry expose the bound randomness accumulated so far.
func (h *Helper) Rx() []field.Element { return h.rx }
func (h *Helper) Ry() []field.Element { return h.ry }
