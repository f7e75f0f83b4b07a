// Package gkr
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gkr implements the top-level control flow: reduce a claim about
// the circuit's last layer output down to a claim about its first layer's
// input (the witness), one sumcheck.Helper reduction per layer, walking
// layers back-to-front, then fold the SIMD lanes and cohort ranks the
// witness is spread across down to one scalar opening. It mirrors
// circuit.go's ProveCircuit/VerifyCircuit top-level shape (commit-ish
// setup, a loop of transcript-driven reduction steps, a final opening
// handed to the PCS) with wnla.go's recursive reduction replaced by
// sumcheck.Helper's round loop.
package gkr

import (
	"errors"

	"github.com/distributed-lab/gkr-orion/circuit"
	"github.com/distributed-lab/gkr-orion/cohort"
	"github.com/distributed-lab/gkr-orion/field"
	"github.com/distributed-lab/gkr-orion/poly"
	"github.com/distributed-lab/gkr-orion/sumcheck"
	"github.com/distributed-lab/gkr-orion/transcript"
)

// ErrFinalClaimMismatch is the verifier error kind for a claim the verifier
// independently derived from the proof's round messages disagreeing with
// what the prover reported.
var ErrFinalClaimMismatch = errors.New("gkr: final claim mismatch")

// LayerProof is everything Verify replays for one layer: the revealed
// phase-one (and, for layers with MulGates, phase-two) round messages, plus
// the claim_x/claim_y those rounds bind down to. Verify never sees the
// witness behind these; it only re-checks the round messages and the
// public known/deferred split against the gate structure.
type LayerProof struct {
	PhaseOneRounds []sumcheck.RoundMessage
	PhaseTwoRounds []sumcheck.RoundMessage // empty when the layer has no MulGates
	ClaimX         field.Element
	ClaimY         field.Element // nil when the layer has no MulGates
}

// Opening is one (point, claimed value) pair the witness layer leaves for
// the polynomial commitment scheme to open. A layer with MulGates leaves two
// independent openings (rx and ry); a layer without leaves one.
type Opening struct {
	Point []field.Element
	Claim field.Element
}

// Proof is the full transcript-replayable record of a GKR reduction: one
// LayerProof per circuit layer (outermost/last layer first), plus the extra
// challenge coordinates the SIMD/cohort fold draws for the final layer-0
// opening(s). The folded claims themselves are not stored in the Proof.
type Proof struct {
	Layers []LayerProof

	// SimdPoint/MpiPoint are the extra coordinates (beyond rz0/rz1) the
	// final opening's point is extended by once the packed SIMD lanes and,
	// if running under a cohort, the per-rank claims have been folded down
	// to one scalar per opening. Both are nil when there was nothing to
	// fold (PackWidth == 1 and no cohort).
	SimdPoint []field.Element
	MpiPoint  []field.Element
}

// reduceLayers walks c's layers from last to first, running one
// sumcheck.Helper per layer and collecting every round message into the
// proof. It is the one routine Prove uses directly (it owns the witness);
// Verify never calls it — see verifyLayers for the witness-free replay.
func reduceLayers(eng field.Engine, c *circuit.Circuit, tr *transcript.Transcript) (Proof, []Opening, error) {
	var proof Proof

	last := c.Layers[len(c.Layers)-1]
	rz0 := sampleChallenges(tr, eng, last.OutputVarNum)
	claim := poly.EvalWithBuffer(last.OutputVals, rz0, nil)

	var rz1 []field.Element
	var alpha field.Element

	for li := len(c.Layers) - 1; li >= 0; li-- {
		layer := c.Layers[li]

		h := sumcheck.NewHelper(eng, layer, rz0, rz1, alpha, claim)

		var phaseOneMsgs []sumcheck.RoundMessage
		for i := 0; i < layer.InputVarNum; i++ {
			msg, err := h.RunPhaseOneRound(tr)
			if err != nil {
				return Proof{}, nil, err
			}
			phaseOneMsgs = append(phaseOneMsgs, msg)
		}
		rx := h.Rx()
		claimX := h.ClaimX()
		tr.AppendFieldElement(claimX)

		lp := LayerProof{PhaseOneRounds: phaseOneMsgs, ClaimX: claimX}

		if !layer.SkipSumcheckPhaseTwo() {
			h.BeginPhaseTwo(claimX)
			var phaseTwoMsgs []sumcheck.RoundMessage
			for i := 0; i < layer.InputVarNum; i++ {
				msg, err := h.RunPhaseTwoRound(tr)
				if err != nil {
					return Proof{}, nil, err
				}
				phaseTwoMsgs = append(phaseTwoMsgs, msg)
			}
			ry := h.Ry()
			claimY := h.ClaimY()
			tr.AppendFieldElement(claimY)
			lp.PhaseTwoRounds = phaseTwoMsgs
			lp.ClaimY = claimY

			alpha = tr.ChallengeField(eng)
			rz0, rz1 = rx, ry
			claim = claimX.Add(alpha.Mul(claimY))
		} else {
			rz0, rz1 = rx, nil
			alpha = nil
			claim = claimX
		}

		proof.Layers = append(proof.Layers, lp)
	}

	last2 := proof.Layers[len(proof.Layers)-1]
	openings := []Opening{{Point: rz0, Claim: last2.ClaimX}}
	if rz1 != nil {
		openings = append(openings, Opening{Point: rz1, Claim: last2.ClaimY})
	}
	return proof, openings, nil
}

// Prove reduces a claim about c's last layer's output down to one or two
// openings about the first layer's input, then folds any SIMD packing and
// cohort distribution down to a single scalar opening. c must already have
// had Evaluate called. tr drives every challenge and round-message append.
// co is nil for a single-rank (non-cohort) proof.
func Prove(eng field.Engine, c *circuit.Circuit, co cohort.Cohort, tr *transcript.Transcript) (Proof, []Opening) {
	proof, openings, err := reduceLayers(eng, c, tr)
	if err != nil {
		panic(err) // an honest prover never hits a round mismatch
	}

	baseEng := field.UnwrapBase(eng)
	finalOpenings := make([]Opening, len(openings))
	var simdPoint, mpiPoint []field.Element
	for i, o := range openings {
		sp, afterSimd := foldLanes(baseEng, o.Claim, tr)
		mp, afterMpi := foldCohort(baseEng, co, afterSimd, tr)
		simdPoint, mpiPoint = sp, mp
		finalOpenings[i] = Opening{Point: append(append(append([]field.Element(nil), o.Point...), sp...), mp...), Claim: afterMpi}
	}
	proof.SimdPoint = simdPoint
	proof.MpiPoint = mpiPoint

	return proof, finalOpenings
}

// Verify independently replays every round-consistency check against the
// proof's own round messages and checks each layer's known/deferred split
// against the public gate structure. It never reads any layer's InputVals —
// only each layer's public shape (variable counts and gate lists) and the
// last layer's OutputVals (the circuit's public output).
func Verify(eng field.Engine, c *circuit.Circuit, co cohort.Cohort, tr *transcript.Transcript, proof Proof) ([]Opening, error) {
	openings, err := verifyLayers(eng, c, tr, proof)
	if err != nil {
		return nil, err
	}

	baseEng := field.UnwrapBase(eng)
	finalOpenings := make([]Opening, len(openings))
	for i, o := range openings {
		sp, afterSimd, err := verifyFoldLanes(baseEng, o.Claim, proof.SimdPoint, tr)
		if err != nil {
			return nil, err
		}
		mp, afterMpi, err := verifyFoldCohort(baseEng, co, afterSimd, proof.MpiPoint, tr)
		if err != nil {
			return nil, err
		}
		finalOpenings[i] = Opening{Point: append(append(append([]field.Element(nil), o.Point...), sp...), mp...), Claim: afterMpi}
	}
	return finalOpenings, nil
}

// verifyLayers is reduceLayers' witness-free counterpart: it replays the
// same transcript schedule and round-consistency checks via
// sumcheck.VerifyRounds, then checks each layer's claim against the public
// known/deferred split (KnownPartPhaseOne, BuildHgTwoPublic) instead of
// recomputing anything from a witness.
func verifyLayers(eng field.Engine, c *circuit.Circuit, tr *transcript.Transcript, proof Proof) ([]Opening, error) {
	if len(proof.Layers) != len(c.Layers) {
		return nil, ErrFinalClaimMismatch
	}

	last := c.Layers[len(c.Layers)-1]
	rz0 := sampleChallenges(tr, eng, last.OutputVarNum)
	claim := poly.EvalWithBuffer(last.OutputVals, rz0, nil)

	var rz1 []field.Element
	var alpha field.Element

	for idx, li := 0, len(c.Layers)-1; li >= 0; idx, li = idx+1, li-1 {
		layer := c.Layers[li]
		lp := proof.Layers[idx]

		eqRz0 := poly.BuildEqXR(eng, rz0)
		combinedEq := eqRz0
		if rz1 != nil {
			eqRz1 := poly.BuildEqXR(eng, rz1)
			combinedEq = make([]field.Element, len(eqRz0))
			for i := range combinedEq {
				combinedEq[i] = eqRz0[i].Add(alpha.Mul(eqRz1[i]))
			}
		}

		claim = claim.Sub(sumcheck.ConstantContribution(eng, layer, combinedEq))

		rx, claimAfterPhaseOne, err := sumcheck.VerifyRounds(eng, claim, lp.PhaseOneRounds, tr)
		if err != nil {
			return nil, err
		}
		if len(rx) != layer.InputVarNum {
			return nil, ErrFinalClaimMismatch
		}
		claimX := lp.ClaimX
		tr.AppendFieldElement(claimX)

		known := sumcheck.KnownPartPhaseOne(eng, layer, combinedEq, rx, claimX)
		deferred := claimAfterPhaseOne.Sub(known)

		if layer.SkipSumcheckPhaseTwo() {
			if !deferred.IsZero() {
				return nil, ErrFinalClaimMismatch
			}
			rz0, rz1 = rx, nil
			alpha = nil
			claim = claimX
			continue
		}

		ry, claimAfterPhaseTwo, err := sumcheck.VerifyRounds(eng, deferred, lp.PhaseTwoRounds, tr)
		if err != nil {
			return nil, err
		}
		if len(ry) != layer.InputVarNum {
			return nil, ErrFinalClaimMismatch
		}
		claimY := lp.ClaimY
		if claimY == nil {
			return nil, ErrFinalClaimMismatch
		}
		tr.AppendFieldElement(claimY)

		hg2 := sumcheck.BuildHgTwoPublic(eng, layer, combinedEq, rx, claimX)
		want := poly.EvalWithBuffer(hg2, ry, nil).Mul(claimY)
		if !want.Equal(claimAfterPhaseTwo) {
			return nil, ErrFinalClaimMismatch
		}

		alpha = tr.ChallengeField(eng)
		rz0, rz1 = rx, ry
		claim = claimX.Add(alpha.Mul(claimY))
	}

	lastLP := proof.Layers[len(proof.Layers)-1]
	openings := []Opening{{Point: rz0, Claim: lastLP.ClaimX}}
	if rz1 != nil {
		openings = append(openings, Opening{Point: rz1, Claim: lastLP.ClaimY})
	}
	return openings, nil
}

func sampleChallenges(tr *transcript.Transcript, eng field.Engine, n int) []field.Element {
	out := make([]field.Element, n)
	for i := range out {
		out[i] = tr.ChallengeField(eng)
	}
	return out
}

func log2(n int) int {
	k := 0
	for 1<<uint(k) < n {
		k++
	}
	return k
}

// fold halves table by the standard eval-via-folding recurrence, the same
// one sumcheck's foldAt uses: it does not verify anything, it just computes
// MLE(table) one bound coordinate at a time.
func fold(table []field.Element, r field.Element) []field.Element {
	half := len(table) / 2
	out := make([]field.Element, half)
	for i := 0; i < half; i++ {
		diff := table[2*i+1].Sub(table[2*i])
		out[i] = table[2*i].Add(diff.Mul(r))
	}
	return out
}

// foldLanes collapses a SIMD-packed claim's lanes down to a single scalar:
// draw one transcript challenge per lane-halving round and fold, which
// computes exactly MLE(lanes) at the drawn point. This needs no round
// polynomial of its own because the lanes are already the prover's revealed
// claim (not a witness): both prover and verifier read the same public
// lanes value and perform the identical deterministic fold, so there is
// nothing left to "prove" beyond reproducibility, which the shared
// transcript already guarantees. Returns the drawn point and the folded
// scalar; a non-packed (or width-1) claim passes through unchanged.
func foldLanes(baseEng field.Engine, claim field.Element, tr *transcript.Transcript) ([]field.Element, field.Element) {
	lanesOf, ok := claim.(interface{ Lanes() []field.Element })
	if !ok {
		return nil, claim
	}
	lanes := lanesOf.Lanes()
	if len(lanes) <= 1 {
		if len(lanes) == 1 {
			return nil, lanes[0]
		}
		return nil, claim
	}

	rounds := log2(len(lanes))
	point := make([]field.Element, 0, rounds)
	vals := append([]field.Element(nil), lanes...)
	for i := 0; i < rounds; i++ {
		r := tr.ChallengeField(baseEng)
		point = append(point, r)
		vals = fold(vals, r)
	}
	return point, vals[0]
}

// verifyFoldLanes redraws the same transcript challenges foldLanes drew and
// checks they match the proof's recorded simdPoint (binding the verifier to
// the same randomness the prover used), then folds independently. claim
// must be the same public (revealed) value the prover folded.
func verifyFoldLanes(baseEng field.Engine, claim field.Element, simdPoint []field.Element, tr *transcript.Transcript) ([]field.Element, field.Element, error) {
	lanesOf, ok := claim.(interface{ Lanes() []field.Element })
	if !ok {
		return nil, claim, nil
	}
	lanes := lanesOf.Lanes()
	if len(lanes) <= 1 {
		if len(lanes) == 1 {
			return nil, lanes[0], nil
		}
		return nil, claim, nil
	}

	rounds := log2(len(lanes))
	if len(simdPoint) != rounds {
		return nil, nil, ErrFinalClaimMismatch
	}
	vals := append([]field.Element(nil), lanes...)
	for i := 0; i < rounds; i++ {
		r := tr.ChallengeField(baseEng)
		if !r.Equal(simdPoint[i]) {
			return nil, nil, ErrFinalClaimMismatch
		}
		vals = fold(vals, r)
	}
	return simdPoint, vals[0], nil
}

// foldCohort combines every rank's local scalar claim into one via the same
// fold-via-transcript-challenge recurrence as foldLanes, except the vector
// being folded is physically distributed across the cohort: every rank
// first gathers all ranks' claims once via cohort.GatherVec; then, each
// round, the root draws the round's challenge and broadcasts it with
// cohort.RootBroadcastF (mirroring the ordering guarantee
// cohort.RootBroadcastF documents: "the root broadcasts the new challenge
// to all workers before any worker consumes it"), and every rank folds
// identically. A nil cohort (or a single-rank one) passes claim through
// unchanged.
func foldCohort(baseEng field.Engine, co cohort.Cohort, claim field.Element, tr *transcript.Transcript) ([]field.Element, field.Element) {
	if co == nil || co.WorldSize() <= 1 {
		return nil, claim
	}

	rounds := log2(co.WorldSize())
	point := make([]field.Element, 0, rounds)
	vals := co.GatherVec([]field.Element{claim})
	for i := 0; i < rounds; i++ {
		var r field.Element = baseEng.Zero()
		if co.IsRoot() {
			r = tr.ChallengeField(baseEng)
		}
		r = co.RootBroadcastF(r)
		point = append(point, r)
		vals = fold(vals, r)
	}
	return point, vals[0]
}

// verifyFoldCohort mirrors foldCohort on the verifier side, checking the
// root's broadcast challenges against the proof's recorded mpiPoint.
func verifyFoldCohort(baseEng field.Engine, co cohort.Cohort, claim field.Element, mpiPoint []field.Element, tr *transcript.Transcript) ([]field.Element, field.Element, error) {
	if co == nil || co.WorldSize() <= 1 {
		return nil, claim, nil
	}

	rounds := log2(co.WorldSize())
	if len(mpiPoint) != rounds {
		return nil, nil, ErrFinalClaimMismatch
	}
	vals := co.GatherVec([]field.Element{claim})
	for i := 0; i < rounds; i++ {
		var r field.Element = baseEng.Zero()
		if co.IsRoot() {
			r = tr.ChallengeField(baseEng)
		}
		r = co.RootBroadcastF(r)
		if !r.Equal(mpiPoint[i]) {
			return nil, nil, ErrFinalClaimMismatch
		}
		vals = fold(vals, r)
	}
	return mpiPoint, vals[0], nil
}
