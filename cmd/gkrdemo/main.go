// Command gkrdemo
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// gkrdemo builds a small fixed circuit, runs the GKR reduction down to a
// witness-layer opening, commits the witness with Orion, and checks that the
// opening verifies — a smoke test exercising the full stack end to end.
package main

import (
	"log"

	"github.com/distributed-lab/gkr-orion/circuit"
	"github.com/distributed-lab/gkr-orion/field"
	"github.com/distributed-lab/gkr-orion/gkr"
	"github.com/distributed-lab/gkr-orion/orion"
	"github.com/distributed-lab/gkr-orion/transcript"
)

func main() {
	eng := field.BN254Scalar()

	layer0 := &circuit.Layer{
		InputVarNum:  2,
		OutputVarNum: 1,
		Mul:          []circuit.MulGate{{Out: 0, In1: 0, In2: 1, Coeff: eng.One()}},
		InputVals: []field.Element{
			eng.ElementFromInt(2),
			eng.ElementFromInt(3),
			eng.ElementFromInt(5),
			eng.ElementFromInt(7),
		},
	}
	layer1 := &circuit.Layer{
		InputVarNum:  1,
		OutputVarNum: 1,
		Add:          []circuit.AddGate{{Out: 0, In: 0, Coeff: eng.One()}},
	}

	c := circuit.NewCircuit([]*circuit.Layer{layer0, layer1}, 0)
	c.Evaluate(eng)

	proverTr := transcript.New()
	proof, openings := gkr.Prove(eng, c, nil, proverTr)
	log.Printf("gkr: proved %d layers, %d witness openings", len(proof.Layers), len(openings))

	verifierTr := transcript.New()
	gotOpenings, err := gkr.Verify(eng, c, nil, verifierTr, proof)
	if err != nil {
		log.Fatalf("gkr: verify failed: %v", err)
	}
	log.Printf("gkr: verified, %d openings reconstructed", len(gotOpenings))

	p := orion.NewParams(2, 1) // layer0.InputVals has 4 coefficients
	enc := orion.NewEncoder(eng, 1)
	commitment, err := orion.Commit(eng, enc, p, layer0.InputVals)
	if err != nil {
		log.Fatalf("orion: commit failed: %v", err)
	}

	point := openings[0].Point
	for len(point) < p.NumVars {
		point = append(point, eng.Zero())
	}
	claim := openings[0].Claim

	commitTr := transcript.New()
	op := orion.Open(eng, enc, p, commitment, layer0.InputVals, point, commitTr)

	verifyTr := transcript.New()
	if err := orion.Verify(eng, enc, p, commitment.Root, len(commitment.CodeRows[0]), point, claim, op, verifyTr); err != nil {
		log.Fatalf("orion: verify failed: %v", err)
	}

	log.Printf("orion: witness opening verified against commitment root %x", commitment.Root)
}
