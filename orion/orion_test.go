// Package orion
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package orion

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/distributed-lab/gkr-orion/field"
	"github.com/distributed-lab/gkr-orion/poly"
	"github.com/distributed-lab/gkr-orion/transcript"
)

func randomMessage(eng field.Engine, n int) []field.Element {
	out := make([]field.Element, n)
	for i := range out {
		out[i] = eng.ElementFromInt(int64(i*7 + 3))
	}
	return out
}

// TestCommitOpenVerifyRoundTrip checks that a proof for an untampered
// message verifies.
func TestCommitOpenVerifyRoundTrip(t *testing.T) {
	eng := field.BN254Scalar()
	p := NewParams(6, 2) // 64 coefficients, 4 rows of 16
	enc := NewEncoder(eng, 42)

	message := randomMessage(eng, 1<<uint(p.NumVars))
	commitment, err := Commit(eng, enc, p, message)
	require.NoError(t, err)

	point := make([]field.Element, p.NumVars)
	for i := range point {
		point[i] = eng.ElementFromInt(int64(i + 2))
	}
	scratch := make([]field.Element, len(message))
	claim := poly.EvalWithBuffer(message, point, scratch)

	proverTr := transcript.New()
	proof := Open(eng, enc, p, commitment, message, point, proverTr)

	verifierTr := transcript.New()
	err = Verify(eng, enc, p, commitment.Root, len(commitment.CodeRows[0]), point, claim, proof, verifierTr)
	require.NoError(t, err)
}

// TestVerifyRejectsTamperedColumn checks that a tampered column reveal
// fails verification (the column no longer hashes to the path it was
// opened with).
func TestVerifyRejectsTamperedColumn(t *testing.T) {
	eng := field.BN254Scalar()
	p := NewParams(6, 2)
	enc := NewEncoder(eng, 42)

	message := randomMessage(eng, 1<<uint(p.NumVars))
	commitment, err := Commit(eng, enc, p, message)
	require.NoError(t, err)

	point := make([]field.Element, p.NumVars)
	for i := range point {
		point[i] = eng.ElementFromInt(int64(i + 2))
	}
	scratch := make([]field.Element, len(message))
	claim := poly.EvalWithBuffer(message, point, scratch)

	proverTr := transcript.New()
	proof := Open(eng, enc, p, commitment, message, point, proverTr)

	proof.Columns[0][0] = proof.Columns[0][0].Add(eng.One())

	verifierTr := transcript.New()
	err = Verify(eng, enc, p, commitment.Root, len(commitment.CodeRows[0]), point, claim, proof, verifierTr)
	require.Error(t, err)
}

// TestCommitOpenVerifyRoundTripLargeRows uses a msgLen well above
// baseCodeThreshold so Encode actually recurses through its two-stage
// expander-graph path instead of hitting the small-message identity case.
func TestCommitOpenVerifyRoundTripLargeRows(t *testing.T) {
	eng := field.BN254Scalar()
	p := NewParams(10, 2) // 1024 coefficients, 4 rows of 256 (msgLen > baseCodeThreshold)
	require.Greater(t, p.MsgLen, baseCodeThreshold)
	enc := NewEncoder(eng, 42)

	message := randomMessage(eng, 1<<uint(p.NumVars))
	commitment, err := Commit(eng, enc, p, message)
	require.NoError(t, err)

	point := make([]field.Element, p.NumVars)
	for i := range point {
		point[i] = eng.ElementFromInt(int64(i + 5))
	}
	scratch := make([]field.Element, len(message))
	claim := poly.EvalWithBuffer(message, point, scratch)

	proverTr := transcript.New()
	proof := Open(eng, enc, p, commitment, message, point, proverTr)

	verifierTr := transcript.New()
	err = Verify(eng, enc, p, commitment.Root, len(commitment.CodeRows[0]), point, claim, proof, verifierTr)
	require.NoError(t, err)

	// Tampering a proximity row over this larger code must still be caught.
	proof.ProxRows[0][0] = proof.ProxRows[0][0].Add(eng.One())
	verifierTr2 := transcript.New()
	err = Verify(eng, enc, p, commitment.Root, len(commitment.CodeRows[0]), point, claim, proof, verifierTr2)
	require.Error(t, err)
}

func TestEncoderDeterministic(t *testing.T) {
	eng := field.BN254Scalar()
	enc := NewEncoder(eng, 7)
	msg := randomMessage(eng, 64)

	a := enc.Encode(msg)
	b := enc.Encode(msg)
	require.Equal(t, len(a), len(b))
	for i := range a {
		require.True(t, a[i].Equal(b[i]))
	}
	require.Equal(t, enc.Len(len(msg)), len(a))
}
