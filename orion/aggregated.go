// Package orion
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// aggregated.go implements the cohort variant of the Orion PCS, where each
// worker commits locally against a shared expander seed, local roots are
// merged into one further Merkle tree of depth log N, and each worker's
// EvalRow[0] is weighted by an eq(r_mpi, rank) coefficient. Proximity rows
// are not combined across the cohort: every worker's opening, proximity
// rows and column queries included, is its local Open output.
package orion

import (
	"github.com/distributed-lab/gkr-orion/cohort"
	"github.com/distributed-lab/gkr-orion/field"
	"github.com/distributed-lab/gkr-orion/merkle"
)

// digestChunks x chunkBytes covers all 32 bytes of a merkle.Digest. Each
// chunk is embedded into its own field element via a zero-padded big-endian
// buffer, so FromUniformBytes never reduces it mod the field order (a
// uint64 is far smaller than BN254's ~2^254 scalar field) and the digest
// round-trips through GatherVec losslessly.
const (
	digestChunks = 4
	chunkBytes   = 8
)

// AggregatedCommitment is the cohort-wide commitment: every worker's local
// Commitment plus the further tree built over their roots.
type AggregatedCommitment struct {
	Local       *Commitment
	AggTree     *merkle.Tree
	GlobalRoot  merkle.Digest
	WorkerRoots []merkle.Digest
}

// AggregatedCommit has every worker commit its local shard of message
// (message is this worker's slice of the full witness, already split by the
// caller along the r_mpi dimension), then gathers the local roots into one
// further tree.
func AggregatedCommit(eng field.Engine, enc *Encoder, p Params, c cohort.Cohort, localMessage []field.Element) (*AggregatedCommitment, error) {
	local, err := Commit(eng, enc, p, localMessage)
	if err != nil {
		return nil, err
	}

	gathered := c.GatherVec(digestToElements(eng, local.Root))

	roots := make([]merkle.Digest, c.WorldSize())
	elemsPerRoot := len(gathered) / c.WorldSize()
	for i := range roots {
		roots[i] = elementsToDigest(gathered[i*elemsPerRoot : (i+1)*elemsPerRoot])
	}

	aggTree := merkle.AggregateRoots(roots)

	return &AggregatedCommitment{
		Local:       local,
		AggTree:     aggTree,
		GlobalRoot:  aggTree.Root(),
		WorkerRoots: roots,
	}, nil
}

// AggregatedOpeningProof is one worker's contribution to a cohort-wide
// opening: its local OpeningProof plus the extra log N sibling hashes tying
// its root into the global tree.
type AggregatedOpeningProof struct {
	Local        OpeningProof
	WorkerRoot   merkle.Digest
	WorkerIndex  int
	AggPath      merkle.Path
	CombinedEval field.Element // this worker's rank-weighted contribution to the root's combined eval_row
}

// AggregatedOpen runs Open locally, then attaches eq(r_mpi, rank) times the
// local EvalRow[0] and the rank's path into the aggregated tree. eqMpi is
// BuildEqXR(eng, rMpi) for the cohort-wide challenge binding worker ranks,
// shared (broadcast) by the root.
func AggregatedOpen(eng field.Engine, enc *Encoder, p Params, agg *AggregatedCommitment, c cohort.Cohort, localMessage []field.Element, point []field.Element, eqMpi []field.Element, localOpen func() OpeningProof) AggregatedOpeningProof {
	local := localOpen()
	rank := c.WorldRank()

	combined := eng.Zero()
	if len(local.EvalRow) > 0 {
		combined = eqMpi[rank].Mul(local.EvalRow[0])
	}

	_, path := agg.AggTree.Open(rank)

	return AggregatedOpeningProof{
		Local:        local,
		WorkerRoot:   agg.WorkerRoots[rank],
		WorkerIndex:  rank,
		AggPath:      path,
		CombinedEval: combined,
	}
}

// AggregatedVerify checks each worker's local proof against its own root via
// the short path, then checks that root against the global root via the
// extra log N sibling hashes.
func AggregatedVerify(globalRoot merkle.Digest, numWorkers int, proofs []AggregatedOpeningProof, verifyLocal func(workerIndex int, proof OpeningProof, root merkle.Digest) error) error {
	for _, pr := range proofs {
		if err := verifyLocal(pr.WorkerIndex, pr.Local, pr.WorkerRoot); err != nil {
			return err
		}
		if !merkle.VerifyPath(globalRoot, pr.WorkerRoot[:], pr.WorkerIndex, numWorkers, pr.AggPath) {
			return ErrMerkleMismatch
		}
	}
	return nil
}

// CombineEvals sums every worker's CombinedEval contribution, the
// cohort-wide eq(r_mpi, rank)-weighted combination, and checks it against a
// claimed final evaluation. pointTail is unused by the sum itself (the
// rank-weighted combination already collapses the r_mpi dimension); it is
// accepted so callers can assert it's empty at the call site.
func CombineEvals(eng field.Engine, proofs []AggregatedOpeningProof, pointTail []field.Element, claim field.Element) bool {
	sum := eng.Zero()
	for _, pr := range proofs {
		sum = sum.Add(pr.CombinedEval)
	}
	return sum.Equal(claim)
}

// digestToElements splits a 32-byte digest into digestChunks field elements,
// each holding chunkBytes of the digest in its low-order bytes.
func digestToElements(eng field.Engine, d merkle.Digest) []field.Element {
	els := make([]field.Element, digestChunks)
	for i := 0; i < digestChunks; i++ {
		buf := make([]byte, eng.ByteSize())
		copy(buf[len(buf)-chunkBytes:], d[i*chunkBytes:(i+1)*chunkBytes])
		els[i] = eng.FromUniformBytes(buf)
	}
	return els
}

// elementsToDigest inverts digestToElements: each element's canonical
// encoding is big-endian, so the chunk is recovered from its trailing
// chunkBytes bytes.
func elementsToDigest(els []field.Element) merkle.Digest {
	var d merkle.Digest
	for i := 0; i < digestChunks && i < len(els); i++ {
		b := els[i].Bytes()
		copy(d[i*chunkBytes:(i+1)*chunkBytes], b[len(b)-chunkBytes:])
	}
	return d
}
