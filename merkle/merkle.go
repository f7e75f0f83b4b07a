// Package merkle
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package merkle implements the compact Merkle tree Orion commits its
// interleaved codeword columns with. The flat-array layout uses the
// standard cyclic indexing (parent = (i-1)/2, left = 2i+1), and the hash
// choice (Keccak, via golang.org/x/crypto's sha3) keeps the whole proof
// system on one hash family, the same one the transcript uses.
package merkle

import "golang.org/x/crypto/sha3"

// Digest is one Keccak-256 hash.
type Digest [32]byte

func hashLeaf(b []byte) Digest {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte{0x00})
	h.Write(b)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

func hashNode(l, r Digest) Digest {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte{0x01})
	h.Write(l[:])
	h.Write(r[:])
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Tree is a flat array of digests, indexed parent = (i-1)/2, left = 2i+1,
// right = 2i+2.
type Tree struct {
	nodes    []Digest
	numLeafs int
}

// Build hashes leaves (padding with the zero digest up to the next power of
// two) and constructs the full tree bottom-up.
func Build(leaves [][]byte) *Tree {
	n := nextPowerOfTwo(len(leaves))

	leafDigests := make([]Digest, n)
	for i, l := range leaves {
		leafDigests[i] = hashLeaf(l)
	}
	// Remaining leafDigests[i] for i >= len(leaves) stay the zero digest,
	// the padding the spec calls for ("pad the column count to a power of
	// two with zero").

	nodes := make([]Digest, 2*n-1)
	copy(nodes[n-1:], leafDigests)
	for i := n - 2; i >= 0; i-- {
		nodes[i] = hashNode(nodes[2*i+1], nodes[2*i+2])
	}

	return &Tree{nodes: nodes, numLeafs: n}
}

// Root returns the tree's single root digest, the PCS commitment.
func (t *Tree) Root() Digest {
	if len(t.nodes) == 0 {
		return Digest{}
	}
	return t.nodes[0]
}

// Path is a Merkle authentication path: the sibling digest at each level from
// the leaf up to (but excluding) the root.
type Path struct {
	Siblings []Digest
}

// Open returns the leaf's hash and its authentication path.
func (t *Tree) Open(i int) (Digest, Path) {
	idx := i + t.numLeafs - 1
	leaf := t.nodes[idx]

	var path Path
	for idx > 0 {
		if idx%2 == 1 {
			path.Siblings = append(path.Siblings, t.nodes[idx+1])
		} else {
			path.Siblings = append(path.Siblings, t.nodes[idx-1])
		}
		idx = (idx - 1) / 2
	}
	return leaf, path
}

// VerifyPath recomputes the root from leafData and a Path, checking that
// the column hashes match the commitment.
func VerifyPath(root Digest, leafData []byte, index int, numLeafs int, path Path) bool {
	cur := hashLeaf(leafData)
	idx := index
	for _, sib := range path.Siblings {
		if idx%2 == 0 {
			cur = hashNode(cur, sib)
		} else {
			cur = hashNode(sib, cur)
		}
		idx /= 2
	}
	return cur == root
}

func nextPowerOfTwo(x int) int {
	if x <= 1 {
		return 1
	}
	p := 1
	for p < x {
		p *= 2
	}
	return p
}

// AggregateRoots builds the further Merkle tree of depth log N over N
// cohort-local roots, and returns its root as the overall aggregated
// commitment.
func AggregateRoots(roots []Digest) *Tree {
	leaves := make([][]byte, len(roots))
	for i, r := range roots {
		leaves[i] = r[:]
	}
	return Build(leaves)
}
