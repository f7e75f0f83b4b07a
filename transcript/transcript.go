// Package transcript
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transcript implements the Fiat-Shamir sponge the GKR prover and
// verifier (and the Orion opener/verifier) both drive. It generalizes the
// teacher's KeccakFS, which only ever appended bn256.G1 points and *big.Int
// scalars, to any field.Element plus raw byte and commitment appends, and
// adds the lock/export/restore operations the GKR reduction and the Orion
// PCS both need.
package transcript

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/distributed-lab/gkr-orion/field"
)

// Transcript is the Fiat-Shamir engine shared by the GKR prover/verifier and
// the Orion opener/verifier. One Transcript is owned by one layer/protocol
// step at a time: the caller borrows it mutably for the duration of a single
// reduction, never shares it across concurrent steps.
type Transcript struct {
	state   crypto.KeccakState
	counter int

	locked bool
	proof  []byte
}

// New creates an empty transcript, the zero state every proof starts from.
func New() *Transcript {
	return &Transcript{state: crypto.NewKeccakState()}
}

func (t *Transcript) write(b []byte) {
	if _, err := t.state.Write(b); err != nil {
		// The teacher's AddPoint/AddNumber panic on write failure; a
		// Keccak sponge's Write never actually errors, so this can only
		// fire on an invariant violation elsewhere in the process.
		panic(err)
	}
	if !t.locked {
		t.proof = append(t.proof, b...)
	}
}

// AppendFieldElement writes an element's canonical bytes into the sponge and
// (unless Locked) the proof blob.
func (t *Transcript) AppendFieldElement(e field.Element) {
	t.write(e.Bytes())
}

// AppendBytes writes an arbitrary byte slice, used for circuit-shape binding
// and for Orion's column reveals.
func (t *Transcript) AppendBytes(b []byte) {
	t.write(b)
}

// AppendCommitment writes a Merkle root or other fixed-size commitment.
func (t *Transcript) AppendCommitment(c []byte) {
	t.write(c)
}

// ChallengeField squeezes eng.ByteSize() bytes and reduces them via the
// engine's FromUniformBytes. The sponge's internal state advances on every
// squeeze, so two back-to-back challenges over the same buffer still differ.
func (t *Transcript) ChallengeField(eng field.Engine) field.Element {
	return eng.FromUniformBytes(t.squeeze(eng.ByteSize()))
}

// ChallengeBytes squeezes n raw bytes, used for Orion's column-index draws.
func (t *Transcript) ChallengeBytes(n int) []byte {
	return t.squeeze(n)
}

// squeeze draws n bytes from the sponge. A single Sum(nil) only ever yields
// 32 fresh bytes, one Keccak-256 digest (Sum clones the state rather than advancing
// it, so calling it twice in a row returns the same bytes); additional blocks
// are drawn by rehashing the first block together with a block index, which
// gives n independent bytes without needing the sponge itself to support
// incremental Read.
func (t *Transcript) squeeze(n int) []byte {
	t.counter++
	ctr := make([]byte, 8)
	for i := range ctr {
		ctr[i] = byte(t.counter >> (8 * i))
	}
	t.write(ctr)

	base := t.state.Sum(nil)
	out := append([]byte(nil), base...)
	for block := byte(1); len(out) < n; block++ {
		out = append(out, crypto.Keccak256(base, []byte{block})...)
	}
	return out[:n]
}

// Lock begins a region whose appends must not be written to the proof blob
// even though they still pass through the sponge — used so an inner
// sub-protocol's internal transcript writes aren't double-counted in the
// outer proof. Unlock ends the region.
func (t *Transcript) Lock() { t.locked = true }

// Unlock ends a region started by Lock.
func (t *Transcript) Unlock() { t.locked = false }

// ProofBytes returns the bytes written to the proof blob so far (excluding
// anything written during a Locked region).
func (t *Transcript) ProofBytes() []byte {
	out := make([]byte, len(t.proof))
	copy(out, t.proof)
	return out
}

// State is the opaque digest HashAndReturnState exports: a fixed-size
// snapshot of the sponge plus counter and proof length that SetState
// restores exactly.
type State struct {
	Digest   [32]byte
	Counter  int
	ProofLen int
}

// HashAndReturnState compresses the unhashed buffer into the sponge state
// and returns an opaque digest.
func (t *Transcript) HashAndReturnState() State {
	var s State
	copy(s.Digest[:], t.state.Sum(nil))
	s.Counter = t.counter
	s.ProofLen = len(t.proof)
	return s
}

// SetState overwrites the sponge state, empties the unhashed buffer (by
// reseeding a fresh Keccak state from the digest) and truncates the proof
// cursor to just past the exported point.
func (t *Transcript) SetState(s State) {
	fresh := crypto.NewKeccakState()
	if _, err := fresh.Write(s.Digest[:]); err != nil {
		panic(err)
	}
	t.state = fresh
	t.counter = s.Counter
	if s.ProofLen <= len(t.proof) {
		t.proof = t.proof[:s.ProofLen]
	}
}
