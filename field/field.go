// Package field
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package field collapses the base/SIMD-pack field family into a single
// capability record: a tagged Engine that knows how to build, add, multiply
// and sample its own Element. Packed lifts a scalar Engine to a fixed-width
// SIMD pack of it; UnwrapBase recovers the scalar Engine back out.
package field

import (
	"crypto/rand"
	"io"
)

// Element is one value of some Engine's field. Implementations are expected
// to be immutable: every operation returns a new Element.
type Element interface {
	Add(Element) Element
	Sub(Element) Element
	Mul(Element) Element
	Square() Element
	Neg() Element
	Inverse() (Element, bool)
	IsZero() bool
	Equal(Element) bool
	Bytes() []byte

	// MulBase multiplies by an Element drawn from this engine's base field.
	// For engines where E == F (the common case in this module) this is
	// just Mul. For a genuine extension (a + b*X)*c = a*c + b*c*X.
	MulBase(Element) Element
}

// Engine is the capability record described by the spec's DESIGN NOTES: one
// record per FieldType, carrying the handful of operations and constants
// every caller needs instead of a web of generic type-family traits.
type Engine interface {
	Name() string
	SentinelBytes() []byte

	Zero() Element
	One() Element
	ElementFromInt(int64) Element

	// FromUniformBytes reduces a byte string (as produced by squeezing a
	// transcript) into an Element.
	FromUniformBytes(b []byte) Element

	RandomElement(r io.Reader) (Element, error)
	MustRandomElement() Element

	// PackWidth is P, the SIMD lane count; 1 for a plain scalar engine.
	PackWidth() int

	// ByteSize is the canonical encoding length used in the proof blob.
	ByteSize() int
}

// MustRandomFrom is a convenience wrapper panicking on crypto/rand failure.
func MustRandomFrom(e Engine) Element {
	el, err := e.RandomElement(rand.Reader)
	if err != nil {
		panic(err)
	}
	return el
}
