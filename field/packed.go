// Package field
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package field

import (
	"fmt"
	"io"
	"strconv"
)

// packedEngine lifts a scalar Engine to a width-P SIMD pack. Lane-wise
// operations generalize elementwise big.Int vector arithmetic to a
// fixed-width packed Element.
type packedEngine struct {
	base  Engine
	width int
}

// Packed returns the Engine for width-P SIMD packs of base's elements. width
// must be a power of two; the number of SIMD rounds a caller needs is
// log2(PackWidth()).
func Packed(base Engine, width int) Engine {
	if width <= 0 || width&(width-1) != 0 {
		panic(fmt.Sprintf("field: pack width %d is not a power of two", width))
	}
	return packedEngine{base: base, width: width}
}

func (p packedEngine) Name() string          { return p.base.Name() + "x" + strconv.Itoa(p.width) }
func (p packedEngine) SentinelBytes() []byte { return p.base.SentinelBytes() }
func (p packedEngine) PackWidth() int        { return p.width }
func (p packedEngine) ByteSize() int         { return p.base.ByteSize() * p.width }

// Base returns the scalar engine this pack was built over, letting a caller
// recover the field SIMD-fold challenges belong in.
func (p packedEngine) Base() Engine { return p.base }

// UnwrapBase returns eng.Base() if eng is a packed engine, or eng itself
// otherwise. gkr uses this to sample SIMD/cohort fold challenges in the
// scalar field a packed claim's lanes actually live in, rather than in the
// pack engine itself.
func UnwrapBase(eng Engine) Engine {
	if b, ok := eng.(interface{ Base() Engine }); ok {
		return b.Base()
	}
	return eng
}

func (p packedEngine) Zero() Element { return p.broadcast(p.base.Zero()) }
func (p packedEngine) One() Element  { return p.broadcast(p.base.One()) }

func (p packedEngine) ElementFromInt(v int64) Element {
	return p.broadcast(p.base.ElementFromInt(v))
}

func (p packedEngine) FromUniformBytes(b []byte) Element {
	lanes := make([]Element, p.width)
	step := p.base.ByteSize()
	for i := range lanes {
		start := (i * len(b)) / p.width
		end := start + step
		if end > len(b) {
			end = len(b)
		}
		lanes[i] = p.base.FromUniformBytes(b[start:end])
	}
	return packedElem{eng: p, lanes: lanes}
}

func (p packedEngine) RandomElement(r io.Reader) (Element, error) {
	lanes := make([]Element, p.width)
	for i := range lanes {
		el, err := p.base.RandomElement(r)
		if err != nil {
			return nil, err
		}
		lanes[i] = el
	}
	return packedElem{eng: p, lanes: lanes}, nil
}

func (p packedEngine) MustRandomElement() Element {
	el, err := p.RandomElement(cryptoRandReader{})
	if err != nil {
		panic(err)
	}
	return el
}

func (p packedEngine) broadcast(v Element) Element {
	lanes := make([]Element, p.width)
	for i := range lanes {
		lanes[i] = v
	}
	return packedElem{eng: p, lanes: lanes}
}

// packedElem is a width-P SIMD pack; every Element method applies lane-wise.
type packedElem struct {
	eng   packedEngine
	lanes []Element
}

// Lanes exposes the underlying per-lane elements, one per SIMD instance;
// gkr reads them to fold a packed claim down to one scalar.
func (e packedElem) Lanes() []Element { return e.lanes }

// PackLanes builds a packed Element directly from per-lane base-engine
// scalars, the constructor for assembling one packed witness value out of P
// SIMD instances' individual values (eng.ElementFromInt and friends only
// ever broadcast the same scalar to every lane).
func PackLanes(eng Engine, lanes []Element) Element {
	p, ok := eng.(packedEngine)
	if !ok {
		panic("field: PackLanes requires a packed Engine")
	}
	if len(lanes) != p.width {
		panic("field: PackLanes lane count mismatch")
	}
	return packedElem{eng: p, lanes: append([]Element(nil), lanes...)}
}

func (e packedElem) zipWith(o Element, f func(a, b Element) Element) Element {
	b := o.(packedElem)
	out := make([]Element, len(e.lanes))
	for i := range out {
		out[i] = f(e.lanes[i], b.lanes[i])
	}
	return packedElem{eng: e.eng, lanes: out}
}

func (e packedElem) Add(o Element) Element { return e.zipWith(o, Element.Add) }
func (e packedElem) Sub(o Element) Element { return e.zipWith(o, Element.Sub) }
func (e packedElem) Mul(o Element) Element { return e.zipWith(o, Element.Mul) }

func (e packedElem) Square() Element {
	out := make([]Element, len(e.lanes))
	for i, l := range e.lanes {
		out[i] = l.Square()
	}
	return packedElem{eng: e.eng, lanes: out}
}

func (e packedElem) Neg() Element {
	out := make([]Element, len(e.lanes))
	for i, l := range e.lanes {
		out[i] = l.Neg()
	}
	return packedElem{eng: e.eng, lanes: out}
}

func (e packedElem) Inverse() (Element, bool) {
	out := make([]Element, len(e.lanes))
	for i, l := range e.lanes {
		inv, ok := l.Inverse()
		if !ok {
			return nil, false
		}
		out[i] = inv
	}
	return packedElem{eng: e.eng, lanes: out}, true
}

func (e packedElem) IsZero() bool {
	for _, l := range e.lanes {
		if !l.IsZero() {
			return false
		}
	}
	return true
}

func (e packedElem) Equal(o Element) bool {
	b := o.(packedElem)
	for i := range e.lanes {
		if !e.lanes[i].Equal(b.lanes[i]) {
			return false
		}
	}
	return true
}

func (e packedElem) Bytes() []byte {
	out := make([]byte, 0, len(e.lanes)*e.eng.base.ByteSize())
	for _, l := range e.lanes {
		out = append(out, l.Bytes()...)
	}
	return out
}

// MulBase multiplies every lane by a scalar (non-packed) base Element, the
// cross-tier multiplication between a packed and an unpacked engine.
func (e packedElem) MulBase(o Element) Element {
	if b, ok := o.(packedElem); ok {
		return e.zipWith(b, Element.Mul)
	}
	out := make([]Element, len(e.lanes))
	for i, l := range e.lanes {
		out[i] = l.Mul(o)
	}
	return packedElem{eng: e.eng, lanes: out}
}

