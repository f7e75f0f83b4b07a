// Package field
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package field

import (
	"io"
	"math/big"

	"github.com/cloudflare/bn256"
)

// bn254Engine is the Engine for the BN254 curve's scalar field. It is a
// direct generalization of math_scalars.go's add/sub/mul/inv/pow helpers,
// boxed behind the Element interface instead of operating on bare *big.Int.
type bn254Engine struct{}

// BN254Scalar returns the singleton Engine for bn256.Order, the BN254 curve's
// scalar field.
func BN254Scalar() Engine { return bn254Engine{} }

func (bn254Engine) Name() string            { return "bn254-scalar" }
func (bn254Engine) SentinelBytes() []byte   { return []byte("BN254") }
func (bn254Engine) PackWidth() int          { return 1 }
func (bn254Engine) ByteSize() int           { return 32 }
func (e bn254Engine) Zero() Element         { return bn254Elem{v: big.NewInt(0)} }
func (e bn254Engine) One() Element          { return bn254Elem{v: big.NewInt(1)} }
func (e bn254Engine) ElementFromInt(v int64) Element {
	return bn254Elem{v: reduce(big.NewInt(v))}
}

// FromUniformBytes reduces a squeezed byte string mod bn256.Order.
func (e bn254Engine) FromUniformBytes(b []byte) Element {
	return bn254Elem{v: reduce(new(big.Int).SetBytes(b))}
}

func (e bn254Engine) RandomElement(r io.Reader) (Element, error) {
	v, err := randBigInt(r)
	if err != nil {
		return nil, err
	}
	return bn254Elem{v: v}, nil
}

func (e bn254Engine) MustRandomElement() Element {
	el, err := e.RandomElement(cryptoRandReader{})
	if err != nil {
		panic(err)
	}
	return el
}

// bn254Elem wraps *big.Int; each operation is a method returning a fresh
// Element per the immutability contract.
type bn254Elem struct {
	v *big.Int
}

func reduce(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, bn256.Order)
}

func (a bn254Elem) other(e Element) *big.Int {
	b, ok := e.(bn254Elem)
	if !ok {
		panic("field: mismatched element type for bn254 engine")
	}
	return b.v
}

func (a bn254Elem) Add(b Element) Element {
	return bn254Elem{v: reduce(new(big.Int).Add(a.v, a.other(b)))}
}

func (a bn254Elem) Sub(b Element) Element {
	return bn254Elem{v: reduce(new(big.Int).Sub(a.v, a.other(b)))}
}

func (a bn254Elem) Mul(b Element) Element {
	return bn254Elem{v: reduce(new(big.Int).Mul(a.v, a.other(b)))}
}

func (a bn254Elem) Square() Element {
	return a.Mul(a)
}

func (a bn254Elem) Neg() Element {
	return bn254Elem{v: reduce(new(big.Int).Neg(a.v))}
}

func (a bn254Elem) Inverse() (Element, bool) {
	if a.v.Sign() == 0 {
		return nil, false
	}
	return bn254Elem{v: new(big.Int).ModInverse(a.v, bn256.Order)}, true
}

func (a bn254Elem) IsZero() bool {
	return a.v.Sign() == 0
}

func (a bn254Elem) Equal(b Element) bool {
	return a.v.Cmp(a.other(b)) == 0
}

func (a bn254Elem) Bytes() []byte {
	raw := a.v.Bytes()
	if len(raw) >= 32 {
		return raw[:32]
	}
	out := make([]byte, 32-len(raw))
	return append(out, raw...)
}

func (a bn254Elem) MulBase(b Element) Element {
	return a.Mul(b)
}
