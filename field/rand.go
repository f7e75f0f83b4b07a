// Package field
// Copyright 2024 Distributed Lab. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package field

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/cloudflare/bn256"
)

// cryptoRandReader defers to crypto/rand.Reader; kept as a named type so
// MustRandomElement can call RandomElement without importing crypto/rand
// into every engine file, mirroring math_rand.go's MustRandScalar.
type cryptoRandReader struct{}

func (cryptoRandReader) Read(p []byte) (int, error) { return rand.Reader.Read(p) }

func randBigInt(r io.Reader) (*big.Int, error) {
	return rand.Int(r, bn256.Order)
}
