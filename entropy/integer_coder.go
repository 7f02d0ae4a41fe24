/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package entropy

import (
	"github.com/graphzip/graphzip/bitio"
	"github.com/graphzip/graphzip/internal"
)

const (
	// LogNumSymbols is the base-2 logarithm of the symbol alphabet size.
	LogNumSymbols = 8
	// NumSymbols is the size of the symbol alphabet shared by all backends.
	NumSymbols = 1 << LogNumSymbols
)

// SymbolReader decodes entropy-coded symbols from a bitstream, one
// distribution per context.
type SymbolReader interface {
	ReadSymbol(ctx int, br *bitio.Reader) int
	CheckFinalState() bool
}

// Coder is a variable integer encoding scheme that puts bits either in an
// entropy-coded token or as raw bits, depending on its configuration. Values
// below 1<<Log2NumExplicit get their own token; larger values are split into
// a token carrying the magnitude, the NumTokenMSB bits after the leading one
// and the NumTokenLSB low bits, plus raw extra bits for the rest.
//
// The configuration must match between encoder and decoder; streams do not
// describe it.
type Coder struct {
	Log2NumExplicit int
	NumTokenMSB     int
	NumTokenLSB     int
}

// DefaultCoder is the build-time configuration used by the graph codec.
var DefaultCoder = Coder{Log2NumExplicit: 4, NumTokenMSB: 1, NumTokenLSB: 0}

// Encode splits value into an entropy-coded token and raw extra bits.
func (c Coder) Encode(value uint64) (token int, nbits int, bits uint64) {
	numExplicit := uint64(1) << c.Log2NumExplicit
	if value < numExplicit {
		return int(value), 0, 0
	}
	n := internal.FloorLog2(value)
	m := value - 1<<n
	split := c.NumTokenMSB + c.NumTokenLSB
	token = int(numExplicit) + ((n-c.Log2NumExplicit)<<split |
		int(m>>(n-c.NumTokenMSB))<<c.NumTokenLSB |
		int(m&(1<<c.NumTokenLSB-1)))
	nbits = n - split
	bits = (value >> c.NumTokenLSB) & (1<<nbits - 1)
	return token, nbits, bits
}

// Token returns the token Encode would produce for value.
func (c Coder) Token(value uint64) int {
	token, _, _ := c.Encode(value)
	return token
}

// ExtraBits returns the number of raw bits that follow token in the stream.
func (c Coder) ExtraBits(token int) int {
	numExplicit := 1 << c.Log2NumExplicit
	if token < numExplicit {
		return 0
	}
	split := c.NumTokenMSB + c.NumTokenLSB
	return c.Log2NumExplicit - split + (token-numExplicit)>>split
}

// Decode reassembles a value from a token and its extra bits.
func (c Coder) Decode(token int, nbits int, bits uint64) uint64 {
	numExplicit := 1 << c.Log2NumExplicit
	if token < numExplicit {
		return uint64(token)
	}
	lsb := uint64(token) & (1<<c.NumTokenLSB - 1)
	msb := 1<<c.NumTokenMSB | (uint64(token)>>c.NumTokenLSB)&(1<<c.NumTokenMSB-1)
	return (msb<<nbits|bits)<<c.NumTokenLSB | lsb
}

// Read decodes a single integer from the stream: one entropy-coded token in
// context ctx followed by its raw extra bits.
func (c Coder) Read(ctx int, br *bitio.Reader, sr SymbolReader) uint64 {
	br.Refill()
	token := sr.ReadSymbol(ctx, br)
	nbits := c.ExtraBits(token)
	bits := readLong(br, nbits)
	return c.Decode(token, nbits, bits)
}

// readLong reads nbits in chunks so that a corrupt stream asking for an
// oversized count cannot break the reader. Shifts past 63 drop bits; the
// resulting garbage value is rejected by the structural checks upstream.
func readLong(br *bitio.Reader, nbits int) uint64 {
	if nbits <= 32 {
		return br.Read(uint(nbits))
	}
	var bits uint64
	for k := 0; k < nbits; k += 32 {
		n := min(nbits-k, 32)
		bits |= br.Read(uint(n)) << k
	}
	return bits
}

// Cost returns the cost in bits of encoding value in context ctx, where
// symCost holds the per-context cost of each token at ctx*NumSymbols+token.
func (c Coder) Cost(ctx int, value uint64, symCost []float64) float64 {
	token, nbits, _ := c.Encode(value)
	return symCost[ctx*NumSymbols+token] + float64(nbits)
}

// Package-level helpers bound to DefaultCoder, the configuration the graph
// codec is built with.

// Encode splits value with the default configuration.
func Encode(value uint64) (token int, nbits int, bits uint64) {
	return DefaultCoder.Encode(value)
}

// Token returns the default-configuration token for value.
func Token(value uint64) int {
	return DefaultCoder.Token(value)
}

// Read decodes a single integer written with the default configuration.
func Read(ctx int, br *bitio.Reader, sr SymbolReader) uint64 {
	return DefaultCoder.Read(ctx, br, sr)
}

// Cost returns the default-configuration cost of value in context ctx.
func Cost(ctx int, value uint64, symCost []float64) float64 {
	return DefaultCoder.Cost(ctx, value, symCost)
}
