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
	"math/rand"
	"testing"

	"github.com/graphzip/graphzip/bitio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuffmanRoundtrip(t *testing.T) {
	const numIntegers = 1 << 20
	const numTestContexts = 128

	var data Stream
	rng := rand.New(rand.NewSource(0))
	for i := 0; i < numIntegers; i++ {
		ctx := rng.Intn(numTestContexts)
		// Skewed values exercise short and long codes alike.
		value := uint64(rng.Uint32()) >> uint(rng.Intn(32))
		data.Add(ctx, value)
	}

	var w bitio.Writer
	HuffmanEncode(&data, numTestContexts, &w)

	r := bitio.NewReader(w.Data())
	var hr HuffmanReader
	require.NoError(t, hr.Init(numTestContexts, r))
	for i := 0; i < numIntegers; i++ {
		require.Equal(t, data.Value(i), Read(data.Context(i), r, &hr), "value %d", i)
	}
	assert.True(t, hr.CheckFinalState())
}

func TestHuffmanKraftEquality(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 100; trial++ {
		histogram := make([]int, NumSymbols)
		nz := rng.Intn(NumSymbols-1) + 2
		for i := 0; i < nz; i++ {
			histogram[rng.Intn(NumSymbols)] = rng.Intn(100000) + 1
		}
		var info [NumSymbols]huffmanSymbolInfo
		computeSymbolNumBits(histogram, &info)
		kraft := 0
		for i := 0; i < NumSymbols; i++ {
			if info[i].present {
				assert.GreaterOrEqual(t, info[i].nbits, uint8(1))
				assert.LessOrEqual(t, info[i].nbits, uint8(maxHuffmanBits))
				kraft += 1 << (maxHuffmanBits - info[i].nbits)
			}
		}
		assert.Equal(t, 1<<maxHuffmanBits, kraft)
	}
}

func TestHuffmanSingleSymbol(t *testing.T) {
	histogram := make([]int, NumSymbols)
	histogram[42] = 1000
	var info [NumSymbols]huffmanSymbolInfo
	computeSymbolNumBits(histogram, &info)
	assert.True(t, info[42].present)
	assert.Equal(t, uint8(1), info[42].nbits)

	var data Stream
	for i := 0; i < 100; i++ {
		data.Add(0, 42)
	}
	var w bitio.Writer
	HuffmanEncode(&data, 1, &w)
	r := bitio.NewReader(w.Data())
	var hr HuffmanReader
	require.NoError(t, hr.Init(1, r))
	for i := 0; i < 100; i++ {
		require.Equal(t, uint64(42), Read(0, r, &hr))
	}
}

func TestHuffmanInvalidHeader(t *testing.T) {
	// A header claiming just two symbols of length 2 under-subscribes the
	// code space: some 8-bit prefixes match no symbol.
	var w bitio.Writer
	w.Reserve(4 * NumSymbols)
	for i := 0; i < NumSymbols; i++ {
		switch i {
		case 0, 1:
			w.Write(1, 1)
			w.Write(3, 1) // length 2
		default:
			w.Write(1, 0)
		}
	}
	r := bitio.NewReader(w.Data())
	var hr HuffmanReader
	assert.Error(t, hr.Init(1, r))
}

func TestFlipByte(t *testing.T) {
	assert.Equal(t, uint8(0b10000000), flipByte(0b00000001))
	assert.Equal(t, uint8(0b01000000), flipByte(0b00000010))
	assert.Equal(t, uint8(0xFF), flipByte(0xFF))
	for x := 0; x < 256; x++ {
		assert.Equal(t, uint8(x), flipByte(flipByte(uint8(x))))
	}
}
