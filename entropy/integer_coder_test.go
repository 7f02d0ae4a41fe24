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
	"fmt"
	"testing"

	"github.com/graphzip/graphzip/bitio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// byteCoder writes/reads tokens as plain bytes, bypassing entropy coding.
type byteCoder struct{}

func (byteCoder) ReadSymbol(ctx int, br *bitio.Reader) int {
	return int(br.Read(8))
}

func (byteCoder) CheckFinalState() bool { return true }

func testCoderRoundtrip(t *testing.T, c Coder) {
	for v := uint64(0); v < 1<<14; v++ {
		var w bitio.Writer
		w.Reserve(256)
		token, nbits, bits := c.Encode(v)
		require.Less(t, token, NumSymbols)
		w.Write(8, uint64(token))
		w.Write(nbits, bits)
		r := bitio.NewReader(w.Data())
		require.Equal(t, v, c.Read(0, r, byteCoder{}), "value %d", v)
	}
}

func TestIntegerCoderSweep(t *testing.T) {
	configs := []Coder{
		{0, 0, 0},
		{4, 0, 0},
		{4, 1, 0},
		{4, 2, 0},
		{4, 3, 0},
		{4, 4, 0},
		{4, 1, 1},
		{4, 2, 2},
	}
	for _, c := range configs {
		t.Run(fmt.Sprintf("se%d_msb%d_lsb%d", c.Log2NumExplicit, c.NumTokenMSB, c.NumTokenLSB), func(t *testing.T) {
			testCoderRoundtrip(t, c)
		})
	}
}

func TestIntegerCoderDefaultSplit(t *testing.T) {
	token, nbits, bits := DefaultCoder.Encode(0x1FFF)
	assert.Equal(t, 33, token)
	assert.Equal(t, 11, nbits)
	assert.Equal(t, uint64(0x7FF), bits)

	// Explicit values map to their own token with no extra bits.
	for v := uint64(0); v < 16; v++ {
		token, nbits, _ := DefaultCoder.Encode(v)
		assert.Equal(t, int(v), token)
		assert.Equal(t, 0, nbits)
	}
}

func TestStreamUndoLog(t *testing.T) {
	var s Stream
	s.Add(3, 10)
	s.Add(4, 0)
	s.Add(4, 0)
	s.RemoveLast()
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 3, s.Context(0))
	assert.Equal(t, uint64(10), s.Value(0))
	assert.Equal(t, 4, s.Context(1))

	histos := s.Histograms(8)
	assert.Equal(t, 1, histos[3][Token(10)])
	assert.Equal(t, 1, histos[4][0])

	var rev []uint64
	s.ForEachReversed(func(ctx, token, nbits int, bits uint64, i int) {
		rev = append(rev, s.Value(i))
	})
	assert.Equal(t, []uint64{0, 10}, rev)
}
