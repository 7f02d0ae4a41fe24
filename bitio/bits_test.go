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

package bitio

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSize = 1 << 20

func TestWriteNumBits(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	totalBits := 0
	var w Writer
	w.Reserve(testSize * MaxBitsPerCall)
	for i := 0; i < testSize; i++ {
		nbits := rng.Intn(MaxBitsPerCall + 1)
		bits := rng.Uint64() & (1<<nbits - 1)
		w.Write(nbits, bits)
		totalBits += nbits
	}
	data := w.Data()
	assert.Equal(t, (totalBits+7)/8, len(data))
}

func TestWriteNibbles(t *testing.T) {
	var w Writer
	w.Reserve(16)
	w.Write(4, 0xf)
	w.Write(4, 0xa)
	w.Write(4, 0x9)
	w.Write(4, 0x8)
	data := w.Data()
	require.Len(t, data, 2)
	assert.Equal(t, byte(0xaf), data[0])
	assert.Equal(t, byte(0x89), data[1])
}

func TestWriteRead(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	type pair struct {
		nbits int
		bits  uint64
	}
	allBits := make([]pair, 0, testSize)
	var w Writer
	w.Reserve(testSize * MaxBitsPerCall)
	for i := 0; i < testSize; i++ {
		nbits := rng.Intn(MaxBitsPerCall + 1)
		bits := rng.Uint64() & (1<<nbits - 1)
		w.Write(nbits, bits)
		allBits = append(allBits, pair{nbits, bits})
	}
	r := NewReader(w.Data())
	for i := 0; i < testSize; i++ {
		require.Equal(t, allBits[i].bits, r.Read(uint(allBits[i].nbits)), "value %d", i)
	}
}

func TestReadAtOffset(t *testing.T) {
	var w Writer
	w.Reserve(128)
	w.Write(13, 0x1234&0x1FFF)
	w.Write(56, 0xDEADBEEFCAFE)
	data := w.Data()
	r := NewReaderAt(data, 13)
	assert.Equal(t, uint64(0xDEADBEEFCAFE), r.Read(56))
}

func TestReadPastEnd(t *testing.T) {
	r := NewReader([]byte{0xFF})
	assert.Equal(t, uint64(0xFF), r.Read(8))
	for i := 0; i < 10; i++ {
		assert.Equal(t, uint64(0), r.Read(56))
	}
}

func TestBitOffset(t *testing.T) {
	var w Writer
	w.Reserve(256)
	w.Write(48, 12345)
	w.Write(1, 1)
	w.Write(21, 77)
	r := NewReader(w.Data())
	assert.Equal(t, uint64(0), r.BitOffset())
	r.Read(48)
	assert.Equal(t, uint64(48), r.BitOffset())
	r.Read(1)
	r.Read(21)
	assert.Equal(t, uint64(70), r.BitOffset())
}

func TestAppendAligned(t *testing.T) {
	var w Writer
	w.Reserve(64)
	w.Write(8, 0x42)
	w.AppendAligned([]byte{1, 2, 3})
	w.Reserve(8)
	w.Write(8, 0x43)
	data := w.Data()
	assert.Equal(t, []byte{0x42, 1, 2, 3, 0x43}, data)
}
