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

package graph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRandomAccess(t *testing.T, g *Uncompressed) *Compressed {
	data, _, err := Encode(g, EncodeOptions{AllowRandomAccess: true})
	require.NoError(t, err)
	c, err := OpenCompressed(data)
	require.NoError(t, err)
	return c
}

func TestRandomAccessSmall(t *testing.T) {
	g := smallGraph(t)
	c := openRandomAccess(t, g)
	require.Equal(t, 3, c.Size())
	assert.Equal(t, 2, c.Degree(0))
	assert.Equal(t, 2, c.Degree(1))
	assert.Equal(t, 1, c.Degree(2))
	assert.Equal(t, []uint32{0, 1}, c.Neighbours(0))
	assert.Equal(t, []uint32{1, 2}, c.Neighbours(1))
	assert.Equal(t, []uint32{0}, c.Neighbours(2))
}

func TestRandomAccessMatchesStreamingDecode(t *testing.T) {
	g := randomGraph(t, 500, 10, 99)
	data, _, err := Encode(g, EncodeOptions{AllowRandomAccess: true})
	require.NoError(t, err)
	decoded, _, err := Decode(data)
	require.NoError(t, err)
	c, err := OpenCompressed(data)
	require.NoError(t, err)
	require.Equal(t, decoded.Size(), c.Size())

	rng := rand.New(rand.NewSource(123))
	for trial := 0; trial < 100; trial++ {
		i := rng.Intn(decoded.Size())
		require.Equal(t, decoded.Degree(i), c.Degree(i), "degree of vertex %d", i)
		want := decoded.Neighbours(i)
		got := c.Neighbours(i)
		if len(want) == 0 {
			require.Empty(t, got, "vertex %d", i)
		} else {
			require.Equal(t, want, got, "vertex %d", i)
		}
	}
}

func TestRandomAccessAllVertices(t *testing.T) {
	g := randomGraph(t, 130, 5, 7)
	c := openRandomAccess(t, g)
	for i := 0; i < g.Size(); i++ {
		require.Equal(t, g.Degree(i), c.Degree(i), "degree of vertex %d", i)
		if g.Degree(i) == 0 {
			require.Empty(t, c.Neighbours(i), "vertex %d", i)
		} else {
			require.Equal(t, g.Neighbours(i), c.Neighbours(i), "vertex %d", i)
		}
	}
}

func TestRandomAccessZeroDegrees(t *testing.T) {
	adjacency := make([][]uint32, 70)
	for i := 3; i < 70; i += 5 {
		adjacency[i] = []uint32{uint32(i % 7), uint32(20 + i%11)}
		sortUint32(adjacency[i])
		adjacency[i] = dedupUint32(adjacency[i])
	}
	g, err := NewUncompressed(adjacency)
	require.NoError(t, err)
	c := openRandomAccess(t, g)
	for i := 0; i < g.Size(); i++ {
		require.Equal(t, g.Degree(i), c.Degree(i), "degree of vertex %d", i)
	}
}

func dedupUint32(s []uint32) []uint32 {
	out := s[:0]
	for i, x := range s {
		if i == 0 || x != s[i-1] {
			out = append(out, x)
		}
	}
	return out
}

func TestOpenRejectsSequentialStream(t *testing.T) {
	g := smallGraph(t)
	data, _, err := Encode(g, EncodeOptions{})
	require.NoError(t, err)
	_, err = OpenCompressed(data)
	assert.ErrorContains(t, err, "random access")
}

func TestOpenRejectsEmptyStream(t *testing.T) {
	_, err := OpenCompressed(nil)
	assert.Error(t, err)
}
