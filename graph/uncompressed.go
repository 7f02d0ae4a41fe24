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
	"fmt"
	"os"

	"github.com/graphzip/graphzip/internal"
	"github.com/twmb/murmur3"
)

// Fingerprint of the uncompressed graph container: the number of bytes used
// for edge offsets followed by the number of bytes used for vertex ids.
const fingerprint uint64 = 8<<4 | 4

// Uncompressed is a directed graph stored as concatenated ascending
// adjacency lists with a prefix-sum offset array.
//
// Container format:
//   - 8 bytes of fingerprint
//   - 4 bytes for the number of vertices N
//   - (N+1) 8-byte integers holding the index of the first edge of the i-th
//     adjacency list; the last one is the total number of edges M
//   - M 4-byte integers holding the destination vertex of each edge
//
// All fields are little endian.
type Uncompressed struct {
	starts []uint64
	neighs []uint32
}

// NewUncompressed builds a graph from adjacency lists. Every list must be
// sorted ascending and every neighbour id must be below len(adjacency).
func NewUncompressed(adjacency [][]uint32) (*Uncompressed, error) {
	n := len(adjacency)
	starts := make([]uint64, n+1)
	total := 0
	for i, l := range adjacency {
		starts[i] = uint64(total)
		total += len(l)
	}
	starts[n] = uint64(total)
	neighs := make([]uint32, 0, total)
	for i, l := range adjacency {
		last := -1
		for _, x := range l {
			if int(x) >= n {
				return nil, fmt.Errorf("graph: neighbour %d of vertex %d out of range", x, i)
			}
			if int(x) <= last {
				return nil, fmt.Errorf("graph: neighbours of vertex %d not sorted ascending", i)
			}
			last = int(x)
			neighs = append(neighs, x)
		}
	}
	return &Uncompressed{starts: starts, neighs: neighs}, nil
}

// ParseUncompressed reads a graph from its container bytes.
func ParseUncompressed(data []byte) (*Uncompressed, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("graph: container truncated")
	}
	if internal.GetLongLE(data, 0) != fingerprint {
		return nil, fmt.Errorf("graph: invalid fingerprint")
	}
	n := int(internal.GetIntLE(data, 8))
	offsetsEnd := 12 + 8*(n+1)
	if len(data) < offsetsEnd {
		return nil, fmt.Errorf("graph: container truncated")
	}
	starts := make([]uint64, n+1)
	for i := range starts {
		starts[i] = internal.GetLongLE(data, 12+8*i)
	}
	m := starts[n]
	if uint64(len(data)) < uint64(offsetsEnd)+4*m {
		return nil, fmt.Errorf("graph: container truncated")
	}
	neighs := make([]uint32, m)
	for i := range neighs {
		neighs[i] = internal.GetIntLE(data, offsetsEnd+4*i)
	}
	for i := 0; i < n; i++ {
		if starts[i] > starts[i+1] {
			return nil, fmt.Errorf("graph: offsets of vertex %d not monotonic", i)
		}
	}
	return &Uncompressed{starts: starts, neighs: neighs}, nil
}

// LoadUncompressed reads a graph container from a file.
func LoadUncompressed(path string) (*Uncompressed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseUncompressed(data)
}

// Bytes serializes the graph to its container format.
func (g *Uncompressed) Bytes() []byte {
	n := g.Size()
	data := make([]byte, 12+8*(n+1)+4*len(g.neighs))
	internal.PutLongLE(data, 0, fingerprint)
	internal.PutIntLE(data, 8, uint32(n))
	for i, s := range g.starts {
		internal.PutLongLE(data, 12+8*i, s)
	}
	base := 12 + 8*(n+1)
	for i, x := range g.neighs {
		internal.PutIntLE(data, base+4*i, x)
	}
	return data
}

// Size returns the number of vertices.
func (g *Uncompressed) Size() int {
	return len(g.starts) - 1
}

// NumEdges returns the number of edges.
func (g *Uncompressed) NumEdges() int {
	return len(g.neighs)
}

// Degree returns the out-degree of vertex i.
func (g *Uncompressed) Degree(i int) int {
	return int(g.starts[i+1] - g.starts[i])
}

// Neighbours returns the ascending adjacency list of vertex i. The returned
// slice aliases the graph storage and must not be modified.
func (g *Uncompressed) Neighbours(i int) []uint32 {
	return g.neighs[g.starts[i]:g.starts[i+1]]
}

// Checksum returns the edge checksum of the whole graph.
func (g *Uncompressed) Checksum() uint64 {
	var chk uint64
	for i := 0; i < g.Size(); i++ {
		for _, x := range g.Neighbours(i) {
			chk = Checksum(chk, uint64(i), uint64(x))
		}
	}
	return chk
}

// Signature returns a 128-bit digest of the adjacency structure, usable for
// cheap equality checks between graphs.
func (g *Uncompressed) Signature() (uint64, uint64) {
	h := murmur3.New128()
	var buf [8]byte
	for i := 0; i <= g.Size(); i++ {
		internal.PutLongLE(buf[:], 0, g.starts[i])
		h.Write(buf[:])
	}
	for _, x := range g.neighs {
		internal.PutIntLE(buf[:4], 0, x)
		h.Write(buf[:4])
	}
	return h.Sum128()
}
