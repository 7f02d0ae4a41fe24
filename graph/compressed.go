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

	"github.com/graphzip/graphzip/bitio"
	"github.com/graphzip/graphzip/entropy"
	"github.com/graphzip/graphzip/internal"
)

// Compressed is a random-access view of a compressed stream encoded with
// AllowRandomAccess. Opening it validates the whole stream once and records
// the bit offset of every vertex; Degree and Neighbours then seek straight
// to a vertex and replay only its chunk.
//
// Every call builds its own bit reader over the shared immutable buffer, so
// concurrent calls on one Compressed are safe. Degree and Neighbours panic
// if the buffer is corrupted after OpenCompressed validated it.
type Compressed struct {
	numNodes   uint64
	data       []byte
	nodeStarts []uint64
	hr         entropy.HuffmanReader
}

// OpenCompressed parses the header of a random-access stream, builds the
// entropy tables, and indexes the bit offset of every vertex by running one
// full validating decode.
func OpenCompressed(data []byte) (*Compressed, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("graph: empty stream")
	}
	br := bitio.NewReader(data)
	n := br.Read(48)
	if br.Read(1) == 0 {
		return nil, fmt.Errorf("graph: stream does not allow random access")
	}
	c := &Compressed{numNodes: n, data: data}
	if err := c.hr.Init(numContexts, br); err != nil {
		return nil, err
	}
	c.nodeStarts = make([]uint64, 0, n)
	if _, err := decodeStream(data, func(uint64, uint32) {}, &c.nodeStarts); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCompressed opens a random-access stream from a file.
func LoadCompressed(path string) (*Compressed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return OpenCompressed(data)
}

// Size returns the number of vertices.
func (c *Compressed) Size() int {
	return int(c.numNodes)
}

func (c *Compressed) readerAt(nodeID uint64) *bitio.Reader {
	return bitio.NewReaderAt(c.data, c.nodeStarts[nodeID])
}

func (c *Compressed) readDegreeBits(nodeID uint64, ctx int) uint64 {
	return entropy.Read(ctx, c.readerAt(nodeID), &c.hr)
}

// readDegreeAndRefBits decodes the degree token of nodeID and the reference
// token right after it. For a zero-degree vertex the reference token is not
// in the stream; the garbage value read then is discarded by the caller.
func (c *Compressed) readDegreeAndRefBits(nodeID uint64, ctx int, lastReference uint64) (uint64, uint64) {
	br := c.readerAt(nodeID)
	degree := entropy.Read(ctx, br, &c.hr)
	var reference uint64
	if nodeID != 0 {
		reference = entropy.Read(referenceContext(lastReference), br, &c.hr)
	}
	return degree, reference
}

// Degree decodes the out-degree of vertex i by replaying the degree deltas
// of its chunk.
func (c *Compressed) Degree(i int) int {
	nodeID := uint64(i)
	first := nodeID - nodeID%degreeReferenceChunkSize
	degree := c.readDegreeBits(first, firstDegreeContext)
	lastDegreeDelta := degree
	for node := first + 1; node <= nodeID; node++ {
		ctx := degreeContext(lastDegreeDelta)
		lastDegreeDelta = c.readDegreeBits(node, ctx)
		degree = uint64(int64(degree) + internal.UnpackSigned(lastDegreeDelta))
	}
	if degree > c.numNodes {
		panic("graph: invalid degree")
	}
	return int(degree)
}

// Neighbours decodes the adjacency list of vertex i, resolving its
// reference chain recursively. Chain depth is bounded by the encoder.
func (c *Compressed) Neighbours(i int) []uint32 {
	nodeID := uint64(i)
	br := c.readerAt(nodeID)

	first := nodeID - nodeID%degreeReferenceChunkSize
	var degree uint64
	var lastDegreeDelta uint64
	var lastReference uint64
	if first != nodeID {
		// Replay the chunk up to i to recover the degree delta base and the
		// reference context. Zero-degree vertices have no reference token in
		// the stream, so they do not shift the context.
		deg, ref := c.readDegreeAndRefBits(first, firstDegreeContext, 0)
		if deg != 0 {
			lastReference = ref
		}
		degree = deg
		lastDegreeDelta = deg
		for node := first + 1; node < nodeID; node++ {
			ctx := degreeContext(lastDegreeDelta)
			delta, ref := c.readDegreeAndRefBits(node, ctx, lastReference)
			lastDegreeDelta = delta
			degree = uint64(int64(degree) + internal.UnpackSigned(delta))
			if degree != 0 {
				lastReference = ref
			}
		}
		ctx := degreeContext(lastDegreeDelta)
		lastDegreeDelta = entropy.Read(ctx, br, &c.hr)
		degree = uint64(int64(degree) + internal.UnpackSigned(lastDegreeDelta))
	} else {
		degree = entropy.Read(firstDegreeContext, br, &c.hr)
	}

	if degree == 0 {
		return nil
	}

	var reference uint64
	if nodeID != 0 {
		reference = entropy.Read(referenceContext(lastReference), br, &c.hr)
	}

	if degree > c.numNodes {
		panic("graph: invalid degree")
	}
	if reference > nodeID {
		panic("graph: invalid reference")
	}

	var refList []uint32
	var blocks []uint32
	var numToCopy uint64
	if reference != 0 {
		refList = c.Neighbours(int(nodeID - reference))
		blockCount := entropy.Read(blockCountContext, br, &c.hr)
		blockEnd := uint64(0)
		for j := uint64(0); j < blockCount; j++ {
			ctx := blockContext
			if j != 0 {
				if j%2 == 0 {
					ctx = blockContextEven
				} else {
					ctx = blockContextOdd
				}
			}
			block := entropy.Read(ctx, br, &c.hr)
			if j != 0 {
				block++
			}
			blockEnd += block
			if blockEnd > uint64(len(refList)) {
				panic("graph: invalid block copy pattern")
			}
			blocks = append(blocks, uint32(block))
		}
		blocks = append(blocks, uint32(uint64(len(refList))-blockEnd))
		for j := 0; j < len(blocks); j += 2 {
			numToCopy += uint64(blocks[j])
		}
	}
	if numToCopy > degree {
		panic("graph: invalid copy count")
	}

	neighbours := make([]uint32, 0, degree)
	var lastDestPlusOne uint64
	numResiduals := degree - numToCopy
	var lastDelta uint64
	refPos := 0
	toCopy := 0
	if len(blocks) > 0 {
		toCopy = int(blocks[0])
	}
	nextBlock := 1
	if toCopy == 0 && len(blocks) > 2 {
		refPos = int(blocks[1])
		toCopy = int(blocks[2])
		nextBlock = 3
	}
	zeroRun := 0
	rleZeros := uint64(0)
	appendEdge := func(x uint32) {
		if uint64(x) >= c.numNodes {
			panic("graph: invalid neighbour")
		}
		neighbours = append(neighbours, x)
	}
	for j := uint64(0); j < numResiduals; j++ {
		var dest uint64
		if j == 0 {
			lastDelta = entropy.Read(firstResidualContext(numResiduals), br, &c.hr)
			dest = uint64(int64(nodeID) + internal.UnpackSigned(lastDelta))
		} else if rleZeros > 0 {
			lastDelta = 0
			dest = lastDestPlusOne
		} else {
			lastDelta = entropy.Read(residualContext(lastDelta), br, &c.hr)
			dest = lastDestPlusOne + lastDelta
		}
		if lastDelta == 0 && rleZeros == 0 {
			zeroRun++
		} else {
			zeroRun = 0
		}
		if rleZeros > 0 {
			rleZeros--
		}
		for toCopy > 0 && uint64(refList[refPos]) <= dest {
			toCopy--
			appendEdge(refList[refPos])
			if j != 0 && uint64(refList[refPos]) >= lastDestPlusOne {
				dest++
			}
			refPos++
			if toCopy == 0 && nextBlock+1 < len(blocks) {
				refPos += int(blocks[nextBlock])
				toCopy = int(blocks[nextBlock+1])
				nextBlock += 2
			}
		}
		if zeroRun >= rleMin {
			rleZeros = entropy.Read(rleContext, br, &c.hr)
			zeroRun = 0
		}
		if dest >= c.numNodes {
			panic("graph: invalid neighbour")
		}
		appendEdge(uint32(dest))
		lastDestPlusOne = dest + 1
	}
	for toCopy > 0 {
		toCopy--
		appendEdge(refList[refPos])
		refPos++
		if toCopy == 0 && nextBlock+1 < len(blocks) {
			refPos += int(blocks[nextBlock])
			toCopy = int(blocks[nextBlock+1])
			nextBlock += 2
		}
	}
	return neighbours
}
