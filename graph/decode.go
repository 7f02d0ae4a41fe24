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

	"github.com/graphzip/graphzip/bitio"
	"github.com/graphzip/graphzip/entropy"
	"github.com/graphzip/graphzip/internal"
)

// decodeGraph replays the per-vertex token stream, reconstructing every
// adjacency list by interleaving copies from a previously decoded list with
// delta-coded residuals. It keeps a ring of the last numAdjLists lists, so
// the memory footprint is independent of the graph size. edge is called for
// every decoded edge in vertex order; if nodeStarts is non-nil, the bit
// offset of every vertex's first token is appended to it.
func decodeGraph(n uint64, allowRandomAccess bool, sr entropy.SymbolReader, br *bitio.Reader, edge func(i uint64, x uint32), nodeStarts *[]uint64) error {
	ringSize := uint64(numAdjLists)
	if n < ringSize {
		ringSize = n
	}
	ring := make([][]uint32, ringSize)
	var blocks []uint32

	effRleMin := rleMin
	if !allowRandomAccess {
		effRleMin = int(^uint(0) >> 1)
	}

	// The three quantities below reset every degreeReferenceChunkSize
	// vertices in random-access mode.
	//
	// Previous degree, for degree delta coding.
	var prevDegree uint64
	// Last degree delta, for context modeling.
	var lastDegreeDelta uint64
	// Last reference offset, for context modeling.
	var lastReference uint64

	for i := uint64(0); i < n; i++ {
		if nodeStarts != nil {
			*nodeStarts = append(*nodeStarts, br.BitOffset())
		}
		iMod := i % ringSize
		ring[iMod] = ring[iMod][:0]
		blocks = blocks[:0]

		var degree uint64
		if (allowRandomAccess && i%degreeReferenceChunkSize == 0) || i == 0 {
			lastDegreeDelta = entropy.Read(firstDegreeContext, br, sr)
			degree = lastDegreeDelta
			lastReference = 0
		} else {
			ctx := degreeContext(lastDegreeDelta)
			lastDegreeDelta = entropy.Read(ctx, br, sr)
			degree = uint64(int64(prevDegree) + internal.UnpackSigned(lastDegreeDelta))
		}
		prevDegree = degree
		if degree > n {
			return fmt.Errorf("graph: invalid degree %d for vertex %d", degree, i)
		}
		if degree == 0 {
			continue
		}

		// Offset of the previously decoded list to diff against; zero means
		// no reference.
		var reference uint64
		if i != 0 {
			reference = entropy.Read(referenceContext(lastReference), br, sr)
			lastReference = reference
		}
		if reference > i {
			return fmt.Errorf("graph: invalid reference %d for vertex %d", reference, i)
		}

		refID := (i - reference) % ringSize
		refList := ring[refID]

		// With a reference, read the list of blocks of alternating copied
		// and skipped reference entries.
		var copied uint64
		if reference != 0 {
			blockCount := entropy.Read(blockCountContext, br, sr)
			pos := uint64(0)
			for j := uint64(0); j < blockCount; j++ {
				ctx := blockContext
				if j != 0 {
					if j%2 == 0 {
						ctx = blockContextEven
					} else {
						ctx = blockContextOdd
					}
				}
				block := entropy.Read(ctx, br, sr)
				if j != 0 {
					block++
				}
				pos += block
				if pos > uint64(len(refList)) {
					return fmt.Errorf("graph: invalid block copy pattern for vertex %d", i)
				}
				blocks = append(blocks, uint32(block))
			}
			// The last block is implicit and goes to the end of the
			// reference list.
			blocks = append(blocks, uint32(uint64(len(refList))-pos))
			for j := 0; j < len(blocks); j += 2 {
				copied += uint64(blocks[j])
			}
		}
		if copied > degree {
			return fmt.Errorf("graph: invalid copy count for vertex %d", i)
		}

		// Base for delta coding of the next residual.
		lastDestPlusOne := i
		numResiduals := degree - copied
		// Last residual delta, for context modeling.
		var lastDelta uint64
		// Cursor into the reference list.
		refPos := 0
		// Entries of the current block still to be copied.
		toCopy := 0
		if len(blocks) > 0 {
			toCopy = int(blocks[0])
		}
		nextBlock := 1
		// Nothing to copy from the first block: skip ahead to the next
		// even-positioned block, if any.
		if toCopy == 0 && len(blocks) > 2 {
			refPos = int(blocks[1])
			toCopy = int(blocks[2])
			nextBlock = 3
		}
		// Number of consecutive zero deltas decoded last.
		zeroRun := 0
		// Number of further zero deltas that must not be read.
		rleZeros := uint64(0)

		appendEdge := func(x uint32) error {
			if uint64(x) >= n {
				return fmt.Errorf("graph: invalid neighbour %d of vertex %d", x, i)
			}
			ring[iMod] = append(ring[iMod], x)
			edge(i, x)
			return nil
		}
		for j := uint64(0); j < numResiduals; j++ {
			var dest uint64
			if j == 0 {
				lastDelta = entropy.Read(firstResidualContext(numResiduals), br, sr)
				dest = uint64(int64(i) + internal.UnpackSigned(lastDelta))
			} else if rleZeros > 0 {
				// In a zero run, nothing is read from the stream.
				lastDelta = 0
				dest = lastDestPlusOne
			} else {
				lastDelta = entropy.Read(residualContext(lastDelta), br, sr)
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
			// Merge the copied reference entries with the residual stream.
			for toCopy > 0 && uint64(refList[refPos]) <= dest {
				toCopy--
				if err := appendEdge(refList[refPos]); err != nil {
					return err
				}
				// The delta coding runs over the merged list: a copied entry
				// at or above the base shifts the destination up by one.
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
			// A long enough run of zeros is followed by the number of
			// further zero deltas to synthesize.
			if zeroRun >= effRleMin {
				rleZeros = entropy.Read(rleContext, br, sr)
				zeroRun = 0
			}
			if dest >= n {
				return fmt.Errorf("graph: invalid neighbour %d of vertex %d", dest, i)
			}
			if err := appendEdge(uint32(dest)); err != nil {
				return err
			}
			lastDestPlusOne = dest + 1
		}
		// Drain the rest of the block-copy list.
		for toCopy > 0 {
			toCopy--
			if err := appendEdge(refList[refPos]); err != nil {
				return err
			}
			refPos++
			if toCopy == 0 && nextBlock+1 < len(blocks) {
				refPos += int(blocks[nextBlock])
				toCopy = int(blocks[nextBlock+1])
				nextBlock += 2
			}
		}
	}
	if !sr.CheckFinalState() {
		return fmt.Errorf("graph: invalid final coder state")
	}
	return nil
}

// decodeStream parses the container header, builds the entropy reader for
// the mode the stream was encoded in, and replays the body.
func decodeStream(compressed []byte, edge func(i uint64, x uint32), nodeStarts *[]uint64) (uint64, error) {
	if len(compressed) == 0 {
		return 0, fmt.Errorf("graph: empty stream")
	}
	br := bitio.NewReader(compressed)
	n := br.Read(48)
	allowRandomAccess := br.Read(1) != 0
	if allowRandomAccess {
		var hr entropy.HuffmanReader
		if err := hr.Init(numContexts, br); err != nil {
			return 0, err
		}
		return n, decodeGraph(n, true, &hr, br, edge, nodeStarts)
	}
	var ar entropy.ANSReader
	if err := ar.Init(numContexts, br); err != nil {
		return 0, err
	}
	return n, decodeGraph(n, false, &ar, br, edge, nodeStarts)
}

// Decode reconstructs the full graph from a compressed stream, returning it
// together with the edge checksum of the decoded adjacency structure.
func Decode(compressed []byte) (*Uncompressed, uint64, error) {
	var adjacency [][]uint32
	var chk uint64
	n, err := decodeStream(compressed, func(i uint64, x uint32) {
		for uint64(len(adjacency)) <= i {
			adjacency = append(adjacency, nil)
		}
		adjacency[i] = append(adjacency[i], x)
		chk = Checksum(chk, i, uint64(x))
	}, nil)
	if err != nil {
		return nil, 0, err
	}
	// Trailing zero-degree vertices emit no edges.
	for uint64(len(adjacency)) < n {
		adjacency = append(adjacency, nil)
	}
	g, err := NewUncompressed(adjacency)
	if err != nil {
		return nil, 0, err
	}
	return g, chk, nil
}
