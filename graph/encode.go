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
	"math"
	"slices"

	"github.com/graphzip/graphzip/bitio"
	"github.com/graphzip/graphzip/entropy"
	"github.com/graphzip/graphzip/internal"
)

// EncodeOptions control the encoder. The zero value produces a sequential
// (ANS-coded) stream with a single reference-selection round.
type EncodeOptions struct {
	// AllowRandomAccess switches the stream to the Huffman-coded,
	// chunk-delta-coded layout that a Compressed reader can seek into.
	AllowRandomAccess bool
	// NumRounds is the number of reference-selection rounds; more rounds
	// refine the cost model at the price of encoding time. Values below 1
	// mean 1.
	NumRounds int
}

// computeBlocksAndResiduals merges the adjacency list of vertex i with the
// one of vertex i-ref. Blocks alternate runs of copied and skipped
// reference entries, starting with a copy run (possibly of length zero);
// residuals collect the neighbours of i that the reference does not supply.
func computeBlocksAndResiduals(g *Uncompressed, i, ref int, blocks, residuals *[]uint32) {
	*blocks = (*blocks)[:0]
	*residuals = (*residuals)[:0]
	a := g.Neighbours(i)
	b := g.Neighbours(i - ref)
	ipos, rpos := 0, 0
	isSame := true
	*blocks = append(*blocks, 0)
	for ipos < len(a) && rpos < len(b) {
		switch {
		case a[ipos] == b[rpos]:
			ipos++
			rpos++
			if !isSame {
				*blocks = append(*blocks, 0)
			}
			(*blocks)[len(*blocks)-1]++
			isSame = true
		case a[ipos] < b[rpos]:
			*residuals = append(*residuals, a[ipos])
			ipos++
		default: // a > b
			if isSame {
				*blocks = append(*blocks, 0)
			}
			(*blocks)[len(*blocks)-1]++
			isSame = false
			rpos++
		}
	}
	*residuals = append(*residuals, a[ipos:]...)
	slices.Sort(*residuals)
	// The final block is implicit on the decoder side: drop the trailing
	// entry unless it is a copy run that stops short of the reference tail.
	if rpos == len(b) || !isSame {
		*blocks = (*blocks)[:len(*blocks)-1]
	}
}

// processBlocks emits the block count and the block lengths (first one
// as-is, later ones decremented), feeding every copied reference neighbour
// to copyCb.
func processBlocks(blocks []uint32, g *Uncompressed, i, reference int, copyCb func(uint32), cb func(ctx int, v uint64)) {
	cb(blockCountContext, uint64(len(blocks)))
	refList := g.Neighbours(i - reference)
	copying := true
	pos := 0
	for j, b := range blocks {
		v := uint64(b)
		if j != 0 {
			v--
		}
		ctx := blockContext
		if j != 0 {
			if j%2 == 0 {
				ctx = blockContextEven
			} else {
				ctx = blockContextOdd
			}
		}
		cb(ctx, v)
		if copying {
			for k := 0; k < int(b); k++ {
				copyCb(refList[pos])
				pos++
			}
		} else {
			pos += int(b)
		}
		copying = !copying
	}
	if copying {
		for ; pos < len(refList); pos++ {
			copyCb(refList[pos])
		}
	}
}

// processResiduals delta-codes the residual neighbours of vertex i against
// both the previous residual and the copied reference entries in adjBlock.
// When random access is enabled, a run of zero deltas at least rleMin long
// keeps its first rleMin zeros; the rest are rewound through undoCb and
// replaced by a single run-length token holding their count.
func processResiduals(residuals []uint32, i int, adjBlock []uint32, allowRandomAccess bool, undoCb func(), cb func(ctx int, v uint64)) {
	ref := uint64(i)
	var lastDelta uint64
	adjPos := 0
	zeroRun := 0
	flushRle := func() {
		if zeroRun >= rleMin && allowRandomAccess {
			for cnt := rleMin; cnt < zeroRun; cnt++ {
				undoCb()
			}
			cb(rleContext, uint64(zeroRun-rleMin))
		}
	}
	for j := range residuals {
		var ctx int
		if j == 0 {
			ctx = firstResidualContext(uint64(len(residuals)))
			lastDelta = internal.PackSigned(int64(residuals[j]) - int64(i))
		} else {
			ctx = residualContext(lastDelta)
			lastDelta = uint64(residuals[j]) - ref
			for adjPos < len(adjBlock) && uint64(adjBlock[adjPos]) < ref {
				adjPos++
			}
			// Copied neighbours below the current residual shrink the
			// delta; the decoder undoes this while merging.
			for adjPos < len(adjBlock) && adjBlock[adjPos] < residuals[j] {
				lastDelta--
				adjPos++
			}
		}
		if lastDelta != 0 {
			flushRle()
			zeroRun = 0
		}
		if lastDelta == 0 {
			zeroRun++
		}
		cb(ctx, lastDelta)
		ref = uint64(residuals[j]) + 1
	}
	flushRle()
}

// updateReferencesForMaxLength clears references so that no chain of
// i -> i-references[i] links is longer than maxLength, maximizing the total
// saved cost that is kept. The inverse links form a forest; a
// reverse-index dynamic program picks, for every available inbound budget,
// whether keeping the parent link beats restarting the budget.
func updateReferencesForMaxLength(savedCosts []float64, references []uint32, maxLength int) {
	n := len(references)
	outEdges := make([][]uint32, n)
	for i := 0; i < n; i++ {
		if references[i] != 0 {
			p := i - int(references[i])
			outEdges[p] = append(outEdges[p], uint32(i))
		}
	}
	stride := maxLength + 1
	dyn := make([]float64, n*stride)
	choice := make([]bool, n*stride) // true -> keep the reference
	for i := n - 1; i >= 0; i-- {
		var childSumFullChain float64
		for _, child := range outEdges[i] {
			childSumFullChain += dyn[int(child)*stride+maxLength]
		}
		dyn[i*stride] = childSumFullChain
		for linksToUse := 1; linksToUse <= maxLength; linksToUse++ {
			childSum := savedCosts[i]
			for _, child := range outEdges[i] {
				childSum += dyn[int(child)*stride+linksToUse-1]
			}
			if childSum > childSumFullChain {
				choice[i*stride+linksToUse] = true
				dyn[i*stride+linksToUse] = childSum
			} else {
				dyn[i*stride+linksToUse] = childSumFullChain
			}
		}
	}
	availableLength := make([]int, n)
	for i := range availableLength {
		availableLength[i] = maxLength
	}
	for i := 0; i < n; i++ {
		if choice[i*stride+availableLength[i]] {
			for _, child := range outEdges[i] {
				availableLength[child] = availableLength[i] - 1
			}
		} else {
			references[i] = 0
		}
	}
}

// Encode compresses g into the bit-exact container layout: 48 bits of
// vertex count, one random-access flag bit, the entropy tables, and the
// per-vertex token stream. It returns the compressed bytes and the edge
// checksum of the input.
func Encode(g *Uncompressed, opts EncodeOptions) ([]byte, uint64, error) {
	n := g.Size()
	for i := 0; i < n; i++ {
		for _, x := range g.Neighbours(i) {
			if int(x) >= n {
				return nil, 0, fmt.Errorf("graph: neighbour %d of vertex %d out of range", x, i)
			}
		}
	}
	rounds := opts.NumRounds
	if rounds < 1 {
		rounds = 1
	}

	var w bitio.Writer
	w.Reserve(64)
	w.Write(48, uint64(n))
	w.Write(1, uint64(internal.BoolToInt(opts.AllowRandomAccess)))

	references := make([]uint32, n)
	savedCosts := make([]float64, n)
	symbolCost := make([]float64, numContexts*entropy.NumSymbols)
	for i := range symbolCost {
		symbolCost[i] = 1
	}
	symbolCount := make([][]int, numContexts)
	for i := range symbolCount {
		symbolCount[i] = make([]int, entropy.NumSymbols)
	}
	var residuals, blocks, adjBlock []uint32

	var c float64
	tokenCost := func(ctx int, v uint64) {
		c += entropy.Cost(ctx, v, symbolCost)
		symbolCount[ctx][entropy.Token(v)]++
	}
	// Very rough estimate of what undoing one zero delta gives back.
	rleUndo := func() {
		c -= symbolCost[residualBaseContext*entropy.NumSymbols]
	}
	appendAdj := func(x uint32) {
		adjBlock = append(adjBlock, x)
	}

	for round := 0; round < rounds; round++ {
		for i := range references {
			references[i] = 0
		}

		for i := 0; i < n; i++ {
			// Cost without block copying.
			c = 0
			adjBlock = adjBlock[:0]
			residuals = append(residuals[:0], g.Neighbours(i)...)
			processResiduals(residuals, i, adjBlock, opts.AllowRandomAccess, rleUndo, tokenCost)
			cost := c
			baseCost := c
			savedCosts[i] = 0

			for ref := 1; ref <= min(searchWindow, i); ref++ {
				adjBlock = adjBlock[:0]
				c = 0
				computeBlocksAndResiduals(g, i, ref, &blocks, &residuals)
				processBlocks(blocks, g, i, ref, appendAdj, tokenCost)
				processResiduals(residuals, i, adjBlock, opts.AllowRandomAccess, rleUndo, tokenCost)
				if c+1e-6 < cost {
					references[i] = uint32(ref)
					cost = c
					savedCosts[i] = baseCost - c
				}
			}
		}

		// Random access bounds the length of reference chains; drop the
		// least valuable links, then greedily restore references wherever a
		// link still fits under the bound.
		if opts.AllowRandomAccess {
			updateReferencesForMaxLength(savedCosts, references, maxChainLength)
			chainLength := make([]int, n)
			for i := 0; i < n; i++ {
				if references[i] != 0 {
					chainLength[i] = chainLength[i-int(references[i])] + 1
				}
			}
			fwdChainLength := make([]int, n)
			for i := n - 1; i >= 0; i-- {
				if references[i] != 0 {
					p := i - int(references[i])
					fwdChainLength[p] = max(fwdChainLength[i]+1, fwdChainLength[p])
				}
			}
			for i := 0; i < n; i++ {
				if references[i] != 0 {
					chainLength[i] = chainLength[i-int(references[i])] + 1
					continue
				}
				c = 0
				adjBlock = adjBlock[:0]
				residuals = append(residuals[:0], g.Neighbours(i)...)
				processResiduals(residuals, i, adjBlock, opts.AllowRandomAccess, rleUndo, tokenCost)
				cost := c

				for ref := 1; ref <= min(searchWindow, i); ref++ {
					if chainLength[i-ref]+fwdChainLength[i]+1 > maxChainLength {
						continue
					}
					adjBlock = adjBlock[:0]
					c = 0
					computeBlocksAndResiduals(g, i, ref, &blocks, &residuals)
					processBlocks(blocks, g, i, ref, appendAdj, tokenCost)
					processResiduals(residuals, i, adjBlock, opts.AllowRandomAccess, rleUndo, tokenCost)
					if c+1e-6 < cost {
						references[i] = uint32(ref)
						cost = c
					}
				}
				if references[i] != 0 {
					chainLength[i] = chainLength[i-int(references[i])] + 1
				}
			}
		}

		for i := range symbolCount {
			for s := range symbolCount[i] {
				symbolCount[i][s] = 0
			}
		}

		if round+1 != rounds {
			// Re-tally the histograms of the chosen selection and refine the
			// cost table for the next round.
			for i := 0; i < n; i++ {
				adjBlock = adjBlock[:0]
				if references[i] == 0 {
					residuals = append(residuals[:0], g.Neighbours(i)...)
				} else {
					computeBlocksAndResiduals(g, i, int(references[i]), &blocks, &residuals)
					processBlocks(blocks, g, i, int(references[i]), appendAdj, tokenCost)
				}
				processResiduals(residuals, i, adjBlock, opts.AllowRandomAccess, rleUndo, tokenCost)
			}
			for i := 0; i < numContexts; i++ {
				total := 0
				for _, cnt := range symbolCount[i] {
					total += cnt
				}
				if total == 0 {
					continue
				}
				for s := range symbolCount[i] {
					cnt := math.Max(float64(symbolCount[i][s]), 0.1)
					symbolCost[i*entropy.NumSymbols+s] = math.Log(float64(total) / cnt)
					symbolCount[i][s] = 0
				}
			}
		}
	}

	// Token emission.
	var tokens entropy.Stream
	var lastReference uint64
	var lastDegreeDelta uint64
	prevDegree := 0
	for i := 0; i < n; i++ {
		degree := g.Degree(i)
		if (opts.AllowRandomAccess && i%degreeReferenceChunkSize == 0) || i == 0 {
			lastReference = 0
			lastDegreeDelta = uint64(degree)
			tokens.Add(firstDegreeContext, lastDegreeDelta)
		} else {
			ctx := degreeContext(lastDegreeDelta)
			lastDegreeDelta = internal.PackSigned(int64(degree) - int64(prevDegree))
			tokens.Add(ctx, lastDegreeDelta)
		}
		prevDegree = degree
		if degree == 0 {
			continue
		}
		reference := int(references[i])
		if reference == 0 {
			blocks = blocks[:0]
			residuals = append(residuals[:0], g.Neighbours(i)...)
		} else {
			computeBlocksAndResiduals(g, i, reference, &blocks, &residuals)
		}
		adjBlock = adjBlock[:0]
		if i != 0 {
			tokens.Add(referenceContext(lastReference), uint64(reference))
			lastReference = uint64(reference)
			if reference != 0 {
				processBlocks(blocks, g, i, reference, appendAdj,
					func(ctx int, v uint64) { tokens.Add(ctx, v) })
			}
		}
		processResiduals(residuals, i, adjBlock, opts.AllowRandomAccess,
			func() { tokens.RemoveLast() },
			func(ctx int, v uint64) { tokens.Add(ctx, v) })
	}

	if opts.AllowRandomAccess {
		entropy.HuffmanEncode(&tokens, numContexts, &w)
	} else {
		entropy.ANSEncode(&tokens, numContexts, &w)
	}
	return w.Data(), g.Checksum(), nil
}
