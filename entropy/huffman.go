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
	"sort"

	"github.com/graphzip/graphzip/bitio"
)

// maxHuffmanBits is the longest allowed Huffman code, which is also the
// width of the decoder lookup table index.
const maxHuffmanBits = 8

type huffmanSymbolInfo struct {
	present bool
	nbits   uint8
	bits    uint8
}

type huffmanDecoderInfo struct {
	nbits  uint8
	symbol uint8
}

var nibbleFlip = [16]uint8{
	0b0000, 0b1000, 0b0100, 0b1100, 0b0010, 0b1010, 0b0110, 0b1110,
	0b0001, 0b1001, 0b0101, 0b1101, 0b0011, 0b1011, 0b0111, 0b1111,
}

// flipByte reverses bit order within a byte.
func flipByte(x uint8) uint8 {
	return nibbleFlip[x&0xF]<<4 | nibbleFlip[x>>4]
}

// Very simple encoding: for each symbol, 1 bit for presence/absence, and 3
// bits for the code length if present.
func encodeSymbolNBits(info *[NumSymbols]huffmanSymbolInfo, w *bitio.Writer) {
	for i := 0; i < NumSymbols; i++ {
		if info[i].present {
			w.Write(1, 1)
			w.Write(3, uint64(info[i].nbits-1))
		} else {
			w.Write(1, 0)
		}
	}
}

func decodeSymbolNBits(info *[NumSymbols]huffmanSymbolInfo, br *bitio.Reader) {
	for i := 0; i < NumSymbols; i++ {
		info[i].present = br.Read(1) != 0
		if info[i].present {
			info[i].nbits = uint8(br.Read(3)) + 1
		}
	}
}

// computeSymbolNumBits fills the code length of each present symbol using
// the package-merge (coin collector) algorithm, with codes capped at
// maxHuffmanBits.
func computeSymbolNumBits(histogram []int, info *[NumSymbols]huffmanSymbolInfo) {
	nzsym := 0
	for i := range histogram {
		if histogram[i] == 0 {
			continue
		}
		info[i].present = true
		nzsym++
	}
	if nzsym <= 1 {
		for i := 0; i < NumSymbols; i++ {
			if info[i].present {
				info[i].nbits = 1
			}
		}
		return
	}

	type bag struct {
		cost int
		syms []uint8
	}
	// One list of packages per bit level, seeded with the singletons.
	var bags [maxHuffmanBits][]bag
	for i := 0; i < maxHuffmanBits; i++ {
		for s := range histogram {
			if !info[s].present {
				continue
			}
			bags[i] = append(bags[i], bag{cost: histogram[s], syms: []uint8{uint8(s)}})
		}
	}

	// Pair up packages of a given bit level to create packages of the
	// following one, merging consecutively in increasing order of cost.
	for i := 0; i < maxHuffmanBits-1; i++ {
		sort.SliceStable(bags[i], func(a, b int) bool { return bags[i][a].cost < bags[i][b].cost })
		for j := 0; j+1 < len(bags[i]); j += 2 {
			merged := bag{cost: bags[i][j].cost + bags[i][j+1].cost}
			merged.syms = append(merged.syms, bags[i][j].syms...)
			merged.syms = append(merged.syms, bags[i][j+1].syms...)
			bags[i+1] = append(bags[i+1], merged)
		}
	}
	last := bags[maxHuffmanBits-1]
	sort.SliceStable(last, func(a, b int) bool { return last[a].cost < last[b].cost })

	// Each symbol occurrence in the cheapest 2*nzsym-2 packages of the last
	// level contributes one bit to that symbol's code length.
	for i := 0; i < 2*nzsym-2; i++ {
		for _, s := range last[i].syms {
			info[s].nbits++
		}
	}

	// In a properly-constructed set of lengths, the sum across symbols of
	// 2^-length equals 1.
	kraft := 0
	for i := 0; i < NumSymbols; i++ {
		if info[i].present {
			kraft += 1 << (maxHuffmanBits - info[i].nbits)
		}
	}
	if kraft != 1<<maxHuffmanBits {
		panic(fmt.Sprintf("huffman: length assignment violates Kraft equality: %d", kraft))
	}
}

// computeSymbolBits assigns canonical code bit patterns, reversed so that
// codes are consumable LSB-first.
func computeSymbolBits(info *[NumSymbols]huffmanSymbolInfo) {
	type lengthSym struct {
		nbits  uint8
		symbol uint8
	}
	syms := make([]lengthSym, 0, NumSymbols)
	for i := 0; i < NumSymbols; i++ {
		if !info[i].present {
			continue
		}
		syms = append(syms, lengthSym{info[i].nbits, uint8(i)})
	}
	sort.Slice(syms, func(a, b int) bool {
		if syms[a].nbits != syms[b].nbits {
			return syms[a].nbits < syms[b].nbits
		}
		return syms[a].symbol < syms[b].symbol
	})
	x := 0
	for s := range syms {
		info[syms[s].symbol].bits = flipByte(uint8(x)) >> (maxHuffmanBits - syms[s].nbits)
		x++
		if s+1 != len(syms) {
			x <<= syms[s+1].nbits - syms[s].nbits
		}
	}
}

// computeDecoderTable maps every possible next-8-bits value to the unique
// symbol whose code is a prefix of it.
func computeDecoderTable(symInfo *[NumSymbols]huffmanSymbolInfo, decoderInfo *[1 << maxHuffmanBits]huffmanDecoderInfo) error {
	cnt := 0
	last := 0
	for sym := 0; sym < NumSymbols; sym++ {
		if symInfo[sym].present {
			cnt++
			last = sym
		}
	}
	if cnt <= 1 {
		for i := range decoderInfo {
			decoderInfo[i] = huffmanDecoderInfo{nbits: symInfo[last].nbits, symbol: uint8(last)}
		}
		return nil
	}
	for i := range decoderInfo {
		matched := -1
		for sym := 0; sym < NumSymbols; sym++ {
			if !symInfo[sym].present {
				continue
			}
			mask := 1<<int(symInfo[sym].nbits) - 1
			if i&mask == int(symInfo[sym].bits) {
				matched = sym
				break
			}
		}
		if matched < 0 {
			return fmt.Errorf("huffman: invalid decoder table")
		}
		decoderInfo[i] = huffmanDecoderInfo{nbits: symInfo[matched].nbits, symbol: uint8(matched)}
	}
	return nil
}

// HuffmanEncode writes the per-context code length headers followed by the
// canonical-Huffman-coded body of s. Context ids in s must be below
// numContexts.
func HuffmanEncode(s *Stream, numContexts int, w *bitio.Writer) {
	histograms := s.Histograms(numContexts)

	w.Reserve(numContexts * NumSymbols * 4)

	info := make([][NumSymbols]huffmanSymbolInfo, numContexts)
	for i := range histograms {
		computeSymbolNumBits(histograms[i], &info[i])
		computeSymbolBits(&info[i])
		encodeSymbolNBits(&info[i], w)
	}

	totalBits := 0
	s.ForEach(func(ctx, token, nbits int, bits uint64, i int) {
		totalBits += int(info[ctx][token].nbits) + nbits
	})
	w.Reserve(totalBits)

	s.ForEach(func(ctx, token, nbits int, bits uint64, i int) {
		w.Write(int(info[ctx][token].nbits), uint64(info[ctx][token].bits))
		w.Write(nbits, bits)
	})
}

// HuffmanReader reads Huffman-coded symbols from a stream. For each context
// it maps the next maxHuffmanBits of the bitstream to a symbol and the
// number of bits actually consumed.
type HuffmanReader struct {
	info [][1 << maxHuffmanBits]huffmanDecoderInfo
}

// Init decodes numContexts code length headers and builds the corresponding
// decoding tables.
func (r *HuffmanReader) Init(numContexts int, br *bitio.Reader) error {
	r.info = make([][1 << maxHuffmanBits]huffmanDecoderInfo, numContexts)
	for i := 0; i < numContexts; i++ {
		var symbolInfo [NumSymbols]huffmanSymbolInfo
		decodeSymbolNBits(&symbolInfo, br)
		computeSymbolBits(&symbolInfo)
		if err := computeDecoderTable(&symbolInfo, &r.info[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReadSymbol decodes a single symbol using the distribution of index ctx.
// The reader must have at least maxHuffmanBits refilled bits.
func (r *HuffmanReader) ReadSymbol(ctx int, br *bitio.Reader) int {
	bits := br.Peek(maxHuffmanBits)
	br.Advance(uint(r.info[ctx][bits].nbits))
	return int(r.info[ctx][bits].symbol)
}

// CheckFinalState exists for interface compatibility with the ANS reader.
func (r *HuffmanReader) CheckFinalState() bool {
	return true
}
