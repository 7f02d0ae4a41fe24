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

import "github.com/graphzip/graphzip/entropy"

// Context enumeration for the entropy-coded token stream. A context selects
// one distribution out of a fixed set; the mapping from decoding state to
// context id must be identical on both sides.
const (
	firstDegreeContext = 0

	degreeBaseContext = 1
	numDegreeContexts = 32

	referenceContextBase = degreeBaseContext + numDegreeContexts
	numReferenceContexts = 64 // At most 64.

	blockCountContext = referenceContextBase + numReferenceContexts
	blockContext      = blockCountContext + 1
	blockContextEven  = blockContext + 1
	blockContextOdd   = blockContextEven + 1

	firstResidualBaseContext = blockContextOdd + 1
	numFirstResidualContexts = 32

	residualBaseContext = firstResidualBaseContext + numFirstResidualContexts
	numResidualContexts = 80 // Slightly lax bound.

	rleContext = residualBaseContext + numResidualContexts

	numContexts = rleContext + 1
)

// searchWindow is the number of previous adjacency lists a vertex may copy
// from; the decoder ring must hold strictly more lists than this.
const (
	searchWindow = 32
	numAdjLists  = searchWindow + 1
)

// Random access only parameters: minimum run length for RLE and size of the
// chunk of vertices whose degrees and references are delta-coded together.
const (
	degreeReferenceChunkSize = 32
	rleMin                   = 3
	maxChainLength           = 3
)

func degreeContext(lastDegreeDelta uint64) int {
	return degreeBaseContext + min(entropy.Token(lastDegreeDelta), numDegreeContexts-1)
}

func referenceContext(lastReference uint64) int {
	return referenceContextBase + min(int(lastReference), numReferenceContexts-1)
}

func firstResidualContext(edgesLeft uint64) int {
	return firstResidualBaseContext + min(entropy.Token(edgesLeft), numFirstResidualContexts-1)
}

func residualContext(lastResidualDelta uint64) int {
	return residualBaseContext + min(entropy.Token(lastResidualDelta), numResidualContexts-1)
}
