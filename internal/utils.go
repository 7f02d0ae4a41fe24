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

package internal

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// GetIntLE gets an int value from a byte array in little endian format.
func GetIntLE(array []byte, offset int) uint32 {
	return uint32(array[offset]) | uint32(array[offset+1])<<8 |
		uint32(array[offset+2])<<16 | uint32(array[offset+3])<<24
}

// PutIntLE puts an int value into a byte array in little endian format.
func PutIntLE(array []byte, offset int, value uint32) {
	array[offset] = byte(value)
	array[offset+1] = byte(value >> 8)
	array[offset+2] = byte(value >> 16)
	array[offset+3] = byte(value >> 24)
}

// GetLongLE gets a long value from a byte array in little endian format.
func GetLongLE(array []byte, offset int) uint64 {
	return uint64(GetIntLE(array, offset)) | uint64(GetIntLE(array, offset+4))<<32
}

// PutLongLE puts a long value into a byte array in little endian format.
func PutLongLE(array []byte, offset int, value uint64) {
	PutIntLE(array, offset, uint32(value))
	PutIntLE(array, offset+4, uint32(value>>32))
}

// FloorLog2 returns the floor of the base-2 logarithm of v, which must be
// nonzero.
func FloorLog2(v uint64) int {
	return 63 - bits.LeadingZeros64(v)
}

// DivCeil returns the quotient of a and b, rounded up.
func DivCeil[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

// PackSigned folds a signed value into a non-negative one, interleaving
// negative and positive values.
func PackSigned(s int64) uint64 {
	if s < 0 {
		return 2*uint64(-s) - 1
	}
	return 2 * uint64(s)
}

// UnpackSigned inverts PackSigned.
func UnpackSigned(u uint64) int64 {
	if u&1 != 0 {
		return -int64(u+1) / 2
	}
	return int64(u / 2)
}

// IsPowerOf2 returns true if the given number is a power of 2.
func IsPowerOf2(powerOf2 int) bool {
	return powerOf2 > 0 && (powerOf2&(powerOf2-1)) == 0
}

func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
