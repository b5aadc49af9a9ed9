// SPDX-License-Identifier: MIT

// Package bitint provides power-of-two helpers for transform and buffer
// sizing. All operations are O(1), allocation-free, and safe to call from
// real-time code.
package bitint

import "math/bits"

// IsPowerOfTwo reports whether n is a positive power of 2.
// Powers of 2 have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Exact powers of 2 are preserved (the size-1 keeps 8 from becoming 16);
// zero and negative inputs yield 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}
