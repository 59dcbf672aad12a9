// Package orderkey holds the integer arithmetic behind gap-based ordering.
//
// Keys are non-negative integers. New keys are placed at the midpoint of two
// neighbours when a gap exists, or one Step beyond an extremum otherwise.
// Rebalancing rewrites a whole scope to multiples of Step, which restores
// room for roughly Step-1 midpoint insertions between any two records.
package orderkey

import "math"

// Step is the distance used for extremal insertions and rebalanced keys.
const Step int64 = 10

// Seed is the key assigned when a scope has no other records to anchor on.
const Seed int64 = 10

// Clamp returns k, or 0 when k is negative.
func Clamp(k int64) int64 {
	if k < 0 {
		return 0
	}
	return k
}

// Between returns floor((low+high)/2).
//
// ok is false when the midpoint equals either bound, meaning no integer gap
// remains between the two keys.
func Between(low, high int64) (key int64, ok bool) {
	if high < low {
		low, high = high, low
	}
	// Written this way to avoid overflowing low+high.
	key = low + (high-low)/2
	return key, key != low && key != high
}

// Before returns the key one Step below k, clamped at 0.
func Before(k int64) int64 {
	return Clamp(k - Step)
}

// After returns the key one Step above k.
//
// ok is false when k+Step would overflow int64, meaning the scope has run
// out of room at the top.
func After(k int64) (key int64, ok bool) {
	if k > math.MaxInt64-Step {
		return k, false
	}
	return k + Step, true
}

// Rebalanced returns the key for the record at 0-based position i of a
// rebalanced scope: 10, 20, 30, ...
func Rebalanced(i int) int64 {
	return int64(i+1) * Step
}
