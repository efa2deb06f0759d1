package ircurve

import "sort"

// bracketOrBoundary finds the two adjacent indices that bracket the target.
// If the target is outside the range, returns the nearest boundary pair.
//
// This is useful for extrapolation where we still want the two nearest nodes.
func bracketOrBoundary(times []float64, target float64) (int, int) {
	if len(times) < 2 {
		panic("bracketOrBoundary: need at least 2 nodes")
	}

	// Binary search for first node >= target
	idx := sort.SearchFloat64s(times, target)

	if idx <= 0 {
		return 0, 1
	}
	if idx >= len(times) {
		return len(times) - 2, len(times) - 1
	}
	return idx - 1, idx
}
