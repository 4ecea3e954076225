// Package score holds the pure scoring helpers shared by the monitors.
package score

// Clamp bounds v to [lo, hi]. Every monitor score passes through this so
// that pathological inputs (negative counts, huge penalty sums) can never
// leave the 0-100 range.
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp100 bounds v to the canonical score range.
func Clamp100(v float64) float64 {
	return Clamp(v, 0, 100)
}
