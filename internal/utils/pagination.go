// Package utils holds small helpers shared by the HTTP layer.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// invalid.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
