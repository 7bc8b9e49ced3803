//go:build !fastmath

package analyser

import "math"

// linearToDB converts a linear magnitude to decibels; 0 maps to -Inf.
func linearToDB(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(x)
}
