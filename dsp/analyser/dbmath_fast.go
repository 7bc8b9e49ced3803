//go:build fastmath

package analyser

import (
	"math"

	"github.com/meko-christian/algo-approx"
)

// 20 / ln(10)
const dbPerNeper = 8.685889638065036553

// linearToDB converts a linear magnitude to decibels using the fast log
// approximation; 0 maps to -Inf.
func linearToDB(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}

	return dbPerNeper * approx.FastLog(x)
}
