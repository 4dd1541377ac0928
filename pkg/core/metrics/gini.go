package metrics

import (
	"math"
	"slices"
)

// Gini returns the Gini coefficient of the values using the sorted discrete formula
//
//	G = (2 * sum(i * x_i)) / (n * sum(x)) - (n + 1) / n,  i = 1..n, x ascending
//
// 0 means perfectly equal. An empty input or an all-zero input returns 0.
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	sum := 0.0
	weighted := 0.0
	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}

	nf := float64(n)
	return (2*weighted)/(nf*sum) - (nf+1)/nf
}

// Variance returns the population variance of the values
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	v := 0.0
	for _, x := range values {
		v += (x - mean) * (x - mean)
	}
	return v / float64(len(values))
}

// CoverageRate returns filled / required, or 1 when nothing was required
func CoverageRate(filled, required int) float64 {
	if required <= 0 {
		return 1
	}
	return math.Min(1, float64(filled)/float64(required))
}
