package colorfeature

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Correlation returns the Pearson correlation of two histograms, mapped
// from [-1,1] to [0,1] as spec.md §4.6.c requires. Returns 0 if either
// histogram is empty or degenerate (zero variance).
func Correlation(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	r := stat.Correlation(a, b, nil)
	if math.IsNaN(r) {
		return 0
	}
	return (r + 1) / 2
}

// GaussianSimilarity scores the distance between two skin-tone vectors
// with a Gaussian kernel of scale sigma, per spec.md §4.6.c.
func GaussianSimilarity(a, b []float64, sigma float64) float64 {
	if len(a) != len(b) || len(a) == 0 || sigma <= 0 {
		return 0
	}
	var sumSq float64
	for i := range a {
		d := a[i] - b[i]
		sumSq += d * d
	}
	dist := math.Sqrt(sumSq)
	return math.Exp(-(dist * dist) / (2 * sigma * sigma))
}
