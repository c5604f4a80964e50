package main

import (
	"fmt"
	"math"
)

// cosineSimilarity returns the cosine of the angle between a and b.
// Returns exactly 0 when either vector has zero magnitude, so callers
// never see NaN.
func cosineSimilarity(a, b []float64) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	denom := math.Sqrt(magA) * math.Sqrt(magB)
	if denom == 0 {
		return 0
	}

	return dot / denom
}

// centroid computes the element-wise mean of the given vectors.
// Panics on empty input or mismatched dimensions; both indicate a bug
// upstream and must not be papered over with a zero vector.
func centroid(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		panic("centroid: no vectors")
	}

	dim := len(vectors[0])
	result := make([]float64, dim)

	for _, vec := range vectors {
		if len(vec) != dim {
			panic(fmt.Sprintf("centroid: mismatched dimensions %d != %d", len(vec), dim))
		}
		for i, v := range vec {
			result[i] += v
		}
	}

	n := float64(len(vectors))
	for i := range result {
		result[i] /= n
	}

	return result
}
