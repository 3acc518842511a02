package search

import (
	"fmt"
	"math"
)

// CosineSimilarity returns dot(a, b) / (|a|*|b|), clamped to [-1, 1].
// A zero vector has similarity 0 with everything. Vectors of different
// lengths return ErrDimensionMismatch.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push identical vectors just past 1
	return float32(max(-1, min(1, sim))), nil
}
