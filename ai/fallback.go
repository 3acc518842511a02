package ai

import (
	"hash/fnv"
	"math"
)

// LCG parameters from Numerical Recipes.
const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
)

// FallbackVector returns a deterministic pseudo-random vector of the given
// width for content. Values lie in [-1, 1]. The same content and width always
// produce the same vector.
func FallbackVector(content string, dims int) []float32 {
	if dims <= 0 {
		dims = DefaultDimensions
	}

	h := fnv.New32a()
	h.Write([]byte(content))
	seed := h.Sum32()

	vector := make([]float32, dims)
	for i := range vector {
		seed = seed*lcgMultiplier + lcgIncrement
		vector[i] = float32(float64(seed)/math.MaxUint32*2 - 1)
	}
	return vector
}
