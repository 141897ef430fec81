package particlefilter

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// ResampleWheel picks count indices into weights with probability
// proportional to weight, using the resampling wheel: a random starting index,
// then for every slot beta grows by Uniform(0, 2·max) and the wheel advances
// past every weight beta still exceeds.
//
// If no weight is positive the wheel would never settle, so indices are drawn
// uniformly instead. An empty weight vector yields no indices.
func ResampleWheel(weights []float64, count int, rng *rand.Rand) []int {
	n := len(weights)
	if n == 0 || count <= 0 {
		return nil
	}

	indices := make([]int, count)

	maxW := floats.Max(weights)
	if !(maxW > 0) {
		for i := range indices {
			indices[i] = rng.IntN(n)
		}
		return indices
	}

	index := rng.IntN(n)
	beta := 0.0
	for i := range indices {
		beta += rng.Float64() * 2 * maxW
		for beta > weights[index] {
			beta -= weights[index]
			index = (index + 1) % n
		}
		indices[i] = index
	}

	return indices
}
