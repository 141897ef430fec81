package particlefilter

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Measurement is one range per landmark, aligned with World.Landmarks.
type Measurement []float64

// Reading scores a pose hypothesis against an observation. The filter only
// needs relative magnitudes, so implementations may return unnormalized values.
type Reading interface {
	Likelihood(Pose) float64
}

// Sense measures the range from p to every landmark with Gaussian sense noise.
// Ranges are not clamped: a landmark close to p can produce a negative range.
func (p Pose) Sense(w *World, src rand.Source) Measurement {
	noise := distuv.Normal{Mu: 0, Sigma: p.Noise.Sense, Src: src}

	z := Measurement(w.Ranges(p.Position()))
	for i := range z {
		z[i] += noise.Rand()
	}
	return z
}

// Likelihood is the product over landmarks of the Gaussian density of the
// measured range around the range expected from p. Landmarks are treated as
// independent. The result is never negative and underflows to zero for large
// discrepancies. A measurement that is not aligned with the landmark set has
// zero likelihood.
func (p Pose) Likelihood(w *World, z Measurement) float64 {
	if len(z) != len(w.Landmarks) {
		return 0
	}

	prob := 1.0
	for i, d := range w.Ranges(p.Position()) {
		prob *= NormDensity(z[i], d, p.Noise.Sense)
	}
	return prob
}

// NormDensity is the Gaussian probability density of x for mean mu and
// standard deviation sigma.
func NormDensity(x, mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma}.Prob(x)
}

// RangeReading is a Reading for landmark range measurements.
type RangeReading struct {
	World  *World
	Ranges Measurement
}

// NewRangeReading binds a measurement to the world it was taken in.
func NewRangeReading(w *World, z Measurement) (RangeReading, error) {
	if len(z) != len(w.Landmarks) {
		return RangeReading{}, fmt.Errorf("%w: got %d ranges for %d landmarks", ErrMeasurementSize, len(z), len(w.Landmarks))
	}
	return RangeReading{World: w, Ranges: z}, nil
}

// Likelihood implements Reading.
func (r RangeReading) Likelihood(p Pose) float64 {
	return p.Likelihood(r.World, r.Ranges)
}
