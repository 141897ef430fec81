package particlefilter

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const twoPi = 2 * math.Pi

// World is a square domain of side Size that wraps on both axes, plus the
// fixed landmarks ranges are measured against. It is read-only once built.
type World struct {
	Size      float64
	Landmarks []orb.Point
}

// NewWorld validates the domain and copies the landmark set.
func NewWorld(size float64, landmarks []orb.Point) (*World, error) {
	if !(size > 0) || math.IsInf(size, 1) {
		return nil, fmt.Errorf("%w: world size must be positive, got %v", ErrInvalidConfig, size)
	}
	if len(landmarks) == 0 {
		return nil, fmt.Errorf("%w: at least one landmark is required", ErrInvalidConfig)
	}

	lm := make([]orb.Point, len(landmarks))
	for i, p := range landmarks {
		if !finite(p.X()) || !finite(p.Y()) {
			return nil, fmt.Errorf("%w: landmark[%d] must be finite, got %v", ErrInvalidConfig, i, p)
		}
		lm[i] = p
	}

	return &World{Size: size, Landmarks: lm}, nil
}

// Wrap reduces v into [0, Size).
func (w *World) Wrap(v float64) float64 {
	return wrap(v, w.Size)
}

// WrapAngle reduces a heading into [0, 2π).
func WrapAngle(a float64) float64 {
	return wrap(a, twoPi)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func wrap(v, limit float64) float64 {
	v = math.Mod(v, limit)
	if v < 0 {
		v += limit
	}
	// -1e-17 + limit rounds to limit
	if v >= limit {
		v = 0
	}
	return v
}

// Ranges returns the straight-line distance from p to every landmark, in
// landmark order. Landmarks are physical points so the distance does not wrap.
func (w *World) Ranges(p orb.Point) []float64 {
	ranges := make([]float64, len(w.Landmarks))
	for i, lm := range w.Landmarks {
		ranges[i] = planar.Distance(p, lm)
	}
	return ranges
}

// TorusDistance is the shortest distance between a and b when the domain
// edges are glued together.
func (w *World) TorusDistance(a, b orb.Point) float64 {
	dx := math.Abs(a.X() - b.X())
	dy := math.Abs(a.Y() - b.Y())
	dx = math.Min(dx, w.Size-dx)
	dy = math.Min(dy, w.Size-dy)
	return math.Hypot(dx, dy)
}
