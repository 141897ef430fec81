package particlefilter

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/stat/distuv"
)

// Noise holds the standard deviations of the Gaussian perturbations applied
// to a pose when it moves (Forward, Turn) and when it senses (Sense).
type Noise struct {
	Forward float64 `yaml:"forward"`
	Turn    float64 `yaml:"turn"`
	Sense   float64 `yaml:"sense"`
}

// DefaultNoise returns the noise triple used by the reference scenario.
func DefaultNoise() Noise {
	return Noise{Forward: 0.5, Turn: 0.1, Sense: 2.0}
}

// Validate checks the stddevs. Each must be finite, and Sense must be
// strictly positive since it is the width of the likelihood density.
func (n Noise) Validate() error {
	if !(n.Forward >= 0) || !finite(n.Forward) {
		return fmt.Errorf("%w: forward noise must be finite and non-negative, got %v", ErrInvalidConfig, n.Forward)
	}
	if !(n.Turn >= 0) || !finite(n.Turn) {
		return fmt.Errorf("%w: turn noise must be finite and non-negative, got %v", ErrInvalidConfig, n.Turn)
	}
	if !(n.Sense > 0) || !finite(n.Sense) {
		return fmt.Errorf("%w: sense noise must be finite and positive, got %v", ErrInvalidConfig, n.Sense)
	}
	return nil
}

// Control is the input applied for one time step: rotate by Turn radians,
// then travel Forward units along the new heading.
type Control struct {
	Turn    float64 `yaml:"turn"`
	Forward float64 `yaml:"forward"`
}

// Validate requires a finite turn and forward distance.
func (u Control) Validate() error {
	if !finite(u.Turn) || !finite(u.Forward) {
		return fmt.Errorf("%w: control must be finite, got (turn %v, forward %v)", ErrInvalidConfig, u.Turn, u.Forward)
	}
	return nil
}

// Pose is a single (x, y, heading) hypothesis with its own noise parameters.
// Poses are values: Move returns a new Pose and leaves the receiver untouched,
// so the true robot and the particles never share state.
type Pose struct {
	X       float64
	Y       float64
	Heading float64
	Noise   Noise
}

// NewPose builds a pose at an explicit location, wrapping the coordinates
// into the world and the heading into [0, 2π).
func NewPose(w *World, x, y, heading float64, noise Noise) (Pose, error) {
	if err := noise.Validate(); err != nil {
		return Pose{}, err
	}
	for _, v := range []float64{x, y, heading} {
		if !finite(v) {
			return Pose{}, fmt.Errorf("%w: pose coordinates must be finite, got (%v, %v, %v)", ErrInvalidConfig, x, y, heading)
		}
	}
	return Pose{
		X:       w.Wrap(x),
		Y:       w.Wrap(y),
		Heading: WrapAngle(heading),
		Noise:   noise,
	}, nil
}

// RandomPose draws a pose uniformly over the world with a uniform heading.
func RandomPose(w *World, noise Noise, src rand.Source) Pose {
	loc := distuv.Uniform{Min: 0, Max: w.Size, Src: src}
	ang := distuv.Uniform{Min: 0, Max: twoPi, Src: src}

	return Pose{
		X:       w.Wrap(loc.Rand()),
		Y:       w.Wrap(loc.Rand()),
		Heading: WrapAngle(ang.Rand()),
		Noise:   noise,
	}
}

// Position returns the pose location as a point.
func (p Pose) Position() orb.Point {
	return orb.Point{p.X, p.Y}
}

// Move applies the motion model: turn (with turn noise), then push forward
// along the new heading (with forward noise) and wrap into the world.
// The travelled distance may come out negative; that is accepted.
func (p Pose) Move(w *World, u Control, src rand.Source) Pose {
	turnNoise := distuv.Normal{Mu: 0, Sigma: p.Noise.Turn, Src: src}
	distNoise := distuv.Normal{Mu: 0, Sigma: p.Noise.Forward, Src: src}

	heading := WrapAngle(p.Heading + u.Turn + turnNoise.Rand())
	dist := u.Forward + distNoise.Rand()

	return Pose{
		X:       w.Wrap(p.X + math.Cos(heading)*dist),
		Y:       w.Wrap(p.Y + math.Sin(heading)*dist),
		Heading: heading,
		Noise:   p.Noise,
	}
}
