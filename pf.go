package particlefilter

import (
	"fmt"
	"math/rand/v2"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Particle is a pose hypothesis and its weight. Weights only live between
// CalculateWeights and Resample; resampled particles start at zero.
type Particle struct {
	Pose
	Weight float64
}

// FilterConfig holds the tunables of a ParticleFilter.
type FilterConfig struct {
	Particles int   // Population size, constant for the life of the filter
	Noise     Noise // Noise given to every initial and injected particle
	Workers   int   // Goroutines used for predict and weigh; 0 or 1 runs inline

	// InjectFraction of every resampled population is replaced by fresh
	// uniform particles, which helps recover from a wrong convergence.
	InjectFraction float64
}

// DefaultFilterConfig returns the configuration of the reference scenario.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Particles:      500,
		Noise:          DefaultNoise(),
		Workers:        1,
		InjectFraction: 0,
	}
}

// Validate checks the filter configuration.
func (c FilterConfig) Validate() error {
	if c.Particles <= 0 {
		return fmt.Errorf("%w: particle count must be positive, got %d", ErrInvalidConfig, c.Particles)
	}
	if err := c.Noise.Validate(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if !(c.InjectFraction >= 0 && c.InjectFraction < 1) {
		return fmt.Errorf("%w: inject fraction must be in [0, 1), got %v", ErrInvalidConfig, c.InjectFraction)
	}
	return nil
}

// ParticleFilter owns the particle population and runs the
// predict, weigh and resample cycle against a fixed World.
type ParticleFilter struct {
	World     *World
	Particles []Particle

	cfg        FilterConfig
	src        rand.Source
	rng        *rand.Rand
	maxWeight  float64
	iteration  int
	degenerate int
}

// NewParticleFilter creates a filter with cfg.Particles particles drawn
// uniformly over the world. All randomness, including the per-step particle
// sub-streams, derives from src.
func NewParticleFilter(w *World, cfg FilterConfig, src rand.Source) (*ParticleFilter, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: world is required", ErrInvalidConfig)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pf := &ParticleFilter{
		World: w,
		cfg:   cfg,
		src:   src,
		rng:   rand.New(src),
	}

	// creating initial random samples
	pf.createSampleList()

	return pf, nil
}

// createParticle creates a uniformly random particle
func (pf *ParticleFilter) createParticle() Particle {
	return Particle{Pose: RandomPose(pf.World, pf.cfg.Noise, pf.src)}
}

func (pf *ParticleFilter) createSampleList() {
	pf.Particles = make([]Particle, 0, pf.cfg.Particles)
	for i := 0; i < pf.cfg.Particles; i++ {
		pf.Particles = append(pf.Particles, pf.createParticle())
	}
}

// check if weight is greater than current max weight
func (pf *ParticleFilter) checkAndSetMaxWeight(weight float64, override bool) {
	if weight > pf.maxWeight {
		pf.maxWeight = weight
	}

	// when we want to reset to zero
	if override {
		pf.maxWeight = weight
	}
}

// forEach calls fn for every particle index, split over the configured
// number of workers. fn must only touch its own slot.
func (pf *ParticleFilter) forEach(fn func(i int)) {
	n := len(pf.Particles)
	workers := pf.cfg.Workers
	if workers <= 1 || n < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}
	// fn has no error path, so Wait only joins the workers.
	_ = g.Wait()
}

// Predict moves every particle with the control u, each under its own noise.
// Particle i draws from a PCG stream keyed on (step seed, i), so the result
// does not depend on how many workers run the step.
func (pf *ParticleFilter) Predict(u Control) {
	stepSeed := pf.rng.Uint64()
	pf.forEach(func(i int) {
		src := rand.NewPCG(stepSeed, uint64(i))
		pf.Particles[i].Pose = pf.Particles[i].Move(pf.World, u, src)
	})
}

// CalculateWeights scores every particle against the reading and records
// the largest weight.
func (pf *ParticleFilter) CalculateWeights(r Reading) {
	pf.forEach(func(i int) {
		pf.Particles[i].Weight = r.Likelihood(pf.Particles[i].Pose)
	})

	pf.checkAndSetMaxWeight(0.0, true)
	for i := range pf.Particles {
		pf.checkAndSetMaxWeight(pf.Particles[i].Weight, false)
	}
}

// Resample replaces the population with one drawn by the resampling wheel
// in proportion to the current weights. The population size never changes.
// When every weight is zero the draw is uniform and the step is counted as
// degenerate.
func (pf *ParticleFilter) Resample() {
	n := len(pf.Particles)
	numSpoof := int(pf.cfg.InjectFraction * float64(n))
	numResample := n - numSpoof

	weights := pf.Weights()
	if n > 0 && !(floats.Max(weights) > 0) {
		pf.degenerate++
		Logf("particlefilter: all %d weights are zero at iteration %d, resampling uniformly", n, pf.iteration)
	}

	newParticleList := make([]Particle, 0, n)
	for _, idx := range ResampleWheel(weights, numResample, pf.rng) {
		p := pf.Particles[idx]
		p.Weight = 0
		newParticleList = append(newParticleList, p)
	}

	// adding some random samples in case we did not converge on the correct answer
	for i := 0; i < numSpoof; i++ {
		newParticleList = append(newParticleList, pf.createParticle())
	}

	pf.Particles = newParticleList
	pf.iteration++
}

// Step runs one predict, weigh and resample cycle for control u and the
// measurement z taken after the true pose applied u. A measurement with the
// wrong number of ranges or a non-finite control is rejected before
// anything changes.
func (pf *ParticleFilter) Step(u Control, z Measurement) error {
	if err := u.Validate(); err != nil {
		return err
	}
	reading, err := NewRangeReading(pf.World, z)
	if err != nil {
		return err
	}

	pf.Predict(u)
	pf.CalculateWeights(reading)
	pf.Resample()

	return nil
}

// Estimate returns the mean pose of the population. Positions are averaged
// as angles around the torus so a cloud straddling a wrap edge stays in one
// piece; the heading is a circular mean as well.
func (pf *ParticleFilter) Estimate() Pose {
	n := len(pf.Particles)
	if n == 0 {
		return Pose{Noise: pf.cfg.Noise}
	}

	scale := twoPi / pf.World.Size
	xs := make([]float64, n)
	ys := make([]float64, n)
	hs := make([]float64, n)
	for i, p := range pf.Particles {
		xs[i] = p.X * scale
		ys[i] = p.Y * scale
		hs[i] = p.Heading
	}

	return Pose{
		X:       pf.World.Wrap(stat.CircularMean(xs, nil) / scale),
		Y:       pf.World.Wrap(stat.CircularMean(ys, nil) / scale),
		Heading: WrapAngle(stat.CircularMean(hs, nil)),
		Noise:   pf.cfg.Noise,
	}
}

// EffectiveSampleSize is (Σw)² / Σw² over the current weights. It is N for
// uniform weights, 1 when a single particle carries all of the mass, and 0
// when every weight is zero.
func (pf *ParticleFilter) EffectiveSampleSize() float64 {
	w := pf.Weights()
	sq := floats.Dot(w, w)
	if sq == 0 {
		return 0
	}
	sum := floats.Sum(w)
	return sum * sum / sq
}

// Positions returns the particle locations in population order.
func (pf *ParticleFilter) Positions() []orb.Point {
	pts := make([]orb.Point, len(pf.Particles))
	for i, p := range pf.Particles {
		pts[i] = p.Position()
	}
	return pts
}

// Weights returns a copy of the particle weights.
func (pf *ParticleFilter) Weights() []float64 {
	w := make([]float64, len(pf.Particles))
	for i, p := range pf.Particles {
		w[i] = p.Weight
	}
	return w
}

// MaxWeight is the largest weight seen by the last CalculateWeights.
func (pf *ParticleFilter) MaxWeight() float64 { return pf.maxWeight }

// Iteration is the number of completed resampling steps.
func (pf *ParticleFilter) Iteration() int { return pf.iteration }

// DegenerateSteps counts resampling steps that fell back to a uniform draw.
func (pf *ParticleFilter) DegenerateSteps() int { return pf.degenerate }
