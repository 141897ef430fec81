package particlefilter

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Stream identifiers mixed with the seed so the true robot and the filter
// draw from independent PCG streams.
const (
	robotStream  uint64 = 0x726f626f74
	filterStream uint64 = 0x66696c746572
)

// Snapshot is the state after one simulated step: where the robot really
// is, where every particle is, and the population mean.
type Snapshot struct {
	Step      int
	Robot     orb.Point
	Particles []orb.Point
	Estimate  orb.Point
}

// History is the ordered output of a run, one Snapshot per step.
type History struct {
	RunID string
	Steps []Snapshot
}

// Simulation drives a true robot through the world and tracks it with a
// particle filter.
type Simulation struct {
	ID     string
	World  *World
	Robot  Pose
	Filter *ParticleFilter

	cfg      Config
	robotSrc rand.Source
	step     int
}

// NewSimulation validates cfg and sets up the robot and particle population.
// The seed fully determines every snapshot the simulation produces.
func NewSimulation(cfg Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	world, err := NewWorld(cfg.WorldSize, cfg.LandmarkPoints())
	if err != nil {
		return nil, err
	}

	robotSrc := rand.NewPCG(cfg.Seed, robotStream)
	filter, err := NewParticleFilter(world, cfg.FilterConfig(), rand.NewPCG(cfg.Seed, filterStream))
	if err != nil {
		return nil, fmt.Errorf("creating particle filter: %w", err)
	}

	return &Simulation{
		ID:       uuid.New().String(),
		World:    world,
		Robot:    RandomPose(world, cfg.Noise, robotSrc),
		Filter:   filter,
		cfg:      cfg,
		robotSrc: robotSrc,
	}, nil
}

// Step moves the robot, senses, runs one filter cycle with the same control
// and returns the resulting snapshot.
func (s *Simulation) Step() (Snapshot, error) {
	s.Robot = s.Robot.Move(s.World, s.cfg.Control, s.robotSrc)
	z := s.Robot.Sense(s.World, s.robotSrc)

	if err := s.Filter.Step(s.cfg.Control, z); err != nil {
		return Snapshot{}, fmt.Errorf("step %d: %w", s.step, err)
	}

	snap := Snapshot{
		Step:      s.step,
		Robot:     s.Robot.Position(),
		Particles: s.Filter.Positions(),
		Estimate:  s.Filter.Estimate().Position(),
	}
	s.step++

	return snap, nil
}

// Run executes the configured number of steps.
func (s *Simulation) Run() (*History, error) {
	Logf("simulation %s: %d particles, %d steps, seed %d", s.ID, len(s.Filter.Particles), s.cfg.Steps, s.cfg.Seed)

	history := &History{
		RunID: s.ID,
		Steps: make([]Snapshot, 0, s.cfg.Steps),
	}
	for t := 0; t < s.cfg.Steps; t++ {
		snap, err := s.Step()
		if err != nil {
			return nil, err
		}
		history.Steps = append(history.Steps, snap)
	}

	if n := len(history.Steps); n > 0 {
		last := history.Steps[n-1]
		Logf("simulation %s: finished, estimate error %.2f, %d degenerate steps",
			s.ID, s.World.TorusDistance(last.Robot, last.Estimate), s.Filter.DegenerateSteps())
	}

	return history, nil
}

// Run builds a Simulation from cfg and runs it to completion.
func Run(cfg Config) (*History, error) {
	sim, err := NewSimulation(cfg)
	if err != nil {
		return nil, err
	}
	return sim.Run()
}
