package particlefilter

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// LandmarkConfig is a landmark position in a config file.
type LandmarkConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Config describes a complete localization run.
type Config struct {
	WorldSize float64          `yaml:"world_size"`
	Landmarks []LandmarkConfig `yaml:"landmarks"`
	Particles int              `yaml:"particles"`
	Steps     int              `yaml:"steps"`
	Noise     Noise            `yaml:"noise"`
	Control   Control          `yaml:"control"` // Applied at every step
	Seed      uint64           `yaml:"seed"`

	Workers        int     `yaml:"workers,omitempty"`
	InjectFraction float64 `yaml:"inject_fraction,omitempty"`
}

// DefaultConfig returns the reference scenario: a 100x100 world with four
// landmarks, 500 particles and 30 steps of (turn 0.1, forward 5).
func DefaultConfig() Config {
	return Config{
		WorldSize: 100,
		Landmarks: []LandmarkConfig{
			{X: 20, Y: 20},
			{X: 80, Y: 80},
			{X: 20, Y: 80},
			{X: 80, Y: 20},
		},
		Particles: 500,
		Steps:     30,
		Noise:     DefaultNoise(),
		Control:   Control{Turn: 0.1, Forward: 5},
		Seed:      1,
		Workers:   1,
	}
}

// LoadConfig reads a YAML config. Keys missing from the file keep their
// DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig writes the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Validate rejects configurations that cannot run. Nothing is allocated
// before validation passes.
func (c Config) Validate() error {
	if _, err := NewWorld(c.WorldSize, c.LandmarkPoints()); err != nil {
		return err
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps must be non-negative, got %d", ErrInvalidConfig, c.Steps)
	}
	if err := c.Control.Validate(); err != nil {
		return err
	}
	return c.FilterConfig().Validate()
}

// LandmarkPoints converts the configured landmarks to points, keeping order.
func (c Config) LandmarkPoints() []orb.Point {
	pts := make([]orb.Point, len(c.Landmarks))
	for i, lm := range c.Landmarks {
		pts[i] = orb.Point{lm.X, lm.Y}
	}
	return pts
}

// FilterConfig extracts the particle filter settings.
func (c Config) FilterConfig() FilterConfig {
	return FilterConfig{
		Particles:      c.Particles,
		Noise:          c.Noise,
		Workers:        c.Workers,
		InjectFraction: c.InjectFraction,
	}
}
