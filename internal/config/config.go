package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/san-kum/dpsim/internal/pendulum"
	"github.com/san-kum/dpsim/internal/sim"
	"gopkg.in/yaml.v3"
)

// ErrInvalidState indicates an initial angle or velocity that is not finite.
var ErrInvalidState = errors.New("config: invalid initial state")

const (
	DefaultTheta1   = 1.0
	DefaultTheta2   = 2.0
	DefaultDuration = 10.0
)

type Config struct {
	Params   pendulum.Params `yaml:"params"`
	Initial  InitStateConfig `yaml:"init_state"`
	Loop     sim.Loop        `yaml:"loop"`
	Duration float64         `yaml:"duration"`
}

type InitStateConfig struct {
	Theta1 float64 `yaml:"theta1"`
	Theta2 float64 `yaml:"theta2"`
	Omega1 float64 `yaml:"omega1"`
	Omega2 float64 `yaml:"omega2"`
}

func DefaultConfig() *Config {
	return &Config{
		Params: pendulum.DefaultParams(),
		Initial: InitStateConfig{
			Theta1: DefaultTheta1,
			Theta2: DefaultTheta2,
		},
		Loop:     sim.DefaultLoop(),
		Duration: DefaultDuration,
	}
}

// Load reads a YAML file on top of DefaultConfig, so omitted keys keep their
// defaults.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML file on top of a copy of base.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate is the input check that sits in front of the integrator, which
// accepts anything.
func (c *Config) Validate() error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if err := c.Loop.Validate(); err != nil {
		return err
	}
	initial := []struct {
		name  string
		value float64
	}{
		{"theta1", c.Initial.Theta1},
		{"theta2", c.Initial.Theta2},
		{"omega1", c.Initial.Omega1},
		{"omega2", c.Initial.Omega2},
	}
	for _, v := range initial {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return fmt.Errorf("%w: %s is %g", ErrInvalidState, v.name, v.value)
		}
	}
	if !(c.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %g", c.Duration)
	}
	return nil
}

func (c *Config) InitState() pendulum.State {
	return pendulum.NewState(c.Initial.Theta1, c.Initial.Theta2, c.Initial.Omega1, c.Initial.Omega2)
}
