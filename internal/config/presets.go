package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/dpsim/internal/pendulum"
	"github.com/san-kum/dpsim/internal/sim"
)

var ErrUnknownPreset = errors.New("config: unknown preset")

var Presets = map[string]*Config{
	"default": {
		Params:   pendulum.DefaultParams(),
		Initial:  InitStateConfig{Theta1: 1, Theta2: 2},
		Loop:     sim.DefaultLoop(),
		Duration: 30,
	},
	"gentle": {
		Params:   pendulum.DefaultParams(),
		Initial:  InitStateConfig{Theta1: 0.1, Theta2: 0.1},
		Loop:     sim.DefaultLoop(),
		Duration: 20,
	},
	"symmetric": {
		Params:   pendulum.DefaultParams(),
		Initial:  InitStateConfig{Theta1: 1.5, Theta2: 1.5},
		Loop:     sim.DefaultLoop(),
		Duration: 30,
	},
	"chaos": {
		Params:   pendulum.DefaultParams(),
		Initial:  InitStateConfig{Theta1: 3, Theta2: 3},
		Loop:     sim.Loop{StepSize: 0.00005, Speed: 1, Interval: 0.01},
		Duration: 60,
	},
	"spinning": {
		Params:   pendulum.Params{L1: 1, L2: 0.5, M1: 2, M2: 1, G: 9.81},
		Initial:  InitStateConfig{Theta1: 0, Theta2: 0, Omega1: 8, Omega2: -4},
		Loop:     sim.DefaultLoop(),
		Duration: 30,
	},
	"moon": {
		Params:   pendulum.Params{L1: 1, L2: 1, M1: 1, M2: 1, G: 1.62},
		Initial:  InitStateConfig{Theta1: 1, Theta2: 2},
		Loop:     sim.Loop{StepSize: 0.0001, Speed: 0.5, Interval: 0.01},
		Duration: 60,
	},
}

var summaries = map[string]string{
	"default":   "θ=(1, 2) at rest, the classic start",
	"gentle":    "small swing, nearly linear normal modes",
	"symmetric": "both arms raised to 1.5 rad",
	"chaos":     "both arms near vertical, finer steps",
	"spinning":  "heavy short arms launched in opposite directions",
	"moon":      "lunar gravity at half speed",
}

// Summary is a one-line description of a preset.
func Summary(name string) string {
	return summaries[name]
}

// GetPreset returns a copy of the named preset.
func GetPreset(name string) (*Config, error) {
	cfg, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownPreset, name, ListPresets())
	}
	c := *cfg
	return &c, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
