package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/dpsim/internal/pendulum"
	"github.com/san-kum/dpsim/internal/sim"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Initial.Theta1 != 1 || cfg.Initial.Theta2 != 2 {
		t.Errorf("expected initial angles (1, 2), got (%f, %f)", cfg.Initial.Theta1, cfg.Initial.Theta2)
	}
	if cfg.Loop != sim.DefaultLoop() {
		t.Errorf("unexpected loop %+v", cfg.Loop)
	}
	if cfg.Params != pendulum.DefaultParams() {
		t.Errorf("unexpected params %+v", cfg.Params)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := DefaultConfig()
	cfg.Params.L2 = 0.5
	cfg.Initial.Omega1 = -3
	cfg.Loop.Speed = 2
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip changed config: %+v vs %+v", loaded, cfg)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("params:\n  g: 1.62\ninit_state:\n  theta1: 0.5\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Params.G != 1.62 {
		t.Errorf("expected g 1.62, got %f", cfg.Params.G)
	}
	if cfg.Params.L1 != pendulum.DefaultLength {
		t.Errorf("expected default l1, got %f", cfg.Params.L1)
	}
	if cfg.Initial.Theta1 != 0.5 || cfg.Initial.Theta2 != DefaultTheta2 {
		t.Errorf("unexpected initial state %+v", cfg.Initial)
	}
	if cfg.Loop.StepSize != sim.DefaultStepSize {
		t.Errorf("expected default step size, got %f", cfg.Loop.StepSize)
	}
}

func TestLoadOverPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(path, []byte("duration: 5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	base, err := GetPreset("spinning")
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadOver(path, base)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Duration != 5 {
		t.Errorf("expected duration from file, got %f", cfg.Duration)
	}
	if cfg.Params != base.Params || cfg.Initial != base.Initial {
		t.Error("keys missing from the file should keep the preset values")
	}
	if base.Duration == 5 {
		t.Error("LoadOver must not modify base")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("params: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		target error
	}{
		{"negative mass", func(c *Config) { c.Params.M1 = -1 }, pendulum.ErrParameterBounds},
		{"zero length", func(c *Config) { c.Params.L2 = 0 }, pendulum.ErrParameterBounds},
		{"zero step", func(c *Config) { c.Loop.StepSize = 0 }, sim.ErrInvalidLoop},
		{"NaN angle", func(c *Config) { c.Initial.Theta2 = math.NaN() }, ErrInvalidState},
		{"infinite velocity", func(c *Config) { c.Initial.Omega1 = math.Inf(-1) }, ErrInvalidState},
		{"zero duration", func(c *Config) { c.Duration = 0 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestValidateReportsFirstBadField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Initial = InitStateConfig{Theta1: 0, Theta2: math.NaN(), Omega1: math.Inf(1), Omega2: math.NaN()}

	for i := 0; i < 20; i++ {
		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
		if !strings.Contains(err.Error(), "theta2") {
			t.Fatalf("expected theta2 to be reported first, got %v", err)
		}
	}
}

func TestInitState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Initial = InitStateConfig{Theta1: -1, Theta2: 7, Omega1: 2, Omega2: -2}

	s := cfg.InitState()
	if s != pendulum.NewState(-1, 7, 2, -2) {
		t.Errorf("unexpected state %v", s)
	}
}

func TestGetPreset(t *testing.T) {
	cfg, err := GetPreset("gentle")
	if err != nil {
		t.Fatalf("expected preset, got %v", err)
	}
	if cfg.Initial.Theta1 != 0.1 {
		t.Errorf("expected theta1 0.1, got %f", cfg.Initial.Theta1)
	}

	cfg.Initial.Theta1 = 99
	again, _ := GetPreset("gentle")
	if again.Initial.Theta1 != 0.1 {
		t.Error("GetPreset returned shared preset")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	_, err := GetPreset("nonexistent")
	if !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestPresetsValidate(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
	for _, name := range names {
		if Summary(name) == "" {
			t.Errorf("preset %s has no summary", name)
		}
		cfg, _ := GetPreset(name)
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}
