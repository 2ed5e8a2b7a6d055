package pendulum

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultMass    = 1.0
	DefaultLength  = 1.0
	DefaultGravity = 9.81
)

// ErrParameterBounds indicates a physical parameter that cannot describe a
// real pendulum.
var ErrParameterBounds = errors.New("pendulum: parameter out of valid bounds")

// Params holds the fixed physical description of one run.
type Params struct {
	L1 float64 `yaml:"l1" json:"l1"`
	L2 float64 `yaml:"l2" json:"l2"`
	M1 float64 `yaml:"m1" json:"m1"`
	M2 float64 `yaml:"m2" json:"m2"`
	G  float64 `yaml:"g" json:"g"`
}

func DefaultParams() Params {
	return Params{
		L1: DefaultLength, L2: DefaultLength,
		M1: DefaultMass, M2: DefaultMass,
		G: DefaultGravity,
	}
}

var paramNames = []string{"l1", "l2", "m1", "m2", "g"}

// ParamNames lists the tunable parameter names in display order.
func ParamNames() []string {
	names := make([]string, len(paramNames))
	copy(names, paramNames)
	return names
}

func (p Params) Get(name string) (float64, error) {
	switch name {
	case "l1":
		return p.L1, nil
	case "l2":
		return p.L2, nil
	case "m1":
		return p.M1, nil
	case "m2":
		return p.M2, nil
	case "g":
		return p.G, nil
	default:
		return 0, fmt.Errorf("unknown param: %s", name)
	}
}

// With returns a copy of p with one parameter replaced.
func (p Params) With(name string, value float64) (Params, error) {
	switch name {
	case "l1":
		p.L1 = value
	case "l2":
		p.L2 = value
	case "m1":
		p.M1 = value
	case "m2":
		p.M2 = value
	case "g":
		p.G = value
	default:
		return p, fmt.Errorf("unknown param: %s", name)
	}
	return p, nil
}

// Validate rejects non-finite values and non-positive lengths, masses or
// gravity. The integrator never calls it.
func (p Params) Validate() error {
	for _, name := range paramNames {
		v, _ := p.Get(name)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrParameterBounds, name)
		}
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrParameterBounds, name, v)
		}
	}
	return nil
}
