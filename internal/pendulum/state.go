package pendulum

import (
	"fmt"
	"math"
)

// Tau is one full turn in radians.
const Tau = 2 * math.Pi

// State is the instantaneous configuration of the double pendulum. Angles are
// measured from the downward vertical and are always held in [0, 2π).
type State struct {
	theta1, theta2 float64
	omega1, omega2 float64
}

// NewState builds a State, wrapping both angles into [0, 2π). Angular
// velocities are kept as given.
func NewState(theta1, theta2, omega1, omega2 float64) State {
	return State{
		theta1: normalizeAngle(theta1),
		theta2: normalizeAngle(theta2),
		omega1: omega1,
		omega2: omega2,
	}
}

func normalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, Tau)
	if angle < 0 {
		angle += Tau
		// tiny negative remainders round up to exactly 2π
		if angle >= Tau {
			return 0
		}
	}
	return angle
}

// Theta1 is the angle of the first rod from the downward vertical, in [0, 2π).
func (s State) Theta1() float64 { return s.theta1 }

// Theta2 is the angle of the second rod, in [0, 2π).
func (s State) Theta2() float64 { return s.theta2 }

// Omega1 is the angular velocity of the first rod in rad/s.
func (s State) Omega1() float64 { return s.omega1 }

// Omega2 is the angular velocity of the second rod in rad/s.
func (s State) Omega2() float64 { return s.omega2 }

// Add returns the component-wise sum of two states.
func (s State) Add(o State) State {
	return NewState(s.theta1+o.theta1, s.theta2+o.theta2, s.omega1+o.omega1, s.omega2+o.omega2)
}

// Scale multiplies every component by d.
func (s State) Scale(d float64) State {
	return NewState(s.theta1*d, s.theta2*d, s.omega1*d, s.omega2*d)
}

// Scale is the commuted form of [State.Scale].
func Scale(d float64, s State) State {
	return s.Scale(d)
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Vector returns the state as [θ1, θ2, ω1, ω2].
func (s State) Vector() []float64 {
	return []float64{s.theta1, s.theta2, s.omega1, s.omega2}
}

func (s State) String() string {
	return fmt.Sprintf("θ1=%.6f θ2=%.6f ω1=%.6f ω2=%.6f", s.theta1, s.theta2, s.omega1, s.omega2)
}

// rate is the time derivative of a State. Its angle slots hold angular
// velocities and are never wrapped.
type rate struct {
	theta1, theta2 float64
	omega1, omega2 float64
}

func (r rate) add(o rate) rate {
	return rate{r.theta1 + o.theta1, r.theta2 + o.theta2, r.omega1 + o.omega1, r.omega2 + o.omega2}
}

func (r rate) scale(d float64) rate {
	return rate{r.theta1 * d, r.theta2 * d, r.omega1 * d, r.omega2 * d}
}

// advance returns s + dt*r through the normalizing constructor.
func (s State) advance(r rate, dt float64) State {
	return NewState(
		s.theta1+dt*r.theta1,
		s.theta2+dt*r.theta2,
		s.omega1+dt*r.omega1,
		s.omega2+dt*r.omega2,
	)
}
