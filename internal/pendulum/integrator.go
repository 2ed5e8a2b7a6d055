package pendulum

import "math"

// Integrator advances a State with classical RK4 for one fixed set of Params.
// A parameter change means a new Integrator; the State carries over.
type Integrator struct {
	p Params
}

// NewIntegrator performs no validation; see [Params.Validate].
func NewIntegrator(p Params) *Integrator {
	return &Integrator{p: p}
}

// Params returns the parameters the integrator was built with.
func (in *Integrator) Params() Params { return in.p }

// Step advances current by stepSize seconds. A negative stepSize integrates
// backwards; there is no error control, so accuracy rests on the caller's
// choice of step.
func (in *Integrator) Step(current State, stepSize float64) State {
	k1 := in.derivative(current)
	k2 := in.derivative(current.advance(k1, stepSize/2))
	k3 := in.derivative(current.advance(k2, stepSize/2))
	k4 := in.derivative(current.advance(k3, stepSize))
	return current.advance(k1.add(k2.scale(2)).add(k3.scale(2)).add(k4), stepSize/6)
}

// Advance applies Step n times.
func (in *Integrator) Advance(current State, stepSize float64, n int) State {
	for i := 0; i < n; i++ {
		current = in.Step(current, stepSize)
	}
	return current
}

// derivative evaluates the equations of motion. Both accelerations share the
// denominator aDet; each numerator is a gravity term, an inertial coupling
// term and a centrifugal term, kept in this exact order.
func (in *Integrator) derivative(s State) rate {
	l1, l2, m1, m2, g := in.p.L1, in.p.L2, in.p.M1, in.p.M2, in.p.G
	o1, o2 := s.omega1, s.omega2

	sinT1, cosT1 := math.Sin(s.theta1), math.Cos(s.theta1)
	sinT2, cosT2 := math.Sin(s.theta2), math.Cos(s.theta2)
	sinD := math.Sin(s.theta1 - s.theta2)

	aDet := l1 * l2 / (m1 + m2) * (sinD*sinD*m2 + m1)
	frac := m2 / (m1 + m2)

	// vertical and horizontal load carried by the first rod
	vertical := g + l1*o1*o1*cosT1 + frac*l2*o2*o2*cosT2
	horizontal := l1*o1*o1*sinT1 + frac*l2*o2*o2*sinT2

	a1 := -l2*sinD*frac*((l1*o1*o1*sinT1*sinT2+frac*l2*o2*o2*sinT2*sinT2)+cosT2*vertical) -
		l2*m1/(m1+m2)*(sinT1*vertical-cosT1*horizontal)
	a2 := l1 * sinD * (cosT1*vertical + sinT1*horizontal)

	return rate{
		theta1: s.omega1,
		theta2: s.omega2,
		omega1: a1 / aDet,
		omega2: a2 / aDet,
	}
}
