package pendulum

import "math"

// Breakdown is the velocity / inertia / gravity split of the system energy
// used for display. The three terms are not a strict kinetic/potential split
// and their sum is not conserved.
type Breakdown struct {
	Velocity float64 `json:"velocity"`
	Inertia  float64 `json:"inertia"`
	Gravity  float64 `json:"gravity"`
}

// Energies evaluates all three terms for s.
func Energies(p Params, s State) Breakdown {
	return Breakdown{
		Velocity: VelocityEnergy(p, s),
		Inertia:  InertiaEnergy(p, s),
		Gravity:  GravityEnergy(p, s),
	}
}

// Total is the sum of the three terms. It is not conserved along a trajectory.
func (b Breakdown) Total() float64 {
	return b.Velocity + b.Inertia + b.Gravity
}

// Shares returns each term as a fraction of the total, or zeros when the
// total is zero.
func (b Breakdown) Shares() (velocity, inertia, gravity float64) {
	total := b.Total()
	if total == 0 {
		return 0, 0, 0
	}
	return b.Velocity / total, b.Inertia / total, b.Gravity / total
}

// VelocityEnergy is the translational energy of the centre of mass.
func VelocityEnergy(p Params, s State) float64 {
	vx := math.Cos(s.theta1)*s.omega1*p.L1 +
		p.M2/(p.M1+p.M2)*math.Cos(s.theta2)*s.omega2*p.L2
	vy := math.Sin(s.theta1)*s.omega1*p.L1 +
		p.M2/(p.M1+p.M2)*math.Sin(s.theta2)*s.omega2*p.L2
	return 0.5 * (p.M1 + p.M2) * (vx*vx + vy*vy)
}

// InertiaEnergy is the rotational energy about the second bob.
func InertiaEnergy(p Params, s State) float64 {
	ig := p.L2 * p.L2 * p.M1 * p.M2 / (p.M1 + p.M2)
	return 0.5 * ig * s.omega2 * s.omega2
}

// GravityEnergy is the potential energy measured from the lowest reachable
// point of the centre of mass.
func GravityEnergy(p Params, s State) float64 {
	y := p.L1 + p.M2/(p.M1+p.M2)*p.L2 - math.Cos(s.theta1)*p.L1 - p.M2/(p.M1+p.M2)*math.Cos(s.theta2)*p.L2
	return (p.M1 + p.M2) * p.G * y
}
