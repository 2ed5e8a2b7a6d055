package analysis

import (
	"math"

	"github.com/san-kum/dpsim/internal/pendulum"
)

// AngleBetween is the absolute angular distance between a and b, in [0, π].
func AngleBetween(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), pendulum.Tau)
	if d > math.Pi {
		d = pendulum.Tau - d
	}
	return d
}

func signedAngle(a, b float64) float64 {
	return math.Remainder(a-b, pendulum.Tau)
}

// separation is the Euclidean distance between two states, with angle
// components taken the short way round.
func separation(a, b pendulum.State) float64 {
	d1 := signedAngle(a.Theta1(), b.Theta1())
	d2 := signedAngle(a.Theta2(), b.Theta2())
	d3 := a.Omega1() - b.Omega1()
	d4 := a.Omega2() - b.Omega2()
	return math.Sqrt(d1*d1 + d2*d2 + d3*d3 + d4*d4)
}

// Divergence runs a and b side by side and samples the θ1 separation every
// sampleEvery steps, starting with the initial separation.
func Divergence(integ *pendulum.Integrator, a, b pendulum.State, stepSize, duration float64, sampleEvery int) []float64 {
	if sampleEvery < 1 {
		sampleEvery = 1
	}
	steps := int(math.Round(duration / stepSize))
	if steps < 0 {
		steps = 0
	}

	out := make([]float64, 0, steps/sampleEvery+1)
	out = append(out, AngleBetween(a.Theta1(), b.Theta1()))

	for i := 1; i <= steps; i++ {
		a = integ.Step(a, stepSize)
		b = integ.Step(b, stepSize)
		if i%sampleEvery == 0 {
			out = append(out, AngleBetween(a.Theta1(), b.Theta1()))
		}
	}
	return out
}

// LyapunovExponent estimates the largest Lyapunov exponent by following a
// copy of x0 offset by perturbation in θ1. After every step the separation is
// logged and the copy is pulled back to the initial distance along the
// current separation direction. A positive value indicates chaos.
func LyapunovExponent(
	integ *pendulum.Integrator,
	x0 pendulum.State,
	stepSize, duration float64,
	perturbation float64,
) float64 {
	if !(perturbation > 0) || !(stepSize > 0) || !x0.IsValid() {
		return 0
	}

	x := x0
	xp := pendulum.NewState(x0.Theta1()+perturbation, x0.Theta2(), x0.Omega1(), x0.Omega2())
	d0 := separation(x, xp)
	if d0 == 0 {
		return 0
	}

	t := 0.0
	sumLog := 0.0

	for t < duration {
		x = integ.Step(x, stepSize)
		xp = integ.Step(xp, stepSize)
		t += stepSize

		sep := separation(x, xp)
		if !(sep > 0) || math.IsInf(sep, 0) {
			break
		}
		sumLog += math.Log(sep / d0)

		scale := d0 / sep
		xp = pendulum.NewState(
			x.Theta1()+signedAngle(xp.Theta1(), x.Theta1())*scale,
			x.Theta2()+signedAngle(xp.Theta2(), x.Theta2())*scale,
			x.Omega1()+(xp.Omega1()-x.Omega1())*scale,
			x.Omega2()+(xp.Omega2()-x.Omega2())*scale,
		)
	}

	if t == 0 {
		return 0
	}
	return sumLog / t
}
