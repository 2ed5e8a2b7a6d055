// Package pendulum implements the double pendulum core: the state value, the
// fixed physical parameters, a 4th-order Runge-Kutta integrator over the
// Lagrangian equations of motion and the energy decomposition used for display.
//
//   - [State]: angles normalized into [0, 2π) plus angular velocities
//   - [Params]: rod lengths, bob masses and gravity for one run
//   - [Integrator]: advances a State by one fixed step
//   - [Energies]: velocity / inertia / gravity split of the energy
//
// # Example
//
//	integ := pendulum.NewIntegrator(pendulum.DefaultParams())
//	s := pendulum.NewState(1, 2, 0, 0)
//	for i := 0; i < 100; i++ {
//	    s = integ.Step(s, 1e-4)
//	}
//	e := pendulum.Energies(integ.Params(), s)
//
// # Numerical Degeneracy
//
// Nothing in this package validates its inputs or returns an error.
// Non-positive lengths or masses and oversized steps produce NaN or Inf
// values that propagate through later steps. Callers that accept user input
// should run [Params.Validate] before building an [Integrator].
//
// # Thread Safety
//
// State, Params and Integrator are immutable after construction and may be
// shared between goroutines.
package pendulum
