// Package analysis provides chaos and signal tools for double pendulum runs.
//
//   - [Divergence]: angular separation of two runs over time
//   - [LyapunovExponent]: largest Lyapunov exponent via renormalized separation
//   - [PowerSpectrum] and [DominantFrequency]: spectrum of a sampled series
//   - [PhasePortrait]: ASCII scatter of two series
//   - [PoincareSection]: (θ2, ω2) each time the first arm swings up through the bottom
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda := analysis.LyapunovExponent(integ, x0, 1e-3, 60, 1e-8)
//	if lambda > 0 {
//	    // chaotic
//	}
package analysis
