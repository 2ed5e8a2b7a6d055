// Package viz renders a double pendulum in the terminal using Bubble Tea.
//
//   - [Model]: live view of one run, fed by a sim.Runner goroutine
//   - [Picker]: preset list that opens a [Model]
//   - [Canvas]: Braille-based pixel canvas
//   - [EnergyBars]: spring-animated energy shares
//
// # Key Bindings
//
//	Space - Run/stop
//	R     - Reset to the initial state and parameters
//	Tab   - Select a parameter
//	Up/K  - Increase the parameter by 5% (stopped only)
//	Down/J- Decrease the parameter by 5% (stopped only)
//	+/-   - Change simulation speed
//	T     - Cycle color themes
//	Q     - Quit
package viz
