package pendulum

import "math"

// Positions returns both bob coordinates relative to the pivot with y
// pointing down.
func Positions(p Params, s State) (x1, y1, x2, y2 float64) {
	x1 = p.L1 * math.Sin(s.theta1)
	y1 = p.L1 * math.Cos(s.theta1)
	x2 = x1 + p.L2*math.Sin(s.theta2)
	y2 = y1 + p.L2*math.Cos(s.theta2)
	return
}
