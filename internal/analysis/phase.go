package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/dpsim/internal/pendulum"
	"gonum.org/v1/gonum/floats"
)

type Point struct {
	X, Y float64
}

// PhasePortrait plots y against x as an ASCII scatter of the given size,
// drawing the axes where they cross the view. Non-finite pairs are skipped.
func PhasePortrait(x, y []float64, width, height int) string {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	points := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		if finite(x[i]) && finite(y[i]) {
			points = append(points, Point{x[i], y[i]})
		}
	}
	return scatter(points, width, height)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func scatter(points []Point, width, height int) string {
	if len(points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// PoincareSection records (θ2 in (-π, π], ω2) each time the first arm passes through
// the bottom with positive ω1, interpolated linearly inside the crossing step.
func PoincareSection(integ *pendulum.Integrator, x0 pendulum.State, stepSize, duration float64) []Point {
	steps := int(math.Round(duration / stepSize))
	var section []Point

	x := x0
	prev := math.Sin(x.Theta1())
	for i := 0; i < steps; i++ {
		next := integ.Step(x, stepSize)
		curr := math.Sin(next.Theta1())

		if prev < 0 && curr >= 0 && math.Cos(next.Theta1()) > 0 && next.Omega1() > 0 {
			frac := -prev / (curr - prev)
			if !finite(frac) {
				frac = 0.5
			}
			section = append(section, Point{
				X: math.Remainder(x.Theta2()+signedAngle(next.Theta2(), x.Theta2())*frac, pendulum.Tau),
				Y: x.Omega2() + (next.Omega2()-x.Omega2())*frac,
			})
		}

		x = next
		prev = curr
	}
	return section
}

// PoincarePlot renders a section with the same scatter as PhasePortrait.
func PoincarePlot(section []Point, width, height int) string {
	if len(section) == 0 {
		return "No crossings detected"
	}
	return scatter(section, width, height)
}
