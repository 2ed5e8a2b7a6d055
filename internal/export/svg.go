package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/dpsim/internal/viz"
)

type Point struct {
	X, Y float64
}

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64, fill string) string {
	if canvas == nil {
		return ""
	}

	w, h := canvas.Dots()
	width := float64(w) * scale
	height := float64(h) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="%s">
`, width, height, width, height, fill)

	dotRadius := scale * 0.4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius)
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TrajectoryToSVG draws points as one path, scaled uniformly so shapes keep
// their proportions, with y pointing down as in pendulum coordinates.
// Non-finite points break the path.
func TrajectoryToSVG(points []Point, width, height int, strokeColor string) string {
	finite := make([]Point, 0, len(points))
	for _, p := range points {
		if isFinite(p.X) && isFinite(p.Y) {
			finite = append(finite, p)
		}
	}
	if len(finite) < 2 {
		return ""
	}

	minX, maxX := finite[0].X, finite[0].X
	minY, maxY := finite[0].Y, finite[0].Y
	for _, p := range finite {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	scale := 0.9 * math.Min(float64(width), float64(height)) / span
	offX := (float64(width) - (maxX-minX)*scale) / 2
	offY := (float64(height) - (maxY-minY)*scale) / 2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="`,
		width, height, width, height, strokeColor)

	move, first := true, true
	for _, p := range points {
		if !isFinite(p.X) || !isFinite(p.Y) {
			move = true
			continue
		}
		x := offX + (p.X-minX)*scale
		y := offY + (p.Y-minY)*scale
		if move {
			if !first {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			move, first = false, false
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
