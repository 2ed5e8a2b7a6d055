package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of braille cells. Each cell holds 2x4 dots, so the
// addressable resolution is (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Dots is the canvas size in dots.
func (c *Canvas) Dots() (w, h int) {
	return c.Width * 2, c.Height * 4
}

// Set turns on the dot at (x, y). Out of range dots are ignored.
func (c *Canvas) Set(x, y int) {
	row, col, mask, ok := c.locate(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] |= mask
}

func (c *Canvas) Unset(x, y int) {
	row, col, mask, ok := c.locate(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] &^= mask
	if c.Grid[row][col] < blank {
		c.Grid[row][col] = blank
	}
}

func (c *Canvas) IsSet(x, y int) bool {
	row, col, mask, ok := c.locate(x, y)
	return ok && c.Grid[row][col]&mask != 0
}

func (c *Canvas) locate(x, y int) (row, col int, mask rune, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, 0, false
	}
	col, row = x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, 0, false
	}
	return row, col, rune(pixelMap[y%4][x%2]), true
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawDisc fills a disc of radius r dots around (cx, cy).
func (c *Canvas) DrawDisc(cx, cy, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.Set(cx+dx, cy+dy)
			}
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps metres around the pivot to canvas dots, y pointing down.
type Viewport struct {
	OriginX, OriginY int
	Scale            float64
}

// Fit centres the pivot and scales reach metres to fill 90% of the smaller
// half-extent, so the pendulum stays visible when it swings over the top.
func Fit(c *Canvas, reach float64) Viewport {
	w, h := c.Dots()
	half := math.Min(float64(w), float64(h)) / 2
	if !(reach > 0) {
		reach = 1
	}
	return Viewport{
		OriginX: w / 2,
		OriginY: h / 2,
		Scale:   half * 0.9 / reach,
	}
}

func (v Viewport) Project(x, y float64) (int, int) {
	return v.OriginX + int(math.Round(x*v.Scale)), v.OriginY + int(math.Round(y*v.Scale))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
