package viz

import (
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/san-kum/dpsim/internal/pendulum"
)

const (
	animationFPS = 60
	barFrequency = 6.0
	barDamping   = 0.8
)

// EnergyBars eases the displayed energy shares towards the latest frame with
// a damped spring per term.
type EnergyBars struct {
	spring  harmonica.Spring
	targets [3]float64
	pos     [3]float64
	vel     [3]float64
}

func NewEnergyBars() *EnergyBars {
	return &EnergyBars{
		spring: harmonica.NewSpring(harmonica.FPS(animationFPS), barFrequency, barDamping),
	}
}

// Target sets the shares to move towards. A zero or non-finite breakdown
// pulls every bar to zero.
func (b *EnergyBars) Target(e pendulum.Breakdown) {
	v, i, g := e.Shares()
	for k, s := range [3]float64{v, i, g} {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		b.targets[k] = s
	}
}

// Tick advances every spring by one animation frame.
func (b *EnergyBars) Tick() {
	for k := range b.pos {
		b.pos[k], b.vel[k] = b.spring.Update(b.pos[k], b.vel[k], b.targets[k])
	}
}

// Snap jumps straight to the targets.
func (b *EnergyBars) Snap() {
	b.pos = b.targets
	b.vel = [3]float64{}
}

// Shares returns the animated velocity, inertia and gravity shares.
func (b *EnergyBars) Shares() (velocity, inertia, gravity float64) {
	return b.pos[0], b.pos[1], b.pos[2]
}
