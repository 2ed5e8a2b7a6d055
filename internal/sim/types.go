package sim

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/dpsim/internal/pendulum"
)

const (
	DefaultStepSize = 0.0001
	DefaultSpeed    = 1.0
	DefaultInterval = 0.01

	maxStepsPerInterval = math.MaxInt32
)

var (
	// ErrUnstable indicates the trajectory left the finite numbers.
	ErrUnstable = errors.New("sim: simulation unstable (state diverged)")

	// ErrInvalidLoop indicates a step size, speed or interval that cannot drive a run.
	ErrInvalidLoop = errors.New("sim: invalid loop settings")
)

// Loop is the scheduling policy of a run: how far one integration step goes,
// how fast simulated time runs against wall time, and how often a frame is
// emitted.
type Loop struct {
	StepSize float64 `yaml:"step_size" json:"step_size"`
	Speed    float64 `yaml:"speed" json:"speed"`
	Interval float64 `yaml:"interval" json:"interval"`
}

func DefaultLoop() Loop {
	return Loop{
		StepSize: DefaultStepSize,
		Speed:    DefaultSpeed,
		Interval: DefaultInterval,
	}
}

func (l Loop) Validate() error {
	if !(l.StepSize > 0) || math.IsInf(l.StepSize, 0) {
		return fmt.Errorf("%w: step size must be positive, got %g", ErrInvalidLoop, l.StepSize)
	}
	if !(l.Speed > 0) || math.IsInf(l.Speed, 0) {
		return fmt.Errorf("%w: speed must be positive, got %g", ErrInvalidLoop, l.Speed)
	}
	if !(l.Interval > 0) || math.IsInf(l.Interval, 0) {
		return fmt.Errorf("%w: interval must be positive, got %g", ErrInvalidLoop, l.Interval)
	}
	return nil
}

// StepsPerInterval is the number of integration steps between two frames:
// interval/stepSize*speed rounded half to even, never below 1.
func StepsPerInterval(interval, stepSize, speed float64) int {
	steps := math.RoundToEven(interval / stepSize * speed)
	if math.IsNaN(steps) || steps < 1 {
		return 1
	}
	if steps > maxStepsPerInterval {
		return maxStepsPerInterval
	}
	return int(steps)
}

func (l Loop) Steps() int {
	return StepsPerInterval(l.Interval, l.StepSize, l.Speed)
}

// SimulatedPerFrame is the simulated time covered by one frame.
func (l Loop) SimulatedPerFrame() float64 {
	return l.StepSize * float64(l.Steps())
}

// Period is the wall time between two frames.
func (l Loop) Period() time.Duration {
	return time.Duration(l.SimulatedPerFrame() / l.Speed * float64(time.Second))
}

// Frame is one emitted snapshot. It is immutable and safe to hand to another
// goroutine.
type Frame struct {
	Seq    int                `json:"seq"`
	Steps  int                `json:"steps"`
	Time   float64            `json:"time"`
	State  pendulum.State     `json:"-"`
	Energy pendulum.Breakdown `json:"energy"`

	// Lag is how late the frame was produced against its schedule. Always
	// zero for headless runs.
	Lag time.Duration `json:"-"`
}

func newFrame(seq, steps int, stepSize float64, params pendulum.Params, s pendulum.State) Frame {
	return Frame{
		Seq:    seq,
		Steps:  steps,
		Time:   float64(steps) * stepSize,
		State:  s,
		Energy: pendulum.Energies(params, s),
	}
}

// Observer is notified of every frame before it is handed to the consumer.
type Observer interface {
	OnFrame(f Frame)
}

type ObserverFunc func(f Frame)

func (fn ObserverFunc) OnFrame(f Frame) { fn(f) }

type Result struct {
	Frames     []Frame
	StepsTaken int
}

// Series returns component idx of every recorded state, in [θ1, θ2, ω1, ω2]
// order.
func (r *Result) Series(idx int) []float64 {
	out := make([]float64, len(r.Frames))
	for i, f := range r.Frames {
		out[i] = f.State.Vector()[idx]
	}
	return out
}

func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Frames))
	for i, f := range r.Frames {
		out[i] = f.Time
	}
	return out
}

func (r *Result) Final() Frame {
	if len(r.Frames) == 0 {
		return Frame{}
	}
	return r.Frames[len(r.Frames)-1]
}

// SimulationError wraps an error with the point in the run where it surfaced.
type SimulationError struct {
	Step    int
	Time    float64
	State   pendulum.State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
