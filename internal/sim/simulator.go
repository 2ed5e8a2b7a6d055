package sim

import (
	"context"
	"math"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/san-kum/dpsim/internal/pendulum"
)

// Clock abstracts wall time so the paced loop can be driven in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Runner drives an Integrator in batches of Loop.Steps() steps and emits one
// Frame per batch. It is not safe for concurrent use; run one Runner per
// goroutine.
type Runner struct {
	integ     *pendulum.Integrator
	loop      Loop
	observers []Observer
	logger    kitlog.Logger
	clock     Clock
}

type Option func(*Runner)

func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

func WithLogger(l kitlog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

func NewRunner(integ *pendulum.Integrator, loop Loop, opts ...Option) *Runner {
	r := &Runner{
		integ:  integ,
		loop:   loop,
		logger: kitlog.NewNopLogger(),
		clock:  realClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Loop() Loop { return r.loop }

func (r *Runner) Integrator() *pendulum.Integrator { return r.integ }

func (r *Runner) emit(f Frame) {
	for _, o := range r.observers {
		o.OnFrame(f)
	}
}

// Run emits a frame every Loop.Period() of wall time until ctx is done, and
// closes out on return. Frame i is due at start + i*period, so time spent
// integrating does not accumulate as drift. A batch already started always
// completes. Non-finite states are logged once and keep propagating.
func (r *Runner) Run(ctx context.Context, initial pendulum.State, out chan<- Frame) error {
	defer close(out)

	if err := r.loop.Validate(); err != nil {
		return err
	}

	steps := r.loop.Steps()
	period := r.loop.Period()
	params := r.integ.Params()
	start := r.clock.Now()

	level.Info(r.logger).Log("msg", "run started", "steps_per_frame", steps, "period", period, "state", initial)

	state := initial
	taken := 0
	warned := false

	for seq := 0; ; seq++ {
		due := start.Add(time.Duration(seq) * period)
		if wait := due.Sub(r.clock.Now()); wait > 0 {
			select {
			case <-ctx.Done():
				level.Info(r.logger).Log("msg", "run stopped", "frames", seq, "steps", taken)
				return ctx.Err()
			case <-r.clock.After(wait):
			}
		} else if err := ctx.Err(); err != nil {
			level.Info(r.logger).Log("msg", "run stopped", "frames", seq, "steps", taken)
			return err
		}

		state = r.integ.Advance(state, r.loop.StepSize, steps)
		taken += steps

		if !warned && !state.IsValid() {
			level.Warn(r.logger).Log("msg", "state is no longer finite", "frame", seq, "steps", taken)
			warned = true
		}

		f := newFrame(seq, taken, r.loop.StepSize, params, state)
		f.Lag = r.clock.Now().Sub(due)
		r.emit(f)

		select {
		case <-ctx.Done():
			level.Info(r.logger).Log("msg", "run stopped", "frames", seq, "steps", taken)
			return ctx.Err()
		case out <- f:
		}
	}
}

// Simulate runs as fast as possible for the given simulated duration, rounded
// to whole frames, recording the initial state and one frame per batch. It
// stops at the first non-finite state with a *SimulationError wrapping
// ErrUnstable.
func (r *Runner) Simulate(ctx context.Context, initial pendulum.State, duration float64) (*Result, error) {
	if err := r.loop.Validate(); err != nil {
		return nil, err
	}

	steps := r.loop.Steps()
	frames := int(math.Round(duration / r.loop.SimulatedPerFrame()))
	if frames < 1 {
		frames = 1
	}
	params := r.integ.Params()

	result := &Result{Frames: make([]Frame, 0, frames+1)}
	state := initial

	first := newFrame(0, 0, r.loop.StepSize, params, state)
	r.emit(first)
	result.Frames = append(result.Frames, first)

	for seq := 1; seq <= frames; seq++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		state = r.integ.Advance(state, r.loop.StepSize, steps)
		result.StepsTaken += steps

		if !state.IsValid() {
			err := &SimulationError{
				Step:    result.StepsTaken,
				Time:    float64(result.StepsTaken) * r.loop.StepSize,
				State:   state,
				Wrapped: ErrUnstable,
			}
			level.Error(r.logger).Log("msg", "simulation diverged", "err", err)
			return result, err
		}

		f := newFrame(seq, result.StepsTaken, r.loop.StepSize, params, state)
		r.emit(f)
		result.Frames = append(result.Frames, f)
	}

	level.Debug(r.logger).Log("msg", "simulation finished", "frames", len(result.Frames), "steps", result.StepsTaken)
	return result, nil
}
