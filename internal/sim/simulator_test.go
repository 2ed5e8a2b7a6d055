package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/dpsim/internal/pendulum"
)

func TestSimulatorRun(t *testing.T) {
	integ := pendulum.NewIntegrator(pendulum.DefaultParams())
	runner := NewRunner(integ, DefaultLoop())

	x0 := pendulum.NewState(1, 2, 0, 0)
	result, err := runner.Simulate(context.Background(), x0, 0.1)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Frames) != 11 {
		t.Errorf("expected 11 frames, got %d", len(result.Frames))
	}
	if result.StepsTaken != 1000 {
		t.Errorf("expected 1000 steps, got %d", result.StepsTaken)
	}
	if result.Frames[0].State != x0 || result.Frames[0].Time != 0 {
		t.Errorf("first frame should be the initial state, got %+v", result.Frames[0])
	}

	want := integ.Advance(x0, DefaultStepSize, 1000)
	if got := result.Final().State; got != want {
		t.Errorf("final state %v, expected %v", got, want)
	}
	if e := result.Final().Energy; e != pendulum.Energies(integ.Params(), want) {
		t.Errorf("final energy %+v does not match state", e)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	integ := pendulum.NewIntegrator(pendulum.DefaultParams())

	tests := []struct {
		name string
		loop Loop
	}{
		{"zero step", Loop{StepSize: 0, Speed: 1, Interval: 0.01}},
		{"negative step", Loop{StepSize: -0.1, Speed: 1, Interval: 0.01}},
		{"zero speed", Loop{StepSize: 0.1, Speed: 0, Interval: 0.01}},
		{"negative interval", Loop{StepSize: 0.1, Speed: 1, Interval: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(integ, tt.loop).Simulate(context.Background(), pendulum.NewState(1, 0, 0, 0), 1)
			if !errors.Is(err, ErrInvalidLoop) {
				t.Errorf("expected ErrInvalidLoop, got %v", err)
			}
		})
	}
}

func TestSimulatorUnstable(t *testing.T) {
	integ := pendulum.NewIntegrator(pendulum.Params{L1: 0, L2: 1, M1: 1, M2: 1, G: 9.81})

	result, err := NewRunner(integ, DefaultLoop()).Simulate(context.Background(), pendulum.NewState(1, 2, 0, 0), 1)
	if !errors.Is(err, ErrUnstable) {
		t.Fatalf("expected ErrUnstable, got %v", err)
	}

	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected *SimulationError, got %T", err)
	}
	if simErr.Step != 100 {
		t.Errorf("expected failure after first batch, got step %d", simErr.Step)
	}
	if len(result.Frames) != 1 {
		t.Errorf("expected only the initial frame, got %d", len(result.Frames))
	}
}

func TestSimulatorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	integ := pendulum.NewIntegrator(pendulum.DefaultParams())
	result, err := NewRunner(integ, DefaultLoop()).Simulate(ctx, pendulum.NewState(1, 2, 0, 0), 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(result.Frames) != 1 {
		t.Errorf("expected only the initial frame, got %d", len(result.Frames))
	}
}

func TestSimulatorObservers(t *testing.T) {
	integ := pendulum.NewIntegrator(pendulum.DefaultParams())

	count := 0
	lastSeq := -1
	obs := ObserverFunc(func(f Frame) {
		count++
		lastSeq = f.Seq
	})

	_, err := NewRunner(integ, DefaultLoop(), WithObserver(obs)).Simulate(context.Background(), pendulum.NewState(1, 2, 0, 0), 0.05)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if count != 6 {
		t.Errorf("expected 6 observations, got %d", count)
	}
	if lastSeq != 5 {
		t.Errorf("expected last seq 5, got %d", lastSeq)
	}
}

func TestEnsembleRun(t *testing.T) {
	integ := pendulum.NewIntegrator(pendulum.DefaultParams())
	loop := Loop{StepSize: 1e-3, Speed: 1, Interval: 0.01}

	initials := []pendulum.State{
		pendulum.NewState(1, 2, 0, 0),
		pendulum.NewState(0.5, 0.5, 0, 0),
		pendulum.NewState(0, 0, 0, 0),
	}

	results, err := NewEnsemble(integ, loop).Run(context.Background(), initials, 0.5)
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(results) != len(initials) {
		t.Fatalf("expected %d results, got %d", len(initials), len(results))
	}

	for i, res := range results {
		want := integ.Advance(initials[i], 1e-3, 500)
		if got := res.Final().State; got != want {
			t.Errorf("run %d: final state %v, expected %v", i, got, want)
		}
	}
}

func TestEnsembleError(t *testing.T) {
	integ := pendulum.NewIntegrator(pendulum.Params{L1: 1, L2: 0, M1: 1, M2: 1, G: 9.81})

	_, err := NewEnsemble(integ, DefaultLoop()).Run(context.Background(), []pendulum.State{pendulum.NewState(1, 2, 0, 0)}, 1)
	if !errors.Is(err, ErrUnstable) {
		t.Errorf("expected ErrUnstable, got %v", err)
	}
}
