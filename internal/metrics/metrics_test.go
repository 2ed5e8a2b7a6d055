package metrics

import (
	"context"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/dpsim/internal/pendulum"
	"github.com/san-kum/dpsim/internal/sim"
)

func frameAt(seq, steps int, s pendulum.State) sim.Frame {
	p := pendulum.DefaultParams()
	return sim.Frame{
		Seq:    seq,
		Steps:  steps,
		Time:   float64(steps) * 1e-4,
		State:  s,
		Energy: pendulum.Energies(p, s),
	}
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()

	s := pendulum.NewState(1, 2, 0.5, -0.5)
	c.OnFrame(frameAt(0, 100, s))
	c.OnFrame(frameAt(1, 200, s))
	c.OnFrame(frameAt(2, 300, s))

	if got := testutil.ToFloat64(c.steps); got != 300 {
		t.Errorf("expected 300 steps, got %f", got)
	}
	if got := testutil.ToFloat64(c.frames); got != 3 {
		t.Errorf("expected 3 frames, got %f", got)
	}
	if got := testutil.ToFloat64(c.simTime); math.Abs(got-0.03) > 1e-12 {
		t.Errorf("expected sim time 0.03, got %f", got)
	}

	want := pendulum.Energies(pendulum.DefaultParams(), s)
	if got := testutil.ToFloat64(c.energy.WithLabelValues("gravity")); got != want.Gravity {
		t.Errorf("expected gravity %f, got %f", want.Gravity, got)
	}
	if got := testutil.ToFloat64(c.energy.WithLabelValues("total")); got != want.Total() {
		t.Errorf("expected total %f, got %f", want.Total(), got)
	}
	if got := testutil.ToFloat64(c.state.WithLabelValues("omega2")); got != -0.5 {
		t.Errorf("expected omega2 -0.5, got %f", got)
	}
}

func TestCollectorRestart(t *testing.T) {
	c := NewCollector()
	s := pendulum.NewState(1, 2, 0, 0)

	c.OnFrame(frameAt(0, 500, s))
	c.OnFrame(frameAt(0, 100, s))

	if got := testutil.ToFloat64(c.steps); got != 600 {
		t.Errorf("expected 600 steps across restart, got %f", got)
	}
}

func TestCollectorInvalidFrame(t *testing.T) {
	c := NewCollector()
	good := pendulum.NewState(1, 2, 0, 0)
	c.OnFrame(frameAt(0, 10, good))

	bad := frameAt(1, 20, pendulum.NewState(math.NaN(), 0, 0, 0))
	bad.Energy = pendulum.Breakdown{Velocity: math.NaN()}
	c.OnFrame(bad)

	if got := testutil.ToFloat64(c.invalid); got != 1 {
		t.Errorf("expected 1 invalid frame, got %f", got)
	}
	want := pendulum.Energies(pendulum.DefaultParams(), good)
	if got := testutil.ToFloat64(c.energy.WithLabelValues("velocity")); got != want.Velocity {
		t.Errorf("gauge should keep the last finite value, got %f", got)
	}
}

func TestCollectorHandler(t *testing.T) {
	c := NewCollector()
	f := frameAt(0, 100, pendulum.NewState(1, 2, 0, 0))
	f.Lag = 2 * time.Millisecond
	c.OnFrame(f)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"dpsim_steps_total 100",
		"dpsim_frames_total 1",
		`dpsim_energy_joules{term="gravity"}`,
		"dpsim_frame_lag_seconds_count 1",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("expected %q in scrape output", name)
		}
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.OnFrame(frameAt(0, 10, pendulum.NewState(1, 2, 0, 0)))

	if got := testutil.ToFloat64(b.frames); got != 0 {
		t.Errorf("expected fresh collector, got %f frames", got)
	}
}

func TestSummary(t *testing.T) {
	s := NewSummary()
	if s.Stability() != 1 {
		t.Error("expected stability 1 before any frame")
	}
	if s.Mean() != (pendulum.Breakdown{}) {
		t.Error("expected zero mean before any frame")
	}

	a := frameAt(0, 0, pendulum.NewState(1, 2, 0, 0))
	b := frameAt(1, 10, pendulum.NewState(0, 0, 1, 1))
	s.OnFrame(a)
	s.OnFrame(b)
	s.OnFrame(frameAt(2, 20, pendulum.NewState(math.Inf(1), 0, 0, 0)))

	if s.Frames() != 3 {
		t.Errorf("expected 3 frames, got %d", s.Frames())
	}
	if math.Abs(s.Stability()-2.0/3.0) > 1e-12 {
		t.Errorf("expected stability 2/3, got %f", s.Stability())
	}

	mean := s.Mean()
	if want := (a.Energy.Gravity + b.Energy.Gravity) / 2; math.Abs(mean.Gravity-want) > 1e-12 {
		t.Errorf("expected mean gravity %f, got %f", want, mean.Gravity)
	}
	if want := math.Max(a.Energy.Total(), b.Energy.Total()); s.PeakTotal() != want {
		t.Errorf("expected peak %f, got %f", want, s.PeakTotal())
	}
	if want := (b.Energy.Total() - a.Energy.Total()) / a.Energy.Total(); math.Abs(s.RelativeChange()-want) > 1e-12 {
		t.Errorf("expected change %f, got %f", want, s.RelativeChange())
	}

	s.Reset()
	if s.Frames() != 0 || s.RelativeChange() != 0 {
		t.Error("expected empty summary after reset")
	}
}

func TestSummaryRelativeChange(t *testing.T) {
	p := pendulum.DefaultParams()
	at := func(seq int, s pendulum.State) sim.Frame {
		return sim.Frame{Seq: seq, State: s, Energy: pendulum.Energies(p, s)}
	}

	s := NewSummary()
	s.OnFrame(at(0, pendulum.NewState(0, 0, 0, 0)))
	s.OnFrame(at(1, pendulum.NewState(1, 1, 0, 0)))
	if s.RelativeChange() != 0 {
		t.Errorf("expected 0 from a zero first total, got %f", s.RelativeChange())
	}

	s.Reset()
	first := at(0, pendulum.NewState(0, 0, 2, 0))
	s.OnFrame(first)
	s.OnFrame(at(1, pendulum.NewState(0, 0, 1, 0)))
	s.OnFrame(at(2, pendulum.NewState(math.NaN(), 0, 0, 0)))

	last := pendulum.Energies(p, pendulum.NewState(0, 0, 1, 0))
	want := (last.Total() - first.Energy.Total()) / first.Energy.Total()
	if math.Abs(s.RelativeChange()-want) > 1e-12 {
		t.Errorf("expected %f, got %f", want, s.RelativeChange())
	}
	if want >= 0 {
		t.Errorf("slowing down should give a negative change, got %f", want)
	}
}

func TestObserversOnSimulate(t *testing.T) {
	summary := NewSummary()
	collector := NewCollector()
	integ := pendulum.NewIntegrator(pendulum.DefaultParams())
	r := sim.NewRunner(integ, sim.DefaultLoop(),
		sim.WithObserver(summary), sim.WithObserver(collector))

	res, err := r.Simulate(context.Background(), pendulum.NewState(1, 2, 0, 0), 0.5)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	if summary.Frames() != len(res.Frames) {
		t.Errorf("summary saw %d frames, result has %d", summary.Frames(), len(res.Frames))
	}
	if got := testutil.ToFloat64(collector.steps); got != float64(res.StepsTaken) {
		t.Errorf("expected %d steps, got %f", res.StepsTaken, got)
	}
}
