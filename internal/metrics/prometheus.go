package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/dpsim/internal/sim"
)

// Collector exports frames as Prometheus metrics on its own registry, so
// several collectors can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	steps   prometheus.Counter
	frames  prometheus.Counter
	invalid prometheus.Counter
	simTime prometheus.Gauge
	energy  *prometheus.GaugeVec
	state   *prometheus.GaugeVec
	lag     prometheus.Histogram

	mu        sync.Mutex
	lastSteps int
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dpsim_steps_total",
			Help: "Total number of integration steps.",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dpsim_frames_total",
			Help: "Total number of frames emitted.",
		}),
		invalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dpsim_invalid_frames_total",
			Help: "Frames whose state was not finite.",
		}),
		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dpsim_sim_time_seconds",
			Help: "Simulated time of the latest frame.",
		}),
		energy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dpsim_energy_joules",
				Help: "Energy decomposition of the latest frame.",
			},
			[]string{"term"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dpsim_state",
				Help: "State of the latest frame, angles in radians.",
			},
			[]string{"component"},
		),
		lag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dpsim_frame_lag_seconds",
			Help:    "How late frames were produced against their schedule.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}),
	}
	c.registry.MustRegister(c.steps, c.frames, c.invalid, c.simTime, c.energy, c.state, c.lag)
	return c
}

// OnFrame implements sim.Observer. A frame whose step count went backwards
// starts a new run.
func (c *Collector) OnFrame(f sim.Frame) {
	c.mu.Lock()
	delta := f.Steps - c.lastSteps
	if delta < 0 {
		delta = f.Steps
	}
	c.lastSteps = f.Steps
	c.mu.Unlock()

	c.steps.Add(float64(delta))
	c.frames.Inc()
	c.simTime.Set(f.Time)
	c.lag.Observe(f.Lag.Seconds())

	if !f.State.IsValid() {
		c.invalid.Inc()
		return
	}

	c.energy.WithLabelValues("velocity").Set(f.Energy.Velocity)
	c.energy.WithLabelValues("inertia").Set(f.Energy.Inertia)
	c.energy.WithLabelValues("gravity").Set(f.Energy.Gravity)
	c.energy.WithLabelValues("total").Set(f.Energy.Total())

	c.state.WithLabelValues("theta1").Set(f.State.Theta1())
	c.state.WithLabelValues("theta2").Set(f.State.Theta2())
	c.state.WithLabelValues("omega1").Set(f.State.Omega1())
	c.state.WithLabelValues("omega2").Set(f.State.Omega2())
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the Prometheus metrics HTTP handler for this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
