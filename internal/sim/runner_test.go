package sim_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dpsim/internal/pendulum"
	"github.com/san-kum/dpsim/internal/sim"
)

// fakeClock jumps forward by exactly the requested wait.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

var _ = Describe("Runner", func() {
	var (
		integ  *pendulum.Integrator
		loop   sim.Loop
		clock  *fakeClock
		x0     pendulum.State
		ctx    context.Context
		cancel context.CancelFunc
		frames chan sim.Frame
		done   chan error
	)

	start := func(r *sim.Runner) {
		go func() {
			defer GinkgoRecover()
			done <- r.Run(ctx, x0, frames)
		}()
	}

	BeforeEach(func() {
		integ = pendulum.NewIntegrator(pendulum.DefaultParams())
		loop = sim.Loop{StepSize: 1e-3, Speed: 1, Interval: 0.01}
		clock = &fakeClock{now: time.Unix(0, 0)}
		x0 = pendulum.NewState(1, 2, 0, 0)
		ctx, cancel = context.WithCancel(context.Background())
		frames = make(chan sim.Frame)
		done = make(chan error, 1)
	})

	AfterEach(func() {
		cancel()
	})

	It("hands off one frame per batch of steps", func() {
		start(sim.NewRunner(integ, loop, sim.WithClock(clock)))

		expected := x0
		for i := 0; i < 5; i++ {
			var f sim.Frame
			Eventually(frames).Should(Receive(&f))
			expected = integ.Advance(expected, loop.StepSize, loop.Steps())

			Expect(f.Seq).To(Equal(i))
			Expect(f.Steps).To(Equal((i + 1) * 10))
			Expect(f.State).To(Equal(expected))
			Expect(f.Energy).To(Equal(pendulum.Energies(integ.Params(), expected)))
			Expect(f.Time).To(BeNumerically("~", float64(i+1)*0.01, 1e-12))
			Expect(f.Lag).To(BeZero())
		}

		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
		Eventually(frames).Should(BeClosed())
	})

	It("waits one period between frames on a fixed schedule", func() {
		start(sim.NewRunner(integ, loop, sim.WithClock(clock)))

		for i := 0; i < 4; i++ {
			Eventually(frames).Should(Receive())
		}
		cancel()
		Eventually(done).Should(Receive())

		waits := clock.Waits()
		Expect(len(waits)).To(BeNumerically(">=", 3))
		for _, w := range waits {
			Expect(w).To(Equal(loop.Period()))
		}
	})

	It("notifies observers before the consumer sees the frame", func() {
		var mu sync.Mutex
		seen := 0
		obs := sim.ObserverFunc(func(f sim.Frame) {
			mu.Lock()
			defer mu.Unlock()
			seen = f.Seq + 1
		})
		start(sim.NewRunner(integ, loop, sim.WithClock(clock), sim.WithObserver(obs)))

		var f sim.Frame
		Eventually(frames).Should(Receive(&f))
		mu.Lock()
		Expect(seen).To(BeNumerically(">=", f.Seq+1))
		mu.Unlock()
	})

	It("stops promptly when canceled before the first frame", func() {
		cancel()
		start(sim.NewRunner(integ, loop, sim.WithClock(clock)))

		Eventually(done).Should(Receive(MatchError(context.Canceled)))
		Eventually(frames).Should(BeClosed())
	})

	It("keeps running through a degenerate trajectory", func() {
		bad := pendulum.NewIntegrator(pendulum.Params{L1: 0, L2: 1, M1: 1, M2: 1, G: 9.81})
		start(sim.NewRunner(bad, loop, sim.WithClock(clock)))

		for i := 0; i < 3; i++ {
			var f sim.Frame
			Eventually(frames).Should(Receive(&f))
			Expect(f.State.IsValid()).To(BeFalse())
		}
	})

	It("rejects an invalid loop and closes the channel", func() {
		start(sim.NewRunner(integ, sim.Loop{StepSize: 0, Speed: 1, Interval: 0.01}, sim.WithClock(clock)))

		Eventually(done).Should(Receive(MatchError(sim.ErrInvalidLoop)))
		Eventually(frames).Should(BeClosed())
	})

	It("paces against the real clock", func() {
		fast := sim.Loop{StepSize: 1e-4, Speed: 1, Interval: 0.005}
		start(sim.NewRunner(integ, fast))

		began := time.Now()
		for i := 0; i < 5; i++ {
			Eventually(frames).Should(Receive())
		}
		Expect(time.Since(began)).To(BeNumerically(">=", 4*fast.Period()-time.Millisecond))
	})
})
