package metrics

import (
	"math"
	"sync"

	"github.com/san-kum/dpsim/internal/pendulum"
	"github.com/san-kum/dpsim/internal/sim"
)

// Summary accumulates per-run statistics from frames. The energy terms are
// averaged over finite frames only; frames whose state is not finite are
// counted separately.
type Summary struct {
	mu       sync.Mutex
	frames   int
	invalid  int
	sum      pendulum.Breakdown
	peak     float64
	first    pendulum.Breakdown
	last     pendulum.Breakdown
	haveBase bool
}

func NewSummary() *Summary {
	return &Summary{}
}

func (s *Summary) OnFrame(f sim.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames++
	if !f.State.IsValid() {
		s.invalid++
		return
	}
	if !s.haveBase {
		s.first = f.Energy
		s.haveBase = true
	}
	s.last = f.Energy
	s.sum.Velocity += f.Energy.Velocity
	s.sum.Inertia += f.Energy.Inertia
	s.sum.Gravity += f.Energy.Gravity
	s.peak = math.Max(s.peak, f.Energy.Total())
}

func (s *Summary) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Stability is the fraction of observed frames with a finite state, or 1
// before any frame.
func (s *Summary) Stability() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frames == 0 {
		return 1
	}
	return 1 - float64(s.invalid)/float64(s.frames)
}

func (s *Summary) Mean() pendulum.Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := float64(s.frames - s.invalid)
	if n == 0 {
		return pendulum.Breakdown{}
	}
	return pendulum.Breakdown{
		Velocity: s.sum.Velocity / n,
		Inertia:  s.sum.Inertia / n,
		Gravity:  s.sum.Gravity / n,
	}
}

func (s *Summary) PeakTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// RelativeChange is (last − first) / |first| of the summed terms, taken over
// the first and the latest finite frame. It is 0 while the first total is 0.
// The sum is a display decomposition, so this is a trend indicator rather
// than an integration error.
func (s *Summary) RelativeChange() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := s.first.Total()
	if !s.haveBase || base == 0 {
		return 0
	}
	return (s.last.Total() - base) / math.Abs(base)
}

func (s *Summary) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s = Summary{}
}
