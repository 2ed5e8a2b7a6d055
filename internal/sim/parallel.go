package sim

import (
	"context"

	"github.com/san-kum/dpsim/internal/pendulum"
	"golang.org/x/sync/errgroup"
)

// Ensemble simulates several initial states with the same integrator and
// loop, one goroutine per state.
type Ensemble struct {
	integ *pendulum.Integrator
	loop  Loop
}

func NewEnsemble(integ *pendulum.Integrator, loop Loop) *Ensemble {
	return &Ensemble{integ: integ, loop: loop}
}

// Run returns results in the order of initials. The first error cancels the
// remaining runs.
func (e *Ensemble) Run(ctx context.Context, initials []pendulum.State, duration float64) ([]*Result, error) {
	results := make([]*Result, len(initials))

	g, ctx := errgroup.WithContext(ctx)
	for i, x0 := range initials {
		g.Go(func() error {
			res, err := NewRunner(e.integ, e.loop).Simulate(ctx, x0, duration)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
