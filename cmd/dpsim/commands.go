package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-kit/kit/log/level"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/dpsim/internal/analysis"
	"github.com/san-kum/dpsim/internal/config"
	"github.com/san-kum/dpsim/internal/export"
	"github.com/san-kum/dpsim/internal/metrics"
	"github.com/san-kum/dpsim/internal/pendulum"
	"github.com/san-kum/dpsim/internal/sim"
	"github.com/san-kum/dpsim/internal/viz"
)

var axes = map[string]int{"theta1": 0, "theta2": 1, "omega1": 2, "omega2": 3}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// simulate resolves the configuration and records a headless run of it.
func simulate(cmd *cobra.Command, opts ...sim.Option) (*config.Config, *sim.Result, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := signalContext()
	defer cancel()

	opts = append(opts, sim.WithLogger(logger))
	runner := sim.NewRunner(pendulum.NewIntegrator(cfg.Params), cfg.Loop, opts...)
	result, err := runner.Simulate(ctx, cfg.InitState(), cfg.Duration)
	if err != nil {
		return nil, nil, err
	}
	return cfg, result, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	summary := metrics.NewSummary()
	opts := []sim.Option{sim.WithObserver(summary)}

	var stream *export.Stream
	if format != "" {
		w, err := export.NewFrameWriter(os.Stdout, format)
		if err != nil {
			return err
		}
		stream = export.NewStream(w)
		opts = append(opts, sim.WithObserver(stream))
	}

	start := time.Now()
	cfg, result, err := simulate(cmd, opts...)
	if stream != nil {
		if cerr := stream.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	final := result.Final()
	level.Info(logger).Log("msg", "run finished", "frames", len(result.Frames),
		"steps", result.StepsTaken, "elapsed", elapsed)
	if stream != nil {
		return nil
	}

	fmt.Printf("simulated %.2fs in %v (%d steps, %d frames)\n",
		final.Time, elapsed, result.StepsTaken, len(result.Frames))
	fmt.Printf("initial: %v\n", cfg.InitState())
	fmt.Printf("final:   %v\n", final.State)

	fmt.Println("\nenergy (final):")
	fmt.Printf("  velocity: %.6f\n", final.Energy.Velocity)
	fmt.Printf("  inertia:  %.6f\n", final.Energy.Inertia)
	fmt.Printf("  gravity:  %.6f\n", final.Energy.Gravity)
	fmt.Printf("  total:    %.6f\n", final.Energy.Total())

	mean := summary.Mean()
	fmt.Println("\nsummary:")
	fmt.Printf("  mean total:   %.6f\n", mean.Total())
	fmt.Printf("  peak total:   %.6f\n", summary.PeakTotal())
	fmt.Printf("  rel. change:  %+.3f%%\n", 100*summary.RelativeChange())
	fmt.Printf("  stability:    %.3f\n", summary.Stability())
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	opts := []viz.Option{viz.WithTheme(theme)}

	if metricsAddr != "" {
		collector := metrics.NewCollector()
		opts = append(opts, viz.WithObserver(collector))

		srv := &http.Server{Addr: metricsAddr, Handler: collector.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				level.Error(logger).Log("msg", "metrics server failed", "err", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		level.Info(logger).Log("msg", "serving metrics", "addr", metricsAddr)
	}

	var model tea.Model
	if menu {
		entries := make([]viz.PresetEntry, 0, len(config.Presets))
		for _, name := range config.ListPresets() {
			entries = append(entries, viz.PresetEntry{Name: name, Summary: config.Summary(name)})
		}
		model = viz.NewPicker(entries, func(name string) (viz.Model, error) {
			p, err := config.GetPreset(name)
			if err != nil {
				return viz.Model{}, err
			}
			return viz.NewModel(p.Params, p.InitState(), p.Loop,
				append(opts, viz.WithTitle(name), viz.WithAutoStart())...), nil
		})
	} else {
		title := "double pendulum"
		if preset != "" {
			title = preset
		}
		model = viz.NewModel(cfg.Params, cfg.InitState(), cfg.Loop, append(opts, viz.WithTitle(title))...)
	}

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func plotRun(cmd *cobra.Command, args []string) error {
	cfg, result, err := simulate(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("initial: %v\n", cfg.InitState())
	fmt.Printf("frames: %d over %.2fs\n\n", len(result.Frames), result.Final().Time)

	captions := []string{"θ1 (rad)", "θ2 (rad)", "ω1 (rad/s)", "ω2 (rad/s)"}
	for idx, caption := range captions {
		data := result.Series(idx)
		if idx < 2 {
			// centre the plot on the downward position
			for i, v := range data {
				data[i] = math.Remainder(v, pendulum.Tau)
			}
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		))
		fmt.Println()
	}

	velocity := make([]float64, len(result.Frames))
	inertia := make([]float64, len(result.Frames))
	gravity := make([]float64, len(result.Frames))
	for i, f := range result.Frames {
		velocity[i] = f.Energy.Velocity
		inertia[i] = f.Energy.Inertia
		gravity[i] = f.Energy.Gravity
	}
	fmt.Println(asciigraph.PlotMany([][]float64{velocity, inertia, gravity},
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Magenta, asciigraph.Yellow),
		asciigraph.Caption("energy terms: velocity, inertia, gravity (J)"),
	))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	cfg, result, err := simulate(cmd)
	if err != nil {
		return err
	}
	if len(result.Frames) < 2 {
		return fmt.Errorf("not enough frames to analyze: %d", len(result.Frames))
	}

	data := result.Series(0)
	for i, v := range data {
		data[i] = math.Remainder(v, pendulum.Tau)
	}
	sampleRate := 1 / cfg.Loop.SimulatedPerFrame()

	fmt.Printf("frequency analysis of θ1: %d frames at %.1f hz\n\n", len(data), sampleRate)

	ps := analysis.PowerSpectrum(data)
	plotData := ps[:max(len(ps)/4, 1)]
	fmt.Println(asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (θ1)"),
	))
	fmt.Println()

	freq := analysis.DominantFrequency(data, sampleRate)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}

func chaosRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if !(epsilon > 0) {
		return fmt.Errorf("epsilon must be positive, got %g", epsilon)
	}

	integ := pendulum.NewIntegrator(cfg.Params)
	x0 := cfg.InitState()
	perturbed := pendulum.NewState(x0.Theta1()+epsilon, x0.Theta2(), x0.Omega1(), x0.Omega2())

	step := cfg.Loop.StepSize
	sampleEvery := max(cfg.Loop.Steps(), 1)
	div := analysis.Divergence(integ, x0, perturbed, step, cfg.Duration, sampleEvery)

	logDiv := make([]float64, len(div))
	for i, d := range div {
		logDiv[i] = math.Log10(max(d, 1e-300))
	}
	fmt.Printf("divergence from θ1 offset %g over %.1fs\n\n", epsilon, cfg.Duration)
	fmt.Println(asciigraph.Plot(logDiv,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("log10 separation"),
	))
	fmt.Println()

	lambda := analysis.LyapunovExponent(integ, x0, step, cfg.Duration, epsilon)
	fmt.Printf("largest lyapunov exponent: %.4f 1/s\n", lambda)
	if lambda > 0.1 {
		fmt.Println("trajectory is chaotic")
	} else {
		fmt.Println("trajectory looks regular")
	}

	if ensemble < 1 {
		return nil
	}

	initials := make([]pendulum.State, ensemble)
	for i := range initials {
		initials[i] = pendulum.NewState(x0.Theta1()+float64(i)*epsilon, x0.Theta2(), x0.Omega1(), x0.Omega2())
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := sim.NewEnsemble(integ, cfg.Loop).Run(ctx, initials, cfg.Duration)
	if err != nil {
		return err
	}

	fmt.Printf("\nensemble of %d runs spaced %g apart in θ1\n\n", ensemble, epsilon)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tOFFSET\tFINAL θ1\tFINAL θ2\tSEPARATION")
	final0 := results[0].Final().State
	for i, res := range results {
		final := res.Final().State
		fmt.Fprintf(w, "%d\t%.1e\t%.4f\t%.4f\t%.4f\n", i, float64(i)*epsilon,
			math.Remainder(final.Theta1(), pendulum.Tau),
			math.Remainder(final.Theta2(), pendulum.Tau),
			analysis.AngleBetween(final.Theta1(), final0.Theta1())+analysis.AngleBetween(final.Theta2(), final0.Theta2()))
	}
	return w.Flush()
}

func phasePlot(cmd *cobra.Command, args []string) error {
	if poincare {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		integ := pendulum.NewIntegrator(cfg.Params)
		section := analysis.PoincareSection(integ, cfg.InitState(), cfg.Loop.StepSize, cfg.Duration)
		fmt.Printf("poincaré section at θ1 = 0, ω1 > 0: %d crossings\n", len(section))
		fmt.Println("x-axis: θ2, y-axis: ω2")
		fmt.Println()
		fmt.Println(analysis.PoincarePlot(section, plotWidth, plotHeight))
		return nil
	}

	xi, ok := axes[xAxis]
	if !ok {
		return fmt.Errorf("unknown axis %q (want one of theta1, theta2, omega1, omega2)", xAxis)
	}
	yi, ok := axes[yAxis]
	if !ok {
		return fmt.Errorf("unknown axis %q (want one of theta1, theta2, omega1, omega2)", yAxis)
	}

	_, result, err := simulate(cmd)
	if err != nil {
		return err
	}

	x, y := result.Series(xi), result.Series(yi)
	for _, axis := range []struct {
		idx  int
		data []float64
	}{{xi, x}, {yi, y}} {
		if axis.idx < 2 {
			for i, v := range axis.data {
				axis.data[i] = math.Remainder(v, pendulum.Tau)
			}
		}
	}

	fmt.Printf("phase portrait: %d frames\n", len(result.Frames))
	fmt.Printf("x-axis: %s, y-axis: %s\n\n", xAxis, yAxis)
	fmt.Println(analysis.PhasePortrait(x, y, plotWidth, plotHeight))
	return nil
}

func traceRun(cmd *cobra.Command, args []string) error {
	cfg, result, err := simulate(cmd)
	if err != nil {
		return err
	}

	switch traceStyle {
	case "path":
		points := make([]export.Point, len(result.Frames))
		for i, f := range result.Frames {
			_, _, x2, y2 := pendulum.Positions(cfg.Params, f.State)
			points[i] = export.Point{X: x2, Y: y2}
		}
		fmt.Println(export.TrajectoryToSVG(points, 800, 800, "#00ffcc"))
	case "dots":
		canvas := viz.NewCanvas(120, 60)
		vp := viz.Fit(canvas, cfg.Params.L1+cfg.Params.L2)
		for _, f := range result.Frames {
			_, _, x2, y2 := pendulum.Positions(cfg.Params, f.State)
			canvas.Set(vp.Project(x2, y2))
		}
		fmt.Println(export.CanvasToSVG(canvas, 4, "#00ffcc"))
	default:
		return fmt.Errorf("unknown trace style %q (want path or dots)", traceStyle)
	}
	return nil
}

func benchRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	integ := pendulum.NewIntegrator(cfg.Params)
	x0 := cfg.InitState()
	durations := []float64{1, 10}
	steps := []float64{1e-3, 1e-4, 1e-5}

	fmt.Printf("benchmarking rk4 from %v\n\n", x0)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DURATION\tSTEP\tSTEPS\tTIME\tSTEPS/SEC\tFINAL")

	for _, dur := range durations {
		for _, h := range steps {
			n := int(math.Round(dur / h))
			start := time.Now()
			final := integ.Advance(x0, h, n)
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%.0fs\t%.0e\t%d\t%v\t%.0f\t%s\n",
				dur, h, n, elapsed.Round(time.Microsecond), float64(n)/max(elapsed.Seconds(), 1e-9), validity(final))
		}
	}
	return w.Flush()
}

func validity(s pendulum.State) string {
	if s.IsValid() {
		return "ok"
	}
	return "diverged"
}

func configInit(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	path := "dpsim.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s exists (use --force to overwrite)", path)
		}
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
