package main

import (
	"fmt"
	"os"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/cobra"

	"github.com/san-kum/dpsim/internal/config"
	"github.com/san-kum/dpsim/internal/logging"
	"github.com/san-kum/dpsim/internal/viz"
)

var (
	logger kitlog.Logger = logging.Nop()

	logLevel  string
	logFormat string

	configFile string
	preset     string

	stepSize float64
	speed    float64
	interval float64
	duration float64

	theta1, theta2 float64
	omega1, omega2 float64
	l1, l2         float64
	m1, m2         float64
	gravity        float64

	format      string
	metricsAddr string
	theme       string
	menu        bool
	epsilon     float64
	ensemble    int
	xAxis       string
	yAxis       string
	poincare    bool
	plotWidth   int
	plotHeight  int
	traceStyle  string
	force       bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		level.Error(logger).Log("err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dpsim",
		Short:         "double pendulum simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(os.Stderr, logFormat, logLevel)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "logfmt", "log format (logfmt, json)")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "start from a preset")
	pf.Float64Var(&stepSize, "step", 0, "integration step size in seconds")
	pf.Float64Var(&speed, "speed", 0, "simulated seconds per wall second")
	pf.Float64Var(&interval, "interval", 0, "wall seconds between frames")
	pf.Float64Var(&duration, "duration", 0, "simulated duration in seconds")
	pf.Float64Var(&theta1, "theta1", 0, "initial angle of the first arm (rad)")
	pf.Float64Var(&theta2, "theta2", 0, "initial angle of the second arm (rad)")
	pf.Float64Var(&omega1, "omega1", 0, "initial angular velocity of the first arm (rad/s)")
	pf.Float64Var(&omega2, "omega2", 0, "initial angular velocity of the second arm (rad/s)")
	pf.Float64Var(&l1, "l1", 0, "length of the first rod (m)")
	pf.Float64Var(&l2, "l2", 0, "length of the second rod (m)")
	pf.Float64Var(&m1, "m1", 0, "mass of the first bob (kg)")
	pf.Float64Var(&m2, "m2", 0, "mass of the second bob (kg)")
	pf.Float64Var(&gravity, "g", 0, "gravitational acceleration (m/s²)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation",
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&format, "format", "", "stream frames to stdout (text, csv, json)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with live terminal visualization",
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	liveCmd.Flags().StringVar(&theme, "theme", viz.Themes[0].Name, "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	liveCmd.Flags().BoolVar(&menu, "menu", false, "pick a preset before starting")

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "plot state and energy over a run",
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "frequency analysis of the first arm",
		RunE:  analyzeRun,
	}

	chaosCmd := &cobra.Command{
		Use:   "chaos",
		Short: "sensitivity to initial conditions",
		RunE:  chaosRun,
	}
	chaosCmd.Flags().Float64Var(&epsilon, "epsilon", 1e-9, "offset of the perturbed run in θ1 (rad)")
	chaosCmd.Flags().IntVar(&ensemble, "ensemble", 8, "number of perturbed runs to spread")

	phaseCmd := &cobra.Command{
		Use:   "phase",
		Short: "ASCII phase portrait",
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVarP(&xAxis, "x", "x", "theta1", "x axis (theta1, theta2, omega1, omega2)")
	phaseCmd.Flags().StringVarP(&yAxis, "y", "y", "omega1", "y axis (theta1, theta2, omega1, omega2)")
	phaseCmd.Flags().BoolVar(&poincare, "poincare", false, "plot the Poincaré section (θ2, ω2) instead")
	phaseCmd.Flags().IntVar(&plotWidth, "width", 70, "plot width")
	phaseCmd.Flags().IntVar(&plotHeight, "height", 25, "plot height")

	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "write the path of the second bob as SVG to stdout",
		RunE:  traceRun,
	}
	traceCmd.Flags().StringVar(&traceStyle, "style", "path", "path or dots")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the integrator",
		RunE:  benchRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Printf("  %-10s %s\n", name, config.Summary(name))
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage config files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the resolved configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  configInit,
	}
	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(runCmd, liveCmd, plotCmd, analyzeCmd, chaosCmd, phaseCmd, traceCmd, benchCmd, presetsCmd, configCmd)
	return rootCmd
}

// resolveConfig applies preset, then config file, then the flags the user
// actually set.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p, err := config.GetPreset(preset)
		if err != nil {
			return nil, err
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	overrides := []struct {
		flag   string
		target *float64
		value  float64
	}{
		{"step", &cfg.Loop.StepSize, stepSize},
		{"speed", &cfg.Loop.Speed, speed},
		{"interval", &cfg.Loop.Interval, interval},
		{"duration", &cfg.Duration, duration},
		{"theta1", &cfg.Initial.Theta1, theta1},
		{"theta2", &cfg.Initial.Theta2, theta2},
		{"omega1", &cfg.Initial.Omega1, omega1},
		{"omega2", &cfg.Initial.Omega2, omega2},
		{"l1", &cfg.Params.L1, l1},
		{"l2", &cfg.Params.L2, l2},
		{"m1", &cfg.Params.M1, m1},
		{"m2", &cfg.Params.M2, m2},
		{"g", &cfg.Params.G, gravity},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.target = o.value
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level.Debug(logger).Log("msg", "config resolved", "preset", preset, "file", configFile,
		"params", fmt.Sprintf("%+v", cfg.Params), "state", cfg.InitState(), "duration", cfg.Duration)
	return cfg, nil
}
