package viz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/dpsim/internal/pendulum"
	"github.com/san-kum/dpsim/internal/sim"
)

const (
	canvasWidth     = 60
	canvasHeight    = 24
	trailLength     = 240
	historyCapacity = 600

	tuneUp      = 1.05
	tuneDown    = 0.95
	speedFactor = 1.25
	minSpeed    = 1.0 / 64
	maxSpeed    = 64.0
)

type frameMsg struct {
	frame  sim.Frame
	source <-chan sim.Frame
}

type runEndedMsg struct {
	source <-chan sim.Frame
}

type startMsg struct{}

type animMsg time.Time

type point struct{ x, y float64 }

type Option func(*Model)

func WithObserver(o sim.Observer) Option {
	return func(m *Model) { m.observers = append(m.observers, o) }
}

func WithLogger(l kitlog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

func WithTheme(name string) Option {
	return func(m *Model) { m.themeIdx = ThemeIndex(name) }
}

func WithTitle(title string) Option {
	return func(m *Model) { m.title = title }
}

// WithAutoStart starts the run as soon as the program starts.
func WithAutoStart() Option {
	return func(m *Model) { m.autoStart = true }
}

// Model is the live view of one pendulum. Stepping happens in a sim.Runner
// goroutine; frames reach Update through a command that reads the runner's
// channel, so the model itself is only touched by the bubbletea loop.
type Model struct {
	params, initialParams pendulum.Params
	integ                 *pendulum.Integrator
	loop                  sim.Loop
	initial, state        pendulum.State
	energy                pendulum.Breakdown

	simTime, timeBase float64
	steps, stepBase   int
	running           bool
	diverged          bool
	autoStart         bool
	notice            string

	selected int
	themeIdx int
	styles   styles
	title    string

	canvas  *Canvas
	trail   []point
	history []float64
	terms   [3][]float64
	bars    *EnergyBars

	observers []sim.Observer
	logger    kitlog.Logger

	frames <-chan sim.Frame
	cancel context.CancelFunc
}

func NewModel(params pendulum.Params, initial pendulum.State, loop sim.Loop, opts ...Option) Model {
	m := Model{
		params:        params,
		initialParams: params,
		integ:         pendulum.NewIntegrator(params),
		loop:          loop,
		initial:       initial,
		state:         initial,
		title:         "double pendulum",
		canvas:        NewCanvas(canvasWidth, canvasHeight),
		trail:         make([]point, 0, trailLength),
		history:       make([]float64, 0, historyCapacity),
		bars:          NewEnergyBars(),
		logger:        kitlog.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.styles = newStyles(Themes[m.themeIdx])
	m.refreshEnergy()
	m.bars.Snap()
	return m
}

func (m Model) State() pendulum.State   { return m.state }
func (m Model) Params() pendulum.Params { return m.params }
func (m Model) Loop() sim.Loop          { return m.loop }
func (m Model) Running() bool           { return m.running }
func (m Model) SimTime() float64        { return m.simTime }

func animTick() tea.Cmd {
	return tea.Tick(time.Second/animationFPS, func(t time.Time) tea.Msg { return animMsg(t) })
}

func waitForFrame(frames <-chan sim.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return runEndedMsg{source: frames}
		}
		return frameMsg{frame: f, source: frames}
	}
}

func (m Model) Init() tea.Cmd {
	if m.autoStart {
		return tea.Batch(animTick(), func() tea.Msg { return startMsg{} })
	}
	return animTick()
}

// Update handles input events and frames from the runner.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case startMsg:
		if !m.running && !m.diverged {
			return m, m.start()
		}
	case frameMsg:
		if msg.source != m.frames {
			return m, nil
		}
		m.apply(msg.frame)
		if m.diverged {
			m.stop()
			return m, nil
		}
		return m, waitForFrame(m.frames)
	case runEndedMsg:
		if msg.source == m.frames {
			m.stop()
		}
	case animMsg:
		m.bars.Tick()
		return m, animTick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "q", "ctrl+c":
		m.stop()
		return m, tea.Quit
	case " ":
		if m.running {
			m.stop()
			return m, nil
		}
		if m.diverged {
			m.notice = "state diverged, press r to reset"
			return m, nil
		}
		return m, m.start()
	case "r":
		wasRunning := m.running
		m.stop()
		m.reset()
		if wasRunning {
			return m, m.start()
		}
	case "tab":
		m.selected = (m.selected + 1) % len(pendulum.ParamNames())
	case "up", "k":
		m.tune(tuneUp)
	case "down", "j":
		m.tune(tuneDown)
	case "+", "=":
		return m, m.setSpeed(m.loop.Speed * speedFactor)
	case "-", "_":
		return m, m.setSpeed(m.loop.Speed / speedFactor)
	case "t":
		m.themeIdx = (m.themeIdx + 1) % len(Themes)
		m.styles = newStyles(Themes[m.themeIdx])
	}
	return m, nil
}

func (m *Model) start() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan sim.Frame)

	opts := []sim.Option{sim.WithLogger(m.logger)}
	for _, o := range m.observers {
		opts = append(opts, sim.WithObserver(o))
	}
	runner := sim.NewRunner(m.integ, m.loop, opts...)
	initial, logger := m.state, m.logger

	go func() {
		if err := runner.Run(ctx, initial, frames); err != nil && !errors.Is(err, context.Canceled) {
			level.Error(logger).Log("msg", "run failed", "err", err)
		}
	}()

	m.frames, m.cancel, m.running = frames, cancel, true
	m.timeBase, m.stepBase = m.simTime, m.steps
	return waitForFrame(frames)
}

func (m *Model) stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.frames, m.cancel, m.running = nil, nil, false
}

func (m *Model) apply(f sim.Frame) {
	m.state = f.State
	m.energy = f.Energy
	m.simTime = m.timeBase + f.Time
	m.steps = m.stepBase + f.Steps

	if !f.State.IsValid() {
		m.diverged = true
		m.notice = fmt.Sprintf("state diverged at t=%.3fs", m.simTime)
		return
	}

	_, _, x2, y2 := pendulum.Positions(m.params, m.state)
	m.trail = appendCapped(m.trail, point{x2, y2}, trailLength)
	m.history = appendCapped(m.history, f.Energy.Total(), historyCapacity)
	for k, v := range [3]float64{f.Energy.Velocity, f.Energy.Inertia, f.Energy.Gravity} {
		m.terms[k] = appendCapped(m.terms[k], v, historyCapacity)
	}
	m.bars.Target(f.Energy)
}

func appendCapped[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}

func (m *Model) reset() {
	m.params = m.initialParams
	m.integ = pendulum.NewIntegrator(m.params)
	m.state = m.initial
	m.simTime, m.timeBase = 0, 0
	m.steps, m.stepBase = 0, 0
	m.diverged = false
	m.trail = m.trail[:0]
	m.history = m.history[:0]
	m.terms = [3][]float64{}
	m.refreshEnergy()
	m.bars.Snap()
}

// tune scales the selected parameter. Parameters only change while stopped;
// a change builds a new integrator and keeps the current state.
func (m *Model) tune(factor float64) {
	if m.running {
		m.notice = "stop the run to edit parameters"
		return
	}
	name := pendulum.ParamNames()[m.selected]
	v, err := m.params.Get(name)
	if err != nil {
		return
	}
	p, err := m.params.With(name, v*factor)
	if err != nil {
		return
	}
	if err := p.Validate(); err != nil {
		m.notice = err.Error()
		return
	}
	m.params = p
	m.integ = pendulum.NewIntegrator(p)
	m.trail = m.trail[:0]
	m.refreshEnergy()
}

// setSpeed restarts a live run from the current state so the new pacing
// takes effect on the next frame.
func (m *Model) setSpeed(speed float64) tea.Cmd {
	m.loop.Speed = math.Min(math.Max(speed, minSpeed), maxSpeed)
	if !m.running {
		return nil
	}
	m.stop()
	return m.start()
}

func (m *Model) refreshEnergy() {
	m.energy = pendulum.Energies(m.params, m.state)
	m.bars.Target(m.energy)
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func (m Model) status() string {
	switch {
	case m.diverged:
		return m.styles.diverged.Render("DIVERGED")
	case m.running:
		return m.styles.running.Render("RUNNING")
	default:
		return m.styles.stopped.Render("STOPPED")
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	canvasView := m.styles.canvas.Render(m.canvas.String())

	st := m.styles
	row := func(label, value string) string {
		return st.label.Render(label) + st.value.Render(value) + "\n"
	}

	var s strings.Builder
	s.WriteString(st.title.Render(strings.ToUpper(m.title)) + "  " + m.status() + "\n\n")
	s.WriteString(row("Time", fmt.Sprintf("%.2fs", m.simTime)))
	s.WriteString(row("Steps", fmt.Sprintf("%d (%d/frame)", m.steps, m.loop.Steps())))
	s.WriteString(row("Step", fmt.Sprintf("%g s", m.loop.StepSize)))
	s.WriteString(row("Speed", fmt.Sprintf("%.2fx", m.loop.Speed)))

	s.WriteString(st.header.Render("STATE") + "\n")
	s.WriteString(row("θ1", fmt.Sprintf("%8.4f rad %8.2f°", m.state.Theta1(), degrees(m.state.Theta1()))))
	s.WriteString(row("θ2", fmt.Sprintf("%8.4f rad %8.2f°", m.state.Theta2(), degrees(m.state.Theta2()))))
	s.WriteString(row("ω1", fmt.Sprintf("%8.4f rad/s", m.state.Omega1())))
	s.WriteString(row("ω2", fmt.Sprintf("%8.4f rad/s", m.state.Omega2())))

	s.WriteString(st.header.Render("ENERGY (J)") + "\n")
	v, i, g := m.bars.Shares()
	terms := []struct {
		name  string
		share float64
		value float64
	}{
		{"velocity", v, m.energy.Velocity},
		{"inertia", i, m.energy.Inertia},
		{"gravity", g, m.energy.Gravity},
	}
	for k, t := range terms {
		s.WriteString(st.label.Render(t.name) + ShareBar(t.share, 12) +
			st.value.Render(fmt.Sprintf(" %5.1f%% %9.3f", 100*t.share, t.value)) + "\n")
		if len(m.terms[k]) > 1 {
			s.WriteString(st.label.Render("") + st.sparkline(m.terms[k], 24) + "\n")
		}
	}
	s.WriteString(row("total", fmt.Sprintf("%.3f", m.energy.Total())))
	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("total energy"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	s.WriteString(st.header.Render("PARAMETERS") + "\n")
	for k, name := range pendulum.ParamNames() {
		val, _ := m.params.Get(name)
		line := fmt.Sprintf("%-4s %8.3f", name, val)
		if k == m.selected {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.value.Render(line) + "\n")
		}
	}

	if m.notice != "" {
		s.WriteString("\n" + st.stopped.Render(m.notice) + "\n")
	}
	s.WriteString(st.help.Render("space:run/stop r:reset q:quit\ntab:select ↑↓:tune ±5% +/-:speed t:theme"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(s.String()))
}

// draw renders the rods, both bobs and the trail of the second bob.
func (m *Model) draw() {
	m.canvas.Clear()
	if !m.state.IsValid() {
		return
	}
	vp := Fit(m.canvas, m.params.L1+m.params.L2)

	for _, p := range m.trail {
		m.canvas.Set(vp.Project(p.x, p.y))
	}

	x1, y1, x2, y2 := pendulum.Positions(m.params, m.state)
	px, py := vp.Project(0, 0)
	b1x, b1y := vp.Project(x1, y1)
	b2x, b2y := vp.Project(x2, y2)

	m.canvas.DrawDisc(px, py, 1)
	m.canvas.DrawLine(px, py, b1x, b1y)
	m.canvas.DrawLine(b1x, b1y, b2x, b2y)
	m.canvas.DrawDisc(b1x, b1y, 2)
	m.canvas.DrawDisc(b2x, b2y, 2)
}
