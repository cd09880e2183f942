package viz

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/physics"
	"github.com/san-kum/keplersim/internal/projection"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 2000
	trailCapacity   = 600

	// liveHorizon bounds the stepper of an interactive session.
	liveHorizon = 1e7
)

// Snapshot stores state at a specific time for replay.
type Snapshot struct {
	State   dynamo.State
	Time    float64
	Energy  float64
	Angular float64
}

// System is what the live view can animate: a planar system with both
// Kepler invariants.
type System interface {
	dynamo.System
	projection.Invariants
}

// SaveFunc persists the recorded history and returns where it went.
type SaveFunc func(name string, times []float64, states []dynamo.State) (string, error)

type Options struct {
	Name          string
	Integrator    string
	Dt            float64
	StepsPerFrame int
	Mode          projection.Mode
	Theme         string
	Save          SaveFunc
}

type TickMsg time.Time

// Model animates one orbit. Invariant drift is always measured against the
// initial state, also after the projection mode changes.
type Model struct {
	sys   System
	integ dynamo.Integrator
	opts  Options

	x0     dynamo.State
	h0, l0 float64

	stepper *dynamo.Stepper
	tOffset float64
	mode    projection.Mode

	state dynamo.State
	t     float64

	width, height int
	canvas        *Canvas
	view          Viewport
	trailX        []float64
	trailY        []float64
	history       []Snapshot
	playHead      int
	running       bool
	showHelp      bool
	theme         Theme
	styles        Styles
	message       string
	failures      int
	err           error
}

func NewModel(sys System, integ dynamo.Integrator, x0 dynamo.State, opts Options) (Model, error) {
	if opts.Dt <= 0 {
		return Model{}, fmt.Errorf("dt must be positive, got %g", opts.Dt)
	}
	if opts.StepsPerFrame <= 0 {
		opts.StepsPerFrame = 1
	}
	if opts.Name == "" {
		opts.Name = "kepler"
	}
	theme := GetTheme(opts.Theme)
	m := Model{
		sys:      sys,
		integ:    integ,
		opts:     opts,
		x0:       x0.Clone(),
		h0:       sys.Energy(x0),
		l0:       sys.AngularMomentum(x0),
		mode:     opts.Mode,
		state:    x0.Clone(),
		width:    width,
		height:   height,
		canvas:   NewCanvas(width, height),
		trailX:   make([]float64, 0, trailCapacity),
		trailY:   make([]float64, 0, trailCapacity),
		history:  make([]Snapshot, 0, historyCapacity),
		playHead: -1,
		running:  true,
		theme:    theme,
		styles:   NewStyles(theme),
	}
	m.fit()
	if err := m.rebuild(); err != nil {
		return Model{}, err
	}
	m.record()
	return m, nil
}

// fit sizes the viewport to hold the whole orbit of the initial state.
func (m *Model) fit() {
	q, _ := physics.Split(m.x0)
	extent := 2 * q.Norm()
	if el, err := physics.ElementsOf(m.x0); err == nil {
		extent = el.SemiMajor * (1 + el.Eccentricity)
	}
	if extent == 0 || math.IsNaN(extent) {
		extent = 1
	}
	m.view = FitViewport(m.canvas, -extent, extent, -extent, extent)
}

// rebuild starts a fresh stepper at the current state with the current
// projection mode.
func (m *Model) rebuild() error {
	cfg := dynamo.Config{Dt: m.opts.Dt, Duration: liveHorizon}
	st, err := dynamo.NewStepper(m.sys, m.integ, m.state, cfg)
	if err != nil {
		return err
	}
	if m.mode != projection.ModeNone {
		man, err := projection.NewManifold(m.mode, m.sys, m.x0)
		if err != nil {
			return err
		}
		st.AddCallback(man)
	}
	m.stepper = st
	m.tOffset = m.t
	return nil
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "p":
			m.cycleMode()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "+", "=":
			m.opts.StepsPerFrame = min(m.opts.StepsPerFrame*2, 1024)
		case "-", "_":
			m.opts.StepsPerFrame = max(m.opts.StepsPerFrame/2, 1)
		case "s":
			m.save()
		case "t":
			m.theme = NextTheme(m.theme)
			m.styles = NewStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) resize(w, h int) {
	cw, ch := w-50, h-4
	if cw < 20 || ch < 8 {
		return
	}
	m.width, m.height = cw, ch
	m.canvas = NewCanvas(m.width, m.height)
	m.fit()
}

// step advances the simulation by one frame.
func (m *Model) step() {
	for i := 0; i < m.opts.StepsPerFrame; i++ {
		if m.stepper.Done() {
			m.running = false
			return
		}
		before := len(m.stepper.Errors())
		x, err := m.stepper.Advance()
		if err != nil {
			m.err = err
			m.running = false
			return
		}
		m.failures += len(m.stepper.Errors()) - before
		m.state = x.Clone()
		m.t = m.tOffset + m.stepper.Time()
		m.record()
	}
}

func (m *Model) record() {
	snap := Snapshot{
		State:   m.state.Clone(),
		Time:    m.t,
		Energy:  m.sys.Energy(m.state),
		Angular: m.sys.AngularMomentum(m.state),
	}
	m.history = append(m.history, snap)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
	m.trailX = append(m.trailX, m.state[0])
	m.trailY = append(m.trailY, m.state[1])
	if len(m.trailX) > trailCapacity {
		m.trailX, m.trailY = m.trailX[1:], m.trailY[1:]
	}
}

// cycleMode switches to the next projection mode and continues from the
// current state.
func (m *Model) cycleMode() {
	m.mode = m.mode.Next()
	if err := m.rebuild(); err != nil {
		m.err = err
		m.running = false
		return
	}
	m.message = "projection: " + m.mode.String()
}

// scrub changes the playback position in history.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// reset restores the initial state and keeps the projection mode.
func (m *Model) reset() {
	m.t = 0
	m.state = m.x0.Clone()
	m.trailX, m.trailY = m.trailX[:0], m.trailY[:0]
	m.history = m.history[:0]
	m.playHead = -1
	m.failures = 0
	m.err = nil
	m.message = ""
	if err := m.rebuild(); err != nil {
		m.err = err
		m.running = false
		return
	}
	m.running = true
	m.record()
}

func (m *Model) save() {
	if m.opts.Save == nil {
		m.message = "saving is not configured"
		return
	}
	times := make([]float64, len(m.history))
	states := make([]dynamo.State, len(m.history))
	for i, s := range m.history {
		times[i], states[i] = s.Time, s.State
	}
	where, err := m.opts.Save(m.opts.Name, times, states)
	if err != nil {
		m.message = "save failed: " + err.Error()
		return
	}
	m.message = "saved " + where
}

// current is the snapshot on screen, which differs from the live state
// during replay.
func (m Model) current() Snapshot {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	if len(m.history) > 0 {
		return m.history[len(m.history)-1]
	}
	return Snapshot{State: m.state, Time: m.t, Energy: m.sys.Energy(m.state), Angular: m.sys.AngularMomentum(m.state)}
}

func (m *Model) draw(snap Snapshot) {
	c := m.canvas
	c.Clear()
	ox, oy := m.view.Project(c, 0, 0)
	c.DrawCircle(ox, oy, 1)
	c.Set(ox, oy)

	n := len(m.trailX)
	if m.playHead >= 0 {
		// Only the part of the trail that existed at the replayed time.
		n = max(0, n-(len(m.history)-1-m.playHead))
	}
	c.Polyline(m.view, m.trailX[:n], m.trailY[:n])

	bx, by := m.view.Project(c, snap.State[0], snap.State[1])
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			c.Set(bx+dx, by+dy)
		}
	}
}

func (m Model) status() string {
	st := m.styles
	switch {
	case m.err != nil:
		return st.Alert.Render("STOPPED")
	case m.playHead != -1:
		back := m.history[m.playHead].Time - m.history[len(m.history)-1].Time
		if m.running {
			return st.Paused.Render(fmt.Sprintf("REPLAYING (%.2f)", back))
		}
		return st.Paused.Render(fmt.Sprintf("REPLAY PAUSED (%.2f)", back))
	case !m.running:
		return st.Paused.Render("PAUSED")
	}
	return st.Running.Render("RUNNING")
}

// View renders the TUI interface.
func (m Model) View() string {
	st := m.styles
	snap := m.current()
	m.draw(snap)
	canvasView := st.Canvas.Render(st.Orbit.Render(m.canvas.String()))

	dh, dl := snap.Energy-m.h0, snap.Angular-m.l0
	row := func(label, value string) string {
		return st.Label.Render(label) + st.Value.Render(value) + "\n"
	}

	var s strings.Builder
	s.WriteString(st.Header.Render(strings.ToUpper(m.opts.Name)) + "\n")
	s.WriteString(m.status() + "\n\n")
	s.WriteString(row("Integrator", m.opts.Integrator))
	s.WriteString(row("Projection", m.mode.String()))
	s.WriteString(row("dt", fmt.Sprintf("%g ×%d", m.opts.Dt, m.opts.StepsPerFrame)))
	s.WriteString(row("Time", fmt.Sprintf("%.3f", snap.Time)))
	s.WriteString(row("H", fmt.Sprintf("%.12f", snap.Energy)))
	s.WriteString(row("L", fmt.Sprintf("%.12f", snap.Angular)))
	s.WriteString(row("ΔH", fmt.Sprintf("%+.3e", dh)))
	s.WriteString(row("ΔL", fmt.Sprintf("%+.3e", dl)))
	if m.failures > 0 {
		s.WriteString(st.Label.Render("Failures") + st.Alert.Render(fmt.Sprintf("%d", m.failures)) + "\n")
	}

	if drift := m.energyDrift(); len(drift) > 1 {
		chart := asciigraph.Plot(drift, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("ΔH"))
		s.WriteString(st.Graph.Render(chart) + "\n")
	}
	if m.err != nil {
		s.WriteString(st.Alert.Render(errorLine(m.err)) + "\n")
	}
	if m.message != "" {
		s.WriteString(st.Value.Render(m.message) + "\n")
	}
	s.WriteString(st.Help.Render(st.KeyHints("space", "pause", "p", "projection", "?", "help", "q", "quit")))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.Panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

func (m Model) energyDrift() []float64 {
	n := len(m.history)
	if m.playHead >= 0 {
		n = m.playHead + 1
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = m.history[i].Energy - m.h0
	}
	return out
}

func errorLine(err error) string {
	var se *dynamo.SimulationError
	if errors.As(err, &se) {
		return fmt.Sprintf("t=%.3f: %v", se.Time, se.Wrapped)
	}
	return err.Error()
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Reset simulation         ║
║  P        - Cycle projection mode    ║
║  [ ]      - Rewind / forward         ║
║  + -      - Steps per frame          ║
║  S        - Save trajectory          ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// Run starts the live view in the terminal.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
