package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/frame"
	"github.com/san-kum/rigidsim/internal/loop"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/shape"
	"github.com/san-kum/rigidsim/internal/world"
	"go.uber.org/zap"
)

const (
	canvasWidth     = 60
	canvasHeight    = 22
	historyCapacity = 300
	tickInterval    = time.Second / 60

	// upward velocity change of a kick
	kickSpeed = 6.0
)

type TickMsg time.Time

type LiveOption func(*Live)

// WithLiveClock paces the view with c instead of the wall clock.
func WithLiveClock(c clock.Clock) LiveOption {
	return func(l *Live) { l.clock = c }
}

// Live renders one scene while the world runs in fixed steps.
type Live struct {
	cfg    *config.Config
	logger *zap.Logger
	clock  clock.Clock

	scene  *config.Scene
	runner *loop.Runner
	shapes map[body.ID]*shape.Shape

	canvas *Canvas
	camera *Camera
	theme  Theme
	styles styles

	running  bool
	showHelp bool
	energy   []float64
	kicks    int
}

func NewLive(cfg *config.Config, logger *zap.Logger, opts ...LiveOption) (*Live, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Live{
		cfg:     cfg,
		logger:  logger.Named("live"),
		clock:   clock.New(),
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		camera:  NewCamera(),
		theme:   Themes[0],
		running: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.styles = newStyles(l.theme)
	if err := l.build(); err != nil {
		return nil, err
	}
	return l, nil
}

// build creates a fresh world from the scene config.
func (l *Live) build() error {
	w, err := world.New(l.cfg.World, l.logger)
	if err != nil {
		return err
	}
	scene, err := l.cfg.Build(w)
	if err != nil {
		return err
	}
	shapes := make(map[body.ID]*shape.Shape)
	for _, id := range w.Bodies() {
		b, err := w.Body(id)
		if err != nil {
			return err
		}
		shapes[id] = b.Shape()
	}
	l.scene = scene
	l.shapes = shapes
	l.runner = loop.NewRunner(w, l.cfg.World.TimeStep, loop.WithClock(l.clock), loop.WithLogger(l.logger))
	l.energy = l.energy[:0]
	l.kicks = 0
	l.draw()
	return nil
}

func (l *Live) World() *world.World { return l.scene.World }

func (l *Live) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (l *Live) Init() tea.Cmd { return l.tick() }

func (l *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return l, tea.Quit
		case " ":
			l.running = !l.running
			if l.running {
				l.runner.Reset()
			}
		case "r":
			if err := l.build(); err != nil {
				l.logger.Error("rebuilding scene", zap.Error(err))
			}
		case "i":
			l.kick()
		case "h", "left":
			l.camera.Orbit(-0.1)
		case "l", "right":
			l.camera.Orbit(0.1)
		case "k", "up":
			l.camera.Tilt(0.1)
		case "j", "down":
			l.camera.Tilt(-0.1)
		case "+", "=":
			l.camera.ZoomIn()
		case "-", "_":
			l.camera.ZoomOut()
		case "t":
			l.theme = NextTheme(l.theme.Name)
			l.styles = newStyles(l.theme)
		case "?":
			l.showHelp = !l.showHelp
		}
		l.draw()
	case TickMsg:
		l.advance()
		return l, l.tick()
	}
	return l, nil
}

// advance runs the steps due since the last tick and redraws.
func (l *Live) advance() {
	if !l.running {
		return
	}
	if n := l.runner.Advance(); n > 0 {
		l.energy = append(l.energy, metrics.TotalEnergy(l.World().Frames().Latest()))
		if len(l.energy) > historyCapacity {
			l.energy = l.energy[len(l.energy)-historyCapacity:]
		}
	}
	l.draw()
}

// kick launches the dynamic bodies upwards one at a time, in ID order.
func (l *Live) kick() {
	f := l.World().Snapshot()
	var dynamic []frame.BodyState
	for _, b := range f.Bodies {
		if !b.Static {
			dynamic = append(dynamic, b)
		}
	}
	if len(dynamic) == 0 {
		return
	}
	b := dynamic[l.kicks%len(dynamic)]
	l.kicks++
	impulse := mgl64.Vec3{0, kickSpeed * b.Mass, 0}
	if err := l.World().ApplyImpulse(b.ID, impulse, b.Pose.Position); err != nil {
		l.logger.Warn("kick failed", zap.Uint64("body", uint64(b.ID)), zap.Error(err))
	}
}

// draw renders the latest frame, interpolated by the runner's leftover
// time while running.
func (l *Live) draw() {
	f := l.World().Frames().Latest()
	if f == nil {
		f = l.World().Snapshot()
	}
	poses := make(map[body.ID]body.Pose, len(f.Bodies))
	for _, b := range f.Bodies {
		poses[b.ID] = b.Pose
		if l.running {
			if p, ok := l.World().Frames().Interpolate(b.ID, l.runner.Alpha()); ok {
				poses[b.ID] = p
			}
		}
	}
	l.canvas.Clear()
	DrawBodies(l.canvas, l.camera, l.shapes, poses)
}

func (l *Live) View() string {
	st := l.styles
	w := l.World()
	stats := w.Stats()

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(l.cfg.Name)) + "\n")
	if l.running {
		s.WriteString(st.running.Render("RUNNING") + "\n\n")
	} else {
		s.WriteString(st.paused.Render("PAUSED") + "\n\n")
	}

	if len(l.energy) > 1 {
		chart := asciigraph.Plot(l.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}

	s.WriteString(st.row("Time", fmt.Sprintf("%.2fs", w.Time())))
	s.WriteString(st.row("Step", fmt.Sprintf("%d", w.StepCount())))
	s.WriteString(st.row("Bodies", fmt.Sprintf("%d", stats.Bodies)))
	s.WriteString(st.row("Pairs", fmt.Sprintf("%d", stats.Pairs)))
	s.WriteString(st.row("Contacts", fmt.Sprintf("%d", stats.Solver.Points)))
	s.WriteString(st.row("Penetration", fmt.Sprintf("%.4f", stats.MaxPenetration)))
	if stats.Bodies > 0 {
		asleep := float64(stats.Sleeping) / float64(stats.Bodies)
		s.WriteString(st.label.Render("Sleeping") + st.sleeping.Render(bar(asleep, 10)) + "\n")
	}
	if d := l.runner.Dropped(); d > 0 {
		s.WriteString(st.row("Dropped", d.Round(time.Millisecond).String()))
	}
	s.WriteString(st.row("Theme", l.theme.Name))
	s.WriteString(st.help.Render("SP:Pause R:Reset I:Kick Q:Quit\nHJKL:Camera +/-:Zoom T:Theme ?:Help"))

	main := lipgloss.JoinHorizontal(lipgloss.Top, st.canvas.Render(l.canvas.String()), st.stats.Render(s.String()))
	if l.showHelp {
		return helpText + "\n" + main
	}
	return main
}

const helpText = `
  Space    pause / resume
  R        rebuild the scene
  I        kick the next dynamic body upwards
  H L      orbit the camera
  J K      tilt the camera
  + -      zoom
  T        cycle themes
  ?        toggle this help
  Q        quit
`

// RunLive shows cfg until the user quits.
func RunLive(cfg *config.Config, logger *zap.Logger) error {
	l, err := NewLive(cfg, logger)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(l, tea.WithAltScreen()).Run()
	return err
}
