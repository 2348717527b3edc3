package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/olivier-w/wavecap/internal/catalog"
	"github.com/olivier-w/wavecap/internal/config"
	"github.com/olivier-w/wavecap/internal/player"
	"github.com/olivier-w/wavecap/internal/plot"
	"github.com/olivier-w/wavecap/internal/recorder"
)

// Mode selects what the model drives the waveform from.
type Mode int

const (
	ModePlay Mode = iota
	ModeRecord
)

// Options are shared by both modes.
type Options struct {
	Config  *config.Config
	Logger  *zap.Logger
	Catalog *catalog.Store // optional, record mode only
}

// levelSource is a plot source that also reports peaks for the level bar.
// *player.Player and *recorder.Recorder implement it.
type levelSource interface {
	plot.LevelSource
	PeakPower(channel int) float64
}

// track is what the play mode needs from a registered sound. *player.Player
// implements it.
type track interface {
	player.Sound
	PeakPower(channel int) float64
	TogglePause()
	Paused() bool
	Position() time.Duration
	Duration() time.Duration
	Done() <-chan struct{}
	Volume() float64
	SetVolume(v float64)
}

// Model is the Bubbletea model for the wavecap TUI.
type Model struct {
	mode Mode
	cfg  *config.Config
	log  *zap.Logger

	plot   *plot.Plot
	clock  *frameClock
	canvas *canvas
	level  levelMeter
	source levelSource

	width, height int
	quitting      bool
	status        string
	statusErr     bool
	statusTime    time.Time
	progress      progress.Model
	spinner       spinner.Model

	// play mode
	registry *player.Registry
	paths    []string
	index    int
	current  track
	meta     player.Metadata
	loops    int
	loopMode LoopMode
	volume   float64
	stopped  bool
	playGen  int

	// record mode
	rec        *recorder.Recorder
	bridge     *observerBridge
	openSource func() (io.Reader, error)
	catalog    *catalog.Store
	srcGen     int
	saving     bool
}

func newModel(mode Mode, opts Options) (Model, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	pc, err := terminalPlotConfig(cfg)
	if err != nil {
		return Model{}, err
	}
	clock := newFrameClock(cfg.FPS)
	cv := newCanvas(46, minWaveRows)
	p, err := plot.New(clock,
		plot.WithConfig(pc),
		plot.WithInvalidate(cv.invalidate),
		plot.WithLogger(log.Named("plot")))
	if err != nil {
		return Model{}, err
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})

	return Model{
		mode:   mode,
		cfg:    cfg,
		log:    log,
		plot:   p,
		clock:  clock,
		canvas: cv,
		level:  newLevelMeter(cfg.FPS),
		progress: progress.New(
			progress.WithScaledGradient("#5FAFFF", "#5F5FFF"),
			progress.WithoutPercentage(),
		),
		spinner: s,
		volume:  cfg.Volume,
		catalog: opts.Catalog,
	}, nil
}

// NewPlayer creates a model that plays paths in order through reg and
// starts the first one. loops is passed to every track unless the loop
// mode overrides it.
func NewPlayer(reg *player.Registry, paths []string, loops int, opts Options) (Model, error) {
	if len(paths) == 0 {
		return Model{}, errors.New("nothing to play")
	}
	m, err := newModel(ModePlay, opts)
	if err != nil {
		return Model{}, err
	}
	m.registry = reg
	m.paths = paths
	m.loops = loops
	if err := m.startTrack(0); err != nil {
		return Model{}, err
	}
	return m, nil
}

// NewRecorder creates a model that records from the readers open returns
// and starts the first take.
func NewRecorder(open func() (io.Reader, error), opts Options) (Model, error) {
	m, err := newModel(ModeRecord, opts)
	if err != nil {
		return Model{}, err
	}
	m.bridge = newObserverBridge()
	ro := m.cfg.RecorderOptions()
	ro.Observer = m.bridge.Observer()
	ro.Logger = m.log.Named("recorder")
	m.rec = recorder.New(ro)
	m.openSource = open
	if err := m.startTake(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.clock.start(), tea.SetWindowTitle(m.windowTitle())}
	switch m.mode {
	case ModePlay:
		cmds = append(cmds, m.waitTrack())
	case ModeRecord:
		cmds = append(cmds, m.bridge.wait(), m.waitSource())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isQuit(msg) {
			m.shutdown()
			return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
		}
		if m.mode == ModeRecord {
			return m.updateRecordKeys(msg)
		}
		return m.updatePlayKeys(msg)

	case frameMsg:
		cmd, ok := m.clock.handle(msg)
		if !ok {
			return m, nil
		}
		db, peak := 0.0, 0.0
		if m.source != nil {
			db, peak = m.source.AveragePower(0), m.source.PeakPower(0)
		}
		m.level.step(db, peak, time.Now())
		if m.status != "" && time.Since(m.statusTime) > statusTTL {
			m.status = ""
			m.statusErr = false
		}
		return m, cmd

	case playbackEndedMsg:
		return m.handleTrackEnded(msg)

	case sourceDoneMsg:
		if msg.gen == m.srcGen && m.rec.Status() == recorder.Recording {
			return m.stopTake()
		}
		return m, nil

	case recorderEventMsg:
		return m.handleRecorderEvent(msg)

	case takeSavedMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Catalog failed: %v", msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("Cataloged take #%d", msg.take.ID), false)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.saving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.canvas.resize(msg.Width, msg.Height)
		m.progress.Width = m.barWidth()
		return m, nil
	}

	return m, nil
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
	m.statusTime = time.Now()
}

// shutdown releases audio resources. A take still recording is discarded.
func (m *Model) shutdown() {
	m.quitting = true
	m.plot.StopUpdate()
	m.source = nil
	switch m.mode {
	case ModePlay:
		m.registry.Close()
	case ModeRecord:
		if m.rec.Status() == recorder.Recording {
			m.rec.Abort()
		}
		m.rec.Wait()
	}
}

func (m Model) barWidth() int {
	w := m.width
	if w < 30 {
		w = 50
	}
	bw := w - 16
	if bw < 10 {
		bw = 10
	}
	return bw
}

func (m Model) windowTitle() string {
	if m.mode == ModeRecord {
		return "● recording — wavecap"
	}
	if m.current != nil && m.current.Paused() {
		return "⏸ " + m.meta.Title + " — wavecap"
	}
	return "▶ " + m.meta.Title + " — wavecap"
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w := m.width
	if w < 30 {
		w = 50
	}

	lines := "\n"
	lines += "  " + headerStyle.Render("wavecap") + "\n"
	lines += "\n"

	if m.mode == ModeRecord {
		lines += m.recordHeader()
	} else {
		lines += m.playHeader()
	}
	lines += "\n"

	for _, row := range strings.Split(m.canvas.render(m.plot), "\n") {
		lines += "  " + row + "\n"
	}
	lines += "\n"

	if m.mode == ModePlay {
		lines += "  " + m.progressLine() + "\n"
	}
	lines += "  " + statusStyle.Render(renderLevelBar(m.level.pos, m.level.db, m.level.peak, m.barWidth()/2)) + "\n"
	lines += "\n"

	var left string
	if m.mode == ModeRecord {
		left = m.recordStatus()
	} else {
		left = m.playStatus()
	}
	right := ""
	if m.mode == ModePlay {
		right = renderVolumePercent(m.volume)
	}
	gap := w - lipgloss.Width(left) - len(right) - 4
	if gap < 2 {
		gap = 2
	}
	lines += "  " + statusStyle.Render(left) + spaces(gap) + statusStyle.Render(right) + "\n"

	if m.status != "" {
		style := helpStyle
		if m.statusErr {
			style = errorStyle
		}
		lines += "  " + style.Render(m.status) + "\n"
	}
	lines += "\n"
	lines += "  " + helpStyle.Render(helpText(m.mode, len(m.paths) > 1)) + "\n"

	return lines
}
