package ui

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/wavecap/internal/config"
	"github.com/olivier-w/wavecap/internal/player"
	"github.com/olivier-w/wavecap/internal/plot"
)

type fakeTrack struct {
	mu      sync.Mutex
	path    string
	plays   []int
	paused  bool
	closed  bool
	volume  float64
	updates int
	db      float64
	peak    float64
	done    chan struct{}
	once    sync.Once
}

func (f *fakeTrack) Play(loops int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, loops)
	f.paused = false
	return true
}

func (f *fakeTrack) Stop() { f.once.Do(func() { close(f.done) }) }

func (f *fakeTrack) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeTrack) UpdateMeters()            { f.updates++ }
func (f *fakeTrack) AveragePower(int) float64 { return f.db }
func (f *fakeTrack) PeakPower(int) float64    { return f.peak }
func (f *fakeTrack) TogglePause()             { f.paused = !f.paused }
func (f *fakeTrack) Paused() bool             { return f.paused }
func (f *fakeTrack) Position() time.Duration  { return time.Second }
func (f *fakeTrack) Duration() time.Duration  { return 4 * time.Second }
func (f *fakeTrack) Done() <-chan struct{}    { return f.done }
func (f *fakeTrack) Volume() float64          { return f.volume }
func (f *fakeTrack) SetVolume(v float64)      { f.volume = v }

func (f *fakeTrack) lastLoops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays[len(f.plays)-1]
}

type fakeOpener struct {
	opened []*fakeTrack
}

func (o *fakeOpener) open(path string) (player.Sound, error) {
	if path == "broken.wav" {
		return nil, errors.New("broken")
	}
	t := &fakeTrack{path: path, db: -20, peak: -8, done: make(chan struct{})}
	o.opened = append(o.opened, t)
	return t, nil
}

func newPlayModel(t *testing.T, paths ...string) (Model, *fakeOpener) {
	t.Helper()
	o := &fakeOpener{}
	reg := player.NewRegistry(o.open, nil)
	m, err := NewPlayer(reg, paths, 0, Options{Config: config.Default()})
	if err != nil {
		t.Fatalf("NewPlayer() error = %v", err)
	}
	m.Init()
	return m, o
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestNewPlayerStartsFirstTrack(t *testing.T) {
	m, o := newPlayModel(t, "a.wav", "b.wav")

	if len(o.opened) != 1 || o.opened[0].path != "a.wav" {
		t.Fatalf("unexpected opens: %+v", o.opened)
	}
	if got := o.opened[0].lastLoops(); got != 0 {
		t.Fatalf("loops = %d, want 0", got)
	}
	if m.plot.Source() != plot.SourcePlayer || !m.plot.Active() {
		t.Fatal("plot is not driven by the player")
	}
	if o.opened[0].volume != config.Default().Volume {
		t.Fatalf("volume = %v, want config volume", o.opened[0].volume)
	}
	if m.meta.Title != "a" {
		t.Fatalf("title = %q, want a", m.meta.Title)
	}
}

func TestNewPlayerRejectsEmptyList(t *testing.T) {
	reg := player.NewRegistry((&fakeOpener{}).open, nil)
	if _, err := NewPlayer(reg, nil, 0, Options{}); err == nil {
		t.Fatal("expected error for empty list")
	}
}

func TestNewPlayerOpenError(t *testing.T) {
	reg := player.NewRegistry((&fakeOpener{}).open, nil)
	if _, err := NewPlayer(reg, []string{"broken.wav"}, 0, Options{}); err == nil {
		t.Fatal("expected open error")
	}
}

func TestFrameDrivesPlotFromTrack(t *testing.T) {
	m, o := newPlayModel(t, "a.wav")

	phase := m.plot.Phase()
	m, cmd := update(t, m, frameMsg{gen: m.clock.gen})
	if cmd == nil {
		t.Fatal("frame did not re-arm")
	}
	if o.opened[0].updates != 1 {
		t.Fatalf("UpdateMeters called %d times, want 1", o.opened[0].updates)
	}
	if m.plot.Phase() == phase {
		t.Fatal("phase did not advance")
	}
	if m.plot.Amplitude() != plot.Normalize(-20) {
		t.Fatalf("amplitude = %v, want %v", m.plot.Amplitude(), plot.Normalize(-20))
	}
	if m.level.db != -20 || m.level.pos <= 0 || m.level.peak != -8 {
		t.Fatalf("level meter did not move: %+v", m.level)
	}

	// a tick from an older chain does nothing
	m, cmd = update(t, m, frameMsg{gen: m.clock.gen - 1})
	if cmd != nil || o.opened[0].updates != 1 {
		t.Fatal("stale frame was handled")
	}
}

func TestTrackEndAdvances(t *testing.T) {
	m, o := newPlayModel(t, "a.wav", "b.wav")

	m, cmd := update(t, m, playbackEndedMsg{gen: m.playGen})
	if cmd == nil {
		t.Fatal("expected wait command for the next track")
	}
	if m.index != 1 || len(o.opened) != 2 || o.opened[1].path != "b.wav" {
		t.Fatalf("did not advance: index=%d opened=%d", m.index, len(o.opened))
	}
	if !o.opened[0].closed {
		t.Fatal("previous track was not released")
	}
}

func TestTrackEndQuitsAfterLastTrack(t *testing.T) {
	m, o := newPlayModel(t, "a.wav")

	m, cmd := update(t, m, playbackEndedMsg{gen: m.playGen})
	if !m.quitting || cmd == nil {
		t.Fatal("expected quit after the last track")
	}
	if !o.opened[0].closed {
		t.Fatal("track was not released on quit")
	}
	if m.View() != "" {
		t.Fatal("quitting model still renders")
	}
}

func TestStaleTrackEndIgnored(t *testing.T) {
	m, _ := newPlayModel(t, "a.wav", "b.wav")
	m, _ = update(t, m, key("n"))
	m, cmd := update(t, m, playbackEndedMsg{gen: m.playGen - 1})
	if cmd != nil || m.index != 1 {
		t.Fatalf("stale end moved playback: index=%d", m.index)
	}
}

func TestLoopAllWraps(t *testing.T) {
	m, o := newPlayModel(t, "a.wav", "b.wav")
	m, _ = update(t, m, key("l"))
	m, _ = update(t, m, key("l"))
	if m.loopMode != LoopAll {
		t.Fatalf("loop mode = %v, want all", m.loopMode)
	}

	m, _ = update(t, m, playbackEndedMsg{gen: m.playGen})
	m, _ = update(t, m, playbackEndedMsg{gen: m.playGen})
	if m.quitting || m.index != 0 || len(o.opened) != 3 {
		t.Fatalf("did not wrap: index=%d opened=%d", m.index, len(o.opened))
	}
}

func TestLoopKeyUpdatesRunningTrack(t *testing.T) {
	m, o := newPlayModel(t, "a.wav")
	m, _ = update(t, m, key("l"))
	if got := o.opened[0].lastLoops(); got != -1 {
		t.Fatalf("loops = %d, want -1 for loop one", got)
	}
}

func TestPauseAndResume(t *testing.T) {
	m, o := newPlayModel(t, "a.wav")
	tr := o.opened[0]

	m, _ = update(t, m, key(" "))
	if !tr.paused {
		t.Fatal("space did not pause")
	}
	m, _ = update(t, m, key("l"))
	if len(tr.plays) != 1 {
		t.Fatal("loop change resumed a paused track")
	}
	m, _ = update(t, m, key(" "))
	if tr.paused || tr.lastLoops() != -1 {
		t.Fatalf("resume did not apply loop mode: paused=%v loops=%d", tr.paused, tr.lastLoops())
	}
}

func TestStopThenSpaceRestarts(t *testing.T) {
	m, o := newPlayModel(t, "a.wav")

	m, _ = update(t, m, key("s"))
	if !m.stopped || m.plot.Active() || !o.opened[0].closed {
		t.Fatal("stop did not release the track and idle the plot")
	}
	if m.plot.Amplitude() != 0 {
		t.Fatalf("amplitude = %v after stop, want 0", m.plot.Amplitude())
	}

	// the stopped track's end is ignored
	m, cmd := update(t, m, playbackEndedMsg{gen: m.playGen})
	if cmd != nil {
		t.Fatal("end of a stopped track was handled")
	}

	m, _ = update(t, m, key(" "))
	if m.stopped || len(o.opened) != 2 || !m.plot.Active() {
		t.Fatal("space did not restart playback")
	}
}

func TestVolumeKeys(t *testing.T) {
	m, o := newPlayModel(t, "a.wav")
	m, _ = update(t, m, key("+"))
	m, _ = update(t, m, key("+"))
	m, _ = update(t, m, key("+"))
	m, _ = update(t, m, key("+"))
	m, _ = update(t, m, key("+"))
	if m.volume != 1 || o.opened[0].volume != 1 {
		t.Fatalf("volume = %v, want clamped to 1", m.volume)
	}
	m, _ = update(t, m, key("-"))
	if math.Abs(m.volume-0.95) > 1e-9 {
		t.Fatalf("volume = %v, want 0.95", m.volume)
	}
}

func TestViewRendersWave(t *testing.T) {
	m, _ := newPlayModel(t, "a.wav")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 24})
	m, _ = update(t, m, frameMsg{gen: m.clock.gen})

	view := m.View()
	for _, want := range []string{"wavecap", "a", "0:01", "0:04", "playing", "vol 80%"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}
