package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/olivier-w/wavecap/internal/player"
	"github.com/olivier-w/wavecap/internal/plot"
	"github.com/olivier-w/wavecap/internal/util"
)

const volumeStep = 0.05

// startTrack stops whatever is playing and plays paths[i].
func (m *Model) startTrack(i int) error {
	if m.current != nil {
		m.registry.Stop(m.paths[m.index])
		m.current = nil
	}
	m.playGen++
	m.index = i
	path := m.paths[i]

	s, err := m.registry.Play(path, m.loopMode.playerLoops(m.loops))
	if err != nil {
		return fmt.Errorf("play %s: %w", path, err)
	}
	t, ok := s.(track)
	if !ok {
		m.registry.Stop(path)
		return fmt.Errorf("play %s: sound does not support playback controls", path)
	}
	t.SetVolume(m.volume)

	m.current = t
	m.meta = player.ReadMetadata(path)
	m.stopped = false
	m.source = t
	m.level.reset()
	if err := m.plot.StartUpdate(t, plot.SourcePlayer); err != nil {
		return err
	}
	m.log.Info("track started", zap.String("path", path), zap.Int("index", i))
	return nil
}

func (m Model) waitTrack() tea.Cmd {
	if m.current == nil {
		return nil
	}
	done, gen := m.current.Done(), m.playGen
	return func() tea.Msg {
		<-done
		return playbackEndedMsg{gen: gen}
	}
}

// jump plays paths[i] and re-arms the end-of-track wait.
func (m Model) jump(i int) (tea.Model, tea.Cmd) {
	if err := m.startTrack(i); err != nil {
		m.log.Warn("starting track failed", zap.Error(err))
		m.setStatus(err.Error(), true)
		m.stopped = true
		m.source = nil
		m.plot.StopUpdate()
		return m, nil
	}
	return m, tea.Batch(m.waitTrack(), tea.SetWindowTitle(m.windowTitle()))
}

func (m Model) stopTrack() Model {
	if m.current != nil {
		m.registry.Stop(m.paths[m.index])
		m.current = nil
	}
	m.stopped = true
	m.source = nil
	m.plot.StopUpdate()
	return m
}

func (m Model) updatePlayKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		if m.stopped || m.current == nil {
			return m.jump(m.index)
		}
		if m.current.Paused() {
			// Play resumes and picks up a loop mode changed while paused.
			m.current.Play(m.loopMode.playerLoops(m.loops))
		} else {
			m.current.TogglePause()
		}
		return m, tea.SetWindowTitle(m.windowTitle())
	case "+", "=", "up", "k":
		m.adjustVolume(volumeStep)
	case "-", "down", "j":
		m.adjustVolume(-volumeStep)
	case "l":
		m.loopMode = m.loopMode.Next()
		if m.current != nil && !m.stopped && !m.current.Paused() {
			m.current.Play(m.loopMode.playerLoops(m.loops))
		}
	case "s":
		m = m.stopTrack()
	case "n":
		if next, ok := m.nextIndex(); ok {
			return m.jump(next)
		}
	case "p":
		if m.index > 0 {
			return m.jump(m.index - 1)
		}
		return m.jump(m.index)
	}
	return m, nil
}

func (m *Model) adjustVolume(delta float64) {
	m.volume += delta
	if m.volume < 0 {
		m.volume = 0
	}
	if m.volume > 1 {
		m.volume = 1
	}
	if m.current != nil {
		m.current.SetVolume(m.volume)
		m.volume = m.current.Volume()
	}
}

// nextIndex is the track after the current one, wrapping in LoopAll.
func (m Model) nextIndex() (int, bool) {
	next := m.index + 1
	if next < len(m.paths) {
		return next, true
	}
	if m.loopMode == LoopAll {
		return 0, true
	}
	return 0, false
}

func (m Model) handleTrackEnded(msg playbackEndedMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.playGen || m.stopped {
		return m, nil
	}
	if next, ok := m.nextIndex(); ok {
		return m.jump(next)
	}
	m.shutdown()
	return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
}

func (m Model) playHeader() string {
	s := "  " + titleStyle.Render(m.meta.Title) + "\n"
	switch {
	case m.meta.Artist != "" && m.meta.Album != "":
		s += "  " + artistStyle.Render(fmt.Sprintf("%s - %s", m.meta.Artist, m.meta.Album)) + "\n"
	case m.meta.Artist != "":
		s += "  " + artistStyle.Render(m.meta.Artist) + "\n"
	case m.meta.Album != "":
		s += "  " + artistStyle.Render(m.meta.Album) + "\n"
	}
	return s
}

func (m Model) progressLine() string {
	var elapsed, total time.Duration
	if m.current != nil {
		elapsed, total = m.current.Position(), m.current.Duration()
	}
	return fmt.Sprintf("%s %s %s",
		timeStyle.Render(util.FormatDuration(elapsed)),
		m.progress.ViewAs(ratio(elapsed.Seconds(), total.Seconds())),
		timeStyle.Render(util.FormatDuration(total)))
}

func (m Model) playStatus() string {
	icon, text := "▶", "playing"
	switch {
	case m.stopped || m.current == nil:
		icon, text = "■", "stopped"
	case m.current.Paused():
		icon, text = "❚❚", "paused"
	}
	s := fmt.Sprintf("%s  %s", icon, text)
	if len(m.paths) > 1 {
		s += fmt.Sprintf("  %d/%d", m.index+1, len(m.paths))
	}
	if loop := m.loopMode.Icon(); loop != "" {
		s += "  " + loop
	}
	return s
}
