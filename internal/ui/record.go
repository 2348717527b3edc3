package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/olivier-w/wavecap/internal/catalog"
	"github.com/olivier-w/wavecap/internal/plot"
	"github.com/olivier-w/wavecap/internal/recorder"
	"github.com/olivier-w/wavecap/internal/util"
)

// exportTimeout bounds how long a finished take may take to move into the
// output directory.
const exportTimeout = time.Minute

var errSourceBusy = errors.New("previous source has not drained yet")

// startTake opens a source and begins a take. The previous take's source
// must have finished reading so two pumps never share a reader.
func (m *Model) startTake() error {
	if done := m.rec.SourceDone(); done != nil {
		select {
		case <-done:
		default:
			return errSourceBusy
		}
	}

	src, err := m.openSource()
	if err != nil {
		return fmt.Errorf("open recording source: %w", err)
	}
	if err := m.rec.Start(src); err != nil {
		return err
	}
	m.srcGen++
	m.source = m.rec
	m.level.reset()
	return m.plot.StartUpdate(m.rec, plot.SourceRecorder)
}

func (m Model) waitSource() tea.Cmd {
	done, gen := m.rec.SourceDone(), m.srcGen
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		<-done
		return sourceDoneMsg{gen: gen}
	}
}

// stopTake ends the take and starts the export spinner. Short takes come
// back as an aborted event.
func (m Model) stopTake() (tea.Model, tea.Cmd) {
	m.plot.StopUpdate()
	m.source = nil

	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	err := m.rec.StopAndSave(ctx)
	if err != nil {
		cancel()
		m.setStatus(err.Error(), true)
		return m, nil
	}
	go func() {
		m.rec.Wait()
		cancel()
	}()
	m.saving = true
	return m, m.spinner.Tick
}

func (m Model) updateRecordKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		switch m.rec.Status() {
		case recorder.Recording:
			return m.stopTake()
		case recorder.Processing:
			return m, nil
		}
		if err := m.startTake(); err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		return m, m.waitSource()
	case "s":
		if m.rec.Status() == recorder.Recording {
			m.plot.StopUpdate()
			m.source = nil
			m.rec.Abort()
		}
	}
	return m, nil
}

func (m Model) handleRecorderEvent(msg recorderEventMsg) (tea.Model, tea.Cmd) {
	next := m.bridge.wait()

	switch msg.kind {
	case eventStarted:
		m.setStatus("Recording", false)
		return m, next

	case eventAborted:
		m.saving = false
		if msg.reason == recorder.Aborted {
			m.setStatus("Recording discarded", false)
		} else {
			m.setStatus(fmt.Sprintf("Recording discarded: %s", msg.reason), true)
		}
		return m, next

	case eventFinished:
		m.saving = false
		take := catalog.Take{
			Path:       msg.path,
			Duration:   m.rec.Duration(),
			SampleRate: m.rec.Options().SampleRate,
			Channels:   m.rec.Options().Channels,
			CreatedAt:  time.Now(),
		}
		size := ""
		if info, err := os.Stat(msg.path); err == nil {
			take.Size = info.Size()
			size = " (" + humanize.Bytes(uint64(info.Size())) + ")"
		}
		m.setStatus(fmt.Sprintf("Saved %s%s", filepath.Base(msg.path), size), false)
		if m.catalog == nil {
			return m, next
		}
		return m, tea.Batch(next, m.saveTake(take))
	}
	return m, next
}

func (m Model) saveTake(take catalog.Take) tea.Cmd {
	store, log := m.catalog, m.log
	return func() tea.Msg {
		id, err := store.AddTake(context.Background(), take)
		if err != nil {
			log.Warn("cataloging take failed", zap.String("path", take.Path), zap.Error(err))
		}
		take.ID = id
		return takeSavedMsg{take: take, err: err}
	}
}

func (m Model) recordHeader() string {
	return "  " + titleStyle.Render("Recording") + "\n" +
		"  " + artistStyle.Render(fmt.Sprintf("%d Hz, %d ch", m.rec.Options().SampleRate, m.rec.Options().Channels)) + "\n"
}

func (m Model) recordStatus() string {
	dur := util.FormatDuration(m.rec.Duration())
	switch m.rec.Status() {
	case recorder.Recording:
		return recordStyle.Render("●") + "  recording  " + timeStyle.Render(dur)
	case recorder.Processing:
		return m.spinner.View() + " saving  " + timeStyle.Render(dur)
	case recorder.Finished:
		return "✓  saved  " + timeStyle.Render(dur)
	default:
		return "■  idle"
	}
}
