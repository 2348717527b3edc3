package ui

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/olivier-w/wavecap/internal/catalog"
	"github.com/olivier-w/wavecap/internal/config"
	"github.com/olivier-w/wavecap/internal/plot"
	"github.com/olivier-w/wavecap/internal/recorder"
)

const testRate = 8000

func pcmSeconds(secs float64) []byte {
	frames := int(secs * testRate)
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(4000)))
	}
	return out
}

func recordConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Record.SampleRate = testRate
	cfg.Record.Channels = 1
	cfg.Record.MinSeconds = 3
	cfg.Record.TempDir = t.TempDir()
	cfg.Record.OutputDir = t.TempDir()
	return cfg
}

func newRecordModel(t *testing.T, data []byte, store *catalog.Store) Model {
	t.Helper()
	open := func() (io.Reader, error) { return bytes.NewReader(data), nil }
	m, err := NewRecorder(open, Options{Config: recordConfig(t), Catalog: store})
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	m.Init()
	return m
}

func nextEvent(t *testing.T, m Model) recorderEventMsg {
	t.Helper()
	select {
	case ev := <-m.bridge.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recorder event")
	}
	return recorderEventMsg{}
}

func drainSource(t *testing.T, m Model) {
	t.Helper()
	select {
	case <-m.rec.SourceDone():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the source to drain")
	}
}

func TestNewRecorderStartsTake(t *testing.T) {
	m := newRecordModel(t, pcmSeconds(1), nil)

	if m.rec.Status() != recorder.Recording {
		t.Fatalf("status = %v, want recording", m.rec.Status())
	}
	if m.plot.Source() != plot.SourceRecorder {
		t.Fatalf("plot source = %v, want recorder", m.plot.Source())
	}
	if ev := nextEvent(t, m); ev.kind != eventStarted {
		t.Fatalf("first event = %v, want started", ev.kind)
	}
	m.rec.Abort()
}

func TestSourceEndExportsTake(t *testing.T) {
	dir := t.TempDir()
	store, err := catalog.Open(filepath.Join(dir, "takes.db"))
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}
	defer store.Close()

	m := newRecordModel(t, pcmSeconds(4), store)
	nextEvent(t, m) // started
	drainSource(t, m)

	m, cmd := update(t, m, sourceDoneMsg{gen: m.srcGen})
	if cmd == nil || !m.saving {
		t.Fatal("source end did not start saving")
	}
	if m.plot.Active() {
		t.Fatal("plot still driven after the take stopped")
	}
	m.rec.Wait()

	ev := nextEvent(t, m)
	if ev.kind != eventFinished {
		t.Fatalf("event = %v, want finished", ev.kind)
	}
	m, cmd = update(t, m, ev)
	if m.saving || !strings.HasPrefix(m.status, "Saved recording-") || !strings.Contains(m.status, "kB") {
		t.Fatalf("unexpected status %q", m.status)
	}
	if cmd == nil {
		t.Fatal("expected catalog command")
	}

	msg := m.saveTake(takeFor(m, ev.path))()
	saved, ok := msg.(takeSavedMsg)
	if !ok || saved.err != nil || saved.take.ID == 0 {
		t.Fatalf("unexpected catalog result %+v", msg)
	}
	m, _ = update(t, m, saved)
	if !strings.HasPrefix(m.status, "Cataloged take #") {
		t.Fatalf("unexpected status %q", m.status)
	}

	takes, err := store.Takes(context.Background())
	if err != nil {
		t.Fatalf("Takes() error = %v", err)
	}
	if len(takes) != 1 || takes[0].Path != ev.path || takes[0].SampleRate != testRate {
		t.Fatalf("unexpected takes %+v", takes)
	}
}

func takeFor(m Model, path string) catalog.Take {
	return catalog.Take{Path: path, Duration: m.rec.Duration(), SampleRate: testRate, Channels: 1}
}

func TestShortTakeIsDiscarded(t *testing.T) {
	m := newRecordModel(t, pcmSeconds(1), nil)
	nextEvent(t, m)
	drainSource(t, m)

	m, _ = update(t, m, key("r"))
	ev := nextEvent(t, m)
	if ev.kind != eventAborted || ev.reason != recorder.DurationShort {
		t.Fatalf("unexpected event %+v", ev)
	}
	m, _ = update(t, m, ev)
	if m.saving || !m.statusErr || !strings.Contains(m.status, "duration too short") {
		t.Fatalf("unexpected status %q", m.status)
	}

	// r starts a fresh take once the previous one is settled
	m, cmd := update(t, m, key("r"))
	if cmd == nil || m.rec.Status() != recorder.Recording || m.srcGen != 2 {
		t.Fatalf("r did not start a new take: status=%v gen=%d", m.rec.Status(), m.srcGen)
	}
	m.rec.Abort()
}

func TestDiscardKeyAbortsTake(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	m, err := NewRecorder(func() (io.Reader, error) { return pr, nil }, Options{Config: recordConfig(t)})
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	nextEvent(t, m)

	m, _ = update(t, m, key("s"))
	if m.rec.Status() != recorder.Inactive || m.plot.Active() {
		t.Fatal("s did not abort the take")
	}
	ev := nextEvent(t, m)
	m, _ = update(t, m, ev)
	if m.status != "Recording discarded" || m.statusErr {
		t.Fatalf("unexpected status %q", m.status)
	}

	// the old pump is still blocked on the pipe, so a new take must wait
	m, _ = update(t, m, key("r"))
	if m.rec.Status() != recorder.Inactive || !m.statusErr {
		t.Fatalf("take started while the source was busy: %v", m.rec.Status())
	}
}

func TestStaleSourceDoneIgnored(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	m, err := NewRecorder(func() (io.Reader, error) { return pr, nil }, Options{Config: recordConfig(t)})
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	m, cmd := update(t, m, sourceDoneMsg{gen: m.srcGen + 1})
	if cmd != nil || m.rec.Status() != recorder.Recording {
		t.Fatal("stale source end stopped the take")
	}
	m.rec.Abort()
}

func TestQuitDiscardsRecordingTake(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	m, err := NewRecorder(func() (io.Reader, error) { return pr, nil }, Options{Config: recordConfig(t)})
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	m, cmd := update(t, m, key("q"))
	if cmd == nil || !m.quitting {
		t.Fatal("q did not quit")
	}
	if m.rec.Status() != recorder.Inactive {
		t.Fatalf("status = %v after quit, want inactive", m.rec.Status())
	}
}

func TestObserverBridgeForwardsEvents(t *testing.T) {
	b := newObserverBridge()
	b.RecordingStarted(nil)
	b.RecordingFinished(nil, "take.wav")
	b.RecordingAborted(nil, recorder.ExportFailed)

	want := []recorderEventMsg{
		{kind: eventStarted},
		{kind: eventFinished, path: "take.wav"},
		{kind: eventAborted, reason: recorder.ExportFailed},
	}
	for _, w := range want {
		got := b.wait()()
		if got != w {
			t.Fatalf("got %+v, want %+v", got, w)
		}
	}
}
