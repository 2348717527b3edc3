package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/wavecap/internal/recorder"
)

// recorderEventMsg is a recorder callback delivered to Update.
type recorderEventMsg struct {
	kind   recorderEvent
	path   string
	reason recorder.FailReason
}

type recorderEvent int

const (
	eventStarted recorderEvent = iota
	eventFinished
	eventAborted
)

// observerBridge forwards recorder callbacks, which arrive on recorder
// goroutines, onto a channel the model drains one message at a time.
type observerBridge struct {
	events chan recorderEventMsg
}

func newObserverBridge() *observerBridge {
	return &observerBridge{events: make(chan recorderEventMsg, 16)}
}

func (b *observerBridge) RecordingStarted(*recorder.Recorder) {
	b.events <- recorderEventMsg{kind: eventStarted}
}

func (b *observerBridge) RecordingFinished(_ *recorder.Recorder, path string) {
	b.events <- recorderEventMsg{kind: eventFinished, path: path}
}

func (b *observerBridge) RecordingAborted(_ *recorder.Recorder, reason recorder.FailReason) {
	b.events <- recorderEventMsg{kind: eventAborted, reason: reason}
}

// Observer returns the bridge as a recorder.Observer.
func (b *observerBridge) Observer() recorder.Observer { return b }

func (b *observerBridge) wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.events
	}
}
