package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/wavecap/internal/catalog"
)

type frameMsg struct{ gen int }

type playbackEndedMsg struct{ gen int }

type sourceDoneMsg struct{ gen int }

type takeSavedMsg struct {
	take catalog.Take
	err  error
}

// statusTTL is how long transient status messages stay on screen.
const statusTTL = 5 * time.Second

func frameCmd(interval time.Duration, gen int) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return frameMsg{gen: gen}
	})
}
