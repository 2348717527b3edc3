package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/wavecap/internal/plot"
)

// frameClock is a plot.Clock driven by bubbletea tick messages, so plot
// callbacks run inside Update like everything else the model touches.
type frameClock struct {
	clock    *plot.ManualClock
	interval time.Duration
	gen      int
}

func newFrameClock(fps int) *frameClock {
	if fps < 1 {
		fps = 1
	}
	return &frameClock{
		clock:    plot.NewManualClock(),
		interval: time.Second / time.Duration(fps),
	}
}

func (c *frameClock) Subscribe(fn func()) plot.Subscription {
	return c.clock.Subscribe(fn)
}

// start begins a new tick chain. Ticks still in flight from an older chain
// are ignored when they arrive.
func (c *frameClock) start() tea.Cmd {
	c.gen++
	return frameCmd(c.interval, c.gen)
}

// handle fires one frame for a current tick and re-arms. It reports false
// for stale ticks.
func (c *frameClock) handle(msg frameMsg) (tea.Cmd, bool) {
	if msg.gen != c.gen {
		return nil, false
	}
	c.clock.Tick()
	return frameCmd(c.interval, c.gen), true
}
