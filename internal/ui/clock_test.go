package ui

import (
	"testing"
	"time"

	"github.com/olivier-w/wavecap/internal/meter"
)

func TestFrameClockDropsStaleTicks(t *testing.T) {
	c := newFrameClock(50)
	if c.interval != 20*time.Millisecond {
		t.Fatalf("interval = %v, want 20ms", c.interval)
	}

	fired := 0
	c.Subscribe(func() { fired++ })

	c.start()
	c.start()

	if cmd, ok := c.handle(frameMsg{gen: 1}); ok || cmd != nil {
		t.Fatal("stale tick was handled")
	}
	if fired != 0 {
		t.Fatalf("stale tick fired %d callbacks", fired)
	}

	cmd, ok := c.handle(frameMsg{gen: 2})
	if !ok || cmd == nil {
		t.Fatal("current tick was not handled and re-armed")
	}
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestFrameClockCancelledSubscription(t *testing.T) {
	c := newFrameClock(0)
	fired := 0
	sub := c.Subscribe(func() { fired++ })
	c.start()
	sub.Cancel()
	c.handle(frameMsg{gen: 1})
	if fired != 0 {
		t.Fatalf("cancelled callback fired %d times", fired)
	}
}

func TestLoopModeCycle(t *testing.T) {
	m := LoopOff
	want := []LoopMode{LoopTrack, LoopAll, LoopOff}
	for _, w := range want {
		m = m.Next()
		if m != w {
			t.Fatalf("Next() = %v, want %v", m, w)
		}
	}
	if LoopTrack.playerLoops(2) != -1 || LoopAll.playerLoops(2) != 2 || LoopOff.playerLoops(0) != 0 {
		t.Fatal("unexpected player loop counts")
	}
	if LoopOff.Icon() != "" || LoopAll.String() != "all" {
		t.Fatal("unexpected loop mode labels")
	}
}

func TestRenderLevelBar(t *testing.T) {
	if got := renderLevelBar(0.5, -6, -3, 4); got != "▮▮▯▯ -6.0 dB  peak -3.0 dB" {
		t.Fatalf("renderLevelBar = %q", got)
	}
	if got := renderLevelBar(2, -200, -200, 4); got != "▮▮▮▮ -inf dB  peak -inf dB" {
		t.Fatalf("renderLevelBar = %q", got)
	}
	if ratio(5, 0) != 0 || ratio(5, 10) != 0.5 || ratio(20, 10) != 1 {
		t.Fatal("unexpected ratio")
	}
}

func TestLevelMeterHoldsPeak(t *testing.T) {
	l := newLevelMeter(60)
	start := time.Unix(100, 0)

	l.step(-20, -6, start)
	if l.peak != -6 {
		t.Fatalf("peak = %v, want -6", l.peak)
	}

	// a quieter peak inside the hold window is ignored
	l.step(-20, -12, start.Add(time.Second))
	if l.peak != -6 {
		t.Fatalf("peak = %v, want held -6", l.peak)
	}

	// the no-signal reading never raises the peak to full scale
	l.step(0, 0, start.Add(2*time.Second))
	if l.peak != -6 {
		t.Fatalf("peak = %v after no-signal frame, want -6", l.peak)
	}

	l.step(-20, -12, start.Add(peakHold+2*time.Second))
	if l.peak != -12 {
		t.Fatalf("peak = %v after hold expired, want -12", l.peak)
	}

	l.reset()
	if l.peak != meter.MinPower || l.pos != 0 {
		t.Fatalf("reset left %+v", l)
	}
}
