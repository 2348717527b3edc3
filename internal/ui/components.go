package ui

import (
	"fmt"
	"strings"

	"github.com/olivier-w/wavecap/internal/meter"
	"github.com/olivier-w/wavecap/internal/util"
)

func renderVolumePercent(vol float64) string {
	return fmt.Sprintf("vol %d%%", int(vol*100))
}

// renderLevelBar draws level (0..1) as a bar of width cells followed by
// the reading and the held peak in dB.
func renderLevelBar(level, db, peak float64, width int) string {
	if width < 4 {
		width = 4
	}
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level*float64(width) + 0.5)
	bar := strings.Repeat("▮", filled) + strings.Repeat("▯", width-filled)
	return bar + " " + util.FormatLevel(db, meter.MinPower) + "  peak " + util.FormatLevel(peak, meter.MinPower)
}

func ratio(elapsed, total float64) float64 {
	if total <= 0 {
		return 0
	}
	r := elapsed / total
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func spaces(n int) string {
	if n < 0 {
		n = 0
	}
	return strings.Repeat(" ", n)
}
