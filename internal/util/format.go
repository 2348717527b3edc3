package util

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration formats a duration as m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	m := total / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatLevel formats a dBFS reading. Levels at or below floor read as
// -inf.
func FormatLevel(db, floor float64) string {
	if db <= floor || math.IsNaN(db) {
		return "-inf dB"
	}
	return fmt.Sprintf("%.1f dB", db)
}
