package plot

import "math"

// SilenceFloor is the lowest level, in decibels, that still moves the plot.
const SilenceFloor = -60.0

// Normalize maps a decibel meter reading onto a perceptual [0,1] amplitude.
//
// Readings below SilenceFloor collapse to 0. A reading of exactly 0 dB is the
// meters' "no signal" value and also maps to 0, not to full scale. NaN and
// +Inf are not readings and map to 0 as well; anything above 0 dB clips to 1.
func Normalize(decibels float64) float64 {
	if decibels < SilenceFloor || decibels == 0 || math.IsNaN(decibels) || math.IsInf(decibels, 1) {
		return 0
	}
	if decibels > 0 {
		return 1
	}

	floor := math.Pow(10, 0.05*SilenceFloor)
	scale := 1 / (1 - floor)
	value := (math.Pow(10, 0.05*decibels) - floor) * scale
	if value < 0 {
		value = 0
	}
	return math.Sqrt(value)
}
