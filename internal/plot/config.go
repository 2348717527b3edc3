package plot

import (
	"errors"
	"fmt"
	"image/color"
	"math"
)

// ErrInvalidConfig is returned by Configure for unusable settings.
var ErrInvalidConfig = errors.New("invalid plot config")

// Config holds the plot tunables. Changes apply from the next tick or draw.
type Config struct {
	WaveColor  color.Color
	Background color.Color

	// Frequency is the number of sine periods across the width.
	Frequency float64
	// IdleAmplitude is the amplitude shown when there is no sound.
	IdleAmplitude float64
	NumberOfWaves int
	// PhaseShift is added to the phase on every update.
	PhaseShift float64
	// Density is the x step between path samples.
	Density float64

	PrimaryLineWidth   float64
	SecondaryLineWidth float64
}

// DefaultConfig returns the stock look: four black waves drifting left.
func DefaultConfig() Config {
	return Config{
		WaveColor:          color.Black,
		Background:         color.White,
		Frequency:          1.5,
		IdleAmplitude:      0,
		NumberOfWaves:      4,
		PhaseShift:         -0.15,
		Density:            0.5,
		PrimaryLineWidth:   2.0,
		SecondaryLineWidth: 1.0,
	}
}

// Validate rejects settings that would break the draw loop.
func (c Config) Validate() error {
	if c.WaveColor == nil {
		return fmt.Errorf("%w: wave color is required", ErrInvalidConfig)
	}
	if c.NumberOfWaves < 1 {
		return fmt.Errorf("%w: number of waves %d < 1", ErrInvalidConfig, c.NumberOfWaves)
	}
	if !(c.Density > 0) || math.IsInf(c.Density, 0) {
		return fmt.Errorf("%w: density %v must be > 0", ErrInvalidConfig, c.Density)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"frequency", c.Frequency},
		{"idle amplitude", c.IdleAmplitude},
		{"phase shift", c.PhaseShift},
		{"primary line width", c.PrimaryLineWidth},
		{"secondary line width", c.SecondaryLineWidth},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidConfig, f.name)
		}
	}
	if c.IdleAmplitude < 0 {
		return fmt.Errorf("%w: idle amplitude %v < 0", ErrInvalidConfig, c.IdleAmplitude)
	}
	if c.PrimaryLineWidth < 0 || c.SecondaryLineWidth < 0 {
		return fmt.Errorf("%w: line widths must be >= 0", ErrInvalidConfig)
	}
	return nil
}
