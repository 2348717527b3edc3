// Package meter measures the power of an interleaved S16LE PCM stream over a
// short sliding window, the way hardware level meters report it.
package meter

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

const (
	// MinPower is reported for silence and for channels that do not exist.
	MinPower = -160.0
	// MaxSampleValue is the full-scale magnitude of a 16-bit sample.
	MaxSampleValue = 32768.0

	bytesPerSample = 2

	// DefaultWindow is how much recent audio a snapshot covers.
	DefaultWindow = 50 * time.Millisecond
)

// Meter accumulates PCM written to it and reports per-channel RMS and peak
// levels in dBFS. Write may run on an audio goroutine while Refresh and the
// readers run on the render goroutine.
type Meter struct {
	mu        sync.Mutex
	channels  int
	frameSize int
	ring      *ringBuffer
	carry     []byte
	scratch   []byte

	average []float64
	peak    []float64
}

// New creates a meter for channels interleaved channels at sampleRate,
// averaging over window.
func New(sampleRate, channels int, window time.Duration) *Meter {
	if channels < 1 {
		channels = 1
	}
	if window <= 0 {
		window = DefaultWindow
	}
	frameSize := channels * bytesPerSample
	frames := int(float64(sampleRate) * window.Seconds())
	if frames < 1 {
		frames = 1
	}

	m := &Meter{
		channels:  channels,
		frameSize: frameSize,
		ring:      newRingBuffer(frames * frameSize),
		average:   make([]float64, channels),
		peak:      make([]float64, channels),
	}
	m.clearLevels()
	return m
}

// Channels returns the number of interleaved channels.
func (m *Meter) Channels() int { return m.channels }

// Write feeds PCM into the meter. Partial frames are held until completed.
// It never fails, so a Meter can sit behind io.TeeReader or io.MultiWriter.
func (m *Meter) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := p
	if len(m.carry) > 0 {
		m.carry = append(m.carry, p...)
		data = m.carry
	}
	whole := len(data) - len(data)%m.frameSize
	if whole > 0 {
		m.ring.write(data[:whole])
	}
	rest := data[whole:]
	m.carry = append(m.carry[:0], rest...)
	return len(p), nil
}

// Refresh recomputes the level snapshot from the buffered window.
func (m *Meter) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scratch = m.ring.snapshot(m.scratch)
	frames := len(m.scratch) / m.frameSize
	if frames == 0 {
		m.clearLevels()
		return
	}

	for ch := 0; ch < m.channels; ch++ {
		var sumSquares, peak float64
		for i := 0; i < frames; i++ {
			off := i*m.frameSize + ch*bytesPerSample
			s := float64(int16(binary.LittleEndian.Uint16(m.scratch[off:])))
			sumSquares += s * s
			if a := math.Abs(s); a > peak {
				peak = a
			}
		}
		m.average[ch] = toDecibels(math.Sqrt(sumSquares / float64(frames)))
		m.peak[ch] = toDecibels(peak)
	}
}

// AveragePower returns the RMS level of channel from the last Refresh.
func (m *Meter) AveragePower(channel int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel < 0 || channel >= m.channels {
		return MinPower
	}
	return m.average[channel]
}

// PeakPower returns the peak level of channel from the last Refresh.
func (m *Meter) PeakPower(channel int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel < 0 || channel >= m.channels {
		return MinPower
	}
	return m.peak[channel]
}

// Reset drops buffered audio and the last snapshot.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ring.reset()
	m.carry = m.carry[:0]
	m.clearLevels()
}

func (m *Meter) clearLevels() {
	for ch := range m.average {
		m.average[ch] = MinPower
		m.peak[ch] = MinPower
	}
}

func toDecibels(amplitude float64) float64 {
	if amplitude <= 0 {
		return MinPower
	}
	db := 20 * math.Log10(amplitude/MaxSampleValue)
	return math.Max(MinPower, math.Min(db, 0))
}
