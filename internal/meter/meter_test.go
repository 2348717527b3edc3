package meter

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestMeterSilenceReportsMinPower(t *testing.T) {
	m := New(1000, 2, 10*time.Millisecond)
	m.Refresh()
	if got := m.AveragePower(0); got != MinPower {
		t.Fatalf("empty meter AveragePower = %v, want %v", got, MinPower)
	}

	_, _ = m.Write(pcm16(0, 0, 0, 0))
	m.Refresh()
	if got := m.AveragePower(1); got != MinPower {
		t.Fatalf("silent AveragePower = %v, want %v", got, MinPower)
	}
}

func TestMeterFullScaleSquareWave(t *testing.T) {
	m := New(1000, 1, 10*time.Millisecond)
	_, _ = m.Write(pcm16(32767, -32767, 32767, -32767))
	m.Refresh()

	if got := m.AveragePower(0); got > 0 || got < -0.01 {
		t.Fatalf("full-scale AveragePower = %v, want ~0 dB", got)
	}
	if got := m.PeakPower(0); got > 0 || got < -0.01 {
		t.Fatalf("full-scale PeakPower = %v, want ~0 dB", got)
	}
}

func TestMeterSeparatesChannels(t *testing.T) {
	m := New(1000, 2, 10*time.Millisecond)
	// left at half scale, right silent
	_, _ = m.Write(pcm16(16384, 0, -16384, 0))
	m.Refresh()

	want := 20 * math.Log10(0.5)
	if got := m.AveragePower(0); math.Abs(got-want) > 0.01 {
		t.Fatalf("left AveragePower = %v, want %v", got, want)
	}
	if got := m.AveragePower(1); got != MinPower {
		t.Fatalf("right AveragePower = %v, want %v", got, MinPower)
	}
	if got := m.AveragePower(2); got != MinPower {
		t.Fatalf("missing channel = %v, want %v", got, MinPower)
	}
}

func TestMeterHoldsPartialFrames(t *testing.T) {
	m := New(1000, 2, 10*time.Millisecond)
	frame := pcm16(16384, 16384)

	_, _ = m.Write(frame[:3])
	m.Refresh()
	if got := m.AveragePower(0); got != MinPower {
		t.Fatalf("partial frame measured: %v", got)
	}

	_, _ = m.Write(frame[3:])
	m.Refresh()
	if got := m.AveragePower(1); got == MinPower {
		t.Fatal("completed frame was not measured")
	}
}

func TestMeterWindowDropsOldAudio(t *testing.T) {
	// 4 frames of window at 1 kHz mono
	m := New(1000, 1, 4*time.Millisecond)
	_, _ = m.Write(pcm16(32767, 32767, 32767, 32767))
	_, _ = m.Write(pcm16(0, 0, 0, 0))
	m.Refresh()
	if got := m.AveragePower(0); got != MinPower {
		t.Fatalf("old audio still measured: %v", got)
	}
}

func TestMeterReset(t *testing.T) {
	m := New(1000, 1, 10*time.Millisecond)
	_, _ = m.Write(pcm16(1000, 1000))
	m.Refresh()
	m.Reset()
	if got := m.AveragePower(0); got != MinPower {
		t.Fatalf("AveragePower after Reset = %v, want %v", got, MinPower)
	}
	m.Refresh()
	if got := m.PeakPower(0); got != MinPower {
		t.Fatalf("PeakPower after Reset+Refresh = %v, want %v", got, MinPower)
	}
}

func TestRingBufferWrapsOldestFirst(t *testing.T) {
	rb := newRingBuffer(4)
	rb.write([]byte{1, 2, 3})
	rb.write([]byte{4, 5})
	got := rb.snapshot(nil)
	want := []byte{2, 3, 4, 5}
	if string(got) != string(want) {
		t.Fatalf("snapshot = %v, want %v", got, want)
	}

	rb.write([]byte{6, 7, 8, 9, 10})
	got = rb.snapshot(got)
	want = []byte{7, 8, 9, 10}
	if string(got) != string(want) {
		t.Fatalf("snapshot after overflow = %v, want %v", got, want)
	}
}
