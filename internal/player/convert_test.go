package player

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

type stubPCMDecoder struct {
	data       []byte
	pos        int
	sampleRate int
	channels   int
	rewinds    int
}

func (d *stubPCMDecoder) Read(p []byte) (int, error) {
	if d.pos >= len(d.data) {
		return 0, io.EOF
	}
	n := copy(p, d.data[d.pos:])
	d.pos += n
	if d.pos >= len(d.data) {
		return n, io.EOF
	}
	return n, nil
}

func (d *stubPCMDecoder) Rewind() error {
	d.pos = 0
	d.rewinds++
	return nil
}

func (d *stubPCMDecoder) SampleRate() int { return d.sampleRate }
func (d *stubPCMDecoder) Channels() int   { return d.channels }
func (d *stubPCMDecoder) Frames() int64 {
	return int64(len(d.data) / (d.channels * bytesPerSample))
}

func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestConverterUpmixesMono(t *testing.T) {
	src := &stubPCMDecoder{
		data:       pcm16(1000, -2000, 3000),
		sampleRate: OutputSampleRate,
		channels:   1,
	}

	out, err := io.ReadAll(newConverter(src))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	want := pcm16(1000, 1000, -2000, -2000, 3000, 3000)
	if !bytes.Equal(out, want) {
		t.Fatalf("unexpected upmix output: got %v want %v", out, want)
	}
}

func TestConverterPassesThroughOutputFormat(t *testing.T) {
	data := pcm16(1, 2, 3, 4, 5, 6)
	src := &stubPCMDecoder{data: data, sampleRate: OutputSampleRate, channels: 2}

	out, err := io.ReadAll(newConverter(src))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("passthrough changed data: got %v want %v", out, data)
	}
}

func TestConverterUpsamplesByInterpolating(t *testing.T) {
	src := &stubPCMDecoder{
		data:       pcm16(0, 10000, 20000),
		sampleRate: OutputSampleRate / 2,
		channels:   1,
	}

	out, err := io.ReadAll(newConverter(src))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	want := pcm16(
		0, 0,
		5000, 5000,
		10000, 10000,
		15000, 15000,
		20000, 20000,
		20000, 20000,
	)
	if !bytes.Equal(out, want) {
		t.Fatalf("unexpected resample output: got %v want %v", out, want)
	}
}

func TestConverterDownsamplesStereo(t *testing.T) {
	src := &stubPCMDecoder{
		data:       pcm16(0, 100, 1, 101, 2, 102, 3, 103),
		sampleRate: OutputSampleRate * 2,
		channels:   2,
	}

	out, err := io.ReadAll(newConverter(src))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	want := pcm16(0, 100, 2, 102)
	if !bytes.Equal(out, want) {
		t.Fatalf("unexpected downsample output: got %v want %v", out, want)
	}
}

func TestConverterSmallReads(t *testing.T) {
	src := &stubPCMDecoder{
		data:       pcm16(0, 10000, 20000),
		sampleRate: OutputSampleRate / 2,
		channels:   1,
	}
	conv := newConverter(src)

	var out []byte
	buf := make([]byte, outputFrameSize)
	for {
		n, err := conv.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
	}
	if len(out) != 6*outputFrameSize {
		t.Fatalf("got %d bytes, want %d", len(out), 6*outputFrameSize)
	}
}

func TestConverterRewindReplays(t *testing.T) {
	src := &stubPCMDecoder{data: pcm16(7, -7), sampleRate: 44100, channels: 1}
	conv := newConverter(src)

	first, err := io.ReadAll(conv)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if err := conv.Rewind(); err != nil {
		t.Fatalf("Rewind() error = %v", err)
	}
	second, err := io.ReadAll(conv)
	if err != nil {
		t.Fatalf("ReadAll() after rewind error = %v", err)
	}

	if src.rewinds != 1 {
		t.Fatalf("source rewound %d times, want 1", src.rewinds)
	}
	if len(first) == 0 || !bytes.Equal(first, second) {
		t.Fatalf("rewind did not replay: first %v second %v", first, second)
	}
}

func TestConverterEmptySource(t *testing.T) {
	src := &stubPCMDecoder{sampleRate: 22050, channels: 1}
	out, err := io.ReadAll(newConverter(src))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no output, got %v", out)
	}
}
