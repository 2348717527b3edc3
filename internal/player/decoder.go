package player

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// decoder yields interleaved S16LE PCM at the file's own rate and channel
// count.
type decoder interface {
	io.Reader
	Rewind() error
	SampleRate() int
	Channels() int
	// Frames is the total length in sample frames.
	Frames() int64
}

// openDecoder picks a decoder by file extension.
func openDecoder(f *os.File) (decoder, error) {
	ext := strings.ToLower(filepath.Ext(f.Name()))
	switch ext {
	case ".mp3":
		return newMP3Decoder(f)
	case ".wav":
		return newWAVDecoder(f)
	case ".flac":
		return newFLACDecoder(f)
	case ".ogg":
		return newOGGDecoder(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// pending holds converted bytes that did not fit the caller's buffer.
type pending struct {
	buf []byte
}

func (p *pending) drain(dst []byte) int {
	n := copy(dst, p.buf)
	p.buf = p.buf[n:]
	return n
}

// deliver copies out as much of raw as fits and keeps the rest.
func (p *pending) deliver(dst, raw []byte) int {
	n := copy(dst, raw)
	if n < len(raw) {
		p.buf = append(p.buf[:0], raw[n:]...)
	}
	return n
}

func clamp16(v int) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

type mp3Decoder struct {
	dec *mp3.Decoder
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) Read(p []byte) (int, error) { return d.dec.Read(p) }
func (d *mp3Decoder) SampleRate() int            { return d.dec.SampleRate() }
func (d *mp3Decoder) Channels() int              { return 2 }
func (d *mp3Decoder) Frames() int64              { return d.dec.Length() / 4 }

func (d *mp3Decoder) Rewind() error {
	_, err := d.dec.Seek(0, io.SeekStart)
	return err
}

type wavDecoder struct {
	pending
	file      *os.File
	pcmStart  int64 // byte offset in file where PCM data begins
	pcmLen    int64
	remaining int64
	bitDepth  int
	channels  int
	rate      int
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid WAV file", ErrUnsupportedFormat)
	}

	// FwdToPCM positions the reader at the start of PCM data
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: WAV encoding %d is not integer PCM", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	bitDepth := int(dec.BitDepth)
	channels := int(dec.NumChans)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit WAV", ErrUnsupportedFormat, bitDepth)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: WAV without channels", ErrUnsupportedFormat)
	}

	pcmStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("getting PCM start position: %w", err)
	}

	return &wavDecoder{
		file:      f,
		pcmStart:  pcmStart,
		pcmLen:    dec.PCMLen(),
		remaining: dec.PCMLen(),
		bitDepth:  bitDepth,
		channels:  channels,
		rate:      int(dec.SampleRate),
	}, nil
}

func (d *wavDecoder) Read(p []byte) (int, error) {
	if len(d.pending.buf) > 0 {
		return d.drain(p), nil
	}
	if d.remaining <= 0 {
		return 0, io.EOF
	}

	srcBytesPerSample := d.bitDepth / 8
	want := int64(len(p)/2+1) * int64(srcBytesPerSample)
	if want > d.remaining {
		want = d.remaining
	}
	srcBytes := make([]byte, want)
	n, err := io.ReadFull(d.file, srcBytes)
	d.remaining -= int64(n)

	samples := n / srcBytesPerSample
	if samples == 0 {
		d.remaining = 0
		return 0, io.EOF
	}

	raw := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		var s int
		off := i * srcBytesPerSample
		switch d.bitDepth {
		case 8:
			// 8-bit WAV is unsigned
			s = (int(srcBytes[off]) - 128) << 8
		case 16:
			s = int(int16(binary.LittleEndian.Uint16(srcBytes[off:])))
		case 24:
			v := int32(srcBytes[off]) | int32(srcBytes[off+1])<<8 | int32(srcBytes[off+2])<<16
			if v&0x800000 != 0 {
				v |= ^0xFFFFFF // sign extend
			}
			s = int(v >> 8)
		case 32:
			s = int(int32(binary.LittleEndian.Uint32(srcBytes[off:])) >> 16)
		}
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(clamp16(s)))
	}

	if err == io.ErrUnexpectedEOF {
		d.remaining = 0
	} else if err != nil {
		return 0, err
	}
	return d.deliver(p, raw), nil
}

func (d *wavDecoder) Rewind() error {
	d.pending.buf = nil
	if _, err := d.file.Seek(d.pcmStart, io.SeekStart); err != nil {
		return err
	}
	d.remaining = d.pcmLen
	return nil
}

func (d *wavDecoder) SampleRate() int { return d.rate }
func (d *wavDecoder) Channels() int   { return d.channels }
func (d *wavDecoder) Frames() int64   { return d.pcmLen / int64(d.channels*d.bitDepth/8) }

type flacDecoder struct {
	pending
	stream   *flac.Stream
	channels int
	bps      int
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	return &flacDecoder{
		stream:   stream,
		channels: int(stream.Info.NChannels),
		bps:      int(stream.Info.BitsPerSample),
	}, nil
}

func (d *flacDecoder) Read(p []byte) (int, error) {
	if len(d.pending.buf) > 0 {
		return d.drain(p), nil
	}

	frame, err := d.stream.ParseNext()
	if err != nil {
		return 0, err
	}

	samples := int(frame.Subframes[0].NSamples)
	raw := make([]byte, samples*d.channels*2)
	for i := 0; i < samples; i++ {
		for ch := 0; ch < d.channels; ch++ {
			s := int(frame.Subframes[ch].Samples[i])
			if d.bps > 16 {
				s >>= d.bps - 16
			} else if d.bps < 16 {
				s <<= 16 - d.bps
			}
			binary.LittleEndian.PutUint16(raw[(i*d.channels+ch)*2:], uint16(clamp16(s)))
		}
	}
	return d.deliver(p, raw), nil
}

func (d *flacDecoder) Rewind() error {
	d.pending.buf = nil
	_, err := d.stream.Seek(0)
	return err
}

func (d *flacDecoder) SampleRate() int { return int(d.stream.Info.SampleRate) }
func (d *flacDecoder) Channels() int   { return d.channels }
func (d *flacDecoder) Frames() int64   { return int64(d.stream.Info.NSamples) }

type oggDecoder struct {
	pending
	reader  *oggvorbis.Reader
	samples []float32
}

func newOGGDecoder(f *os.File) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	return &oggDecoder{reader: reader}, nil
}

func (d *oggDecoder) Read(p []byte) (int, error) {
	if len(d.pending.buf) > 0 {
		return d.drain(p), nil
	}

	want := len(p) / 2
	if want < d.reader.Channels() {
		want = d.reader.Channels()
	}
	if cap(d.samples) < want {
		d.samples = make([]float32, want)
	}
	n, err := d.reader.Read(d.samples[:want])
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, n*2)
	for i, s := range d.samples[:n] {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(clamp16(int(s*32767))))
	}
	return d.deliver(p, raw), nil
}

func (d *oggDecoder) Rewind() error {
	d.pending.buf = nil
	return d.reader.SetPosition(0)
}

func (d *oggDecoder) SampleRate() int { return d.reader.SampleRate() }
func (d *oggDecoder) Channels() int   { return d.reader.Channels() }
func (d *oggDecoder) Frames() int64   { return d.reader.Length() }
