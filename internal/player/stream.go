package player

import (
	"fmt"
	"os"
	"time"
)

// Stream decodes an audio file to OutputSampleRate stereo S16LE without
// touching an audio device. The snapshot command and Player both read from
// one.
type Stream struct {
	path     string
	file     *os.File
	conv     *converter
	duration time.Duration
}

// OpenStream opens path and prepares it for decoding.
func OpenStream(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec, err := openDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if dec.SampleRate() <= 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s reports no sample rate", ErrUnsupportedFormat, path)
	}

	secs := float64(dec.Frames()) / float64(dec.SampleRate())
	return &Stream{
		path:     path,
		file:     f,
		conv:     newConverter(dec),
		duration: time.Duration(secs * float64(time.Second)),
	}, nil
}

func (s *Stream) Read(p []byte) (int, error) { return s.conv.Read(p) }

// Rewind restarts decoding from the beginning of the file.
func (s *Stream) Rewind() error { return s.conv.Rewind() }

// Duration is the length of the source file.
func (s *Stream) Duration() time.Duration { return s.duration }

// Path returns the file the stream was opened from.
func (s *Stream) Path() string { return s.path }

func (s *Stream) Close() error { return s.file.Close() }
