package player

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const (
	// OutputSampleRate and OutputChannels describe the PCM every Stream and
	// Player produce.
	OutputSampleRate = 48000
	OutputChannels   = 2

	bytesPerSample  = 2
	outputFrameSize = OutputChannels * bytesPerSample
	bytesPerSec     = OutputSampleRate * outputFrameSize
)

// converter turns a decoder's native PCM into OutputSampleRate stereo,
// linearly interpolating between source frames. Mono sources are duplicated
// onto both channels and sources with more than two channels keep the first
// two.
type converter struct {
	src    decoder
	r      *bufio.Reader
	frame  []byte
	step   float64 // source frames per output frame
	direct bool

	pos     float64
	cur     [2]int16
	next    [2]int16
	started bool
	srcDone bool
}

func newConverter(src decoder) *converter {
	ch := src.Channels()
	if ch < 1 {
		ch = 1
	}
	return &converter{
		src:    src,
		r:      bufio.NewReaderSize(src, 16*1024),
		frame:  make([]byte, ch*bytesPerSample),
		step:   float64(src.SampleRate()) / OutputSampleRate,
		direct: src.SampleRate() == OutputSampleRate && ch == OutputChannels,
	}
}

func (c *converter) readFrame() ([2]int16, error) {
	if _, err := io.ReadFull(c.r, c.frame); err != nil {
		return [2]int16{}, err
	}
	left := int16(binary.LittleEndian.Uint16(c.frame))
	right := left
	if len(c.frame) >= outputFrameSize {
		right = int16(binary.LittleEndian.Uint16(c.frame[bytesPerSample:]))
	}
	return [2]int16{left, right}, nil
}

func (c *converter) Read(p []byte) (int, error) {
	if c.direct {
		return c.r.Read(p)
	}

	if !c.started {
		first, err := c.readFrame()
		if err != nil {
			return 0, endOfStream(err)
		}
		c.cur = first
		if c.next, err = c.readFrame(); err != nil {
			c.next = first
			c.srcDone = true
		}
		c.started = true
	}

	n := 0
	for n+outputFrameSize <= len(p) {
		for c.pos >= 1 {
			if c.srcDone {
				if n == 0 {
					return 0, io.EOF
				}
				return n, nil
			}
			c.cur = c.next
			next, err := c.readFrame()
			if err != nil {
				c.next = c.cur
				c.srcDone = true
			} else {
				c.next = next
			}
			c.pos--
		}

		for ch := 0; ch < OutputChannels; ch++ {
			a, b := float64(c.cur[ch]), float64(c.next[ch])
			v := clamp16(int(math.Round(a + (b-a)*c.pos)))
			binary.LittleEndian.PutUint16(p[n+ch*bytesPerSample:], uint16(v))
		}
		n += outputFrameSize
		c.pos += c.step
	}
	return n, nil
}

// Rewind restarts conversion from the first source frame.
func (c *converter) Rewind() error {
	if err := c.src.Rewind(); err != nil {
		return err
	}
	c.r.Reset(c.src)
	c.pos = 0
	c.started = false
	c.srcDone = false
	return nil
}

// endOfStream folds a truncated trailing frame into a clean EOF.
func endOfStream(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}
