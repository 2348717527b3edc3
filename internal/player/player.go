// Package player decodes audio files and plays them through the system
// output while metering what is being played.
package player

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/olivier-w/wavecap/internal/meter"
)

var (
	ErrClosed            = errors.New("player: closed")
	ErrUnsupportedFormat = errors.New("player: unsupported format")
)

const defaultVolume = 0.8

// pollInterval is how often the monitor checks for the end of a pass.
const pollInterval = 50 * time.Millisecond

// tapReader wraps the decoded stream, feeding every byte handed to the
// output into the meter and tracking position.
type tapReader struct {
	r     io.Reader
	meter *meter.Meter
	pos   int64
	mu    sync.Mutex
}

func (t *tapReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		_, _ = t.meter.Write(p[:n])
		t.mu.Lock()
		t.pos += int64(n)
		t.mu.Unlock()
	}
	return n, err
}

func (t *tapReader) Pos() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

func (t *tapReader) SetPos(pos int64) {
	t.mu.Lock()
	t.pos = pos
	t.mu.Unlock()
}

// Player plays one file. It stays loaded after playback ends so it can be
// played again.
type Player struct {
	stream    *Stream
	tap       *tapReader
	meter     *meter.Meter
	otoCtx    *oto.Context
	otoPlayer *oto.Player
	log       *zap.Logger

	volume     float64
	loops      int
	playing    bool
	paused     bool
	done       chan struct{}
	doneClosed bool
	stopMon    chan struct{}
	mu         sync.Mutex
	closed     bool
}

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
)

func initOto() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   OutputSampleRate,
			ChannelCount: OutputChannels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
		}
	})
	return globalOtoCtx, otoInitErr
}

// Option configures a Player.
type Option func(*Player)

// WithLogger sets the logger used for playback events.
func WithLogger(log *zap.Logger) Option {
	return func(p *Player) {
		if log != nil {
			p.log = log
		}
	}
}

// New loads the file at path. Playback does not start until Play.
func New(path string, opts ...Option) (*Player, error) {
	stream, err := OpenStream(path)
	if err != nil {
		return nil, err
	}

	ctx, err := initOto()
	if err != nil {
		stream.Close()
		return nil, err
	}

	m := meter.New(OutputSampleRate, OutputChannels, meter.DefaultWindow)
	p := &Player{
		stream: stream,
		tap:    &tapReader{r: stream, meter: m},
		meter:  m,
		otoCtx: ctx,
		log:    zap.NewNop(),
		volume: defaultVolume,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.otoPlayer = ctx.NewPlayer(p.tap)
	p.otoPlayer.SetVolume(p.volume)
	return p, nil
}

// Play starts or resumes playback. loops is the number of extra passes
// after the first: 0 plays once and a negative value repeats until Stop.
// Play reports whether playback is running.
func (p *Player) Play(loops int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.loops = loops

	if p.playing {
		if p.paused {
			p.otoPlayer.Play()
			p.paused = false
		}
		return true
	}

	if p.doneClosed {
		p.done = make(chan struct{})
		p.doneClosed = false
	}
	p.playing = true
	p.paused = false
	p.otoPlayer.Play()
	p.stopMon = make(chan struct{})
	go p.monitor(p.stopMon)

	p.log.Debug("playback started", zap.String("path", p.stream.Path()), zap.Int("loops", loops))
	return true
}

func (p *Player) monitor(stop <-chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		if p.closed || !p.playing {
			p.mu.Unlock()
			return
		}
		if p.paused || p.otoPlayer.IsPlaying() {
			p.mu.Unlock()
			continue
		}

		// the pass drained
		if p.loops != 0 {
			if p.loops > 0 {
				p.loops--
			}
			if err := p.rewindLocked(); err != nil {
				p.log.Warn("rewind for loop failed", zap.Error(err))
				p.finishLocked()
				p.mu.Unlock()
				return
			}
			p.otoPlayer.Play()
			p.mu.Unlock()
			continue
		}

		p.log.Debug("playback finished", zap.String("path", p.stream.Path()))
		if err := p.rewindLocked(); err != nil {
			p.log.Warn("rewind after playback failed", zap.Error(err))
		}
		p.finishLocked()
		p.mu.Unlock()
		return
	}
}

// rewindLocked seeks to the start and swaps in a fresh output player so
// buffered audio from the previous pass is discarded.
func (p *Player) rewindLocked() error {
	if err := p.stream.Rewind(); err != nil {
		return err
	}
	p.tap.SetPos(0)
	p.meter.Reset()

	old := p.otoPlayer
	old.Pause()
	p.otoPlayer = p.otoCtx.NewPlayer(p.tap)
	p.otoPlayer.SetVolume(p.volume)
	if err := old.Close(); err != nil {
		p.log.Debug("closing output player", zap.Error(err))
	}
	return nil
}

func (p *Player) finishLocked() {
	p.playing = false
	p.paused = false
	if !p.doneClosed {
		close(p.done)
		p.doneClosed = true
	}
}

// Stop halts playback and rewinds to the beginning.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if p.stopMon != nil {
		close(p.stopMon)
		p.stopMon = nil
	}
	if err := p.rewindLocked(); err != nil {
		p.log.Warn("rewind on stop failed", zap.Error(err))
	}
	if p.playing {
		p.finishLocked()
	}
}

// Done returns a channel that closes when playback ends, either because
// every pass finished or because of Stop.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Playing reports whether playback is running, paused or not.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// TogglePause toggles between play and pause. It does nothing when
// playback has not started.
func (p *Player) TogglePause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.playing {
		return
	}
	if p.paused {
		p.otoPlayer.Play()
		p.paused = false
	} else {
		p.otoPlayer.Pause()
		p.paused = true
	}
}

// Paused returns whether playback is paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Position returns the position within the current pass. It runs slightly
// ahead of what is audible by the output buffer.
func (p *Player) Position() time.Duration {
	secs := float64(p.tap.Pos()) / float64(bytesPerSec)
	return time.Duration(secs * float64(time.Second))
}

// Duration returns the total duration of one pass.
func (p *Player) Duration() time.Duration {
	return p.stream.Duration()
}

// Volume returns current volume (0.0 to 1.0).
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets volume (clamped to 0.0 - 1.0).
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = clampVolume(v)
	p.otoPlayer.SetVolume(p.volume)
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// UpdateMeters refreshes the level snapshot read by AveragePower and
// PeakPower.
func (p *Player) UpdateMeters() {
	p.meter.Refresh()
}

// AveragePower returns the RMS level of channel in dBFS as of the last
// UpdateMeters.
func (p *Player) AveragePower(channel int) float64 {
	return p.meter.AveragePower(channel)
}

// PeakPower returns the peak level of channel in dBFS as of the last
// UpdateMeters.
func (p *Player) PeakPower(channel int) float64 {
	return p.meter.PeakPower(channel)
}

// Close stops playback and releases the file and output player.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.stopMon != nil {
		close(p.stopMon)
		p.stopMon = nil
	}
	p.otoPlayer.Pause()
	if err := p.otoPlayer.Close(); err != nil {
		p.log.Debug("closing output player", zap.Error(err))
	}
	if p.playing {
		p.finishLocked()
	}
	p.stream.Close()
}
