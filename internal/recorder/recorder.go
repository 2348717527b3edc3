package recorder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/olivier-w/wavecap/internal/meter"
)

const readChunk = 4096

// Recorder captures one take at a time. Start, StopAndSave and Abort may be
// called from any goroutine.
type Recorder struct {
	opts  Options
	log   *zap.Logger
	meter *meter.Meter

	mu        sync.Mutex
	status    Status
	gen       uint64 // bumped per take so stale pumps and exports stand down
	tempFile  *os.File
	tempPath  string
	enc       *wav.Encoder
	format    *audio.Format
	frames    int64
	carry     []byte
	pumpDone  chan struct{}
	lastPath  string
	exportsWg sync.WaitGroup
}

// New returns an inactive recorder.
func New(opts Options) *Recorder {
	opts = opts.withDefaults()
	return &Recorder{
		opts:  opts,
		log:   opts.Logger,
		meter: meter.New(opts.SampleRate, opts.Channels, meter.DefaultWindow),
		format: &audio.Format{
			NumChannels: opts.Channels,
			SampleRate:  opts.SampleRate,
		},
	}
}

// Options returns the effective options.
func (r *Recorder) Options() Options { return r.opts }

// Start begins a take, copying S16LE PCM from src until src ends or the take
// is stopped. It is a no-op while already recording.
func (r *Recorder) Start(src io.Reader) error {
	r.mu.Lock()

	switch r.status {
	case Recording:
		r.mu.Unlock()
		return nil
	case Processing:
		r.mu.Unlock()
		return ErrBusy
	}

	f, err := os.CreateTemp(r.opts.TempDir, "wavecap-*.wav")
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("create temp recording: %w", err)
	}

	r.gen++
	r.tempFile = f
	r.tempPath = f.Name()
	r.enc = wav.NewEncoder(f, r.opts.SampleRate, 16, r.opts.Channels, 1)
	r.frames = 0
	r.carry = r.carry[:0]
	r.pumpDone = make(chan struct{})
	r.status = Recording
	r.meter.Reset()

	go r.pump(src, r.gen, r.pumpDone)
	r.mu.Unlock()

	r.log.Info("recording started",
		zap.String("temp", f.Name()),
		zap.Int("sample_rate", r.opts.SampleRate),
		zap.Int("channels", r.opts.Channels))
	r.opts.Observer.RecordingStarted(r)
	return nil
}

// pump copies src into the current take. It only touches the encoder under
// mu and only while its generation is current, so a Read that blocks past
// StopAndSave never writes into a closed file.
func (r *Recorder) pump(src io.Reader, gen uint64, done chan struct{}) {
	defer close(done)

	buf := make([]byte, readChunk)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			r.mu.Lock()
			if r.gen != gen || r.status != Recording {
				r.mu.Unlock()
				return
			}
			if werr := r.writeLocked(buf[:n]); werr != nil {
				r.mu.Unlock()
				r.log.Error("writing recording failed", zap.Error(werr))
				return
			}
			r.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.log.Warn("recording source failed", zap.Error(err))
			}
			return
		}
	}
}

func (r *Recorder) writeLocked(p []byte) error {
	_, _ = r.meter.Write(p)

	data := p
	if len(r.carry) > 0 {
		r.carry = append(r.carry, p...)
		data = r.carry
	}
	frameSize := 2 * r.opts.Channels
	whole := len(data) - len(data)%frameSize

	if whole > 0 {
		samples := make([]int, whole/2)
		for i := range samples {
			samples[i] = int(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
		buf := &audio.IntBuffer{Format: r.format, Data: samples, SourceBitDepth: 16}
		if err := r.enc.Write(buf); err != nil {
			return err
		}
		r.frames += int64(whole / frameSize)
	}
	r.carry = append(r.carry[:0], data[whole:]...)
	return nil
}

// SourceDone returns a channel closed once the current take's source has
// ended or the take was stopped. It is nil before the first Start.
func (r *Recorder) SourceDone() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pumpDone
}

// StopAndSave ends the take. Takes shorter than MinDuration are discarded
// with DurationShort; longer ones are exported in the background and
// reported through the Observer. ctx bounds the export.
func (r *Recorder) StopAndSave(ctx context.Context) error {
	r.mu.Lock()
	if r.status != Recording {
		r.mu.Unlock()
		return ErrNotRecording
	}

	r.status = Processing
	gen := r.gen
	dur := r.durationLocked()
	tempPath := r.tempPath
	closeErr := r.closeTempLocked()
	r.mu.Unlock()

	if closeErr != nil {
		r.log.Error("finalizing recording failed", zap.Error(closeErr))
		r.discard(gen, tempPath, ExportFailed)
		return fmt.Errorf("finalize recording: %w", closeErr)
	}

	if dur < r.opts.MinDuration {
		r.log.Info("recording too short",
			zap.Duration("duration", dur),
			zap.Duration("min", r.opts.MinDuration))
		r.discard(gen, tempPath, DurationShort)
		return nil
	}

	r.exportsWg.Add(1)
	go r.export(ctx, gen, tempPath, dur)
	return nil
}

func (r *Recorder) closeTempLocked() error {
	var err error
	if r.enc != nil {
		err = r.enc.Close()
		r.enc = nil
	}
	if r.tempFile != nil {
		if cerr := r.tempFile.Close(); err == nil {
			err = cerr
		}
		r.tempFile = nil
	}
	return err
}

// discard removes the temp file and returns to Inactive if gen is still the
// current take.
func (r *Recorder) discard(gen uint64, tempPath string, reason FailReason) {
	if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.log.Warn("removing temp recording failed", zap.Error(err))
	}

	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		return
	}
	r.status = Inactive
	r.mu.Unlock()

	r.opts.Observer.RecordingAborted(r, reason)
}

func (r *Recorder) export(ctx context.Context, gen uint64, tempPath string, dur time.Duration) {
	defer r.exportsWg.Done()

	out := filepath.Join(r.opts.OutputDir, fmt.Sprintf("recording-%s.wav", uuid.NewString()))
	if err := moveFile(ctx, tempPath, out); err != nil {
		r.log.Error("exporting recording failed", zap.String("dest", out), zap.Error(err))
		r.discard(gen, tempPath, ExportFailed)
		return
	}

	r.mu.Lock()
	if r.gen != gen {
		// aborted while exporting
		r.mu.Unlock()
		_ = os.Remove(out)
		return
	}
	r.status = Finished
	r.lastPath = out
	r.mu.Unlock()

	r.log.Info("recording saved", zap.String("path", out), zap.Duration("duration", dur))
	r.opts.Observer.RecordingFinished(r, out)
}

// moveFile renames src to dst, copying when they sit on different
// filesystems.
func moveFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	outFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outFile, in); err != nil {
		outFile.Close()
		os.Remove(dst)
		return err
	}
	if err := outFile.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	if err := ctx.Err(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

// Abort discards the current take. It does nothing when inactive.
func (r *Recorder) Abort() {
	r.mu.Lock()
	if r.status == Inactive {
		r.mu.Unlock()
		return
	}

	prev := r.status
	r.gen++
	r.status = Inactive
	tempPath := r.tempPath
	if err := r.closeTempLocked(); err != nil {
		r.log.Debug("closing aborted recording", zap.Error(err))
	}
	r.mu.Unlock()

	if prev == Recording {
		if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.Warn("removing temp recording failed", zap.Error(err))
		}
	}
	r.log.Info("recording aborted", zap.Stringer("was", prev))
	r.opts.Observer.RecordingAborted(r, Aborted)
}

// Wait blocks until background exports have finished.
func (r *Recorder) Wait() {
	r.exportsWg.Wait()
}

// Status returns the current lifecycle state.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Duration returns how much audio the current or last take captured.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.durationLocked()
}

func (r *Recorder) durationLocked() time.Duration {
	return time.Duration(r.frames) * time.Second / time.Duration(r.opts.SampleRate)
}

// LastPath returns where the most recent take was exported.
func (r *Recorder) LastPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastPath
}

// UpdateMeters refreshes the level snapshot.
func (r *Recorder) UpdateMeters() {
	r.meter.Refresh()
}

// AveragePower returns the RMS level of channel in dBFS, or 0 when not
// recording. 0 is the no-signal value the waveform treats as silence.
func (r *Recorder) AveragePower(channel int) float64 {
	if r.Status() != Recording {
		return 0
	}
	return r.meter.AveragePower(channel)
}

// PeakPower returns the peak level of channel in dBFS, or 0 when not
// recording.
func (r *Recorder) PeakPower(channel int) float64 {
	if r.Status() != Recording {
		return 0
	}
	return r.meter.PeakPower(channel)
}
