// Package recorder captures a PCM stream into a WAV file, meters it while it
// records and exports finished takes.
package recorder

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// Sentinel errors for recording operations.
var (
	// ErrNotRecording is returned when stopping a recorder that is not recording.
	ErrNotRecording = errors.New("recorder: not recording")

	// ErrBusy is returned when starting while a previous take is still exporting.
	ErrBusy = errors.New("recorder: export in progress")
)

// Status tracks where a take is in its lifecycle.
type Status int

const (
	// Inactive indicates no take in progress.
	Inactive Status = iota
	// Recording indicates PCM is being captured.
	Recording
	// Processing indicates the take is being checked and exported.
	Processing
	// Finished indicates the last take was exported.
	Finished
)

func (s Status) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// FailReason explains why a take was discarded.
type FailReason int

const (
	Unknown FailReason = iota
	Aborted
	DurationShort
	ExportFailed
)

func (r FailReason) String() string {
	switch r {
	case Aborted:
		return "aborted"
	case DurationShort:
		return "duration too short"
	case ExportFailed:
		return "export failed"
	default:
		return "unknown"
	}
}

// Observer is told about take lifecycle events. Calls may arrive from the
// export goroutine.
type Observer interface {
	RecordingStarted(r *Recorder)
	RecordingFinished(r *Recorder, path string)
	RecordingAborted(r *Recorder, reason FailReason)
}

// NopObserver ignores every event. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) RecordingStarted(*Recorder)             {}
func (NopObserver) RecordingFinished(*Recorder, string)    {}
func (NopObserver) RecordingAborted(*Recorder, FailReason) {}

// Defaults applied by New for zero option values.
const (
	DefaultSampleRate  = 22050
	DefaultChannels    = 1
	DefaultMinDuration = 3 * time.Second
)

// Options configures a Recorder.
type Options struct {
	SampleRate  int
	Channels    int
	MinDuration time.Duration
	TempDir     string // empty uses os.TempDir
	OutputDir   string // empty uses the working directory
	Observer    Observer
	Logger      *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.Channels <= 0 {
		o.Channels = DefaultChannels
	}
	if o.MinDuration <= 0 {
		o.MinDuration = DefaultMinDuration
	}
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if o.Observer == nil {
		o.Observer = NopObserver{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
