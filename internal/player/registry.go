package player

import (
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Sound is what the Registry keeps per file. *Player implements it.
type Sound interface {
	Play(loops int) bool
	Stop()
	Close()
	UpdateMeters()
	AveragePower(channel int) float64
}

// Opener loads a Sound for a path.
type Opener func(path string) (Sound, error)

// Registry keeps one loaded Sound per file so repeated plays of the same
// path reuse it.
type Registry struct {
	mu     sync.Mutex
	sounds map[string]Sound
	open   Opener
	log    *zap.Logger
	closed bool
}

// NewRegistry returns an empty registry. A nil open loads files with New.
func NewRegistry(open Opener, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	if open == nil {
		open = func(path string) (Sound, error) {
			p, err := New(path, WithLogger(log))
			if err != nil {
				return nil, err
			}
			return p, nil
		}
	}
	return &Registry{
		sounds: make(map[string]Sound),
		open:   open,
		log:    log,
	}
}

// Play loads path on first use and starts it with the given loop count.
// The returned Sound stays registered until Stop, StopAll or Close.
func (r *Registry) Play(path string, loops int) (Sound, error) {
	key := filepath.Clean(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	s, ok := r.sounds[key]
	if !ok {
		var err error
		s, err = r.open(key)
		if err != nil {
			r.log.Warn("loading sound failed", zap.String("path", key), zap.Error(err))
			return nil, err
		}
		r.sounds[key] = s
	}

	if !s.Play(loops) {
		r.log.Warn("sound refused to play", zap.String("path", key))
	}
	return s, nil
}

// Stop stops the Sound for path and unregisters it. Unknown paths are
// ignored.
func (r *Registry) Stop(path string) {
	key := filepath.Clean(path)

	r.mu.Lock()
	s, ok := r.sounds[key]
	delete(r.sounds, key)
	r.mu.Unlock()

	if ok {
		s.Stop()
		s.Close()
	}
}

// StopAll stops and unregisters every Sound.
func (r *Registry) StopAll() {
	r.mu.Lock()
	sounds := r.sounds
	r.sounds = make(map[string]Sound)
	r.mu.Unlock()

	for _, s := range sounds {
		s.Stop()
		s.Close()
	}
}

// Len returns the number of registered Sounds.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sounds)
}

// Close stops everything and rejects further Play calls.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.StopAll()
}
