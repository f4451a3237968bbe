package capture

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry tracks the open sessions of a portal instance. Every session is
// created from the same Options but owns its own stream and timers.
type Registry struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry validates opts and returns an empty registry.
func NewRegistry(opts Options) (*Registry, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Registry{
		opts:     opts,
		sessions: make(map[string]*Session),
	}, nil
}

// Open creates and opens a new session. The session is registered even when
// the camera fails so the applicant can retry; the device error is returned
// alongside it.
func (r *Registry) Open(ctx context.Context) (*Session, error) {
	s, err := NewSession(uuid.NewString(), r.opts)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	return s, s.Open(ctx)
}

// Get looks up a session by id and marks it active.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// Close closes and forgets a session. It reports whether the id was known.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// Release closes a session whose last subscriber has gone away, unless it
// already holds a still. It reports whether the session was closed.
func (r *Registry) Release(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || s.Subscribers() > 0 {
		r.mu.Unlock()
		return false
	}
	switch s.Snapshot().State {
	case StateCaptured, StateSubmitting, StateClosed:
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	s.log.Info("closing session without subscribers")
	s.Close()
	return true
}

// Sweep closes every unwatched session idle for at least the idle timeout
// as of now and returns how many it closed.
func (r *Registry) Sweep(now time.Time) int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}
	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.Subscribers() == 0 && now.Sub(s.LastActive()) >= r.opts.IdleTimeout {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.log.Info("closing idle session", "idle_timeout", r.opts.IdleTimeout)
		s.Close()
	}
	return len(expired)
}

// RunSweeper sweeps idle sessions every half idle timeout until ctx is
// done. It returns at once when no idle timeout is set.
func (r *Registry) RunSweeper(ctx context.Context) {
	if r.opts.IdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(r.opts.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// CloseAll closes every session, releasing all camera streams.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
