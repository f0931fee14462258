package builder

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSessionLifetime matches the server-side session lifetime, so a
// machine never outlives the cookie that can reach it.
const DefaultSessionLifetime = 12 * time.Hour

const evictInterval = 15 * time.Minute

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Registry hands out the live Session for each builder session identifier.
// The web layer keys it by the identifier stored in the rider's server-side
// session, so page loads and htmx actions land on the same machine. Machines
// retain the full transcript and render, so untouched ones are evicted after
// Lifetime.
type Registry struct {
	// Lifetime bounds how long an untouched conversation is kept.
	Lifetime time.Duration

	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time

	chat   ChatService
	mod    ModerationService
	images ImageService
	logger *slog.Logger
}

func NewRegistry(chat ChatService, mod ModerationService, images ImageService, logger *slog.Logger) *Registry {
	return &Registry{
		Lifetime: DefaultSessionLifetime,
		sessions: map[string]*entry{},
		now:      time.Now,
		chat:     chat,
		mod:      mod,
		images:   images,
		logger:   logger,
	}
}

// Acquire returns the session for id, creating it when absent or expired. An
// empty id creates a session with a generated identifier.
func (r *Registry) Acquire(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if id != "" {
		if e, ok := r.sessions[id]; ok && now.Sub(e.lastSeen) <= r.Lifetime {
			e.lastSeen = now
			return e.session
		}
	}
	s := NewSession(id, r.chat, r.mod, r.images, r.logger)
	r.sessions[s.ID()] = &entry{session: s, lastSeen: now}
	return s
}

// Swap re-registers a session after Reset changed its identifier and
// forgets the old key.
func (r *Registry) Swap(oldID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, oldID)
	r.sessions[s.ID()] = &entry{session: s, lastSeen: r.now()}
}

// Release drops the session for id, if any.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// StartEvictor drops expired sessions every 15 minutes until the context is
// cancelled.
func (r *Registry) StartEvictor(ctx context.Context) {
	for {
		if evicted := r.evictExpired(); evicted > 0 {
			r.logger.LogAttrs(ctx, slog.LevelInfo, "evicted expired builder sessions",
				slog.Int("count", evicted))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(evictInterval):
			continue
		}
	}
}

func (r *Registry) evictExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	evicted := 0
	for id, e := range r.sessions {
		if now.Sub(e.lastSeen) > r.Lifetime {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}
