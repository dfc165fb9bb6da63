package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry holds the live sessions of this process, one per user.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Get returns the user's session, creating it on first use.
func (r *Registry) Get(userID string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[userID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok {
		return s
	}
	s = New(userID)
	r.sessions[userID] = s
	return s
}

// Lookup returns the session only if one is live.
func (r *Registry) Lookup(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

func (r *Registry) Drop(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[userID]
	delete(r.sessions, userID)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Claimer reserves a key once across every process sharing the backend.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Notifier delivers a notification to a live session at most once per key.
// With a Claimer, the key is also claimed so that other server processes
// (and a session restarted after a replay) do not deliver it again.
type Notifier struct {
	sessions *Registry
	claims   Claimer
	ttl      time.Duration
	log      *slog.Logger
}

func NewNotifier(sessions *Registry, claims Claimer, ttl time.Duration, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{sessions: sessions, claims: claims, ttl: ttl, log: log}
}

// Notify reports whether n was queued for userID.
func (n *Notifier) Notify(ctx context.Context, userID string, note Notification) bool {
	s, ok := n.sessions.Lookup(userID)
	if !ok || s.Delivered(note.Key) {
		return false
	}

	if n.claims != nil {
		claimed, err := n.claims.Claim(ctx, "notify:"+userID+":"+note.Key, n.ttl)
		switch {
		case err != nil:
			// fall back to the session's own dedupe
			n.log.Warn("notification claim failed", "user", userID, "key", note.Key, "err", err)
		case !claimed:
			return false
		}
	}
	return s.Notify(note)
}
