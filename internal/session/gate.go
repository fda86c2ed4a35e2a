// Package session implements the manager login: a single shared password
// and a server-side table of authenticated sessions keyed by an opaque id
// carried in a cookie. Sessions live for a fixed TTL from login.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"image-gallery/internal/logging"
)

const (
	DefaultTTL           = 12 * time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

// Gate decides whether a session may mutate the gallery.
type Gate struct {
	password string
	ttl      time.Duration

	mu       sync.RWMutex
	sessions map[string]time.Time // id -> expiry

	now func() time.Time
}

// NewGate creates a gate for password. ttl <= 0 selects DefaultTTL.
func NewGate(password string, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gate{
		password: password,
		ttl:      ttl,
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Authenticate checks password and on success opens a new session,
// returning its id and expiry. A wrong password leaves every existing
// session as it was.
func (g *Gate) Authenticate(password string) (id string, expires time.Time, ok bool) {
	if password != g.password {
		return "", time.Time{}, false
	}

	id = uuid.NewString()
	expires = g.now().Add(g.ttl)

	g.mu.Lock()
	g.sessions[id] = expires
	g.mu.Unlock()
	return id, expires, true
}

// IsAuthenticated reports whether id names a live session.
func (g *Gate) IsAuthenticated(id string) bool {
	if id == "" {
		return false
	}
	g.mu.RLock()
	expires, ok := g.sessions[id]
	g.mu.RUnlock()
	return ok && g.now().Before(expires)
}

// Logout ends the session. Unknown ids are ignored.
func (g *Gate) Logout(id string) {
	g.mu.Lock()
	delete(g.sessions, id)
	g.mu.Unlock()
}

// Len returns the number of sessions in the table, expired or not.
func (g *Gate) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (g *Gate) Sweep() int {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for id, expires := range g.sessions {
		if !now.Before(expires) {
			delete(g.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (g *Gate) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := g.Sweep(); n > 0 {
				logging.Debug("sessions_expired", map[string]any{
					"removed": n,
					"active":  g.Len(),
				})
			}
		}
	}
}
