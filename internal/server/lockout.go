// lockout.go - Lockout of clients that keep failing the password check
package server

import (
	"sync"
	"time"
)

// Lockout defaults
const (
	DefaultLockoutAttempts = 5
	DefaultLockoutDuration = 15 * time.Minute
	DefaultLockoutWindow   = 10 * time.Minute
)

// loginAttempt tracks failed password checks from one client
type loginAttempt struct {
	count       int
	lastAttempt time.Time
	lockedUntil time.Time
}

// loginLockout locks a client IP out of /authenticate after maxAttempts
// failures within window. Successful logins reset the count.
type loginLockout struct {
	mu          sync.Mutex
	attempts    map[string]*loginAttempt // ip -> attempts
	maxAttempts int
	duration    time.Duration
	window      time.Duration

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

func newLoginLockout(maxAttempts int, duration, window time.Duration) *loginLockout {
	if maxAttempts <= 0 {
		maxAttempts = DefaultLockoutAttempts
	}
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}
	if window <= 0 {
		window = DefaultLockoutWindow
	}
	l := &loginLockout{
		attempts:    make(map[string]*loginAttempt),
		maxAttempts: maxAttempts,
		duration:    duration,
		window:      window,
		now:         time.Now,
		stop:        make(chan struct{}),
	}

	go l.cleanup()

	return l
}

// recordFailure counts a failed attempt. It returns true when the client
// is now locked, with the time the lock ends.
func (l *loginLockout) recordFailure(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	a, ok := l.attempts[ip]
	if !ok {
		a = &loginAttempt{}
		l.attempts[ip] = a
	}

	// Reset count if outside window
	if now.Sub(a.lastAttempt) > l.window {
		a.count = 0
	}
	a.count++
	a.lastAttempt = now

	if a.count >= l.maxAttempts {
		a.lockedUntil = now.Add(l.duration)
		return true, a.lockedUntil
	}
	return false, time.Time{}
}

func (l *loginLockout) recordSuccess(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, ip)
}

// locked reports whether ip is locked out and for how much longer.
func (l *loginLockout) locked(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.attempts[ip]
	if !ok || a.lockedUntil.IsZero() {
		return false, 0
	}
	if left := a.lockedUntil.Sub(l.now()); left > 0 {
		return true, left
	}
	return false, 0
}

func (l *loginLockout) cleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep removes entries whose lock has ended and that saw no attempt for
// two windows.
func (l *loginLockout) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, a := range l.attempts {
		if now.After(a.lockedUntil) && now.Sub(a.lastAttempt) > 2*l.window {
			delete(l.attempts, ip)
		}
	}
}

func (l *loginLockout) Stop() {
	l.once.Do(func() { close(l.stop) })
}
