// auth.go - Manager login handlers and the session cookie.
//
// The cookie only carries an opaque session id; the session table lives in
// the session.Gate.
package server

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

const defaultCookieName = "gallery_session"

// AuthConfig holds the session cookie settings.
type AuthConfig struct {
	CookieName string
	// CookieSecure sets the Secure flag; enable behind TLS.
	CookieSecure bool

	// Lockout after repeated wrong passwords from one client. Zero values
	// select the Default* constants.
	LockoutAttempts int
	LockoutDuration time.Duration
	LockoutWindow   time.Duration
}

func (a AuthConfig) cookieName() string {
	if a.CookieName == "" {
		return defaultCookieName
	}
	return a.CookieName
}

func (a AuthConfig) sessionCookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     a.cookieName(),
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.CookieSecure,
	}
	if value == "" {
		c.Expires = time.Unix(0, 0)
		c.MaxAge = -1
	}
	return c
}

// clientIP is the address lockout, audit and access logs attribute r to.
func (s *Server) clientIP(r *http.Request) string {
	return clientIP(r, s.trustProxy)
}

func (s *Server) sessionID(r *http.Request) string {
	c, err := r.Cookie(s.auth.cookieName())
	if err != nil {
		return ""
	}
	return c.Value
}

type authResponse struct {
	Authenticated bool `json:"authenticated"`
}

// authenticateHandler handles POST /authenticate {password}. On success it
// opens a session and sets the cookie.
func (s *Server) authenticateHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		fail(w, r, "bad request", err)
		return
	}

	ip := s.clientIP(r)
	if locked, retry := s.lockout.locked(ip); locked {
		s.audit(r, AuditEntry{Action: AuditActionLogin, Details: map[string]any{"locked": true}})
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		writeError(w, http.StatusTooManyRequests, "too many failed login attempts")
		return
	}

	id, expires, ok := s.gate.Authenticate(body.Password)
	s.metrics.RecordLoginAttempt(ok)
	if !ok {
		var details map[string]any
		if locked, until := s.lockout.recordFailure(ip); locked {
			details = map[string]any{"locked_until": until}
		}
		s.audit(r, AuditEntry{Action: AuditActionLogin, Details: details})
		writeJSON(w, http.StatusUnauthorized, authResponse{Authenticated: false})
		return
	}
	s.lockout.recordSuccess(ip)

	http.SetCookie(w, s.auth.sessionCookie(id, expires))
	s.audit(r, AuditEntry{Action: AuditActionLogin, Success: true})
	writeJSON(w, http.StatusOK, authResponse{Authenticated: true})
}

func (s *Server) checkAuthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, authResponse{Authenticated: s.gate.IsAuthenticated(s.sessionID(r))})
}

// logoutHandler ends the session and clears the cookie.
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if id := s.sessionID(r); id != "" {
		s.gate.Logout(id)
		s.audit(r, AuditEntry{Action: AuditActionLogout, Success: true})
	}
	http.SetCookie(w, s.auth.sessionCookie("", time.Time{}))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.gate.IsAuthenticated(s.sessionID(r)) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
