// breaker.go - Circuit breaker in front of the asset store.
//
// Once the store has failed maxFailures times in a row, calls fail fast for
// the timeout period before a single probe request is let through.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"image-gallery/internal/logging"
)

// CircuitState represents the current state of a circuit breaker.
type CircuitState int

const (
	// StateClosed: requests flow normally
	StateClosed CircuitState = iota
	// StateOpen: requests fail fast
	StateOpen
	// StateHalfOpen: one probe decides whether to close again
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func (s CircuitState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	// ErrCircuitOpen is returned when circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests is returned when half-open circuit receives too many requests.
	ErrTooManyRequests = errors.New("too many requests while circuit is half-open")
)

// CircuitBreaker implements the circuit breaker pattern.
type CircuitBreaker struct {
	mu sync.RWMutex

	maxFailures uint32
	timeout     time.Duration
	maxHalfOpen uint32

	state            CircuitState
	failures         uint32
	lastFailureTime  time.Time
	halfOpenRequests uint32

	totalRequests    uint64
	successRequests  uint64
	failedRequests   uint64
	rejectedRequests uint64

	now func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(maxFailures uint32, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		maxHalfOpen: 1,
		state:       StateClosed,
		now:         time.Now,
	}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	cb.totalRequests++

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) > cb.timeout {
			cb.state = StateHalfOpen
			cb.halfOpenRequests = 0
			logging.Info("circuit_breaker_half_open", map[string]any{
				"timeout_elapsed": cb.timeout.String(),
			})
		} else {
			cb.rejectedRequests++
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen {
		if cb.halfOpenRequests >= cb.maxHalfOpen {
			cb.rejectedRequests++
			cb.mu.Unlock()
			return ErrTooManyRequests
		}
		cb.halfOpenRequests++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) onSuccess() {
	cb.successRequests++
	cb.failures = 0

	if cb.state == StateHalfOpen {
		cb.state = StateClosed
		cb.halfOpenRequests = 0
		logging.Info("circuit_breaker_closed", map[string]any{
			"reason": "recovery_successful",
		})
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failedRequests++
	cb.failures++
	cb.lastFailureTime = cb.now()

	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		if cb.state != StateOpen {
			cb.state = StateOpen
			cb.halfOpenRequests = 0
			logging.Warn("circuit_breaker_opened", map[string]any{
				"failures":     cb.failures,
				"max_failures": cb.maxFailures,
				"timeout":      cb.timeout.String(),
			})
		}
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Stats returns circuit breaker statistics.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return CircuitBreakerStats{
		State:            cb.state,
		Failures:         cb.failures,
		TotalRequests:    cb.totalRequests,
		SuccessRequests:  cb.successRequests,
		FailedRequests:   cb.failedRequests,
		RejectedRequests: cb.rejectedRequests,
		LastFailureTime:  cb.lastFailureTime,
	}
}

// Reset manually resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenRequests = 0
}

// CircuitBreakerStats holds circuit breaker statistics.
type CircuitBreakerStats struct {
	State            CircuitState `json:"state"`
	Failures         uint32       `json:"failures"`
	TotalRequests    uint64       `json:"total_requests"`
	SuccessRequests  uint64       `json:"success_requests"`
	FailedRequests   uint64       `json:"failed_requests"`
	RejectedRequests uint64       `json:"rejected_requests"`
	LastFailureTime  time.Time    `json:"last_failure_time"`
}

// BreakerStore guards every call to the wrapped Store with a CircuitBreaker.
// Rejections are reported as ErrUpstream like any other store failure.
type BreakerStore struct {
	next Store
	cb   *CircuitBreaker
}

// WithBreaker wraps next.
func WithBreaker(next Store, cb *CircuitBreaker) *BreakerStore {
	return &BreakerStore{next: next, cb: cb}
}

// Breaker exposes the breaker for health reporting.
func (b *BreakerStore) Breaker() *CircuitBreaker {
	return b.cb
}

func (b *BreakerStore) List(ctx context.Context, max int) ([]Asset, error) {
	var out []Asset
	err := b.execute(func() error {
		var err error
		out, err = b.next.List(ctx, max)
		return err
	})
	return out, err
}

func (b *BreakerStore) Upload(ctx context.Context, r io.Reader, size int64, contentType string) (Asset, error) {
	var out Asset
	err := b.execute(func() error {
		var err error
		out, err = b.next.Upload(ctx, r, size, contentType)
		return err
	})
	return out, err
}

func (b *BreakerStore) Delete(ctx context.Context, publicID string) error {
	return b.execute(func() error {
		return b.next.Delete(ctx, publicID)
	})
}

// Ping bypasses the breaker so readiness reflects the store itself.
func (b *BreakerStore) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

func (b *BreakerStore) execute(fn func() error) error {
	err := b.cb.Execute(fn)
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return err
}
