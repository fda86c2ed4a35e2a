// Package live pushes change notifications to connected gallery viewers.
//
// Viewers hold a WebSocket open and re-fetch the gallery whenever the
// server sends the literal message "refresh". Nothing else is ever sent,
// and anything viewers send is discarded.
package live

import (
	"io"
	"sync"
	"sync/atomic"
)

// RefreshMessage is the only message pushed to viewers.
const RefreshMessage = "refresh"

// Subscriber is one live connection. Send must not block; an error means the
// subscriber is gone and it is dropped from the hub.
type Subscriber interface {
	Send(msg []byte) error
}

// Hub is the set of live subscribers. It is safe for concurrent use.
type Hub struct {
	mu   sync.Mutex
	subs map[Subscriber]struct{}

	broadcasts atomic.Uint64
	dropped    atomic.Uint64
}

// HubStats are cumulative counters plus the current subscriber count.
type HubStats struct {
	Subscribers int
	Broadcasts  uint64
	Dropped     uint64
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[Subscriber]struct{})}
}

// Subscribe adds s to the next broadcasts.
func (h *Hub) Subscribe(s Subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
}

// Unsubscribe removes s. Removing an unknown subscriber does nothing.
func (h *Hub) Unsubscribe(s Subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// Len returns the number of current subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// BroadcastRefresh sends RefreshMessage once to every subscriber and
// returns how many accepted it. Subscribers whose Send fails are removed
// and closed if they implement io.Closer. Failures are never reported to
// the caller.
func (h *Hub) BroadcastRefresh() int {
	h.broadcasts.Add(1)

	h.mu.Lock()
	snapshot := make([]Subscriber, 0, len(h.subs))
	for s := range h.subs {
		snapshot = append(snapshot, s)
	}
	h.mu.Unlock()

	msg := []byte(RefreshMessage)
	var failed []Subscriber
	for _, s := range snapshot {
		if err := s.Send(msg); err != nil {
			failed = append(failed, s)
		}
	}
	if len(failed) == 0 {
		return len(snapshot)
	}

	h.mu.Lock()
	for _, s := range failed {
		delete(h.subs, s)
	}
	h.mu.Unlock()
	h.dropped.Add(uint64(len(failed)))

	for _, s := range failed {
		if c, ok := s.(io.Closer); ok {
			_ = c.Close()
		}
	}
	return len(snapshot) - len(failed)
}

// Close drops and closes every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[Subscriber]struct{})
	h.mu.Unlock()

	for s := range subs {
		if c, ok := s.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

// Stats returns the hub counters.
func (h *Hub) Stats() HubStats {
	return HubStats{
		Subscribers: h.Len(),
		Broadcasts:  h.broadcasts.Load(),
		Dropped:     h.dropped.Load(),
	}
}
