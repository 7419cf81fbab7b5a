package events

import (
	"context"
	"sync"

	"github.com/omriShneor/engage_ai/internal/metrics"
)

// Hub is an in-process publisher fanning events out to subscribers.
// Slow subscribers miss events rather than blocking publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Envelope]struct{}
	published   uint64
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan Envelope]struct{}),
	}
}

// Subscribe creates a new channel for receiving events
func (h *Hub) Subscribe() chan Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Envelope, 16)
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber channel
func (h *Hub) Unsubscribe(ch chan Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[ch]; !ok {
		return
	}
	delete(h.subscribers, ch)
	close(ch)
}

// Publish broadcasts the event to all subscribers without blocking
func (h *Hub) Publish(_ context.Context, event Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.published++
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
	metrics.EventsPublished.WithLabelValues("hub", "ok").Inc()
	return nil
}

// Published returns how many events went through the hub
func (h *Hub) Published() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.published
}
