package hub

import (
	"log/slog"
	"sync"

	"github.com/didar67/enterprise-log-file-analyzer/internal/model"
)

const subscriberBuffer = 1024

// Hub broadcasts classification events to every subscriber. It is an
// output.Sink, so the engine can publish to it like any other sink.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan model.Event]struct{}
	dropped     int64
	closed      bool
	logger      *slog.Logger
}

// New creates an empty Hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		subscribers: make(map[chan model.Event]struct{}),
		logger:      logger,
	}
}

// Subscribe returns a buffered channel that will receive events.
// Multiple consumers can subscribe; each gets a copy of every event.
func (h *Hub) Subscribe() <-chan model.Event {
	ch := make(chan model.Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (h *Hub) Unsubscribe(ch <-chan model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		if sub == ch {
			delete(h.subscribers, sub)
			close(sub)
			return
		}
	}
}

// Dropped returns the total number of events dropped due to slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Render sends an event to all subscribers without blocking. If a
// subscriber's channel is full, the event is dropped for that subscriber.
func (h *Hub) Render(ev model.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.dropped++
			h.logger.Debug("hub: dropped event for slow consumer", slog.Int64("dropped", h.dropped))
		}
	}
	return nil
}

// Close closes all subscriber channels. Later subscriptions receive a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
	h.closed = true
}
