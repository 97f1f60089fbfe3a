// Package hub fans events out to live subscribers.
//
// The hub knows nothing about transports or wire formats. Subscribers
// implement Send; a returned error means the subscriber is gone and the
// hub drops it, so one broken connection never blocks or disconnects the
// others.
package hub

import (
	"sync"

	"github.com/ajdavis/chirp/internal/chirpstore"
	logpkg "github.com/ajdavis/chirp/pkg/log"
)

// Event names delivered to subscribers.
const (
	// EventChirps carries a batch of new records in tail order.
	EventChirps = "chirps"
	// EventCleared announces that the board was reset.
	EventCleared = "cleared"
	// EventAppError reports a transient server-side fault.
	EventAppError = "app_error"
)

// Event is one broadcast unit.
type Event struct {
	Name string
	// Records is set for EventChirps.
	Records []chirpstore.Record
	// Message is set for EventAppError.
	Message string
}

// Subscriber receives events. Send must not block indefinitely; an error
// return removes the subscriber from the hub.
type Subscriber interface {
	// Key identifies the subscriber; re-subscribing under the same key
	// replaces the previous registration.
	Key() string
	Send(ev Event) error
}

// Hub is a concurrency-safe subscriber registry and broadcaster.
type Hub struct {
	logger logpkg.Logger

	mu   sync.RWMutex
	subs map[string]Subscriber
}

// New creates an empty Hub.
func New(logger logpkg.Logger) *Hub {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel))
	}
	return &Hub{
		logger: logger.With(logpkg.Component("hub")),
		subs:   make(map[string]Subscriber),
	}
}

// Subscribe registers sub, replacing any subscriber with the same key.
func (h *Hub) Subscribe(sub Subscriber) {
	h.mu.Lock()
	h.subs[sub.Key()] = sub
	h.mu.Unlock()
	h.logger.Debug("subscribed", logpkg.Str("key", sub.Key()))
}

// Unsubscribe removes the subscriber with the given key. Removing an
// unknown key is a no-op, so disconnect paths can call it freely.
func (h *Hub) Unsubscribe(key string) {
	h.mu.Lock()
	_, present := h.subs[key]
	delete(h.subs, key)
	h.mu.Unlock()
	if present {
		h.logger.Debug("unsubscribed", logpkg.Str("key", key))
	}
}

// Len returns the current subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Emit delivers ev to every subscriber. A failed Send removes only that
// subscriber; delivery to the rest proceeds.
func (h *Hub) Emit(ev Event) {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if err := sub.Send(ev); err != nil {
			h.logger.Debug("dropping subscriber",
				logpkg.Str("key", sub.Key()),
				logpkg.Str("event", ev.Name),
				logpkg.Err(err))
			h.Unsubscribe(sub.Key())
		}
	}
}
