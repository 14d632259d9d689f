package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/mantonx/harmonia/internal/logger"
)

const recentEventLimit = 200

// EventBus defines the interface for the event bus system
type EventBus interface {
	// Publish delivers an event to all matching subscribers synchronously
	Publish(event Event)

	// PublishAsync delivers an event without blocking the caller
	PublishAsync(event Event)

	// Subscribe registers a handler for events matching the filter and
	// returns the subscription id
	Subscribe(filter EventFilter, handler EventHandler) string

	// Unsubscribe removes a subscription
	Unsubscribe(subscriptionID string)

	// RecentEvents returns the most recent events, newest first
	RecentEvents(limit int) []Event
}

type subscription struct {
	id      string
	filter  EventFilter
	handler EventHandler
}

// SystemEventBus is the in-memory EventBus implementation
type SystemEventBus struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	recent []Event
}

// NewEventBus creates a new in-memory event bus
func NewEventBus() *SystemEventBus {
	return &SystemEventBus{
		subs: make(map[string]*subscription),
	}
}

var (
	globalBus  EventBus
	globalOnce sync.Once
)

// GetGlobalEventBus returns the process-wide event bus
func GetGlobalEventBus() EventBus {
	globalOnce.Do(func() {
		globalBus = NewEventBus()
	})
	return globalBus
}

// Publish delivers an event to all matching subscribers synchronously
func (b *SystemEventBus) Publish(event Event) {
	b.mu.Lock()
	b.recent = append(b.recent, event)
	if len(b.recent) > recentEventLimit {
		b.recent = b.recent[len(b.recent)-recentEventLimit:]
	}
	handlers := make([]EventHandler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.filter.Matches(event) {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		b.deliver(handler, event)
	}
}

// PublishAsync delivers an event without blocking the caller
func (b *SystemEventBus) PublishAsync(event Event) {
	go b.Publish(event)
}

func (b *SystemEventBus) deliver(handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Event handler panicked on %s: %v", event.Type, r)
		}
	}()
	handler(event)
}

// Subscribe registers a handler for events matching the filter
func (b *SystemEventBus) Subscribe(filter EventFilter, handler EventHandler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	b.subs[id] = &subscription{id: id, filter: filter, handler: handler}
	return id
}

// Unsubscribe removes a subscription
func (b *SystemEventBus) Unsubscribe(subscriptionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, subscriptionID)
}

// RecentEvents returns the most recent events, newest first
func (b *SystemEventBus) RecentEvents(limit int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 || limit > len(b.recent) {
		limit = len(b.recent)
	}
	out := make([]Event, 0, limit)
	for i := len(b.recent) - 1; i >= len(b.recent)-limit; i-- {
		out = append(out, b.recent[i])
	}
	return out
}
