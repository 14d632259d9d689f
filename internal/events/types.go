// Package events provides the in-process event bus used for enrichment
// progress notifications and artwork change auditing.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

// System-wide event types
const (
	// Enrichment queue events
	EventQueueStarted       EventType = "enrichment.queue.started"
	EventQueueItemCompleted EventType = "enrichment.queue.item.completed"
	EventQueueItemError     EventType = "enrichment.queue.item.error"
	EventQueueStopped       EventType = "enrichment.queue.stopped"
	EventQueueCompleted     EventType = "enrichment.queue.completed"

	// Artwork events
	EventArtworkUpdated EventType = "artwork.updated"
	EventArtworkRemoved EventType = "artwork.removed"

	// Agent events
	EventAgentEnabled  EventType = "agent.enabled"
	EventAgentDisabled EventType = "agent.disabled"

	// System events
	EventSystemStarted EventType = "system.started"
	EventSystemStopped EventType = "system.stopped"
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"` // system, module:id, user:id
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventHandler represents a function that handles events
type EventHandler func(event Event)

// EventFilter restricts a subscription to specific event types.
// An empty filter matches everything.
type EventFilter struct {
	Types []EventType `json:"types,omitempty"`
}

// Matches reports whether the event passes the filter
func (f EventFilter) Matches(event Event) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == event.Type {
			return true
		}
	}
	return false
}

// NewSystemEvent creates a new event originating from the system itself
func NewSystemEvent(eventType EventType, title, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "system",
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}
