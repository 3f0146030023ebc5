package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies an event on the in-process bus.
type EventType string

const (
	EventAgentRouted      EventType = "agent.routed"
	EventAgentChanged     EventType = "agent.changed"
	EventAlertRaised      EventType = "alert.raised"
	EventSessionEscalated EventType = "session.escalated"
	EventFallbackUsed     EventType = "response.fallback"
)

// Event is a routing lifecycle notification.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	UserID    string          `json:"user_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventHandler consumes events. Handlers run on their own goroutines and
// must tolerate concurrent invocation.
type EventHandler func(ctx context.Context, event Event)

// EventBus publishes events to subscribers.
type EventBus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType EventType, handler EventHandler) (unsubscribe func())
}
