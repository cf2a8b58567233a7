package message

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// Message is the envelope for a single live event notification.
// Identity fields (ID, Type, Timestamp) are set at creation and never
// change. Tags and Payload may be populated before the message is raised;
// channels treat a raised message as read-only.
type Message struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	Priority    Priority       `json:"priority"`
	Scope       Scope          `json:"scope"`
	Timestamp   time.Time      `json:"timestamp"`
	Source      string         `json:"source"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	RequiresAck bool           `json:"requires_ack"`
	Expiration  time.Time      `json:"expiration"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// New creates a Message of the given type with a generated ID, the current
// time as timestamp, a Medium priority, Global scope, and an expiration of
// DefaultTTL past creation.
func New(t Type, title, description string) *Message {
	now := time.Now()
	return &Message{
		ID:          generateID(),
		Type:        t,
		Priority:    PriorityMedium,
		Scope:       ScopeGlobal,
		Timestamp:   now,
		Title:       title,
		Description: description,
		Expiration:  now.Add(DefaultTTL),
		Payload:     make(map[string]any),
	}
}

// SetPayload stores a value under the given key.
func (m *Message) SetPayload(key string, value any) {
	if m.Payload == nil {
		m.Payload = make(map[string]any)
	}
	m.Payload[key] = value
}

// GetPayload returns the value stored under key, or fallback if the key
// is absent.
func (m *Message) GetPayload(key string, fallback any) any {
	if v, ok := m.Payload[key]; ok {
		return v
	}
	return fallback
}

// PayloadFloat returns the value under key as a float64, or fallback if
// the key is absent or holds a non-numeric value.
func (m *Message) PayloadFloat(key string, fallback float64) float64 {
	switch v := m.Payload[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

// PayloadString returns the value under key as a string, or fallback if
// the key is absent or holds a non-string value.
func (m *Message) PayloadString(key, fallback string) string {
	if v, ok := m.Payload[key].(string); ok {
		return v
	}
	return fallback
}

// AddTag appends a tag if it is not already present.
func (m *Message) AddTag(tag string) {
	for _, t := range m.Tags {
		if t == tag {
			return
		}
	}
	m.Tags = append(m.Tags, tag)
}

// HasTag returns true if the message carries the given tag.
func (m *Message) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// IsExpired returns true if now is past the message expiration.
func (m *Message) IsExpired(now time.Time) bool {
	return now.After(m.Expiration)
}

// Validate checks the structural invariants a channel requires before
// accepting a message.
func (m *Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("message: ID is required")
	}
	if m.Title == "" {
		return fmt.Errorf("message: title is required")
	}
	if !ValidateType(m.Type) {
		return fmt.Errorf("message: unknown type %q", m.Type)
	}
	if !m.Priority.Valid() {
		return fmt.Errorf("message: invalid priority %d", m.Priority)
	}
	if m.Scope != "" && !ValidateScope(m.Scope) {
		return fmt.Errorf("message: unknown scope %q", m.Scope)
	}
	if m.Expiration.Before(m.Timestamp) {
		return fmt.Errorf("message: expiration precedes timestamp")
	}
	return nil
}

// idCounter provides per-process uniqueness for message IDs.
var idCounter atomic.Uint64

// generateID produces a unique message ID using timestamp, PID, and atomic counter.
func generateID() string {
	return fmt.Sprintf("evt-%d-%d-%d", time.Now().UnixNano(), os.Getpid(), idCounter.Add(1))
}
