// Package trace turns refresh sessions into span trees: one root span per
// session, a child span per project and a grandchild span per resource type.
// Finished trees are exported over OTLP when an endpoint is configured.
package trace

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// EventType identifies the kind of span event.
type EventType string

const (
	EventSessionStart  EventType = "session_start"
	EventSessionEnd    EventType = "session_end"
	EventProjectStart  EventType = "project_start"
	EventProjectEnd    EventType = "project_end"
	EventResourceStart EventType = "resource_start"
	EventResourceEnd   EventType = "resource_end"
)

func (t EventType) isStart() bool {
	return t == EventSessionStart || t == EventProjectStart || t == EventResourceStart
}

func (t EventType) isEnd() bool {
	return t == EventSessionEnd || t == EventProjectEnd || t == EventResourceEnd
}

// SpanEvent opens or closes one span of a session trace.
type SpanEvent struct {
	TraceID    string
	SpanID     string
	ParentID   string // empty for the session root
	Type       EventType
	Name       string
	Timestamp  time.Time
	Attributes map[string]string
}

// NewTraceID generates a random 16-byte trace ID as hex string (32 characters)
func NewTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewSpanID generates a random 8-byte span ID as hex string (16 characters)
func NewSpanID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
