// Package events defines the broadcast event schemas exchanged over NATS.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type identifiers carried in the header.
const (
	TypeBroadcastRequested = "broadcast.requested"
	TypeBroadcastCompleted = "broadcast.completed"
)

// Header identifies and orders an event within a broadcast workflow.
type Header struct {
	EventID    string    `json:"event_id"`
	WorkflowID string    `json:"workflow_id"`
	EventType  string    `json:"event_type"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewHeader stamps a fresh header. An empty workflowID starts a new workflow.
func NewHeader(eventType, workflowID string) Header {
	if workflowID == "" {
		workflowID = uuid.NewString()
	}

	return Header{
		EventID:    uuid.NewString(),
		WorkflowID: workflowID,
		EventType:  eventType,
		Timestamp:  time.Now().UTC(),
	}
}

// BroadcastRequestedEvent asks the worker to deliver the daily pair.
type BroadcastRequestedEvent struct {
	Header Header `json:"header"`

	// Date is the ISO calendar date to broadcast, in the bot's timezone.
	// Empty means today.
	Date string `json:"date,omitempty"`

	// WithVoice requests voice notes in addition to the text messages.
	WithVoice bool `json:"with_voice"`
}

// BroadcastCompletedEvent reports the outcome of a broadcast request.
type BroadcastCompletedEvent struct {
	Header Header `json:"header"`

	Date         string `json:"date"`
	Recipients   int    `json:"recipients"`
	MessagesSent int    `json:"messages_sent"`
	UsedFallback bool   `json:"used_fallback"`
}
