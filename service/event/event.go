// Package event publishes run lifecycle notifications over a messaging
// queue so that callers can observe progress without polling run records.
package event

import (
	"time"

	"github.com/docforge/docforge/internal/clock"
)

// Topics emitted by the engine and the orchestrator.
const (
	TopicRunStarted     = "run.started"
	TopicRunCompleted   = "run.completed"
	TopicRunPaused      = "run.paused"
	TopicRunResumed     = "run.resumed"
	TopicRunCancelled   = "run.cancelled"
	TopicRunFailed      = "run.failed"
	TopicStageStarted   = "stage.started"
	TopicStageCompleted = "stage.completed"
	TopicRouteDecided   = "route.decided"
)

// Event is one lifecycle notification.
type Event struct {
	Topic     string            `json:"topic"`
	RunID     string            `json:"runId"`
	Node      string            `json:"node,omitempty"`
	Label     string            `json:"label,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// New creates an event stamped with the current time.
func New(topic, runID, node string) *Event {
	return &Event{
		Topic:     topic,
		RunID:     runID,
		Node:      node,
		CreatedAt: clock.Now(),
	}
}
