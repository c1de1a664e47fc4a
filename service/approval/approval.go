// Package approval models the human-in-the-loop checkpoint: a paused run
// files a request, a human records a decision, and the orchestrator feeds the
// decision back into the engine on resume.
package approval

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no request exists for the run id.
	ErrNotFound = errors.New("approval: request not found")

	// ErrAlreadyDecided is returned when a decision was already recorded.
	ErrAlreadyDecided = errors.New("approval: already decided")
)

// Request asks a human to review the formatted document of a paused run.
type Request struct {
	RunID     string    `json:"runId"`
	Node      string    `json:"node"`
	Summary   string    `json:"summary,omitempty"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// Decision is the recorded human verdict for a request.
type Decision struct {
	RunID     string    `json:"runId"`
	Approved  bool      `json:"approved"`
	Comment   string    `json:"comment,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Service manages approval requests and decisions.
type Service interface {
	Request(ctx context.Context, r *Request) error

	// Pending lists requests without a recorded decision, oldest first.
	Pending(ctx context.Context) ([]*Request, error)

	// Decide records the verdict for a pending request; deciding twice
	// fails with ErrAlreadyDecided.
	Decide(ctx context.Context, runID string, approved bool, comment string) (*Decision, error)

	// Decision returns the recorded verdict, or ErrNotFound.
	Decision(ctx context.Context, runID string) (*Decision, error)
}
