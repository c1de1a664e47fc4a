// Package checkpoint persists run state at suspension points. A store only
// ever holds a serialized copy of the state, never a live reference, so
// pause/resume cannot alias a running engine's state.
package checkpoint

import (
	"context"
	"time"

	"github.com/docforge/docforge/model/document"
)

// Record is the persisted layout: one keyed entry per run.
type Record struct {
	RunID       string          `json:"runId"`
	CurrentNode string          `json:"currentNode"`
	State       *document.State `json:"state"`
	SavedAt     time.Time       `json:"savedAt"`
}

// Store saves and restores run state. Save must be atomic per run: a
// partially written checkpoint is never observable by Load. Concurrent calls
// for distinct run ids must not interfere; concurrent writers to the same run
// id are not a supported scenario.
type Store interface {
	Save(ctx context.Context, runID string, state *document.State) error

	// Load returns a reconstructed copy of the saved state, or ErrNotFound.
	Load(ctx context.Context, runID string) (*document.State, error)

	Delete(ctx context.Context, runID string) error
}
