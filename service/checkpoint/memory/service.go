// Package memory implements an in-process checkpoint store. Records are held
// as serialized JSON so that Load always reconstructs a fresh copy and never
// shares memory with a running engine.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/docforge/docforge/internal/clock"
	"github.com/docforge/docforge/model/document"
	"github.com/docforge/docforge/service/checkpoint"
)

// Service is a thread-safe in-memory checkpoint store.
type Service struct {
	mux     sync.RWMutex
	records map[string][]byte
}

var _ checkpoint.Store = (*Service)(nil)

// New creates an empty store.
func New() *Service {
	return &Service{records: map[string][]byte{}}
}

// Save serializes the state and overwrites any previous checkpoint for the
// run (last writer wins per run id).
func (s *Service) Save(_ context.Context, runID string, state *document.State) error {
	if runID == "" {
		return checkpoint.ErrInvalidID
	}
	if state == nil {
		return fmt.Errorf("cannot checkpoint nil state")
	}
	record := checkpoint.Record{
		RunID:       runID,
		CurrentNode: state.CurrentNode,
		State:       state,
		SavedAt:     clock.Now(),
	}
	data, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint %s: %w", runID, err)
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.records[runID] = data
	return nil
}

// Load reconstructs the saved state.
func (s *Service) Load(_ context.Context, runID string) (*document.State, error) {
	if runID == "" {
		return nil, checkpoint.ErrInvalidID
	}
	s.mux.RLock()
	data, ok := s.records[runID]
	s.mux.RUnlock()
	if !ok {
		return nil, checkpoint.ErrNotFound
	}
	var record checkpoint.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", checkpoint.ErrCorrupt, runID, err)
	}
	if record.State == nil {
		return nil, fmt.Errorf("%w: %s: empty state", checkpoint.ErrCorrupt, runID)
	}
	if err := record.State.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", checkpoint.ErrCorrupt, runID, err)
	}
	return record.State, nil
}

// Delete removes the checkpoint for the run.
func (s *Service) Delete(_ context.Context, runID string) error {
	if runID == "" {
		return checkpoint.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.records[runID]; !ok {
		return checkpoint.ErrNotFound
	}
	delete(s.records, runID)
	return nil
}
