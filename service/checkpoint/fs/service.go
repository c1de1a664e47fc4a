// Package fs implements a filesystem-backed checkpoint store on top of the
// afs abstraction, so checkpoints can live on local disk or any scheme afs
// supports. Writes go through a temp object plus move, keeping a partially
// written checkpoint invisible to Load.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/docforge/docforge/internal/clock"
	"github.com/docforge/docforge/model/document"
	"github.com/docforge/docforge/service/checkpoint"
)

// Service is a filesystem checkpoint store.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ checkpoint.Store = (*Service)(nil)

// New creates a store rooted at basePath, creating the directory when absent.
func New(basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	fs := afs.New()
	ctx := context.Background()
	exists, _ := fs.Exists(ctx, basePath)
	if !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}
	basePath = url.Normalize(basePath, file.Scheme)
	return &Service{basePath: basePath, fs: fs}, nil
}

// Save persists the checkpoint atomically.
func (s *Service) Save(ctx context.Context, runID string, state *document.State) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	// The temp name keeps the .json extension last: afs Move treats a
	// destination with a different extension as a folder.
	tempPath := s.recordPath(runID + ".tmp")
	if err := s.fs.Upload(ctx, tempPath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write checkpoint %s: %w", runID, err)
	}
	if err := s.fs.Move(ctx, tempPath, s.recordPath(runID)); err != nil {
		return fmt.Errorf("failed to commit checkpoint %s: %w", runID, err)
	}
	return nil
}

// Load reads and decodes the checkpoint for the run.
func (s *Service) Load(ctx context.Context, runID string) (*document.State, error) {
	if runID == "" {
		return nil, checkpoint.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	recordPath := s.recordPath(runID)
	exists, err := s.fs.Exists(ctx, recordPath)
	if err != nil {
		return nil, fmt.Errorf("failed to check checkpoint %s: %w", runID, err)
	}
	if !exists {
		return nil, checkpoint.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, recordPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", runID, err)
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
func (s *Service) Delete(ctx context.Context, runID string) error {
	if runID == "" {
		return checkpoint.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordPath := s.recordPath(runID)
	exists, err := s.fs.Exists(ctx, recordPath)
	if err != nil {
		return fmt.Errorf("failed to check checkpoint %s: %w", runID, err)
	}
	if !exists {
		return checkpoint.ErrNotFound
	}
	if err := s.fs.Delete(ctx, recordPath); err != nil {
		return fmt.Errorf("failed to delete checkpoint %s: %w", runID, err)
	}
	return nil
}

func (s *Service) recordPath(runID string) string {
	return url.Join(s.basePath, runID+".json")
}
