// Package memory implements the approval service with in-process storage.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/docforge/docforge/internal/clock"
	"github.com/docforge/docforge/service/approval"
)

type service struct {
	mux       sync.RWMutex
	requests  map[string]*approval.Request
	decisions map[string]*approval.Decision
}

var _ approval.Service = (*service)(nil)

// New creates an empty approval service.
func New() approval.Service {
	return &service{
		requests:  map[string]*approval.Request{},
		decisions: map[string]*approval.Decision{},
	}
}

// Request files an approval request. Re-submission for the same run starts a
// fresh approval cycle: the previous request and decision are discarded, so a
// run that loops back after a rejection can pause again.
func (s *service) Request(_ context.Context, r *approval.Request) error {
	if r == nil || r.RunID == "" {
		return fmt.Errorf("invalid approval request")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = clock.Now()
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.requests[r.RunID] = r
	delete(s.decisions, r.RunID)
	return nil
}

func (s *service) Pending(_ context.Context) ([]*approval.Request, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	pending := make([]*approval.Request, 0, len(s.requests))
	for runID, request := range s.requests {
		if _, decided := s.decisions[runID]; decided {
			continue
		}
		pending = append(pending, request)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

func (s *service) Decide(_ context.Context, runID string, approved bool, comment string) (*approval.Decision, error) {
	if runID == "" {
		return nil, fmt.Errorf("empty run id")
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.requests[runID]; !ok {
		return nil, fmt.Errorf("%w: %s", approval.ErrNotFound, runID)
	}
	if _, ok := s.decisions[runID]; ok {
		return nil, fmt.Errorf("%w: %s", approval.ErrAlreadyDecided, runID)
	}
	decision := &approval.Decision{
		RunID:     runID,
		Approved:  approved,
		Comment:   comment,
		DecidedAt: clock.Now(),
	}
	s.decisions[runID] = decision
	return decision, nil
}

func (s *service) Decision(_ context.Context, runID string) (*approval.Decision, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	decision, ok := s.decisions[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", approval.ErrNotFound, runID)
	}
	return decision, nil
}
