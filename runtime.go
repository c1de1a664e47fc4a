package docforge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docforge/docforge/internal/clock"
	"github.com/docforge/docforge/internal/idgen"
	"github.com/docforge/docforge/model/document"
	"github.com/docforge/docforge/runtime/engine"
	"github.com/docforge/docforge/service/approval"
	"github.com/docforge/docforge/service/event"
)

const summaryLimit = 400

// Run is the orchestrator's record of a single workflow execution.
type Run struct {
	ID        string          `json:"id"`
	Outcome   engine.Outcome  `json:"outcome"`
	State     *document.State `json:"state"`
	Error     string          `json:"error,omitempty"`
	StartedAt time.Time       `json:"startedAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Start creates a new run for the supplied brief and drives it until it
// completes, pauses for approval, fails or is cancelled. It is synchronous;
// callers wanting concurrency run it on their own goroutine.
func (s *Service) Start(ctx context.Context, brief string) (*Run, error) {
	state, err := document.New(brief, s.config.MaxRevisions)
	if err != nil {
		return nil, err
	}
	state.RunID = idgen.New()
	run := &Run{
		ID:        state.RunID,
		State:     state,
		StartedAt: clock.Now(),
		UpdatedAt: clock.Now(),
	}
	s.mux.Lock()
	s.runs[run.ID] = run
	s.mux.Unlock()

	s.events.Publish(ctx, event.New(event.TopicRunStarted, run.ID, ""))
	return run, s.drive(ctx, run)
}

// Resume feeds the human verdict into a paused run and drives it onward. A
// failed run may also be resumed; it re-enters at the failing node and the
// verdict arguments are ignored until the run pauses again. Resume refuses
// runs that are not resumable: unknown, still executing, already terminal,
// cancelled, or without a checkpoint.
func (s *Service) Resume(ctx context.Context, runID string, approved bool, comment string) (*Run, error) {
	s.mux.Lock()
	run, ok := s.runs[runID]
	if ok {
		switch {
		case s.active[runID]:
			s.mux.Unlock()
			return nil, fmt.Errorf("run %s is still executing", runID)
		case run.Outcome.Terminal():
			s.mux.Unlock()
			return nil, fmt.Errorf("run %s already finished with outcome %s", runID, run.Outcome)
		}
	}
	s.mux.Unlock()

	state, err := s.checkpoints.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if state.Cancelled {
		return nil, fmt.Errorf("run %s was cancelled and cannot be resumed", runID)
	}
	// The verdict is only meaningful at a pause node. A failed run re-enters
	// at the failing stage and must still earn its approval pause; a
	// pre-injected signal would let the gate consume a decision made before
	// the document existed.
	if node, ok := s.graph.Node(state.CurrentNode); ok && node.IsPause() {
		if _, err := s.approvals.Decide(ctx, runID, approved, comment); err != nil && !errors.Is(err, approval.ErrNotFound) {
			return nil, err
		}
		state.Approved = &approved
		state.ApprovalComment = comment
		state.Touch()
	}

	if run == nil {
		// Recovered from checkpoint after a restart.
		run = &Run{ID: runID, StartedAt: state.CreatedAt}
		s.mux.Lock()
		s.runs[runID] = run
		s.mux.Unlock()
	}
	run.State = state

	s.events.Publish(ctx, event.New(event.TopicRunResumed, runID, state.CurrentNode))
	return run, s.drive(ctx, run)
}

// Cancel stops a run. An executing run is cancelled cooperatively at the
// next node boundary; a paused run is marked cancelled directly. Either way
// the checkpoint is kept, so the run stays inspectable but not resumable.
func (s *Service) Cancel(ctx context.Context, runID string) error {
	s.mux.Lock()
	if cancel, ok := s.cancels[runID]; ok {
		s.mux.Unlock()
		cancel()
		return nil
	}
	run, ok := s.runs[runID]
	if ok && run.Outcome == engine.OutcomePaused {
		run.Outcome = engine.OutcomeCancelled
		run.UpdatedAt = clock.Now()
		run.State.Cancelled = true
		state := run.State
		s.mux.Unlock()
		// Stamp the persisted record too, so a fresh process refuses to
		// resume the run.
		if err := s.checkpoints.Save(context.WithoutCancel(ctx), runID, state); err != nil {
			return fmt.Errorf("run %s cancelled; failed to stamp checkpoint: %w", runID, err)
		}
		s.events.Publish(ctx, event.New(event.TopicRunCancelled, runID, state.CurrentNode))
		return nil
	}
	s.mux.Unlock()
	return fmt.Errorf("run %s is not executing or paused", runID)
}

// Run returns the record for a run id, or false when unknown.
func (s *Service) Run(runID string) (*Run, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	run, ok := s.runs[runID]
	return run, ok
}

// Pending lists approval requests awaiting a human decision.
func (s *Service) Pending(ctx context.Context) ([]*approval.Request, error) {
	return s.approvals.Pending(ctx)
}

// drive executes the engine for the run, tracks the cancel handle and
// translates a pause into an approval request.
func (s *Service) drive(ctx context.Context, run *Run) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mux.Lock()
	s.cancels[run.ID] = cancel
	s.active[run.ID] = true
	s.mux.Unlock()
	defer func() {
		s.mux.Lock()
		delete(s.cancels, run.ID)
		delete(s.active, run.ID)
		s.mux.Unlock()
	}()

	outcome, err := s.engine.Run(runCtx, run.ID, run.State)

	s.mux.Lock()
	run.Outcome = outcome
	run.UpdatedAt = clock.Now()
	if err != nil {
		run.Error = err.Error()
	} else {
		run.Error = ""
	}
	s.mux.Unlock()

	if outcome == engine.OutcomePaused {
		if reqErr := s.requestApproval(context.WithoutCancel(ctx), run); reqErr != nil && err == nil {
			err = reqErr
		}
	}
	if outcome == engine.OutcomeCompleted {
		// Terminal success; the suspension record is no longer needed.
		_ = s.checkpoints.Delete(context.WithoutCancel(ctx), run.ID)
	}
	return err
}

func (s *Service) requestApproval(ctx context.Context, run *Run) error {
	req := &approval.Request{
		RunID:     run.ID,
		Node:      run.State.CurrentNode,
		Summary:   summarize(run.State.FinalDocument),
		CreatedAt: clock.Now(),
	}
	if run.State.Review != nil {
		req.Score = run.State.Review.Score
	}
	return s.approvals.Request(ctx, req)
}

// summarize trims the formatted document to a short excerpt suitable for an
// approval listing.
func summarize(doc string) string {
	doc = strings.TrimSpace(doc)
	if len(doc) <= summaryLimit {
		return doc
	}
	cut := doc[:summaryLimit]
	if idx := strings.LastIndexByte(cut, '\n'); idx > summaryLimit/2 {
		cut = cut[:idx]
	}
	return cut + "\n..."
}
