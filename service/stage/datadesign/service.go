// Package datadesign implements the low-level design stage: API contracts
// and data model derived from the HLD draft.
package datadesign

import (
	"context"
	"fmt"
	"strings"

	"github.com/docforge/docforge/model/document"
	"github.com/docforge/docforge/model/types"
	"github.com/docforge/docforge/service/revision"
)

// Name is the workflow node this stage is registered under.
const Name = "draft_lld"

// Generator produces the LLD draft text.
type Generator func(ctx context.Context, state *document.State) (string, error)

// Service is the GenerateLowLevel stage.
type Service struct {
	history  *revision.History
	generate Generator
}

// Option customises the stage.
type Option func(*Service)

// WithGenerator overrides the draft generator.
func WithGenerator(g Generator) Option {
	return func(s *Service) { s.generate = g }
}

// WithHistory attaches a revision history recorder.
func WithHistory(h *revision.History) Option {
	return func(s *Service) { s.history = h }
}

// New creates the stage.
func New(options ...Option) *Service {
	ret := &Service{generate: defaultGenerator}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Name implements stage.Service.
func (s *Service) Name() string { return Name }

// Execute derives the LLD draft from the HLD draft. A missing HLD draft is a
// contract violation, not a retryable condition.
func (s *Service) Execute(ctx context.Context, state *document.State) error {
	if strings.TrimSpace(state.HLDDraft) == "" {
		return types.NewMissingInputError(Name, "hldDraft")
	}
	previous := state.LLDDraft

	draft, err := s.generate(ctx, state)
	if err != nil {
		return fmt.Errorf("lld generation failed: %w", err)
	}
	state.LLDDraft = draft
	state.Touch()

	if s.history != nil {
		if err := s.history.Record(state.RunID, state.RevisionCount, "lld", previous, draft); err != nil {
			return fmt.Errorf("failed to record lld revision: %w", err)
		}
	}
	return nil
}

func defaultGenerator(_ context.Context, state *document.State) (string, error) {
	var b strings.Builder
	b.WriteString("## API Design\n\n")
	b.WriteString("Endpoints derived from the architecture overview.\n")
	b.WriteString("\n## Data Model\n\n")
	b.WriteString("Entities and relations backing the components above.\n")
	if state.Review != nil && state.Review.NeedsRevision {
		fmt.Fprintf(&b, "\nRevised in pass %d per review feedback.\n", state.RevisionCount)
	}
	return b.String(), nil
}
