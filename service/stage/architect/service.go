// Package architect implements the high-level design stage: it turns the
// project brief (plus any review feedback from earlier passes) into the HLD
// draft, pulling supporting context from the knowledge base.
package architect

import (
	"context"
	"fmt"
	"strings"

	"github.com/docforge/docforge/model/document"
	"github.com/docforge/docforge/model/types"
	"github.com/docforge/docforge/service/retrieval"
	"github.com/docforge/docforge/service/revision"
)

// Name is the workflow node this stage is registered under.
const Name = "draft_hld"

const defaultTopK = 5

// Generator produces the HLD draft text. Replaceable so that tests and
// alternative model backends can plug in.
type Generator func(ctx context.Context, state *document.State, matches []retrieval.Match) (string, error)

// Service is the GenerateHighLevel stage.
type Service struct {
	retriever retrieval.Service
	history   *revision.History
	generate  Generator
	topK      int
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

// WithTopK sets how many context passages are retrieved per pass.
func WithTopK(topK int) Option {
	return func(s *Service) { s.topK = topK }
}

// New creates the stage. The retriever may be nil, in which case drafts are
// generated from the brief alone.
func New(retriever retrieval.Service, options ...Option) *Service {
	ret := &Service{retriever: retriever, topK: defaultTopK, generate: defaultGenerator}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Name implements stage.Service.
func (s *Service) Name() string { return Name }

// Execute regenerates the HLD draft. Re-entry via a revise route also resets
// the finalisation fields so the state invariants hold through the loop-back.
func (s *Service) Execute(ctx context.Context, state *document.State) error {
	if strings.TrimSpace(state.Brief) == "" {
		return types.NewMissingInputError(Name, "brief")
	}
	previous := state.HLDDraft

	// Loop-back entry: discard any prior finalisation.
	state.FinalDocument = ""
	state.Approved = nil
	state.ApprovalComment = ""
	state.Status = document.StatusDraft

	var matches []retrieval.Match
	if s.retriever != nil {
		var err error
		matches, err = s.retriever.Retrieve(ctx, state.Brief, s.topK, nil)
		if err != nil {
			return types.Transient(fmt.Errorf("context retrieval failed: %w", err))
		}
		state.ContextSources = sourceIDs(matches)
	}

	draft, err := s.generate(ctx, state, matches)
	if err != nil {
		return fmt.Errorf("hld generation failed: %w", err)
	}
	state.HLDDraft = draft
	state.Touch()

	if s.history != nil {
		if err := s.history.Record(state.RunID, state.RevisionCount, "hld", previous, draft); err != nil {
			return fmt.Errorf("failed to record hld revision: %w", err)
		}
	}
	return nil
}

func sourceIDs(matches []retrieval.Match) []string {
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.SourceID)
	}
	return out
}

// defaultGenerator renders a deterministic architecture outline from the
// brief and retrieved context. Revision passes fold review suggestions into
// the design decisions section.
func defaultGenerator(_ context.Context, state *document.State, matches []retrieval.Match) (string, error) {
	var b strings.Builder
	b.WriteString("## Architecture Overview\n\n")
	b.WriteString(state.Brief)
	b.WriteString("\n\n## Components\n\n")
	b.WriteString("- API layer\n- Core services\n- Persistence\n")

	if len(matches) > 0 {
		b.WriteString("\n## Context\n\n")
		for _, match := range matches {
			fmt.Fprintf(&b, "- [%s] %s\n", match.SourceID, firstLine(match.Content))
		}
	}

	b.WriteString("\n## Design Decisions\n\n")
	if state.Review != nil && len(state.Review.Issues) > 0 {
		fmt.Fprintf(&b, "Revision %d addresses prior review findings:\n\n", state.RevisionCount)
		for _, issue := range state.Review.Issues {
			suggestion := issue.Suggestion
			if suggestion == "" {
				suggestion = issue.Description
			}
			fmt.Fprintf(&b, "- (%s/%s) %s\n", issue.Category, issue.Severity, suggestion)
		}
	} else {
		b.WriteString("Initial pass; decisions derived from the brief.\n")
	}
	return b.String(), nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
