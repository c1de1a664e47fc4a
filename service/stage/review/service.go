// Package review implements the quality-gate stage. It validates the
// assembled drafts against the document schema, derives a quality score from
// the findings and sets the needsRevision flag that drives the revision loop.
package review

import (
	"context"
	"fmt"

	"github.com/docforge/docforge/model/document"
	"github.com/docforge/docforge/model/types"
	"github.com/docforge/docforge/service/validation"
)

// Name is the workflow node this stage is registered under.
const Name = "review_doc"

const defaultScoreThreshold = 0.7

// severity deductions applied when deriving the quality score.
var deductions = map[document.Severity]float64{
	document.SeverityCritical: 0.4,
	document.SeverityHigh:     0.25,
	document.SeverityMedium:   0.1,
	document.SeverityLow:      0.05,
	document.SeverityInfo:     0,
}

// Service is the review stage.
type Service struct {
	validator validation.Validator
	schema    validation.Schema
	threshold float64
}

// Option customises the stage.
type Option func(*Service)

// WithSchema sets the structural schema drafts are validated against.
func WithSchema(schema validation.Schema) Option {
	return func(s *Service) { s.schema = schema }
}

// WithThreshold sets the minimum score that avoids a revision cycle.
func WithThreshold(threshold float64) Option {
	return func(s *Service) { s.threshold = threshold }
}

// New creates the stage with the default schema: both design sections plus a
// data model are required.
func New(validator validation.Validator, options ...Option) *Service {
	ret := &Service{
		validator: validator,
		threshold: defaultScoreThreshold,
		schema: validation.Schema{
			RequiredSections: []string{"Architecture Overview", "API Design", "Data Model"},
			MinLength:        80,
		},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Name implements stage.Service.
func (s *Service) Name() string { return Name }

// Execute reviews the current drafts and overwrites any previous feedback.
func (s *Service) Execute(ctx context.Context, state *document.State) error {
	if !state.CanReview() {
		return types.NewMissingInputError(Name, "hldDraft+lldDraft")
	}

	assembled := state.HLDDraft + "\n\n" + state.LLDDraft
	valid, violations, err := s.validator.Validate(ctx, assembled, s.schema)
	if err != nil {
		return types.Transient(fmt.Errorf("validation failed: %w", err))
	}

	feedback := &document.ReviewFeedback{PassesValidation: valid}
	for _, violation := range violations {
		feedback.Issues = append(feedback.Issues, document.Issue{
			Category:    "structure",
			Severity:    document.SeverityCritical,
			Description: violation,
			Suggestion:  "regenerate the missing structure",
		})
	}
	feedback.Issues = append(feedback.Issues, assess(state)...)
	feedback.Score = score(feedback)
	if len(feedback.Issues) == 0 {
		feedback.Strengths = append(feedback.Strengths, "complete structure, no findings")
	}
	feedback.NeedsRevision = !valid ||
		feedback.Score < s.threshold ||
		feedback.HasBlockingIssues()

	state.Review = feedback
	state.Status = document.StatusReview
	state.Touch()
	return nil
}

// assess applies content heuristics beyond the structural schema.
func assess(state *document.State) []document.Issue {
	var issues []document.Issue
	if len(state.ContextSources) == 0 {
		issues = append(issues, document.Issue{
			Category:    "documentation",
			Severity:    document.SeverityLow,
			Description: "no knowledge-base sources cited",
			Suggestion:  "retrieve and cite supporting context",
		})
	}
	if len(state.LLDDraft) < len(state.HLDDraft)/4 {
		issues = append(issues, document.Issue{
			Category:    "api_design",
			Severity:    document.SeverityMedium,
			Description: "low-level design is thin relative to the architecture",
			Suggestion:  "expand endpoint and schema detail",
			Location:    "API Design",
		})
	}
	return issues
}

func score(feedback *document.ReviewFeedback) float64 {
	total := 1.0
	if !feedback.PassesValidation {
		total -= 0.3
	}
	for _, issue := range feedback.Issues {
		total -= deductions[issue.Severity]
	}
	if total < 0 {
		return 0
	}
	return total
}
