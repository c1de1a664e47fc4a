package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/docforge/docforge/internal/clock"
)

// Status represents the lifecycle stage of the generated document.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusReview Status = "REVIEW"
	StatusFinal  Status = "FINAL"
)

// minBriefLength guards against briefs too short to generate anything useful.
const minBriefLength = 10

// State is the single record threaded through every workflow stage. Stages
// read from and write to it; the engine owns it exclusively for the duration
// of a run. Checkpoint stores only ever hold a serialized copy.
type State struct {
	// RunID identifies the run this state belongs to; assigned at run
	// creation and carried through checkpoints.
	RunID string `json:"runId,omitempty"`

	// Brief is the original project brief, set once at run creation.
	Brief string `json:"brief"`

	// HLDDraft and LLDDraft are intermediate artifacts, overwritten on each
	// revision pass.
	HLDDraft string `json:"hldDraft,omitempty"`
	LLDDraft string `json:"lldDraft,omitempty"`

	// Review holds the most recent review outcome; each review pass
	// overwrites the previous one.
	Review *ReviewFeedback `json:"review,omitempty"`

	// RevisionCount tracks completed automated revision cycles. The routing
	// layer is its only writer.
	RevisionCount int `json:"revisionCount"`

	// MaxRevisions bounds the revision loop; immutable after run start.
	MaxRevisions int `json:"maxRevisions"`

	// FinalDocument is produced by the format stage only.
	FinalDocument string `json:"finalDocument,omitempty"`

	Status Status `json:"status"`

	// CurrentNode names the node the engine is about to execute, or is
	// awaiting resumption on.
	CurrentNode string `json:"currentNode"`

	// Approved carries the human approval signal supplied on resume; nil
	// until a decision has been recorded.
	Approved        *bool  `json:"approved,omitempty"`
	ApprovalComment string `json:"approvalComment,omitempty"`

	// Cancelled marks a run whose checkpoint is kept for inspection only;
	// resumption is refused even after a process restart.
	Cancelled bool `json:"cancelled,omitempty"`

	// ContextSources lists knowledge-base source ids used during generation.
	ContextSources []string `json:"contextSources,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New creates a run state from a project brief.
func New(brief string, maxRevisions int) (*State, error) {
	brief = strings.TrimSpace(brief)
	if len(brief) < minBriefLength {
		return nil, fmt.Errorf("brief must be at least %d characters", minBriefLength)
	}
	if maxRevisions < 0 {
		return nil, fmt.Errorf("maxRevisions cannot be negative: %d", maxRevisions)
	}
	now := clock.Now()
	return &State{
		Brief:        brief,
		MaxRevisions: maxRevisions,
		Status:       StatusDraft,
		Metadata:     map[string]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Clone returns a deep copy. Stages execute against a clone so that a failed
// attempt never leaves partial mutations behind.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	if s.Review != nil {
		out.Review = s.Review.Clone()
	}
	if s.Approved != nil {
		v := *s.Approved
		out.Approved = &v
	}
	if s.ContextSources != nil {
		out.ContextSources = append([]string(nil), s.ContextSources...)
	}
	if s.Metadata != nil {
		out.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// SetMeta records an operational metadata entry.
func (s *State) SetMeta(key, value string) {
	if s.Metadata == nil {
		s.Metadata = map[string]string{}
	}
	s.Metadata[key] = value
}

// Touch updates the modification timestamp.
func (s *State) Touch() {
	s.UpdatedAt = clock.Now()
}

// CanReview reports whether both drafts exist, i.e. the document has enough
// content to be reviewed.
func (s *State) CanReview() bool {
	return s.HLDDraft != "" && s.LLDDraft != ""
}

// CanFinalize reports whether the document may be stamped FINAL.
func (s *State) CanFinalize() bool {
	return s.CanReview() && s.Review != nil
}

// Validate checks internal consistency; it is used by checkpoint loading to
// reject corrupt records early.
func (s *State) Validate() error {
	if s == nil {
		return fmt.Errorf("state is nil")
	}
	if strings.TrimSpace(s.Brief) == "" {
		return fmt.Errorf("state has empty brief")
	}
	if s.RevisionCount < 0 {
		return fmt.Errorf("negative revisionCount: %d", s.RevisionCount)
	}
	if s.RevisionCount > s.MaxRevisions {
		return fmt.Errorf("revisionCount %d exceeds maxRevisions %d", s.RevisionCount, s.MaxRevisions)
	}
	switch s.Status {
	case StatusDraft, StatusReview, StatusFinal:
	default:
		return fmt.Errorf("unknown status %q", s.Status)
	}
	if s.Status == StatusFinal && s.FinalDocument == "" {
		return fmt.Errorf("status FINAL without final document")
	}
	if s.Status != StatusFinal && s.FinalDocument != "" {
		return fmt.Errorf("final document present with status %q", s.Status)
	}
	return nil
}
