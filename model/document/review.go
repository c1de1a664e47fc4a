package document

// Severity ranks review issues; CRITICAL and HIGH block progression.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Issue is a single problem or suggestion identified during review.
type Issue struct {
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion,omitempty"`
	Location    string   `json:"location,omitempty"`
}

// ReviewFeedback is the structured outcome of a review pass. NeedsRevision is
// the primary routing signal: true routes the workflow back to the first
// generation node, subject to the revision bound.
type ReviewFeedback struct {
	Score            float64  `json:"score"`
	PassesValidation bool     `json:"passesValidation"`
	Issues           []Issue  `json:"issues,omitempty"`
	Strengths        []string `json:"strengths,omitempty"`
	NeedsRevision    bool     `json:"needsRevision"`
}

// Clone returns a deep copy of the feedback.
func (r *ReviewFeedback) Clone() *ReviewFeedback {
	if r == nil {
		return nil
	}
	out := *r
	if r.Issues != nil {
		out.Issues = append([]Issue(nil), r.Issues...)
	}
	if r.Strengths != nil {
		out.Strengths = append([]string(nil), r.Strengths...)
	}
	return &out
}

// HasBlockingIssues reports whether any CRITICAL or HIGH severity issue is
// present.
func (r *ReviewFeedback) HasBlockingIssues() bool {
	if r == nil {
		return false
	}
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical || issue.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// IssuesBySeverity returns issues matching the given severity.
func (r *ReviewFeedback) IssuesBySeverity(severity Severity) []Issue {
	if r == nil {
		return nil
	}
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			out = append(out, issue)
		}
	}
	return out
}
