// Package validation checks a rendered document against a structural schema.
// The review stage uses it to populate the passesValidation part of its
// feedback; quality scoring is a separate concern.
package validation

import (
	"context"
	"fmt"
	"strings"
)

// Schema describes the structural requirements of a document.
type Schema struct {
	RequiredSections   []string `json:"requiredSections,omitempty" yaml:"requiredSections,omitempty"`
	RequireFrontmatter bool     `json:"requireFrontmatter,omitempty" yaml:"requireFrontmatter,omitempty"`
	MinLength          int      `json:"minLength,omitempty" yaml:"minLength,omitempty"`
}

// Validator validates a document against a schema, returning validity plus a
// list of human-readable violations.
type Validator interface {
	Validate(ctx context.Context, doc string, schema Schema) (bool, []string, error)
}

// Service is the default structural validator.
type Service struct{}

var _ Validator = (*Service)(nil)

// New creates a validator.
func New() *Service { return &Service{} }

// Validate applies the schema checks in order and collects every violation
// rather than stopping at the first.
func (s *Service) Validate(ctx context.Context, doc string, schema Schema) (bool, []string, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}
	var violations []string
	if schema.MinLength > 0 && len(doc) < schema.MinLength {
		violations = append(violations, fmt.Sprintf("document shorter than %d characters", schema.MinLength))
	}
	if schema.RequireFrontmatter && !strings.HasPrefix(doc, "---\n") {
		violations = append(violations, "missing YAML frontmatter")
	}
	for _, section := range schema.RequiredSections {
		if !hasSection(doc, section) {
			violations = append(violations, fmt.Sprintf("missing required section %q", section))
		}
	}
	return len(violations) == 0, violations, nil
}

func hasSection(doc, section string) bool {
	needle := strings.ToLower(section)
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		heading := strings.ToLower(strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
		if heading == needle {
			return true
		}
	}
	return false
}
