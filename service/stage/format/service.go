// Package format implements the final rendering stage: it assembles the
// approved drafts into a single document with YAML frontmatter and stamps the
// state FINAL.
package format

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/docforge/docforge/internal/clock"
	"github.com/docforge/docforge/model/document"
	"github.com/docforge/docforge/model/types"
)

// Name is the workflow node this stage is registered under.
const Name = "format_doc"

const maxTitleLength = 60

// frontmatter is the metadata block rendered at the top of the final
// document. The review score is stamped so that a force-through after an
// exhausted revision budget remains visible in the output.
type frontmatter struct {
	Title       string   `yaml:"title"`
	Status      string   `yaml:"status"`
	Revisions   int      `yaml:"revisions"`
	ReviewScore float64  `yaml:"reviewScore"`
	GeneratedAt string   `yaml:"generatedAt"`
	Sources     []string `yaml:"sources,omitempty"`
}

// Service is the format stage.
type Service struct{}

// New creates the stage.
func New() *Service { return &Service{} }

// Name implements stage.Service.
func (s *Service) Name() string { return Name }

// Execute renders the final document. It requires a completed review; the
// routing layer guarantees that when the graph is wired correctly.
func (s *Service) Execute(_ context.Context, state *document.State) error {
	if !state.CanFinalize() {
		return types.NewMissingInputError(Name, "review")
	}

	meta := frontmatter{
		Title:       titleFrom(state.Brief),
		Status:      string(document.StatusFinal),
		Revisions:   state.RevisionCount,
		ReviewScore: state.Review.Score,
		GeneratedAt: clock.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Sources:     state.ContextSources,
	}
	header, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to render frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", meta.Title)
	b.WriteString(state.HLDDraft)
	b.WriteString("\n\n")
	b.WriteString(state.LLDDraft)
	if state.Review.NeedsRevision {
		// Force-through after an exhausted revision budget: surface the
		// outstanding findings rather than dropping them.
		b.WriteString("\n\n## Outstanding Review Findings\n\n")
		for _, issue := range state.Review.Issues {
			fmt.Fprintf(&b, "- (%s/%s) %s\n", issue.Category, issue.Severity, issue.Description)
		}
	}
	b.WriteString("\n")

	state.FinalDocument = b.String()
	state.Status = document.StatusFinal
	state.Touch()
	return nil
}

func titleFrom(brief string) string {
	title := strings.TrimSpace(brief)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	if len(title) > maxTitleLength {
		title = strings.TrimSpace(title[:maxTitleLength])
	}
	return title
}
