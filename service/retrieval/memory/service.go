// Package memory implements an in-process knowledge base with lexical
// similarity ranking. It stands in for a vector store behind the retrieval
// interface; relevance is token overlap between query and passage.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/docforge/docforge/service/retrieval"
)

// Passage is a stored knowledge-base chunk.
type Passage struct {
	Content  string            `json:"content"`
	SourceID string            `json:"sourceId"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// Service is a thread-safe in-memory retrieval backend.
type Service struct {
	mux      sync.RWMutex
	passages []Passage
}

var _ retrieval.Service = (*Service)(nil)

// New creates a backend preloaded with the supplied passages.
func New(passages ...Passage) *Service {
	return &Service{passages: append([]Passage(nil), passages...)}
}

// Add appends passages to the knowledge base.
func (s *Service) Add(passages ...Passage) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.passages = append(s.passages, passages...)
}

// Retrieve ranks passages by token overlap with the query and returns at most
// topK matches with non-zero similarity.
func (s *Service) Retrieve(ctx context.Context, query string, topK int, filters map[string]string) ([]retrieval.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive: %d", topK)
	}
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	s.mux.RLock()
	defer s.mux.RUnlock()

	var matches []retrieval.Match
	for _, passage := range s.passages {
		if !matchesFilters(passage, filters) {
			continue
		}
		similarity := overlap(queryTokens, tokenize(passage.Content))
		if similarity == 0 {
			continue
		}
		matches = append(matches, retrieval.Match{
			Content:    passage.Content,
			SourceID:   passage.SourceID,
			Similarity: similarity,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func matchesFilters(p Passage, filters map[string]string) bool {
	for key, want := range filters {
		if p.Tags[key] != want {
			return false
		}
	}
	return true
}

func tokenize(text string) map[string]bool {
	tokens := map[string]bool{}
	for _, field := range strings.Fields(strings.ToLower(text)) {
		token := strings.Trim(field, ".,;:!?()[]{}\"'`")
		if len(token) > 2 {
			tokens[token] = true
		}
	}
	return tokens
}

// overlap returns |query ∩ passage| / |query|.
func overlap(query, passage map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	var hits int
	for token := range query {
		if passage[token] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
