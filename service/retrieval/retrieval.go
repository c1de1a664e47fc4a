// Package retrieval defines the narrow interface through which generation
// stages pull ranked context passages out of a knowledge base. The engine
// never calls it; only stages do.
package retrieval

import "context"

// Match is one ranked context passage.
type Match struct {
	Content    string  `json:"content"`
	SourceID   string  `json:"sourceId"`
	Similarity float64 `json:"similarity"`
}

// Service ranks and returns context passages for a query. Filters narrow the
// candidate set by exact tag match; topK bounds the result length.
type Service interface {
	Retrieve(ctx context.Context, query string, topK int, filters map[string]string) ([]Match, error)
}
