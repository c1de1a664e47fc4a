package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knowledgeBase() *Service {
	return New(
		Passage{Content: "Rate limiting with token buckets for public APIs", SourceID: "kb-rate", Tags: map[string]string{"topic": "api"}},
		Passage{Content: "Database sharding strategies and partition keys", SourceID: "kb-shard", Tags: map[string]string{"topic": "storage"}},
		Passage{Content: "Token bucket and leaky bucket comparison", SourceID: "kb-bucket", Tags: map[string]string{"topic": "api"}},
	)
}

func TestService_Retrieve(t *testing.T) {
	svc := knowledgeBase()
	ctx := context.Background()

	matches, err := svc.Retrieve(ctx, "token bucket rate limiting", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "kb-rate", matches[0].SourceID, "best overlap ranks first")
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Similarity, matches[i].Similarity)
	}
}

func TestService_RetrieveTopK(t *testing.T) {
	svc := knowledgeBase()
	matches, err := svc.Retrieve(context.Background(), "token bucket rate limiting strategies", 1, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = svc.Retrieve(context.Background(), "anything", 0, nil)
	assert.Error(t, err)
}

func TestService_RetrieveFilters(t *testing.T) {
	svc := knowledgeBase()
	matches, err := svc.Retrieve(context.Background(), "token bucket", 5, map[string]string{"topic": "api"})
	require.NoError(t, err)
	for _, match := range matches {
		assert.NotEqual(t, "kb-shard", match.SourceID)
	}
}

func TestService_RetrieveNoMatch(t *testing.T) {
	svc := knowledgeBase()
	matches, err := svc.Retrieve(context.Background(), "zzz qqq xxx", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestService_Add(t *testing.T) {
	svc := New()
	svc.Add(Passage{Content: "event sourcing fundamentals", SourceID: "kb-es"})
	matches, err := svc.Retrieve(context.Background(), "event sourcing", 5, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "kb-es", matches[0].SourceID)
}
