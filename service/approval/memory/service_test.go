package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/docforge/service/approval"
)

func TestService_RequestDecideCycle(t *testing.T) {
	svc := New()
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, &approval.Request{RunID: "run-1", Node: "human_review", Score: 0.9}))

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "run-1", pending[0].RunID)

	decision, err := svc.Decide(ctx, "run-1", true, "looks good")
	require.NoError(t, err)
	assert.True(t, decision.Approved)
	assert.Equal(t, "looks good", decision.Comment)

	pending, err = svc.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "decided requests leave the pending list")

	stored, err := svc.Decision(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, stored.Approved)
}

func TestService_DecideTwice(t *testing.T) {
	svc := New()
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, &approval.Request{RunID: "run-1"}))

	_, err := svc.Decide(ctx, "run-1", false, "")
	require.NoError(t, err)
	_, err = svc.Decide(ctx, "run-1", true, "")
	assert.ErrorIs(t, err, approval.ErrAlreadyDecided)
}

func TestService_ResubmissionResetsDecision(t *testing.T) {
	svc := New()
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, &approval.Request{RunID: "run-1"}))
	_, err := svc.Decide(ctx, "run-1", false, "needs work")
	require.NoError(t, err)

	// The run loops back after the rejection and pauses again.
	require.NoError(t, svc.Request(ctx, &approval.Request{RunID: "run-1"}))

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "re-submission starts a fresh approval cycle")

	_, err = svc.Decision(ctx, "run-1")
	assert.ErrorIs(t, err, approval.ErrNotFound)

	_, err = svc.Decide(ctx, "run-1", true, "")
	assert.NoError(t, err)
}

func TestService_Errors(t *testing.T) {
	svc := New()
	ctx := context.Background()

	assert.Error(t, svc.Request(ctx, nil))
	assert.Error(t, svc.Request(ctx, &approval.Request{}))

	_, err := svc.Decide(ctx, "missing", true, "")
	assert.ErrorIs(t, err, approval.ErrNotFound)

	_, err = svc.Decision(ctx, "missing")
	assert.ErrorIs(t, err, approval.ErrNotFound)
}

func TestService_PendingOrder(t *testing.T) {
	svc := New()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, svc.Request(ctx, &approval.Request{RunID: "run-b", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, svc.Request(ctx, &approval.Request{RunID: "run-a", CreatedAt: base}))

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "run-a", pending[0].RunID, "oldest first")
}
