package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/docforge/model/document"
)

func reviewedState(t *testing.T, needsRevision bool) *document.State {
	state, err := document.New("Design a URL shortening service", 3)
	require.NoError(t, err)
	state.Review = &document.ReviewFeedback{Score: 0.5, NeedsRevision: needsRevision}
	state.Status = document.StatusReview
	return state
}

func TestReviewRoute(t *testing.T) {
	t.Run("no revision needed", func(t *testing.T) {
		state := reviewedState(t, false)
		assert.Equal(t, LabelContinue, ReviewRoute(state))
		assert.Zero(t, state.RevisionCount)
	})

	t.Run("missing review continues", func(t *testing.T) {
		state := reviewedState(t, false)
		state.Review = nil
		assert.Equal(t, LabelContinue, ReviewRoute(state))
	})

	t.Run("revision requested under the bound", func(t *testing.T) {
		state := reviewedState(t, true)
		assert.Equal(t, LabelRevise, ReviewRoute(state))
		assert.Equal(t, 1, state.RevisionCount)
		assert.Equal(t, document.StatusDraft, state.Status)
	})

	t.Run("budget exhausted forces continuation", func(t *testing.T) {
		state := reviewedState(t, true)
		state.RevisionCount = state.MaxRevisions
		assert.Equal(t, LabelContinue, ReviewRoute(state))
		assert.Equal(t, state.MaxRevisions, state.RevisionCount, "counter never exceeds the bound")
	})

	t.Run("zero budget never revises", func(t *testing.T) {
		state := reviewedState(t, true)
		state.MaxRevisions = 0
		assert.Equal(t, LabelContinue, ReviewRoute(state))
		assert.Zero(t, state.RevisionCount)
	})

	t.Run("same input yields same label", func(t *testing.T) {
		state := reviewedState(t, true)
		state.RevisionCount = 1
		first := ReviewRoute(state.Clone())
		second := ReviewRoute(state.Clone())
		assert.Equal(t, first, second, "no hidden inputs beyond the state")
	})

	t.Run("bound holds across repeated routing", func(t *testing.T) {
		state := reviewedState(t, true)
		for i := 0; i < 10; i++ {
			ReviewRoute(state)
		}
		assert.Equal(t, state.MaxRevisions, state.RevisionCount)
	})
}

func TestApprovalRoute(t *testing.T) {
	t.Run("no verdict suspends", func(t *testing.T) {
		state := reviewedState(t, false)
		assert.Equal(t, "", ApprovalRoute(state))
	})

	t.Run("approved", func(t *testing.T) {
		state := reviewedState(t, false)
		approved := true
		state.Approved = &approved
		assert.Equal(t, LabelApproved, ApprovalRoute(state))
	})

	t.Run("rejected loops back without spending the revision budget", func(t *testing.T) {
		state := reviewedState(t, false)
		state.RevisionCount = 2
		approved := false
		state.Approved = &approved
		assert.Equal(t, LabelRevise, ApprovalRoute(state))
		assert.Equal(t, 2, state.RevisionCount)
	})
}
