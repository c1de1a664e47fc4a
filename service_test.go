package docforge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/docforge/model/document"
	"github.com/docforge/docforge/runtime/engine"
	"github.com/docforge/docforge/service/checkpoint"
	cmemory "github.com/docforge/docforge/service/checkpoint/memory"
	"github.com/docforge/docforge/service/event"
	rmemory "github.com/docforge/docforge/service/retrieval/memory"
	"github.com/docforge/docforge/service/stage/review"
)

const testBrief = "Design a rate limiting service for the public API gateway"

// revisionHungryReview always demands another revision, exercising the
// force-through path once the budget is spent.
type revisionHungryReview struct{}

func (r *revisionHungryReview) Name() string { return review.Name }

func (r *revisionHungryReview) Execute(_ context.Context, state *document.State) error {
	state.Review = &document.ReviewFeedback{
		Score:            0.3,
		PassesValidation: true,
		NeedsRevision:    true,
		Issues: []document.Issue{{
			Category:    "completeness",
			Severity:    document.SeverityMedium,
			Description: "needs more operational detail",
		}},
	}
	state.Status = document.StatusReview
	return nil
}

// reviseOnceReview demands one revision pass, then reviews cleanly.
type reviseOnceReview struct{ calls int }

func (r *reviseOnceReview) Name() string { return review.Name }

func (r *reviseOnceReview) Execute(_ context.Context, state *document.State) error {
	r.calls++
	state.Review = &document.ReviewFeedback{
		Score:            0.9,
		PassesValidation: true,
	}
	if r.calls == 1 {
		state.Review.Score = 0.5
		state.Review.NeedsRevision = true
		state.Review.Issues = []document.Issue{{
			Category:    "completeness",
			Severity:    document.SeverityMedium,
			Description: "expand the data flow section",
		}}
	}
	state.Status = document.StatusReview
	return nil
}

// flakyReview fails its first invocation, then reviews cleanly.
type flakyReview struct{ calls int }

func (f *flakyReview) Name() string { return review.Name }

func (f *flakyReview) Execute(_ context.Context, state *document.State) error {
	f.calls++
	if f.calls == 1 {
		return errors.New("review backend unavailable")
	}
	state.Review = &document.ReviewFeedback{Score: 0.9, PassesValidation: true}
	state.Status = document.StatusReview
	return nil
}

// blockingReview parks until the run context ends, for cancellation tests.
type blockingReview struct{}

func (b *blockingReview) Name() string { return review.Name }

func (b *blockingReview) Execute(ctx context.Context, _ *document.State) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestService_New_InvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.ReviewThreshold = 2
	_, err := New(WithConfig(config))
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestService_StartApproveComplete(t *testing.T) {
	srv, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	run, err := srv.Start(ctx, testBrief)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomePaused, run.Outcome)
	assert.Equal(t, NodeHumanReview, run.State.CurrentNode)
	assert.Zero(t, run.State.RevisionCount, "clean review needs no revision")

	pending, err := srv.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, run.ID, pending[0].RunID)
	assert.NotEmpty(t, pending[0].Summary)

	run, err = srv.Resume(ctx, run.ID, true, "looks good")
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeCompleted, run.Outcome)
	assert.Equal(t, document.StatusFinal, run.State.Status)
	assert.NotEmpty(t, run.State.FinalDocument)
	assert.Equal(t, "looks good", run.State.ApprovalComment)

	stored, ok := srv.Run(run.ID)
	require.True(t, ok)
	assert.Equal(t, engine.OutcomeCompleted, stored.Outcome)
}

func TestService_StartRejectsShortBrief(t *testing.T) {
	srv, err := New()
	require.NoError(t, err)
	_, err = srv.Start(context.Background(), "short")
	assert.Error(t, err)
}

func TestService_RevisionLoopForceThrough(t *testing.T) {
	config := DefaultConfig()
	config.MaxRevisions = 2
	srv, err := New(WithConfig(config), WithStage(&revisionHungryReview{}))
	require.NoError(t, err)
	ctx := context.Background()

	run, err := srv.Start(ctx, testBrief)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomePaused, run.Outcome, "exhausted budget forces the run through to approval")
	assert.Equal(t, 2, run.State.RevisionCount)
	assert.Contains(t, run.State.FinalDocument, "Outstanding Review Findings")
	entries := srv.History().ForRun(run.ID)
	require.NotEmpty(t, entries, "revision passes leave diffs behind")
	assert.Equal(t, run.ID, entries[0].RunID)
}

func TestService_HistoryAttributesEntriesPerRun(t *testing.T) {
	config := DefaultConfig()
	config.MaxRevisions = 1
	srv, err := New(WithConfig(config), WithStage(&revisionHungryReview{}))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := srv.Start(ctx, testBrief)
	require.NoError(t, err)
	second, err := srv.Start(ctx, testBrief+", second tenant")
	require.NoError(t, err)

	firstEntries := srv.History().ForRun(first.ID)
	secondEntries := srv.History().ForRun(second.ID)
	require.NotEmpty(t, firstEntries)
	require.NotEmpty(t, secondEntries)
	for _, entry := range firstEntries {
		assert.Equal(t, first.ID, entry.RunID)
	}
	assert.Equal(t, srv.History().Len(), len(firstEntries)+len(secondEntries),
		"every entry is attributed to one of the two runs")
}

func TestService_SingleRevisionThenApprove(t *testing.T) {
	reviewer := &reviseOnceReview{}
	srv, err := New(WithStage(reviewer))
	require.NoError(t, err)
	ctx := context.Background()

	run, err := srv.Start(ctx, testBrief)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomePaused, run.Outcome)
	assert.Equal(t, 1, run.State.RevisionCount, "exactly one automated revision cycle before the pause")
	assert.Equal(t, 2, reviewer.calls, "second review pass accepts the revised drafts")

	run, err = srv.Resume(ctx, run.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeCompleted, run.Outcome)
	assert.Equal(t, 1, run.State.RevisionCount)
	assert.Equal(t, document.StatusFinal, run.State.Status)
}

func TestService_ResumeFailedRunMustStillPause(t *testing.T) {
	srv, err := New(WithStage(&flakyReview{}))
	require.NoError(t, err)
	ctx := context.Background()

	run, err := srv.Start(ctx, testBrief)
	require.Error(t, err)
	require.Equal(t, engine.OutcomeFailed, run.Outcome)

	run, err = srv.Resume(ctx, run.ID, true, "retry please")
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomePaused, run.Outcome, "the approval gate is reached, never skipped")
	assert.Nil(t, run.State.Approved, "a verdict given before the pause is discarded")

	run, err = srv.Resume(ctx, run.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeCompleted, run.Outcome)
}

func TestService_RejectionLoopsBackAndPausesAgain(t *testing.T) {
	srv, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	run, err := srv.Start(ctx, testBrief)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomePaused, run.Outcome)

	run, err = srv.Resume(ctx, run.ID, false, "tighten the data model")
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomePaused, run.Outcome, "rejection regenerates and pauses for a fresh verdict")
	assert.Zero(t, run.State.RevisionCount, "human rejection does not spend the automated budget")

	pending, err := srv.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1, "second pause files a fresh approval request")

	run, err = srv.Resume(ctx, run.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeCompleted, run.Outcome)
}

func TestService_ResumeErrors(t *testing.T) {
	srv, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = srv.Resume(ctx, "unknown-run", true, "")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	run, err := srv.Start(ctx, testBrief)
	require.NoError(t, err)
	run, err = srv.Resume(ctx, run.ID, true, "")
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeCompleted, run.Outcome)

	_, err = srv.Resume(ctx, run.ID, true, "")
	assert.ErrorContains(t, err, "already finished")
}

func TestService_RetrieverFeedsGeneration(t *testing.T) {
	kb := rmemory.New(rmemory.Passage{
		Content:  "Rate limiting with token buckets for public API gateways",
		SourceID: "kb-rate",
	})
	srv, err := New(WithRetriever(kb))
	require.NoError(t, err)

	run, err := srv.Start(context.Background(), testBrief)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomePaused, run.Outcome)
	assert.Contains(t, run.State.ContextSources, "kb-rate")
	assert.Contains(t, run.State.FinalDocument, "kb-rate")
}

func TestService_EventsPublished(t *testing.T) {
	srv, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	run, err := srv.Start(ctx, testBrief)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomePaused, run.Outcome)

	topics := map[string]bool{}
	consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	for srv.Events().Size() > 0 {
		msg, consumeErr := srv.Events().Consume(consumeCtx)
		require.NoError(t, consumeErr)
		topics[msg.T().Topic] = true
		require.NoError(t, msg.Ack())
	}

	for _, topic := range []string{
		event.TopicRunStarted,
		event.TopicStageStarted,
		event.TopicStageCompleted,
		event.TopicRouteDecided,
		event.TopicRunPaused,
	} {
		assert.True(t, topics[topic], "expected %s event", topic)
	}
}

func TestService_Cancel(t *testing.T) {
	srv, err := New(WithStage(&blockingReview{}))
	require.NoError(t, err)
	ctx := context.Background()

	done := make(chan *Run, 1)
	go func() {
		run, _ := srv.Start(ctx, testBrief)
		done <- run
	}()

	// The run id becomes known via the started event; the cancel handle is
	// registered shortly after, so poll briefly.
	msg, err := srv.Events().Consume(ctx)
	require.NoError(t, err)
	require.Equal(t, event.TopicRunStarted, msg.T().Topic)
	runID := msg.T().RunID
	require.NoError(t, msg.Ack())

	require.Eventually(t, func() bool {
		return srv.Cancel(ctx, runID) == nil
	}, time.Second, 5*time.Millisecond)

	select {
	case run := <-done:
		require.NotNil(t, run)
		assert.Equal(t, engine.OutcomeCancelled, run.Outcome)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}

	assert.Error(t, srv.Cancel(ctx, runID), "cancelled run cannot be cancelled again")
}

func TestService_CancelPausedRun(t *testing.T) {
	srv, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	run, err := srv.Start(ctx, testBrief)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomePaused, run.Outcome)

	require.NoError(t, srv.Cancel(ctx, run.ID))
	stored, ok := srv.Run(run.ID)
	require.True(t, ok)
	assert.Equal(t, engine.OutcomeCancelled, stored.Outcome)

	_, err = srv.Resume(ctx, run.ID, true, "")
	assert.ErrorContains(t, err, "already finished", "cancelled runs are not resumable")
}

func TestService_CancelledRunNotResumableAfterRestart(t *testing.T) {
	store := cmemory.New()
	srv, err := New(WithCheckpointStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	run, err := srv.Start(ctx, testBrief)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomePaused, run.Outcome)
	require.NoError(t, srv.Cancel(ctx, run.ID))

	// A fresh service over the same store has no registry record; the
	// checkpoint alone must be enough to refuse the run.
	restarted, err := New(WithCheckpointStore(store))
	require.NoError(t, err)
	_, err = restarted.Resume(ctx, run.ID, true, "")
	assert.ErrorContains(t, err, "cancelled")

	state, err := store.Load(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, state.Cancelled, "checkpoint record carries the cancellation")
}

func TestService_ConcurrentRuns(t *testing.T) {
	srv, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	const workers = 5
	var wg sync.WaitGroup
	runs := make([]*Run, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			runs[i], errs[i] = srv.Start(ctx, fmt.Sprintf("%s, variant %d", testBrief, i))
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, engine.OutcomePaused, runs[i].Outcome)
		assert.False(t, seen[runs[i].ID], "run ids are unique")
		seen[runs[i].ID] = true
	}

	pending, err := srv.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, workers)

	for i := 0; i < workers; i++ {
		run, resumeErr := srv.Resume(ctx, runs[i].ID, true, "")
		require.NoError(t, resumeErr)
		assert.Equal(t, engine.OutcomeCompleted, run.Outcome)
		assert.Contains(t, run.State.FinalDocument, fmt.Sprintf("variant %d", i), "runs never share state")
	}
}

func TestService_StageOverrideRejectsDuplicates(t *testing.T) {
	_, err := New(WithStage(&revisionHungryReview{}), WithStage(&revisionHungryReview{}))
	require.Error(t, err)
	assert.ErrorContains(t, err, "already registered")
}

func TestService_FailureKeepsRunInspectable(t *testing.T) {
	srv, err := New(WithStage(&failingReview{}))
	require.NoError(t, err)
	ctx := context.Background()

	run, err := srv.Start(ctx, testBrief)
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, engine.OutcomeFailed, run.Outcome)
	assert.Equal(t, review.Name, run.State.CurrentNode, "failed node stays current")
	assert.NotEmpty(t, run.Error)

	stored, ok := srv.Run(run.ID)
	require.True(t, ok)
	assert.Contains(t, stored.Error, "review backend", "stage error is recorded, never swallowed")
}

type failingReview struct{}

func (f *failingReview) Name() string { return review.Name }

func (f *failingReview) Execute(context.Context, *document.State) error {
	return errors.New("review backend rejected the request")
}
