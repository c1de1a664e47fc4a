// Package progress aggregates lifecycle events into per-run counters, so a
// caller can display how far a run has come without replaying the raw event
// stream.
package progress

import (
	"sync"
	"time"

	"github.com/docforge/docforge/runtime/engine"
	"github.com/docforge/docforge/service/event"
)

// Snapshot is a point-in-time view of one run's progress.
type Snapshot struct {
	RunID           string
	StagesStarted   int
	StagesCompleted int
	Revisions       int
	Pauses          int
	Resumes         int
	LastNode        string
	LastTopic       string
	UpdatedAt       time.Time
	Finished        bool
}

// Tracker keeps per-run counters. Safe for concurrent use; feed it from an
// event.Listener.
type Tracker struct {
	mux  sync.RWMutex
	runs map[string]*Snapshot
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{runs: map[string]*Snapshot{}}
}

// Apply folds one event into the counters.
func (t *Tracker) Apply(e *event.Event) {
	if t == nil || e == nil || e.RunID == "" {
		return
	}
	t.mux.Lock()
	defer t.mux.Unlock()
	snapshot, ok := t.runs[e.RunID]
	if !ok {
		snapshot = &Snapshot{RunID: e.RunID}
		t.runs[e.RunID] = snapshot
	}
	switch e.Topic {
	case event.TopicStageStarted:
		snapshot.StagesStarted++
	case event.TopicStageCompleted:
		snapshot.StagesCompleted++
	case event.TopicRouteDecided:
		if e.Label == engine.LabelRevise {
			snapshot.Revisions++
		}
	case event.TopicRunPaused:
		snapshot.Pauses++
	case event.TopicRunResumed:
		snapshot.Resumes++
	case event.TopicRunCompleted, event.TopicRunCancelled, event.TopicRunFailed:
		snapshot.Finished = true
	}
	snapshot.LastNode = e.Node
	snapshot.LastTopic = e.Topic
	snapshot.UpdatedAt = e.CreatedAt
}

// Run returns a copy of the counters for one run.
func (t *Tracker) Run(runID string) (Snapshot, bool) {
	t.mux.RLock()
	defer t.mux.RUnlock()
	snapshot, ok := t.runs[runID]
	if !ok {
		return Snapshot{}, false
	}
	return *snapshot, true
}

// Runs returns copies of every tracked run.
func (t *Tracker) Runs() []Snapshot {
	t.mux.RLock()
	defer t.mux.RUnlock()
	out := make([]Snapshot, 0, len(t.runs))
	for _, snapshot := range t.runs {
		out = append(out, *snapshot)
	}
	return out
}
