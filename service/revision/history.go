// Package revision records how drafts evolve across revision cycles. Each
// time a generation stage overwrites a non-empty draft, a unified diff of the
// change is kept so that a finished run can explain what each cycle altered.
package revision

import (
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/docforge/docforge/internal/clock"
)

// Entry is one recorded draft change.
type Entry struct {
	RunID     string    `json:"runId"`
	Pass      int       `json:"pass"`
	Artifact  string    `json:"artifact"`
	Diff      string    `json:"diff"`
	CreatedAt time.Time `json:"createdAt"`
}

// History accumulates draft diffs across runs, attributed by run id. Safe
// for concurrent use; a single run writes from one goroutine only.
type History struct {
	mux     sync.RWMutex
	entries []Entry
}

// NewHistory returns an empty history.
func NewHistory() *History { return &History{} }

// Record captures the difference between the previous and the new version of
// an artifact. Identical content and first-time writes (empty before) are
// skipped.
func (h *History) Record(runID string, pass int, artifact, before, after string) error {
	if before == "" || before == after {
		return nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: artifact + " (previous)",
		ToFile:   artifact + " (revised)",
		Context:  2,
	})
	if err != nil {
		return err
	}
	h.mux.Lock()
	defer h.mux.Unlock()
	h.entries = append(h.entries, Entry{
		RunID:     runID,
		Pass:      pass,
		Artifact:  artifact,
		Diff:      diff,
		CreatedAt: clock.Now(),
	})
	return nil
}

// Entries returns a copy of all recorded changes in order.
func (h *History) Entries() []Entry {
	h.mux.RLock()
	defer h.mux.RUnlock()
	return append([]Entry(nil), h.entries...)
}

// ForRun returns the recorded changes belonging to one run, in order.
func (h *History) ForRun(runID string) []Entry {
	h.mux.RLock()
	defer h.mux.RUnlock()
	var out []Entry
	for _, entry := range h.entries {
		if entry.RunID == runID {
			out = append(out, entry)
		}
	}
	return out
}

// Len returns the number of recorded changes.
func (h *History) Len() int {
	h.mux.RLock()
	defer h.mux.RUnlock()
	return len(h.entries)
}
