package engine

import "github.com/docforge/docforge/model/document"

// Routing labels shared by the built-in gates.
const (
	LabelContinue = "continue"
	LabelRevise   = "revise"
	LabelApproved = "approved"
)

// RouteFunc maps the post-stage state to the label of the edge to follow.
// On a pause node an empty label means the external signal has not arrived
// yet and the engine must suspend. The review route is the only one allowed
// to mutate state, and only the documented revision counter commit.
type RouteFunc func(state *document.State) string

// ReviewRoute implements the revision-bound policy:
//
//  1. no revision needed: continue;
//  2. revision budget exhausted: continue anyway; the document proceeds to
//     formatting with the failing feedback intact;
//  3. otherwise commit one revision cycle and loop back.
//
// It is the sole writer of RevisionCount, so the bound holds whenever it has
// acted.
func ReviewRoute(state *document.State) string {
	if state.Review == nil || !state.Review.NeedsRevision {
		return LabelContinue
	}
	if state.RevisionCount >= state.MaxRevisions {
		return LabelContinue
	}
	state.RevisionCount++
	state.Status = document.StatusDraft
	return LabelRevise
}

// ApprovalRoute consumes the externally supplied human verdict. An absent
// verdict suspends the run; a rejection routes back to regeneration without
// touching RevisionCount: the counter tracks automated review cycles only.
func ApprovalRoute(state *document.State) string {
	if state.Approved == nil {
		return ""
	}
	if *state.Approved {
		return LabelApproved
	}
	return LabelRevise
}
