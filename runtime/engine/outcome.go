package engine

// Outcome is the terminal result of an engine run invocation.
type Outcome string

const (
	// OutcomeCompleted means the run reached a terminal node.
	OutcomeCompleted Outcome = "completed"
	// OutcomePaused means the run suspended at a pause node after
	// checkpointing; it is resumable.
	OutcomePaused Outcome = "paused"
	// OutcomeCancelled means a cancellation request was honored at a node
	// boundary; the last committed state was checkpointed for inspection.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeFailed means a stage failed fatally or exhausted its retries;
	// currentNode is left unchanged so the run can be re-entered.
	OutcomeFailed Outcome = "failed"
)

// Terminal reports whether the outcome ends the run for good.
func (o Outcome) Terminal() bool {
	return o == OutcomeCompleted || o == OutcomeCancelled
}
