package graph

// Kind classifies graph nodes.
type Kind string

const (
	// KindStage nodes execute a registered stage implementation.
	KindStage Kind = "stage"
	// KindPause nodes suspend the run awaiting an external signal; the
	// engine checkpoints state before returning.
	KindPause Kind = "pause"
	// KindTerminal nodes end the run with a Completed outcome.
	KindTerminal Kind = "terminal"
)

// Node is a named position in the workflow graph.
type Node struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// IsPause reports whether the node suspends the run.
func (n Node) IsPause() bool { return n.Kind == KindPause }

// IsTerminal reports whether the node ends the run.
func (n Node) IsTerminal() bool { return n.Kind == KindTerminal }
