package graph

// Edge is an unconditional transition between two nodes.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Conditional is a routed transition: after From completes, a route function
// picks one of the labels and the engine follows Targets[label].
type Conditional struct {
	From    string            `json:"from"`
	Targets map[string]string `json:"targets"`
}
