// Package graph holds the workflow edge table: named nodes, unconditional
// edges and conditional (routed) edges. A Graph is assembled once at
// orchestrator construction and validated before any run starts; the engine
// treats it as immutable afterwards.
package graph

import (
	"fmt"
	"sort"
)

// Graph is the workflow edge table. It is not safe for concurrent
// mutation; build it fully, call Validate, then share it read-only.
type Graph struct {
	nodes        map[string]Node
	edges        map[string]string
	conditionals map[string]Conditional
	entry        string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:        map[string]Node{},
		edges:        map[string]string{},
		conditionals: map[string]Conditional{},
	}
}

// AddNode registers a node; duplicate names are rejected.
func (g *Graph) AddNode(name string, kind Kind) error {
	if name == "" {
		return fmt.Errorf("node name cannot be empty")
	}
	switch kind {
	case KindStage, KindPause, KindTerminal:
	default:
		return fmt.Errorf("node %q has unknown kind %q", name, kind)
	}
	if _, ok := g.nodes[name]; ok {
		return fmt.Errorf("node %q already exists", name)
	}
	g.nodes[name] = Node{Name: name, Kind: kind}
	return nil
}

// AddEdge creates an unconditional transition. A node has at most one
// outgoing unconditional edge and cannot carry both an edge and a
// conditional.
func (g *Graph) AddEdge(from, to string) error {
	if err := g.checkEndpoint(from); err != nil {
		return err
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("edge %s -> %s references unknown node %q", from, to, to)
	}
	g.edges[from] = to
	return nil
}

// AddConditional creates a routed transition from a gate node. Every label
// target must be a registered node.
func (g *Graph) AddConditional(from string, targets map[string]string) error {
	if err := g.checkEndpoint(from); err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("conditional from %q has no targets", from)
	}
	copied := make(map[string]string, len(targets))
	for label, to := range targets {
		if label == "" {
			return fmt.Errorf("conditional from %q has an empty label", from)
		}
		if _, ok := g.nodes[to]; !ok {
			return fmt.Errorf("conditional %s[%s] -> %s references unknown node %q", from, label, to, to)
		}
		copied[label] = to
	}
	g.conditionals[from] = Conditional{From: from, Targets: copied}
	return nil
}

func (g *Graph) checkEndpoint(from string) error {
	node, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("unknown node %q", from)
	}
	if node.IsTerminal() {
		return fmt.Errorf("terminal node %q cannot have outgoing transitions", from)
	}
	if _, ok := g.edges[from]; ok {
		return fmt.Errorf("node %q already has an outgoing edge", from)
	}
	if _, ok := g.conditionals[from]; ok {
		return fmt.Errorf("node %q already has a conditional", from)
	}
	return nil
}

// SetEntry defines the starting node; it may be set only once.
func (g *Graph) SetEntry(name string) error {
	if g.entry != "" {
		return fmt.Errorf("entry already set to %q", g.entry)
	}
	if _, ok := g.nodes[name]; !ok {
		return fmt.Errorf("entry references unknown node %q", name)
	}
	g.entry = name
	return nil
}

// Entry returns the starting node name.
func (g *Graph) Entry() string { return g.entry }

// Node returns the node definition and whether it exists.
func (g *Graph) Node(name string) (Node, bool) {
	node, ok := g.nodes[name]
	return node, ok
}

// Next returns the unconditional successor of a node.
func (g *Graph) Next(from string) (string, bool) {
	to, ok := g.edges[from]
	return to, ok
}

// ConditionalFor returns the conditional attached to a gate node.
func (g *Graph) ConditionalFor(from string) (Conditional, bool) {
	cond, ok := g.conditionals[from]
	return cond, ok
}

// Nodes returns all node definitions, sorted by name.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Gates returns the names of all nodes with a conditional, sorted.
func (g *Graph) Gates() []string {
	out := make([]string, 0, len(g.conditionals))
	for name := range g.conditionals {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate rejects malformed graphs before any run starts: missing entry,
// non-terminal nodes with no way forward, or a terminal node that cannot be
// reached at all.
func (g *Graph) Validate() error {
	if len(g.nodes) == 0 {
		return fmt.Errorf("graph has no nodes")
	}
	if g.entry == "" {
		return fmt.Errorf("graph entry not set")
	}
	var hasTerminal bool
	for name, node := range g.nodes {
		if node.IsTerminal() {
			hasTerminal = true
			continue
		}
		_, hasEdge := g.edges[name]
		_, hasCond := g.conditionals[name]
		if node.IsPause() {
			// A pause node resumes through its conditional.
			if !hasCond {
				return fmt.Errorf("pause node %q has no conditional", name)
			}
			continue
		}
		if !hasEdge && !hasCond {
			return fmt.Errorf("node %q has no outgoing transition", name)
		}
	}
	if !hasTerminal {
		return fmt.Errorf("graph has no terminal node")
	}
	return nil
}
