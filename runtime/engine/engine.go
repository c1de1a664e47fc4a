// Package engine drives a workflow run through the graph: it executes stage
// nodes under the retry policy, consults routes after gate nodes, suspends at
// pause nodes and checkpoints state at every suspension point. One engine
// instance is shared by concurrent runs; all mutable state lives in the run's
// own State object.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/docforge/docforge/model/document"
	"github.com/docforge/docforge/model/graph"
	"github.com/docforge/docforge/runtime/executor"
	"github.com/docforge/docforge/service/checkpoint"
	"github.com/docforge/docforge/service/event"
	"github.com/docforge/docforge/service/stage"
	"github.com/docforge/docforge/tracing"
)

// Service executes workflow runs over an immutable graph.
type Service struct {
	graph       *graph.Graph
	stages      map[string]stage.Service
	routes      map[string]RouteFunc
	invoker     *executor.Service
	checkpoints checkpoint.Store
	events      *event.Publisher
}

// Option customises the engine.
type Option func(*Service)

// WithEvents attaches a lifecycle event publisher.
func WithEvents(publisher *event.Publisher) Option {
	return func(s *Service) { s.events = publisher }
}

// New builds an engine and validates the whole wiring up front: the graph
// structure, a stage implementation for every stage node and a route for
// every conditional. Nothing is reported lazily at run time.
func New(g *graph.Graph, registry *stage.Registry, routes map[string]RouteFunc, invoker *executor.Service, store checkpoint.Store, options ...Option) (*Service, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if invoker == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	stages := map[string]stage.Service{}
	for _, node := range g.Nodes() {
		if node.Kind != graph.KindStage {
			continue
		}
		svc, err := registry.Lookup(node.Name)
		if err != nil {
			return nil, fmt.Errorf("node %q has no stage implementation: %w", node.Name, err)
		}
		stages[node.Name] = svc
	}
	for _, gate := range g.Gates() {
		if routes[gate] == nil {
			return nil, fmt.Errorf("gate %q has no route function", gate)
		}
	}

	ret := &Service{
		graph:       g,
		stages:      stages,
		routes:      routes,
		invoker:     invoker,
		checkpoints: store,
	}
	for _, option := range options {
		option(ret)
	}
	return ret, nil
}

// Run drives the state through the graph until a terminal node, a pause, a
// failure or a cancellation. The state is mutated in place; on a failed
// outcome CurrentNode is unchanged from before the failing invocation, so
// re-invoking Run retries the same node.
func (s *Service) Run(ctx context.Context, runID string, state *document.State) (Outcome, error) {
	if state == nil {
		return OutcomeFailed, fmt.Errorf("state is required")
	}
	if state.CurrentNode == "" {
		state.CurrentNode = s.graph.Entry()
	}

	for {
		// Cancellation is cooperative: honored only at node boundaries.
		if ctx.Err() != nil {
			return s.cancelled(ctx, runID, state)
		}

		node, ok := s.graph.Node(state.CurrentNode)
		if !ok {
			return OutcomeFailed, fmt.Errorf("run %s references unknown node %q", runID, state.CurrentNode)
		}

		switch {
		case node.IsTerminal():
			s.publish(ctx, event.TopicRunCompleted, runID, node.Name, "")
			return OutcomeCompleted, nil

		case node.IsPause():
			label := s.routes[node.Name](state)
			if label == "" {
				// No external signal yet: checkpoint and suspend.
				if err := s.checkpoints.Save(ctx, runID, state); err != nil {
					return OutcomeFailed, fmt.Errorf("failed to checkpoint run %s: %w", runID, err)
				}
				s.publish(ctx, event.TopicRunPaused, runID, node.Name, "")
				return OutcomePaused, nil
			}
			if err := s.follow(ctx, runID, node, label, state); err != nil {
				return OutcomeFailed, err
			}

		default:
			if err := s.executeStage(ctx, runID, node.Name, state); err != nil {
				// A dead run context means the run was cancelled or hit its
				// deadline mid-stage; a stage-level timeout with a live run
				// context stays a failure.
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return s.cancelled(ctx, runID, state)
				}
				// Keep the failing run inspectable and resumable; the
				// checkpoint write is best-effort on this path.
				_ = s.checkpoints.Save(context.WithoutCancel(ctx), runID, state)
				s.publish(ctx, event.TopicRunFailed, runID, node.Name, err.Error())
				return OutcomeFailed, err
			}
			if err := s.advance(ctx, runID, node, state); err != nil {
				return OutcomeFailed, err
			}
		}
	}
}

func (s *Service) executeStage(ctx context.Context, runID, node string, state *document.State) error {
	s.publish(ctx, event.TopicStageStarted, runID, node, "")
	spanCtx, span := tracing.StartSpan(ctx, "stage.execute "+node, "INTERNAL")
	span.WithAttributes(map[string]string{"run.id": runID, "node": node})
	err := s.invoker.Invoke(spanCtx, node, s.stages[node], state)
	tracing.EndSpan(span, err)
	if err != nil {
		return err
	}
	s.publish(ctx, event.TopicStageCompleted, runID, node, "")
	return nil
}

// advance moves CurrentNode along the node's outgoing transition.
func (s *Service) advance(ctx context.Context, runID string, node graph.Node, state *document.State) error {
	if _, ok := s.graph.ConditionalFor(node.Name); ok {
		label := s.routes[node.Name](state)
		return s.follow(ctx, runID, node, label, state)
	}
	to, ok := s.graph.Next(node.Name)
	if !ok {
		return fmt.Errorf("node %q has no outgoing transition", node.Name)
	}
	state.CurrentNode = to
	state.Touch()
	return nil
}

// follow resolves a routing label against the node's conditional.
func (s *Service) follow(ctx context.Context, runID string, node graph.Node, label string, state *document.State) error {
	cond, ok := s.graph.ConditionalFor(node.Name)
	if !ok {
		return fmt.Errorf("node %q has no conditional", node.Name)
	}
	to, ok := cond.Targets[label]
	if !ok {
		return fmt.Errorf("route for %q returned unknown label %q", node.Name, label)
	}
	e := event.New(event.TopicRouteDecided, runID, node.Name)
	e.Label = label
	s.events.Publish(ctx, e)
	state.CurrentNode = to
	state.Touch()
	return nil
}

func (s *Service) cancelled(ctx context.Context, runID string, state *document.State) (Outcome, error) {
	// Persist the last committed state so a cancelled run stays
	// inspectable; the cancelled flag makes the checkpoint unresumable
	// even on a fresh process. The run context is already done.
	state.Cancelled = true
	saveCtx := context.WithoutCancel(ctx)
	if err := s.checkpoints.Save(saveCtx, runID, state); err != nil {
		return OutcomeCancelled, fmt.Errorf("run cancelled; failed to checkpoint: %w", err)
	}
	s.publish(saveCtx, event.TopicRunCancelled, runID, state.CurrentNode, "")
	return OutcomeCancelled, nil
}

func (s *Service) publish(ctx context.Context, topic, runID, node, errMsg string) {
	e := event.New(topic, runID, node)
	e.Error = errMsg
	s.events.Publish(ctx, e)
}
