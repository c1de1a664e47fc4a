package docforge

import (
	"fmt"
	"sync"

	"github.com/docforge/docforge/model/graph"
	"github.com/docforge/docforge/runtime/engine"
	"github.com/docforge/docforge/runtime/executor"
	"github.com/docforge/docforge/service/approval"
	amemory "github.com/docforge/docforge/service/approval/memory"
	"github.com/docforge/docforge/service/checkpoint"
	cmemory "github.com/docforge/docforge/service/checkpoint/memory"
	"github.com/docforge/docforge/service/event"
	"github.com/docforge/docforge/service/messaging"
	qmemory "github.com/docforge/docforge/service/messaging/memory"
	"github.com/docforge/docforge/service/retrieval"
	"github.com/docforge/docforge/service/revision"
	"github.com/docforge/docforge/service/stage"
	"github.com/docforge/docforge/service/stage/architect"
	"github.com/docforge/docforge/service/stage/datadesign"
	"github.com/docforge/docforge/service/stage/format"
	"github.com/docforge/docforge/service/stage/review"
	"github.com/docforge/docforge/service/validation"
)

// Workflow node names beyond the stage-owned ones.
const (
	NodeHumanReview = "human_review"
	NodeDone        = "done"
)

// Service is the orchestrator: it wires the concrete stage set and edge
// table, owns the run registry and exposes start/resume/cancel.
type Service struct {
	config      *Config
	registry    *stage.Registry
	graph       *graph.Graph
	engine      *engine.Service
	checkpoints checkpoint.Store
	approvals   approval.Service
	retriever   retrieval.Service
	validator   validation.Validator
	history     *revision.History
	eventQueue  messaging.Queue[event.Event]
	events      *event.Publisher

	stageOverrides []stage.Service

	mux     sync.RWMutex
	runs    map[string]*Run
	cancels map[string]func()
	active  map[string]bool
}

// New builds a fully wired orchestrator. Configuration and graph wiring
// problems are rejected here, before any run can start.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:  DefaultConfig(),
		runs:    map[string]*Run{},
		cancels: map[string]func(){},
		active:  map[string]bool{},
		history: revision.NewHistory(),
	}
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	if s.checkpoints == nil {
		s.checkpoints = cmemory.New()
	}
	if s.approvals == nil {
		s.approvals = amemory.New()
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	if s.eventQueue == nil {
		// A run emits a dozen events per pass; size the default buffer so
		// unconsumed events never stall the engine loop.
		config := qmemory.DefaultConfig()
		config.Buffer = 1024
		s.eventQueue = qmemory.NewQueue[event.Event](config)
	}
	s.events = event.NewPublisher(s.eventQueue)

	if err := s.registerStages(); err != nil {
		return err
	}
	if err := s.buildGraph(); err != nil {
		return err
	}

	invoker, err := executor.New(s.config.Retry)
	if err != nil {
		return err
	}
	routes := map[string]engine.RouteFunc{
		review.Name:     engine.ReviewRoute,
		NodeHumanReview: engine.ApprovalRoute,
	}
	s.engine, err = engine.New(s.graph, s.registry, routes, invoker, s.checkpoints, engine.WithEvents(s.events))
	if err != nil {
		return err
	}
	return nil
}

// registerStages binds the default stage set, letting overrides win.
func (s *Service) registerStages() error {
	s.registry = stage.NewRegistry()

	overridden := map[string]bool{}
	for _, svc := range s.stageOverrides {
		if err := s.registry.Register(svc); err != nil {
			return err
		}
		overridden[svc.Name()] = true
	}

	defaults := []stage.Service{
		architect.New(s.retriever,
			architect.WithHistory(s.history),
			architect.WithTopK(s.config.TopK)),
		datadesign.New(datadesign.WithHistory(s.history)),
		review.New(s.validator, review.WithThreshold(s.config.ReviewThreshold)),
		format.New(),
	}
	for _, svc := range defaults {
		if overridden[svc.Name()] {
			continue
		}
		if err := s.registry.Register(svc); err != nil {
			return err
		}
	}
	return nil
}

// buildGraph assembles the fixed document workflow:
//
//	draft_hld -> draft_lld -> review_doc -(revise)-> draft_hld
//	                          review_doc -(continue)-> format_doc
//	format_doc -> human_review -(approved)-> done
//	              human_review -(revise)-> draft_hld
func (s *Service) buildGraph() error {
	g := graph.New()
	steps := []struct {
		name string
		kind graph.Kind
	}{
		{architect.Name, graph.KindStage},
		{datadesign.Name, graph.KindStage},
		{review.Name, graph.KindStage},
		{format.Name, graph.KindStage},
		{NodeHumanReview, graph.KindPause},
		{NodeDone, graph.KindTerminal},
	}
	for _, step := range steps {
		if err := g.AddNode(step.name, step.kind); err != nil {
			return err
		}
	}
	if err := g.AddEdge(architect.Name, datadesign.Name); err != nil {
		return err
	}
	if err := g.AddEdge(datadesign.Name, review.Name); err != nil {
		return err
	}
	if err := g.AddConditional(review.Name, map[string]string{
		engine.LabelRevise:   architect.Name,
		engine.LabelContinue: format.Name,
	}); err != nil {
		return err
	}
	if err := g.AddEdge(format.Name, NodeHumanReview); err != nil {
		return err
	}
	if err := g.AddConditional(NodeHumanReview, map[string]string{
		engine.LabelApproved: NodeDone,
		engine.LabelRevise:   architect.Name,
	}); err != nil {
		return err
	}
	if err := g.SetEntry(architect.Name); err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}
	s.graph = g
	return nil
}

// Events exposes the lifecycle event queue for listeners.
func (s *Service) Events() messaging.Queue[event.Event] { return s.eventQueue }

// History exposes the recorded draft revision diffs.
func (s *Service) History() *revision.History { return s.history }

// Approvals exposes the approval service, e.g. to list pending requests.
func (s *Service) Approvals() approval.Service { return s.approvals }
