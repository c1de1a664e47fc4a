package docforge

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/docforge/docforge/service/approval"
	"github.com/docforge/docforge/service/checkpoint"
	"github.com/docforge/docforge/service/event"
	"github.com/docforge/docforge/service/messaging"
	"github.com/docforge/docforge/service/retrieval"
	"github.com/docforge/docforge/service/stage"
	"github.com/docforge/docforge/service/validation"
	"github.com/docforge/docforge/tracing"
)

// Option configures the Service.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithCheckpointStore sets the checkpoint backend (in-memory by default).
func WithCheckpointStore(store checkpoint.Store) Option {
	return func(s *Service) { s.checkpoints = store }
}

// WithApprovalService sets the approval backend.
func WithApprovalService(svc approval.Service) Option {
	return func(s *Service) { s.approvals = svc }
}

// WithRetriever sets the knowledge-base retrieval collaborator used by
// generation stages.
func WithRetriever(retriever retrieval.Service) Option {
	return func(s *Service) { s.retriever = retriever }
}

// WithValidator sets the document validator used by the review stage.
func WithValidator(validator validation.Validator) Option {
	return func(s *Service) { s.validator = validator }
}

// WithStage overrides the implementation registered for a workflow node;
// primarily an extension and testing seam.
func WithStage(svc stage.Service) Option {
	return func(s *Service) { s.stageOverrides = append(s.stageOverrides, svc) }
}

// WithEventQueue sets the queue lifecycle events are published to.
func WithEventQueue(queue messaging.Queue[event.Event]) Option {
	return func(s *Service) { s.eventQueue = queue }
}

// WithTracing enables OpenTelemetry tracing with the stdout exporter; an
// empty outputFile means os.Stdout.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) { _ = tracing.Init(serviceName, serviceVersion, outputFile) }
}

// WithTracingExporter enables tracing with a custom span exporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) { _ = tracing.InitWithExporter(serviceName, serviceVersion, exporter) }
}
