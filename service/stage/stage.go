// Package stage defines the capability boundary between the workflow engine
// and the units of generation work. The engine invokes stages through the
// Service interface only; whatever a stage does internally (retrieval,
// validation, rendering) is invisible to the engine.
package stage

import (
	"context"

	"github.com/docforge/docforge/model/document"
)

// Service is one pluggable unit of work in the workflow graph. Execute
// mutates the supplied state; the caller owns commit/rollback semantics, so
// implementations may mutate freely and simply return an error on failure.
type Service interface {
	Name() string
	Execute(ctx context.Context, state *document.State) error
}
