// Package policy decides how paused runs obtain their human verdict. It is
// deliberately decoupled from the engine: a nil *Policy means "ask", so
// embedding applications only configure it when they want automated behaviour.
package policy

import "context"

// Decision modes.
const (
	ModeAsk  = "ask"  // delegate to the AskFunc
	ModeAuto = "auto" // approve everything
	ModeDeny = "deny" // reject everything
)

// AskFunc obtains an interactive verdict for a paused run. It receives the
// formatted document and returns the verdict plus an optional comment.
type AskFunc func(ctx context.Context, runID, doc string) (approved bool, comment string, err error)

// Policy resolves approval verdicts for paused runs.
type Policy struct {
	Mode string
	Ask  AskFunc
}

// Valid reports whether the mode is one of the recognised values.
func Valid(mode string) bool {
	switch mode {
	case ModeAsk, ModeAuto, ModeDeny:
		return true
	}
	return false
}

// Decide resolves the verdict per the configured mode. In ask mode without an
// AskFunc the document is rejected, which is the conservative default.
func (p *Policy) Decide(ctx context.Context, runID, doc string) (bool, string, error) {
	mode := ModeAsk
	if p != nil && p.Mode != "" {
		mode = p.Mode
	}
	switch mode {
	case ModeAuto:
		return true, "auto-approved", nil
	case ModeDeny:
		return false, "auto-denied", nil
	}
	if p == nil || p.Ask == nil {
		return false, "no interactive approver configured", nil
	}
	return p.Ask(ctx, runID, doc)
}
