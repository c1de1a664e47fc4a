// Package executor wraps every stage invocation with the run's retry policy:
// a per-stage timeout, bounded exponential backoff for transient failures and
// immediate escalation of fatal ones. Stages execute against a clone of the
// run state; the clone replaces the live state only on success, so a failed
// or timed-out attempt never commits partial mutations.
package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/docforge/docforge/model/document"
	"github.com/docforge/docforge/model/types"
	"github.com/docforge/docforge/service/stage"
)

// Config is the retry policy applied around stage invocations.
type Config struct {
	// MaxAttempts bounds invocations per node visit, first try included.
	MaxAttempts int `json:"maxAttempts" yaml:"maxAttempts"`

	BaseDelay  time.Duration `json:"baseDelay" yaml:"baseDelay"`
	MaxDelay   time.Duration `json:"maxDelay" yaml:"maxDelay"`
	Multiplier float64       `json:"multiplier" yaml:"multiplier"`

	// Timeout applies per attempt; zero disables it. StageTimeouts override
	// the default for named nodes.
	Timeout       time.Duration            `json:"timeout" yaml:"timeout"`
	StageTimeouts map[string]time.Duration `json:"stageTimeouts,omitempty" yaml:"stageTimeouts,omitempty"`
}

// DefaultConfig returns the default retry policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
		Timeout:     2 * time.Minute,
	}
}

// Validate rejects unusable retry settings.
func (c *Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("retry.maxAttempts must be > 0")
	}
	if c.BaseDelay < 0 || c.MaxDelay < 0 || c.Timeout < 0 {
		return fmt.Errorf("retry delays and timeout cannot be negative")
	}
	if c.MaxDelay > 0 && c.BaseDelay > c.MaxDelay {
		return fmt.Errorf("retry.baseDelay exceeds retry.maxDelay")
	}
	if c.Multiplier != 0 && c.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be >= 1")
	}
	return nil
}

// Service invokes stages under the configured policy.
type Service struct {
	config Config
}

// New creates an executor; invalid config is reported at construction, never
// at run time.
func New(config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Multiplier == 0 {
		config.Multiplier = DefaultConfig().Multiplier
	}
	return &Service{config: config}, nil
}

// Invoke executes the stage, committing the mutation on success. The
// returned error is the last attempt's error wrapped with attempt context;
// it is never swallowed.
func (s *Service) Invoke(ctx context.Context, node string, svc stage.Service, state *document.State) error {
	var lastErr error
	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		work := state.Clone()
		err := s.attempt(ctx, node, svc, work)
		if err == nil {
			*state = *work
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return fmt.Errorf("stage %s failed: %w", node, err)
		}
		if attempt == s.config.MaxAttempts-1 {
			break
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return err
		}
	}
	return fmt.Errorf("stage %s failed after %d attempts: %w", node, s.config.MaxAttempts, lastErr)
}

func (s *Service) attempt(ctx context.Context, node string, svc stage.Service, state *document.State) error {
	timeout := s.timeoutFor(node)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := svc.Execute(ctx, state)
	// A stage that overran its window usually surfaces the deadline error;
	// normalize the case where it returns ctx.Err() directly.
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return err
}

func (s *Service) timeoutFor(node string) time.Duration {
	if override, ok := s.config.StageTimeouts[node]; ok {
		return override
	}
	return s.config.Timeout
}

// backoff sleeps base*multiplier^attempt capped at MaxDelay; it returns early
// when the run context ends.
func (s *Service) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(float64(s.config.BaseDelay) * math.Pow(s.config.Multiplier, float64(attempt)))
	if s.config.MaxDelay > 0 && delay > s.config.MaxDelay {
		delay = s.config.MaxDelay
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryable classifies the attempt error: stage timeouts and errors marked
// transient are retried, everything else is fatal. A cancelled run context is
// handled before the attempt, so DeadlineExceeded here means stage timeout.
func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return types.IsTransient(err)
}
