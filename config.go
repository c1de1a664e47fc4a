package docforge

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/docforge/docforge/runtime/executor"
)

// Config is the serialisable engine configuration. The zero value is not
// usable directly; start from DefaultConfig and override.
type Config struct {
	// MaxRevisions bounds the automated revision loop per run.
	MaxRevisions int `json:"maxRevisions" yaml:"maxRevisions"`

	// ReviewThreshold is the minimum review score that avoids a revision
	// cycle.
	ReviewThreshold float64 `json:"reviewThreshold" yaml:"reviewThreshold"`

	// TopK is how many context passages generation stages retrieve.
	TopK int `json:"topK" yaml:"topK"`

	// Retry is the policy applied around every stage invocation.
	Retry executor.Config `json:"retry" yaml:"retry"`
}

// DefaultConfig mirrors the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRevisions:    3,
		ReviewThreshold: 0.7,
		TopK:            5,
		Retry:           executor.DefaultConfig(),
	}
}

// Validate returns an error describing invalid settings, checked before any
// run starts.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.MaxRevisions < 0 {
		return fmt.Errorf("maxRevisions cannot be negative: %d", c.MaxRevisions)
	}
	if c.ReviewThreshold < 0 || c.ReviewThreshold > 1 {
		return fmt.Errorf("reviewThreshold must be within [0,1]: %v", c.ReviewThreshold)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("topK must be positive: %d", c.TopK)
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads a YAML config from any afs-supported location and applies
// it over the defaults.
func LoadConfig(ctx context.Context, location string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", location, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", location, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
