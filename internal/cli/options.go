// internal/cli/options.go
package cli

import (
	"errors"
	"fmt"
	"time"
)

// Defaults match the upstream pipeline configuration.
const (
	DefaultContextWindow = 1 << 20 // 1 Mb of sequence context per batch
	DefaultBatchWindow   = 10
	DefaultOutput        = "data/synthator"
	DefaultTimeout       = 5 * time.Minute
)

// Options holds all CLI flags.
type Options struct {
	VariantIndexPath string
	APIKey           string
	ServerURL        string
	Output           string

	ContextWindow int64
	BatchWindow   int
	Timeout       time.Duration

	TestMode bool
	Resume   bool
	Quiet    bool
	Version  bool
}

// Defaults returns an Options with default values applied.
func Defaults() Options {
	return Options{
		Output:        DefaultOutput,
		ContextWindow: DefaultContextWindow,
		BatchWindow:   DefaultBatchWindow,
		Timeout:       DefaultTimeout,
	}
}

// Validate checks flag consistency before any work starts.
func (o Options) Validate() error {
	if o.VariantIndexPath == "" {
		return errors.New("--variant-index is required")
	}
	if o.ServerURL == "" {
		return errors.New("--server is required")
	}
	if o.APIKey == "" {
		return errors.New("--api-key is required (or set SYNTHATOR_API_KEY)")
	}
	if o.ContextWindow <= 0 {
		return fmt.Errorf("--context-window must be > 0, got %d", o.ContextWindow)
	}
	if o.BatchWindow <= 0 {
		return fmt.Errorf("--batch-window must be > 0, got %d", o.BatchWindow)
	}
	if o.Output == "" {
		return errors.New("--output must not be empty")
	}
	if o.Timeout < 0 {
		return errors.New("--timeout must be >= 0")
	}
	return nil
}
