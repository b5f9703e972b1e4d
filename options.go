package ruleengine

import "runtime"

// Option configures the evaluation engine.
type Option func(*Options)

// Options holds all configuration for the evaluation engine.
type Options struct {
	// Memoize enables caching of decisions keyed by snapshot version,
	// day and candidate pair. Safe because evaluation is deterministic
	// over its declared inputs.
	Memoize bool

	// DecisionCacheSize is the capacity of the decision cache.
	DecisionCacheSize int

	// BatchWorkers is the number of workers for batch evaluation.
	BatchWorkers int

	// CollectInfo includes informational (non-warning) issues on results.
	CollectInfo bool
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		Memoize:           false,
		DecisionCacheSize: 2048,
		BatchWorkers:      runtime.NumCPU(),
		CollectInfo:       false,
	}
}

// WithMemoization enables or disables decision memoization.
func WithMemoization(enable bool) Option {
	return func(o *Options) {
		o.Memoize = enable
	}
}

// WithDecisionCacheSize sets the decision cache capacity.
func WithDecisionCacheSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.DecisionCacheSize = size
		}
	}
}

// WithBatchWorkers sets the number of workers for batch evaluation.
// Defaults to runtime.NumCPU().
func WithBatchWorkers(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.BatchWorkers = count
		}
	}
}

// WithInfoIssues includes informational issues on results in addition
// to warnings.
func WithInfoIssues(enable bool) Option {
	return func(o *Options) {
		o.CollectInfo = enable
	}
}

// AuditOptions returns options suited for interactive audit sessions:
// no memoization, informational issues included.
func AuditOptions() []Option {
	return []Option{
		WithMemoization(false),
		WithInfoIssues(true),
	}
}

// ServeOptions returns options suited for a shared evaluation service:
// memoized decisions and a larger cache.
func ServeOptions() []Option {
	return []Option{
		WithMemoization(true),
		WithDecisionCacheSize(8192),
	}
}
