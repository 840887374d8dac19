package runtime

import "gopkg.in/yaml.v3"

// Options configures the bounds of a Runtime's dispatch pipeline, history,
// and event bus (spec.md §4.3 point 4, §4.4's recursion depth, §9's history
// size). Zero-value Options is not meaningful; use DefaultOptions or
// LoadOptions.
type Options struct {
	// MaxAppendedTransactions caps the append-phase fixed-point loop
	// (spec.md §4.3 point 4). Exceeding it returns TransactionLoop and
	// rolls the whole dispatch back.
	MaxAppendedTransactions int `yaml:"max_appended_transactions"`

	// MaxMiddlewareDepth caps recursive re-dispatch of a middleware's
	// proposed transaction (spec.md §4.4).
	MaxMiddlewareDepth int `yaml:"max_middleware_depth"`

	// HistoryLimit bounds how many entries History retains before
	// dropping the oldest (spec.md §4.4's "bounded double-ended buffer").
	HistoryLimit int `yaml:"history_limit"`

	// EventQueueCapacity bounds each event bus subscriber's queue
	// (spec.md §4.5).
	EventQueueCapacity int `yaml:"event_queue_capacity"`
}

// DefaultOptions matches spec.md's stated defaults.
func DefaultOptions() Options {
	return Options{
		MaxAppendedTransactions: 32,
		MaxMiddlewareDepth:      8,
		HistoryLimit:            100,
		EventQueueCapacity:      64,
	}
}

// LoadOptions parses YAML configuration over DefaultOptions, so a config
// file only needs to mention the fields it overrides.
func LoadOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, err
	}
	if opts.MaxAppendedTransactions <= 0 {
		opts.MaxAppendedTransactions = DefaultOptions().MaxAppendedTransactions
	}
	if opts.MaxMiddlewareDepth <= 0 {
		opts.MaxMiddlewareDepth = DefaultOptions().MaxMiddlewareDepth
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultOptions().HistoryLimit
	}
	if opts.EventQueueCapacity <= 0 {
		opts.EventQueueCapacity = DefaultOptions().EventQueueCapacity
	}
	return opts, nil
}
