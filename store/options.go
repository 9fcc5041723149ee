package store

import (
	"encoding/json"
	"log/slog"
	"time"
)

// DefaultTimeout bounds every backend call a store makes.
const DefaultTimeout = 2 * time.Second

// MigrateFunc upgrades a persisted state written under fromVersion to the
// store's current version. Returning an error discards the persisted state.
type MigrateFunc func(state json.RawMessage, fromVersion int) (json.RawMessage, error)

type options struct {
	logger  *slog.Logger
	version int
	migrate MigrateFunc
	timeout time.Duration
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithVersion sets the schema version written alongside the state.
func WithVersion(v int) Option {
	return func(o *options) {
		o.version = v
	}
}

// WithMigrate installs the hook run when a persisted version differs from
// the store's version. Without it, mismatched state is discarded.
func WithMigrate(fn MigrateFunc) Option {
	return func(o *options) {
		o.migrate = fn
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func applyOptions(opts []Option) options {
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	return o
}
