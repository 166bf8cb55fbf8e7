package relay

import "log/slog"

// DefaultShards is the number of key map partitions used when none is configured.
const DefaultShards = 32

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithShards sets the number of key map partitions. Values below one are ignored.
func WithShards(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.shardCount = n
		}
	}
}

// WithMaxBuffered caps the number of undelivered messages per relay.
// Zero keeps buffering unbounded.
func WithMaxBuffered(n int) RegistryOption {
	return func(r *Registry) {
		if n >= 0 {
			r.maxBuffered = n
		}
	}
}

// WithLogger sets the logger used for relay lifecycle events.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers an observer for relay lifecycle notifications.
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}
