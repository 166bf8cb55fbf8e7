package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Attribute helpers return an empty Attr for nil or empty input so they can
// be passed to slog calls without nil checks. slog drops empty attributes.

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// ============================================================================
// Error Handling
// ============================================================================

// Errors groups multiple non-nil errors under the key "errors".
// Uses index-based keys to preserve error order. Returns empty Attr for all nil errors.
func Errors(errs ...error) slog.Attr {
	count := 0
	for _, err := range errs {
		if err != nil {
			count++
		}
	}
	if count == 0 {
		return slog.Attr{}
	}

	as := make([]slog.Attr, 0, count)
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// ============================================================================
// Timing
// ============================================================================

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed calculates and logs the duration since the start time.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// ============================================================================
// Relays
// ============================================================================

// RelayKey creates an attribute for the key a relay is registered under.
func RelayKey(key string) slog.Attr {
	if key == "" {
		return slog.Attr{}
	}
	return slog.String("relay_key", key)
}

// RelayID creates an attribute for a relay instance identifier.
func RelayID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("relay_id", id)
}

// Expected creates an attribute for a relay's expected message count.
func Expected(n int) slog.Attr {
	return slog.Int("expected", n)
}

// Delivered creates an attribute for the number of messages a relay accepted.
func Delivered(n int) slog.Attr {
	return slog.Int("delivered", n)
}

// Reason creates an attribute describing why something terminated.
func Reason(reason string) slog.Attr {
	if reason == "" {
		return slog.Attr{}
	}
	return slog.String("reason", reason)
}

// Source creates an attribute naming a message source, such as a broker channel.
func Source(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("source", name)
}

// ============================================================================
// HTTP
// ============================================================================

// RequestID creates an attribute for a request correlation ID.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// HTTPRequest groups the method and path of an incoming request.
func HTTPRequest(method, path string) slog.Attr {
	return slog.Group("request",
		slog.String("method", method),
		slog.String("path", path))
}

// StatusCode creates an attribute for an HTTP response status.
func StatusCode(code int) slog.Attr {
	return slog.Int("status", code)
}

// ============================================================================
// Generic Metadata
// ============================================================================

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// RetryCount creates an attribute for retry attempts.
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}
