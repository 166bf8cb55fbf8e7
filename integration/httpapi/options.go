package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultListenTimeout applies when a listen request has no timeout parameter.
	DefaultListenTimeout = 30 * time.Second

	// DefaultMaxListenTimeout caps the timeout a client may request.
	DefaultMaxListenTimeout = 5 * time.Minute

	// DefaultMaxMessageBytes limits a published message body.
	DefaultMaxMessageBytes = 1 << 20 // 1 MB

	// DefaultKeepAlive is the interval between SSE keep-alive comments.
	DefaultKeepAlive = 15 * time.Second

	// DefaultWSWriteTimeout bounds writing one websocket frame.
	DefaultWSWriteTimeout = 10 * time.Second
)

// Config holds the API settings loaded from the environment.
type Config struct {
	ListenTimeout    time.Duration `env:"API_LISTEN_TIMEOUT" envDefault:"30s"`
	MaxListenTimeout time.Duration `env:"API_MAX_LISTEN_TIMEOUT" envDefault:"5m"`
	MaxMessageBytes  int64         `env:"API_MAX_MESSAGE_BYTES" envDefault:"1048576"`
	KeepAlive        time.Duration `env:"API_SSE_KEEPALIVE" envDefault:"15s"`
}

// Options converts the config into handler options.
func (c Config) Options() []Option {
	return []Option{
		WithListenTimeout(c.ListenTimeout, c.MaxListenTimeout),
		WithMaxMessageBytes(c.MaxMessageBytes),
		WithKeepAlive(c.KeepAlive),
	}
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithListenTimeout sets the default listen timeout and the largest one a
// client may request with ?timeout=.
func WithListenTimeout(def, maxTimeout time.Duration) Option {
	return func(h *Handler) {
		if def > 0 {
			h.listenTimeout = def
		}
		if maxTimeout > 0 {
			h.maxListenTimeout = maxTimeout
		}
	}
}

// WithMaxMessageBytes limits the size of a published message.
func WithMaxMessageBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxMessageBytes = n
		}
	}
}

// WithKeepAlive sets the SSE comment interval. Zero disables keep-alives.
func WithKeepAlive(d time.Duration) Option {
	return func(h *Handler) {
		h.keepAlive = d
	}
}

// WithHealthcheck adds a named dependency check to GET /health.
func WithHealthcheck(name string, fn func(context.Context) error) Option {
	return func(h *Handler) {
		if fn != nil {
			h.checks = append(h.checks, namedCheck{name: name, fn: fn})
		}
	}
}

// WithOriginCheck sets the websocket origin policy.
// The default rejects cross-origin upgrades.
func WithOriginCheck(fn func(r *http.Request) bool) Option {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = fn
	}
}
