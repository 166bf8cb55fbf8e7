package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/keyrelay/core/logger"
	"github.com/dmitrymomot/keyrelay/core/relay"
)

// Relays is the registry surface the API serves.
type Relays interface {
	Listen(ctx context.Context, key string, expected int) (<-chan string, error)
	Publish(key, message string) error
	RemovePublisher(key string) error
	Healthcheck(ctx context.Context) error
	Stats() relay.RegistryStats
}

type namedCheck struct {
	name string
	fn   func(context.Context) error
}

// Handler serves the relay HTTP API.
type Handler struct {
	relays           Relays
	logger           *slog.Logger
	listenTimeout    time.Duration
	maxListenTimeout time.Duration
	maxMessageBytes  int64
	keepAlive        time.Duration
	checks           []namedCheck
	upgrader         websocket.Upgrader
	mux              *http.ServeMux
}

// New builds the API handler for relays.
func New(relays Relays, opts ...Option) *Handler {
	h := &Handler{
		relays:           relays,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		listenTimeout:    DefaultListenTimeout,
		maxListenTimeout: DefaultMaxListenTimeout,
		maxMessageBytes:  DefaultMaxMessageBytes,
		keepAlive:        DefaultKeepAlive,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /relays/{key}", h.publish)
	mux.HandleFunc("DELETE /relays/{key}", h.remove)
	mux.HandleFunc("GET /relays/{key}", h.listenSSE)
	mux.HandleFunc("GET /relays/{key}/ws", h.listenWS)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /stats", h.stats)
	h.mux = mux

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxMessageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = ErrMessageTooLarge
		}
		h.writeError(w, r, err)
		return
	}

	if err := h.relays.Publish(key, string(body)); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.relays.RemovePublisher(r.PathValue("key")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// outcome describes how a listen stream ended.
type outcome string

const (
	outcomeCompleted outcome = "complete"
	outcomeTimeout   outcome = "timeout"
	outcomeCanceled  outcome = "canceled"
)

// subscription is an open listen stream bound to a request.
type subscription struct {
	key      string
	expected int
	messages <-chan string
	ctx      context.Context
	cancel   context.CancelFunc
}

// subscribe parses the listen parameters and opens the relay. On failure the
// error has already been written.
func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) (*subscription, bool) {
	key := r.PathValue("key")

	expected, timeout, err := h.listenParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	ch, err := h.relays.Listen(ctx, key, expected)
	if err != nil {
		cancel()
		h.writeError(w, r, err)
		return nil, false
	}

	return &subscription{key: key, expected: expected, messages: ch, ctx: ctx, cancel: cancel}, true
}

// finish releases the relay if the stream ended before completion.
func (h *Handler) finish(sub *subscription, delivered int) outcome {
	defer sub.cancel()

	err := sub.ctx.Err()
	if err == nil {
		return outcomeCompleted
	}

	if rmErr := h.relays.RemovePublisher(sub.key); rmErr != nil && !errors.Is(rmErr, relay.ErrUnknownKey) {
		h.logger.Warn("failed to remove abandoned relay",
			logger.RelayKey(sub.key),
			logger.Error(rmErr))
	}

	h.logger.Info("listen ended before completion",
		logger.RelayKey(sub.key),
		logger.Expected(sub.expected),
		logger.Delivered(delivered),
		logger.Reason(err.Error()))

	if errors.Is(err, context.DeadlineExceeded) {
		return outcomeTimeout
	}
	return outcomeCanceled
}

func (h *Handler) listenParams(r *http.Request) (int, time.Duration, error) {
	q := r.URL.Query()

	raw := q.Get("expected")
	if raw == "" {
		return 0, 0, ErrMissingExpected
	}
	expected, err := strconv.Atoi(raw)
	if err != nil || expected <= 0 {
		return 0, 0, ErrInvalidExpected
	}

	timeout := h.listenTimeout
	if raw := q.Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return 0, 0, ErrInvalidTimeout
		}
		timeout = min(d, h.maxListenTimeout)
	}

	return expected, timeout, nil
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.relays.Healthcheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}

	for _, c := range h.checks {
		if err := c.fn(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "healthcheck failed", logger.Component(c.name), logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": c.name + ": " + err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statsResponse struct {
	RelaysCreated     int64 `json:"relays_created"`
	RelaysCompleted   int64 `json:"relays_completed"`
	RelaysClosed      int64 `json:"relays_closed"`
	MessagesPublished int64 `json:"messages_published"`
	MessagesRejected  int64 `json:"messages_rejected"`
	ActiveRelays      int   `json:"active_relays"`
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	s := h.relays.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		RelaysCreated:     s.RelaysCreated,
		RelaysCompleted:   s.RelaysCompleted,
		RelaysClosed:      s.RelaysClosed,
		MessagesPublished: s.MessagesPublished,
		MessagesRejected:  s.MessagesRejected,
		ActiveRelays:      s.ActiveRelays,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			logger.HTTPRequest(r.Method, r.URL.Path),
			logger.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
