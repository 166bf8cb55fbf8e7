package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/keyrelay/core/logger"
)

// Config defines the metrics endpoint.
type Config struct {
	Addr string `env:"METRICS_ADDR" envDefault:":9090"`
	Path string `env:"METRICS_PATH" envDefault:"/metrics"`
}

// Default values for the metrics endpoint.
const (
	DefaultAddr = ":9090"
	DefaultPath = "/metrics"
)

// Server exposes a Prometheus gatherer over HTTP.
type Server struct {
	cfg    Config
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a metrics server for gatherer. Empty config fields use defaults.
func NewServer(cfg Config, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		cfg:    cfg,
		logger: log,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run serves metrics until ctx is cancelled. Suitable for errgroup.Group.Go.
func (s *Server) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			s.logger.Info("metrics server starting",
				logger.Component("metrics"),
				slog.String("addr", s.cfg.Addr),
				slog.String("path", s.cfg.Path))
			errCh <- s.srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.logger.Info("metrics server stopping", logger.Component("metrics"))
			return s.srv.Shutdown(shutdownCtx)
		}
	}
}
