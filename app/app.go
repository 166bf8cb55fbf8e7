package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/keyrelay/core/config"
	"github.com/dmitrymomot/keyrelay/core/ingress"
	"github.com/dmitrymomot/keyrelay/core/logger"
	"github.com/dmitrymomot/keyrelay/core/metrics"
	"github.com/dmitrymomot/keyrelay/core/relay"
	"github.com/dmitrymomot/keyrelay/core/server"
	"github.com/dmitrymomot/keyrelay/integration/database/redis"
	"github.com/dmitrymomot/keyrelay/integration/httpapi"
)

// slowRequest is the threshold above which non-streaming requests log at warn.
const slowRequest = time.Second

// App wires the relay registry to its HTTP API, metrics endpoint and broker
// ingress.
type App struct {
	config    Config
	logger    *slog.Logger
	registry  *relay.Registry
	prom      *prometheus.Registry
	server    *server.Server
	metrics   *metrics.Server
	source    ingress.Source
	redis     *goredis.Client
	checks    []httpapi.Option
	configSet bool
}

// AppOption configures an App.
type AppOption func(*App) error

// NewApp builds the application. Configuration comes from the environment
// unless WithConfig is given.
func NewApp(opts ...AppOption) (*App, error) {
	a := &App{}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if !a.configSet {
		if err := config.Load(&a.config); err != nil {
			return nil, err
		}
	}

	if a.logger == nil {
		a.logger = newLogger(a.config)
	}

	collector := metrics.NewCollector()
	a.prom = prometheus.NewRegistry()
	a.prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := collector.Register(a.prom); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	a.registry = relay.NewRegistryFromConfig(a.config.Relay,
		relay.WithLogger(a.logger.With(logger.Component("relay"))),
		relay.WithObserver(collector),
	)

	srv, err := server.NewFromConfig(a.config.Server, server.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.server = srv
	a.metrics = metrics.NewServer(a.config.Metrics, a.prom, a.logger)

	return a, nil
}

// WithConfig uses cfg instead of loading the environment.
func WithConfig(cfg Config) AppOption {
	return func(a *App) error {
		a.config = cfg
		a.configSet = true
		return nil
	}
}

// WithLogger sets the application logger.
func WithLogger(l *slog.Logger) AppOption {
	return func(a *App) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		a.logger = l
		return nil
	}
}

// WithSource replaces the Redis ingress with src.
func WithSource(src ingress.Source) AppOption {
	return func(a *App) error {
		if src == nil {
			return errors.New("source cannot be nil")
		}
		a.source = src
		return nil
	}
}

// Registry returns the relay registry.
func (a *App) Registry() *relay.Registry { return a.registry }

// Handler returns the HTTP API with request ID and access logging applied.
func (a *App) Handler() http.Handler {
	opts := append(a.config.API.Options(), httpapi.WithLogger(a.logger))
	opts = append(opts, a.checks...)
	api := httpapi.New(a.registry, opts...)
	return httpapi.RequestID(httpapi.Logging(a.logger, slowRequest)(api))
}

// Run starts every component and blocks until ctx is canceled or one of
// them fails. Open relays are closed on the way out.
func (a *App) Run(ctx context.Context) error {
	if err := a.connectIngress(ctx); err != nil {
		return err
	}
	defer a.closeIngress()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(a.server.Run(ctx, a.Handler()))
	g.Go(a.metrics.Run(ctx))

	if a.source != nil {
		adapter := ingress.NewAdapter(a.source, a.registry,
			ingress.WithAdapterLogger(a.logger),
			ingress.WithRetry(a.config.Ingress.RetryAttempts, a.config.Ingress.RetryInterval),
		)
		g.Go(adapter.Run(ctx))
	}

	a.logger.InfoContext(ctx, "relayd started", slog.String("app", a.config.AppName))

	err := g.Wait()
	if cerr := a.registry.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}

	a.logger.Info("relayd stopped")
	return err
}

func (a *App) connectIngress(ctx context.Context) error {
	if a.source != nil || !a.config.Ingress.RedisEnabled {
		return nil
	}

	client, err := redis.Connect(ctx, a.config.Redis)
	if err != nil {
		return fmt.Errorf("connect ingress: %w", err)
	}

	a.redis = client
	a.source = redis.NewSource(client, a.config.Source, redis.WithSourceLogger(a.logger))
	a.checks = append(a.checks, httpapi.WithHealthcheck("redis", redis.Healthcheck(client)))
	return nil
}

func (a *App) closeIngress() {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warn("failed to close ingress source", logger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", logger.Error(err))
		}
	}
}

func newLogger(cfg Config) *slog.Logger {
	var opts []logger.Option
	if cfg.Env == "production" {
		opts = append(opts, logger.WithProduction(cfg.AppName))
	} else {
		opts = append(opts, logger.WithDevelopment(cfg.AppName))
	}

	if cfg.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err == nil {
			opts = append(opts, logger.WithLevel(level))
		}
	}

	return logger.New(opts...)
}
