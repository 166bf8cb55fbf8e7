package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// Config holds the Redis connection settings.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Connect creates a Redis client and pings it, retrying with exponential
// backoff until it answers, the attempts are exhausted or ConnectTimeout
// elapses.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToParseRedisConnString, err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	client := redis.NewClient(opts)

	b := backoff.NewExponentialBackOff()
	if cfg.RetryInterval > 0 {
		b.InitialInterval = cfg.RetryInterval
	}
	b.MaxElapsedTime = 0

	attempts := max(cfg.RetryAttempts, 0)
	err = backoff.Retry(func() error {
		return client.Ping(ctx).Err()
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts)), ctx))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrRedisNotReady, err)
	}

	return client, nil
}

// Healthcheck returns a function that pings the client.
func Healthcheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrHealthcheckFailed, err)
		}
		return nil
	}
}
