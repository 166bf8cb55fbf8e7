package app

import (
	"time"

	"github.com/dmitrymomot/keyrelay/core/metrics"
	"github.com/dmitrymomot/keyrelay/core/relay"
	"github.com/dmitrymomot/keyrelay/core/server"
	"github.com/dmitrymomot/keyrelay/integration/database/redis"
	"github.com/dmitrymomot/keyrelay/integration/httpapi"
)

// Config is the complete relayd configuration.
type Config struct {
	Relay   relay.Config
	Server  server.Config
	API     httpapi.Config
	Metrics metrics.Config
	Redis   redis.Config
	Source  redis.SourceConfig
	Ingress IngressConfig

	AppName  string `env:"APP_NAME" envDefault:"keyrelay"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// IngressConfig controls the broker ingress.
//
// Retries are off by default: a message for an evicted key cannot be told
// apart from one that beat its listener, so a retried late duplicate may be
// delivered to the next relay opened under the same key. Enable them only
// when keys are never reused.
type IngressConfig struct {
	RedisEnabled  bool          `env:"INGRESS_REDIS_ENABLED" envDefault:"true"`
	RetryAttempts int           `env:"INGRESS_RETRY_ATTEMPTS" envDefault:"0"`
	RetryInterval time.Duration `env:"INGRESS_RETRY_INTERVAL" envDefault:"50ms"`
}
