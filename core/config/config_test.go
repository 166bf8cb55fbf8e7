package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyrelay/core/config"
)

type relaySettings struct {
	Shards      int           `env:"TEST_CFG_SHARDS" envDefault:"32"`
	MaxBuffered int           `env:"TEST_CFG_MAX_BUFFERED" envDefault:"0"`
	Timeout     time.Duration `env:"TEST_CFG_TIMEOUT" envDefault:"3s"`
}

type requiredSettings struct {
	URL string `env:"TEST_CFG_REQUIRED_URL,required"`
}

type cachedSettings struct {
	Name string `env:"TEST_CFG_CACHED_NAME" envDefault:"first"`
}

func TestLoad_ParsesEnvironment(t *testing.T) {
	t.Setenv("TEST_CFG_SHARDS", "8")
	t.Setenv("TEST_CFG_TIMEOUT", "250ms")

	var cfg relaySettings
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, 8, cfg.Shards)
	assert.Equal(t, 0, cfg.MaxBuffered)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
}

func TestLoad_MissingRequired(t *testing.T) {
	var cfg requiredSettings
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	assert.Panics(t, func() {
		var again requiredSettings
		config.MustLoad(&again)
	})
}

func TestLoad_CachesPerType(t *testing.T) {
	var first cachedSettings
	require.NoError(t, config.Load(&first))
	assert.Equal(t, "first", first.Name)

	t.Setenv("TEST_CFG_CACHED_NAME", "second")

	var second cachedSettings
	config.MustLoad(&second)
	assert.Equal(t, "first", second.Name, "cached value is returned")
}
