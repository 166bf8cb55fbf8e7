package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrParsingConfig is returned when environment variables cannot be parsed into a config struct.
var ErrParsingConfig = errors.New("failed to parse config from environment")

var (
	dotenvOnce sync.Once
	cache      sync.Map // reflect.Type -> T
)

// Load fills cfg from environment variables, reading a .env file from the
// working directory on first use. Each config type is parsed once; later
// calls for the same type return the cached value.
func Load[T any](cfg *T) error {
	dotenvOnce.Do(func() {
		// A missing .env file is normal outside local development.
		_ = godotenv.Load()
	})

	key := reflect.TypeFor[T]()
	if v, ok := cache.Load(key); ok {
		*cfg = v.(T)
		return nil
	}

	parsed, err := env.ParseAs[T]()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParsingConfig, err)
	}

	v, _ := cache.LoadOrStore(key, parsed)
	*cfg = v.(T)
	return nil
}

// MustLoad is like Load but panics on failure. Useful during startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
