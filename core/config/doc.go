// Package config loads typed configuration from environment variables.
//
// A .env file in the working directory is read once on first use, then
// caarlos0/env parses variables into struct fields using env and envDefault
// tags. Each config type is parsed once and cached, so packages can call
// Load for the same type without re-reading the environment.
//
//	import "github.com/dmitrymomot/keyrelay/core/config"
//
//	type RedisIngress struct {
//		URL     string `env:"REDIS_URL,required"`
//		Channel string `env:"INGRESS_CHANNEL_PREFIX" envDefault:"relay:"`
//	}
//
//	var cfg RedisIngress
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	// Or panic on failure during startup
//	config.MustLoad(&cfg)
//
// Different types are cached independently; a second Load of the same type
// returns the first result even if the environment changed in between.
package config
