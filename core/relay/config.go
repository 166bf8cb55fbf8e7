package relay

// Config holds registry settings, loadable from the environment.
type Config struct {
	// Shards is the number of independently locked partitions of the key map.
	Shards int `env:"RELAY_SHARDS" envDefault:"32"`

	// MaxBuffered caps undelivered messages per relay. Zero means unbounded.
	MaxBuffered int `env:"RELAY_MAX_BUFFERED" envDefault:"0"`
}

// DefaultConfig returns the default registry settings.
func DefaultConfig() Config {
	return Config{
		Shards:      DefaultShards,
		MaxBuffered: 0,
	}
}
