package config

import "time"

// CacheConfig defines settings for the GET response cache.  When Enabled
// is false or no Redis client is configured, caching is disabled.
// KeyStrategy is "route" or "route_query" (default).
type CacheConfig struct {
	Enabled      bool          `envconfig:"ENABLED" default:"true"`
	TTL          time.Duration `envconfig:"TTL" default:"30s"`
	KeyStrategy  string        `envconfig:"KEY_STRATEGY" default:"route_query"`
	Prefix       string        `envconfig:"PREFIX" default:"cache"`
	MaxBodyBytes int           `envconfig:"MAX_BODY_BYTES" default:"1048576"`
}
