package config

import "time"

// RateLimitConfig configures the token-bucket rate limiter guarding the
// registration endpoints.  When Enabled is false or no Redis client is
// available, rate limiting is skipped entirely.
type RateLimitConfig struct {
	Enabled        bool          // master switch
	Capacity       int           // bucket size (burst)
	RefillTokens   int           // tokens added per refill interval
	RefillInterval time.Duration // how often tokens are refilled
	TTL            time.Duration // how long idle buckets live in Redis
	Prefix         string        // Redis key namespace
}

// LoadRateLimitConfig reads rate limiter settings from the environment,
// using defaults that allow a short registration burst while refilling
// one request per second.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        getenv("RATE_LIMIT_ENABLED", "true") == "true",
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: time.Duration(envInt("RATE_LIMIT_REFILL_INTERVAL_MS", 1000)) * time.Millisecond,
		TTL:            time.Duration(envInt("RATE_LIMIT_TTL_MIN", 10)) * time.Minute,
		Prefix:         getenv("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if min := 5 * cfg.RefillInterval; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}
