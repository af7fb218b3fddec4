package config

import "time"

// CacheConfig defines settings for the layout response cache.  Venue
// layouts never change once stored, so GET responses for them can be kept
// in Redis for a long time.  When Enabled is false or no Redis client is
// configured, caching is disabled.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 10*time.Minute),
        Prefix:       envStr("CACHE_PREFIX", "seatpicker:layout"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 256<<10),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = time.Minute
    }
    return cfg
}
