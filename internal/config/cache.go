package config

import "time"

// CacheConfig drives the public catalog response cache.  Every key lives
// under Prefix so the catalog invalidator can sweep them all at once; TTL
// only bounds how stale an entry gets if an invalidation is lost.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool // cached HTTP methods, upper case
    TTL          time.Duration
    KeyStrategy  string // route, method_route, method_route_query, route_query
    Prefix       string
    MaxBodyBytes int // larger responses are served but not stored
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envSet("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", time.Minute),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "catalog"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    cfg.normalize()
    return cfg
}

func (c *CacheConfig) normalize() {
    if c.TTL <= 0 {
        c.TTL = time.Minute
    }
    if c.MaxBodyBytes < 0 {
        c.MaxBodyBytes = 0
    }
    if len(c.Methods) == 0 {
        c.Methods = map[string]bool{"GET": true}
    }
}
