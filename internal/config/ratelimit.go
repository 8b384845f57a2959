package config

import "time"

// RateLimitConfig drives the Redis token bucket in front of the public
// booking endpoint.  Capacity is the burst; RefillTokens come back every
// RefillInterval.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration // idle buckets expire after this
    KeyStrategy    string        // ip, tenant, route, ip_route, tenant_route
    Prefix         string
    Debug          bool // expose the bucket key in a response header
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  Bookings are a write
// path, so the defaults are strict: a burst of 10, then one every 6s.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 10),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl:booking"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    cfg.normalize()
    return cfg
}

// normalize clamps the bucket to something the Lua script can run.  The
// TTL never drops below five refill intervals, or a bucket could expire
// while still draining.
func (c *RateLimitConfig) normalize() {
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    if floor := 5 * c.RefillInterval; c.TTL < floor {
        c.TTL = floor
    }
}
