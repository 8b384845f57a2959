package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "5")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_STR", "   ")

	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.Equal(t, time.Second, envDur("X_DUR", time.Second))
	assert.True(t, envBool("X_BOOL", true))
	assert.Equal(t, "def", envStr("X_STR", "def"))

	t.Setenv("X_BOOL", "OFF")
	assert.False(t, envBool("X_BOOL", true))
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	t.Setenv("CACHE_TTL", "-1s")
	t.Setenv("CACHE_ENABLED", "0")
	t.Setenv("CACHE_PREFIX", "")
	t.Setenv("CACHE_MAX_BODY_BYTES", "")

	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, time.Minute, cfg.TTL)
	assert.Equal(t, "catalog", cfg.Prefix)
	assert.Equal(t, 1<<20, cfg.MaxBodyBytes)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "")
	t.Setenv("RATE_LIMIT_PREFIX", "")
	t.Setenv("RATE_LIMIT_KEY_STRATEGY", "")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 50*time.Second, cfg.TTL)
	assert.Equal(t, "rl:booking", cfg.Prefix)
	assert.Equal(t, "ip_route", cfg.KeyStrategy)
}

func TestLoadRedisConfigAddr(t *testing.T) {
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_ADDR", "cache:6380")
	assert.Equal(t, "cache:6380", LoadRedisConfig().Addr)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_TLS", "true")
	cfg := LoadRedisConfig()
	assert.Equal(t, "redis:6379", cfg.Addr)
	assert.True(t, cfg.TLS)
}

func TestAMQPURLPrefersRabbitVariable(t *testing.T) {
	t.Setenv("AMQP_URL", "amqp://b")
	t.Setenv("RABBITMQ_URL", "")
	assert.Equal(t, "amqp://b", amqpURL())

	t.Setenv("RABBITMQ_URL", "amqp://a")
	assert.Equal(t, "amqp://a", amqpURL())
}
