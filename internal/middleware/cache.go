package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/tenant-ticketing/internal/config"
)

// cachedResponse is what the catalog cache stores per key.
type cachedResponse struct {
    Status int         `json:"s"`
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

// recorder tees the response body into a bounded buffer.
type recorder struct {
    http.ResponseWriter
    status    int
    buf       bytes.Buffer
    limit     int
    truncated bool
}

func (r *recorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
    if !r.truncated {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.truncated = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

// cacheKey hashes the parts selected by the key strategy under the prefix,
// so every entry can be found again with a "<prefix>:*" scan.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var tail string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        tail = c.Path()
    case "method_route":
        tail = r.Method + " " + c.Path()
    case "method_route_query":
        tail = r.Method + " " + c.Path() + "?" + r.URL.RawQuery
    default: // route_query
        tail = r.URL.Path + "?" + r.URL.RawQuery
    }
    return fmt.Sprintf("%s:%x", cfg.Prefix, sha1.Sum([]byte(tail)))
}

// NewRedisCache serves public catalog responses from Redis.  Only 200
// responses are stored; the TTL bounds staleness if an invalidation is lost.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = time.Minute
    }
    log = log.Named("cache")

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[c.Request().Method] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKey(cfg, c)

            if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil {
                    h := c.Response().Header()
                    for k, vv := range hit.Header {
                        if k == echo.HeaderContentLength || k == echo.HeaderXRequestID {
                            continue
                        }
                        h[k] = vv
                    }
                    h.Set("X-Cache", "HIT")
                    return c.Blob(hit.Status, h.Get(echo.HeaderContentType), hit.Body)
                }
            } else if err != redis.Nil {
                log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
            }

            rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.truncated {
                return nil
            }
            payload, err := json.Marshal(cachedResponse{
                Status: rec.status,
                Header: c.Response().Header().Clone(),
                Body:   rec.buf.Bytes(),
            })
            if err != nil {
                return nil
            }
            // the request context may already be cancelled once the body is out
            if err := rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
                log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
            }
            return nil
        }
    }
}

// RedisInvalidator drops every cached catalog entry.  It implements the
// service layer's Invalidator.
type RedisInvalidator struct {
    rdb    *redis.Client
    prefix string
}

// NewRedisInvalidator returns an invalidator sweeping keys under prefix.
func NewRedisInvalidator(rdb *redis.Client, prefix string) *RedisInvalidator {
    return &RedisInvalidator{rdb: rdb, prefix: prefix}
}

// InvalidatePublic scans and deletes "<prefix>:*" in batches.
func (i *RedisInvalidator) InvalidatePublic(ctx context.Context) error {
    iter := i.rdb.Scan(ctx, 0, i.prefix+":*", 200).Iterator()
    batch := make([]string, 0, 200)
    for iter.Next(ctx) {
        batch = append(batch, iter.Val())
        if len(batch) == cap(batch) {
            if err := i.rdb.Del(ctx, batch...).Err(); err != nil {
                return fmt.Errorf("delete cache keys: %w", err)
            }
            batch = batch[:0]
        }
    }
    if err := iter.Err(); err != nil {
        return fmt.Errorf("scan cache keys: %w", err)
    }
    if len(batch) > 0 {
        if err := i.rdb.Del(ctx, batch...).Err(); err != nil {
            return fmt.Errorf("delete cache keys: %w", err)
        }
    }
    return nil
}
