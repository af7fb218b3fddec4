package middleware

import (
    "math"
    "net/http"
    "strconv"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "golang.org/x/time/rate"

    "github.com/iliyamo/seat-picker/internal/config"
)

// maxLocalBuckets bounds the in-process limiter.  Past it, buckets idle for
// longer than the configured TTL are dropped.
const maxLocalBuckets = 10000

type localBucket struct {
    lim      *rate.Limiter
    lastSeen time.Time
}

// localLimiter is the single-instance stand-in for the Redis token bucket,
// used when Redis is disabled or unreachable.  Buckets use the same
// capacity and refill rate as the Redis script.
type localLimiter struct {
    cfg     config.RateLimitConfig
    every   rate.Limit
    mu      sync.Mutex
    buckets map[string]*localBucket
}

func newLocalLimiter(cfg config.RateLimitConfig) *localLimiter {
    if cfg.Capacity < 1 { cfg.Capacity = 1 }
    if cfg.RefillTokens < 1 { cfg.RefillTokens = 1 }
    if cfg.RefillInterval <= 0 { cfg.RefillInterval = time.Second }
    return &localLimiter{
        cfg:     cfg,
        every:   rate.Every(cfg.RefillInterval / time.Duration(cfg.RefillTokens)),
        buckets: make(map[string]*localBucket),
    }
}

func (l *localLimiter) reserve(key string, now time.Time) *rate.Reservation {
    l.mu.Lock()
    defer l.mu.Unlock()
    b, ok := l.buckets[key]
    if !ok {
        if len(l.buckets) >= maxLocalBuckets {
            l.prune(now)
        }
        b = &localBucket{lim: rate.NewLimiter(l.every, l.cfg.Capacity)}
        l.buckets[key] = b
    }
    b.lastSeen = now
    return b.lim.ReserveN(now, 1)
}

func (l *localLimiter) prune(now time.Time) {
    for k, b := range l.buckets {
        if now.Sub(b.lastSeen) > l.cfg.TTL {
            delete(l.buckets, k)
        }
    }
}

func (l *localLimiter) middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(l.cfg, c)
            now := time.Now()
            r := l.reserve(key, now)

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
            if delay := r.DelayFrom(now); delay > 0 {
                // give the token back; the request is rejected, not queued
                r.CancelAt(now)
                secs := int(math.Ceil(delay.Seconds()))
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                return c.JSON(http.StatusTooManyRequests, map[string]any{
                    "error":       "too_many_requests",
                    "message":     "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}
