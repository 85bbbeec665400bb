package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/iliyamo/equipment-locker/internal/config"
)

// tokenBucketScript refills KEYS[1] by whole intervals, then takes one
// token.  Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
  tokens = math.min(capacity, tokens + intervals * refill_tokens)
  last_refill = last_refill + intervals * interval_ms
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_after_ms }
`)

// RateLimiter enforces a token bucket per key.  Buckets live in Redis so
// all instances share them; when Redis is missing or failing, an
// in-process limiter with the same parameters takes over.
type RateLimiter struct {
	cfg   config.RateLimitConfig
	rdb   *redis.Client
	local *localLimiter
}

// NewRateLimiter builds a limiter.  rdb may be nil.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *RateLimiter {
	rl := &RateLimiter{cfg: cfg, rdb: rdb}
	if cfg.LocalFallback {
		rl.local = newLocalLimiter(cfg)
	}
	return rl
}

// Middleware returns the echo middleware.  Disabled limiters pass through.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !rl.cfg.Enabled {
			return next
		}
		return func(c echo.Context) error {
			key := rateKey(rl.cfg, c)
			allowed, remaining, retry, ok := rl.takeRedis(c, key)
			if !ok {
				if rl.local == nil {
					return next(c)
				}
				allowed, remaining, retry = rl.local.take(key, time.Now())
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if !allowed {
				secs := int(math.Ceil(retry.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

// takeRedis runs the script; ok is false when Redis could not answer.
func (rl *RateLimiter) takeRedis(c echo.Context, key string) (allowed bool, remaining int64, retry time.Duration, ok bool) {
	if rl.rdb == nil {
		return false, 0, 0, false
	}
	vals, err := tokenBucketScript.Run(c.Request().Context(), rl.rdb, []string{key},
		time.Now().UnixMilli(),
		rl.cfg.Capacity,
		rl.cfg.RefillTokens,
		rl.cfg.RefillInterval.Milliseconds(),
		int64(rl.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil || len(vals) != 3 {
		c.Logger().Warnf("ratelimit: redis unavailable for %s: %v", key, err)
		return false, 0, 0, false
	}
	return vals[0] == 1, vals[1], time.Duration(vals[2]) * time.Millisecond, true
}

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid, _ := c.Get(ctxUserID).(string)
	if uid == "" {
		uid = "anon"
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter keeps one x/time/rate limiter per key and forgets keys
// idle for longer than the configured TTL.
type localLimiter struct {
	cfg       config.RateLimitConfig
	mu        sync.Mutex
	buckets   map[string]*localBucket
	lastSweep time.Time
}

func newLocalLimiter(cfg config.RateLimitConfig) *localLimiter {
	return &localLimiter{cfg: cfg, buckets: map[string]*localBucket{}}
}

func (l *localLimiter) take(key string, now time.Time) (bool, int64, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.cfg.TTL {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.cfg.TTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Limit(l.cfg.PerSecond()), l.cfg.Capacity)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, 0, delay
	}
	return true, int64(b.limiter.TokensAt(now)), 0
}
