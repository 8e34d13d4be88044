// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/mystic-backend/internal/core"
)

// Quota allows Requests per Window with bursts up to Burst. A quota with
// no requests does not limit.
type Quota struct {
	Requests int
	Burst    int
	Window   time.Duration
}

func (q Quota) limit() redis_rate.Limit {
	burst := q.Burst
	if burst <= 0 {
		burst = q.Requests
	}
	return redis_rate.Limit{Rate: q.Requests, Burst: burst, Period: q.Window}
}

func (q Quota) interval() time.Duration {
	return q.Window / time.Duration(q.Requests)
}

func FixedQuota(q Quota) func(*http.Request) Quota {
	return func(*http.Request) Quota { return q }
}

type RateLimitConfig struct {
	// Scope separates bucket families sharing one Redis, e.g. "api".
	Scope   string
	Quota   func(*http.Request) Quota
	KeyFunc func(*http.Request) string
}

// RateLimiter counts in Redis and falls back to in-process token buckets
// while Redis is unreachable, so a Redis outage loosens limits per replica
// instead of dropping them.
type RateLimiter struct {
	redis  *redis_rate.Limiter
	local  *localLimiter
	config RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	if cfg.Scope == "" {
		cfg.Scope = "api"
	}

	rl := &RateLimiter{
		local:  newLocalLimiter(),
		config: cfg,
	}
	if rdb != nil {
		rl.redis = redis_rate.NewLimiter(rdb)
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := rl.config.Quota(r)
		if q.Requests <= 0 || q.Window <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := "ratelimit:" + rl.config.Scope + ":" + rl.config.KeyFunc(r)
		res := rl.allow(r, key, q)

		setRateLimitHeaders(w, res, q)
		if res.Allowed == 0 {
			writeRateLimited(w, res)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(r *http.Request, key string, q Quota) *redis_rate.Result {
	if rl.redis != nil {
		res, err := rl.redis.Allow(r.Context(), key, q.limit())
		if err == nil {
			return res
		}
		slog.WarnContext(r.Context(), "rate limiter using local buckets",
			"error", err,
			"key", key,
		)
	}
	return rl.local.allow(key, q, time.Now())
}

func KeyByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return "ip:" + strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return "ip:" + xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

// KeyByUser buckets signed-in callers by account and anonymous ones by IP.
func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	return KeyByIP(r)
}

// KeyByKindAndUser gives each consultation kind its own bucket per caller.
func KeyByKindAndUser(r *http.Request) string {
	return "kind:" + chi.URLParam(r, "kind") + ":" + KeyByUser(r)
}

func setRateLimitHeaders(w http.ResponseWriter, res *redis_rate.Result, q Quota) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(q.Requests))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy", fmt.Sprintf("%d;w=%d", q.Requests, int(q.Window.Seconds())))
}

func writeRateLimited(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := max(int(res.RetryAfter.Seconds()), 1)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	core.JSON(w, http.StatusTooManyRequests, core.Response{
		Error: &core.ErrorBody{
			Code:    "RATE_LIMITED",
			Message: fmt.Sprintf("Too many requests. Retry after %d seconds.", retryAfter),
		},
	})
}

const idleBucketTTL = 10 * time.Minute

type localBucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

type localLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*localBucket
	lastSweep time.Time
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{buckets: make(map[string]*localBucket)}
}

func (l *localLimiter) allow(key string, q Quota, now time.Time) *redis_rate.Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > idleBucketTTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > idleBucketTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	lim := q.limit()
	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(q.interval()), lim.Burst)}
		l.buckets[key] = b
	}
	b.seen = now

	res := &redis_rate.Result{Limit: lim, RetryAfter: -1, ResetAfter: q.interval()}
	if b.limiter.AllowN(now, 1) {
		res.Allowed = 1
		res.Remaining = max(int(b.limiter.TokensAt(now)), 0)
		return res
	}

	res.RetryAfter = q.interval()
	return res
}
