package middleware

import (
	"context"
	"fmt"
	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/utils"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused bucket is kept.
const DefaultIdleTTL = 10 * time.Minute

type LimiterConfig struct {
	RPS     float64
	Burst   int
	IdleTTL time.Duration
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is an in-memory token bucket per key.
type RateLimiter struct {
	name    string
	conf    LimiterConfig
	logger  *logger.Logger
	mu      sync.Mutex
	buckets map[string]*keyLimiter
	now     func() time.Time
}

func NewRateLimiter(name string, conf LimiterConfig, log *logger.Logger) *RateLimiter {
	if conf.IdleTTL <= 0 {
		conf.IdleTTL = DefaultIdleTTL
	}
	return &RateLimiter{
		name:    name,
		conf:    conf,
		logger:  log,
		buckets: make(map[string]*keyLimiter),
		now:     time.Now,
	}
}

// Run evicts idle buckets until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.conf.IdleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evict()
		case <-ctx.Done():
			return
		}
	}
}

func (rl *RateLimiter) evict() int {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for k, v := range rl.buckets {
		if now.Sub(v.lastSeen) > rl.conf.IdleTTL {
			delete(rl.buckets, k)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}

	lim := rate.NewLimiter(rate.Limit(rl.conf.RPS), rl.conf.Burst)
	rl.buckets[key] = &keyLimiter{limiter: lim, lastSeen: now}
	return lim
}

// Allow takes one token from key's bucket.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// KeySelector picks the bucket a request is charged to.
type KeySelector func(r *http.Request) string

// GlobalKey charges every request to one shared bucket.
func GlobalKey(*http.Request) string { return "global" }

// ClientIP keys by remote address. Mount chi's RealIP first behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserOrIP keys by the signed in user, falling back to the client address.
func UserOrIP(r *http.Request) string {
	if id := auth.UserID(r.Context()); id != "" {
		return "user:" + id
	}
	return "ip:" + ClientIP(r)
}

// Middleware answers 429 with Retry-After once a key runs out of tokens.
// A limiter with RPS <= 0 lets everything through.
func (rl *RateLimiter) Middleware(selectKey KeySelector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl.conf.RPS <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := selectKey(r)
			if !rl.Allow(key) {
				rl.logger.LogSecurity("RATE_LIMITED", fmt.Sprintf("limiter=%s key=%s %s %s", rl.name, key, r.Method, r.URL.Path))
				w.Header().Set("Retry-After", "1")
				utils.WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
