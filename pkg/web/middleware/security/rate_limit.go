package security

import (
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/fluxorio/todoapi/pkg/web"
)

// RateLimitConfig configures rate limiting
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests per minute per client
	RequestsPerMinute int

	// RequestsPerSecond is an alternative to RequestsPerMinute
	RequestsPerSecond int

	// KeyFunc extracts a key from the request to identify the client.
	// Default: remote IP address.
	KeyFunc func(ctx *web.FastRequestContext) string

	// Now is the clock (default time.Now)
	Now func() time.Time
}

// DefaultRateLimitConfig returns a default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 100,
		KeyFunc:           remoteIP,
	}
}

func remoteIP(ctx *web.FastRequestContext) string {
	return ctx.RequestCtx.RemoteIP().String()
}

// RateLimiter keeps one token bucket per client. Each client starts with a
// full burst of RequestsPerMinute tokens that refills continuously.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	keyFunc   func(ctx *web.FastRequestContext) string
	now       func() time.Time
	lastSweep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const clientIdleTTL = 10 * time.Minute

// NewRateLimiter creates a limiter from config
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	perMinute := config.RequestsPerMinute
	if perMinute <= 0 && config.RequestsPerSecond > 0 {
		perMinute = config.RequestsPerSecond * 60
	}
	if perMinute <= 0 {
		perMinute = 100
	}

	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = remoteIP
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &RateLimiter{
		clients:   make(map[string]*client),
		limit:     rate.Limit(float64(perMinute) / 60),
		burst:     perMinute,
		keyFunc:   keyFunc,
		now:       now,
		lastSweep: now(),
	}
}

// Allow takes a token for key. It returns false and the wait until the next
// token when the bucket is empty.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	now := rl.now()
	rl.sweep(now)

	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()

	r := c.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		// a rejected request does not spend the token it was promised
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops idle clients; callers hold mu
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < clientIdleTTL {
		return
	}
	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) > clientIdleTTL {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}

// Middleware answers 429 with Retry-After once a client's bucket is empty
func (rl *RateLimiter) Middleware() web.FastMiddleware {
	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			ok, wait := rl.Allow(rl.keyFunc(ctx))
			if ok {
				return next(ctx)
			}

			seconds := int(wait.Seconds() + 0.999)
			if seconds < 1 {
				seconds = 1
			}
			ctx.RequestCtx.Response.Header.Set("Retry-After", strconv.Itoa(seconds))
			web.WriteError(ctx, web.NewHTTPError(fasthttp.StatusTooManyRequests, "Too many requests"))
			return nil
		}
	}
}

// RateLimit middleware enforces rate limiting with a new RateLimiter
func RateLimit(config RateLimitConfig) web.FastMiddleware {
	return NewRateLimiter(config).Middleware()
}
