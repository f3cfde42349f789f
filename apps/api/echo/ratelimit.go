package echoapi

import (
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/an-shikaSingh/campus-connect-V0/core"
)

// maxLimiters bounds the number of tracked clients; the map is reset past it.
const maxLimiters = 10000

// rateLimiter throttles requests per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	logger   core.Logger
}

func newRateLimiter(conf *core.Config, logger core.Logger) *rateLimiter {
	burst := conf.Server.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(conf.Server.RateLimit),
		burst:    burst,
		logger:   logger,
	}
}

func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		if len(rl.limiters) >= maxLimiters {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// middleware rejects requests beyond the client's budget with 429. A non-positive rate disables it.
func (rl *rateLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if rl.rate <= 0 {
				return next(ctx)
			}
			key := ctx.RealIP()
			if !rl.getLimiter(key).Allow() {
				rl.logger.Warn("rate limit exceeded", key, ctx.Request().Method, ctx.Path())
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
