package ginserver

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"stayfinder/internal/infra/ratelimit"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// RateLimit throttles per caller, or per client IP for anonymous requests.
// Limiter failures let the request through.
type RateLimit struct {
	Limiter Limiter
	Logger  *slog.Logger
}

func (r RateLimit) Handle(c *gin.Context) {
	if r.Limiter == nil {
		c.Next()
		return
	}
	key := "ip:" + c.ClientIP()
	if actor := currentActor(c); actor.Authenticated() {
		key = "user:" + actor.ID
	}
	decision, err := r.Limiter.Allow(c.Request.Context(), key)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Warn("rate limiter unavailable", "error", err)
		}
		c.Next()
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.Allowed {
		seconds := int(decision.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
	c.Next()
}
