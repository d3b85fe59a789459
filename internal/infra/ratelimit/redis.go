package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrLimiterNotConfigured = errors.New("ratelimit: redis client required")

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a fixed-window counter stored in Redis. Every key gets Max hits
// per Window; windows are aligned to the epoch.
type Limiter struct {
	Client *redis.Client
	Max    int
	Window time.Duration
	Prefix string
}

func NewLimiter(client *redis.Client, max int, window time.Duration) *Limiter {
	return &Limiter{Client: client, Max: max, Window: window, Prefix: "ratelimit"}
}

func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.Client == nil {
		return Decision{}, ErrLimiterNotConfigured
	}
	window := l.window()
	now := time.Now()
	bucket := l.bucketKey(key, now, window)

	var incr *redis.IntCmd
	_, err := l.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, bucket)
		pipe.Expire(ctx, bucket, window)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}
	return decide(int(incr.Val()), l.Max, untilReset(now, window)), nil
}

func untilReset(now time.Time, window time.Duration) time.Duration {
	return window - time.Duration(now.UnixNano()%int64(window))
}

func decide(count, max int, reset time.Duration) Decision {
	d := Decision{Limit: max, Allowed: count <= max}
	if remaining := max - count; remaining > 0 {
		d.Remaining = remaining
	}
	if !d.Allowed {
		d.RetryAfter = reset
	}
	return d
}

func (l *Limiter) bucketKey(key string, now time.Time, window time.Duration) string {
	slot := now.UnixNano() / int64(window)
	prefix := l.Prefix
	if prefix == "" {
		prefix = "ratelimit"
	}
	return prefix + ":" + key + ":" + strconv.FormatInt(slot, 10)
}

func (l *Limiter) window() time.Duration {
	if l.Window > 0 {
		return l.Window
	}
	return time.Minute
}
