package middleware

import (
	"context"
	"log/slog"
	"time"

	"stayfinder/internal/app/bus"
)

// Logging records every dispatched message with its outcome and duration.
func Logging(logger *slog.Logger) bus.Middleware {
	return func(next bus.Dispatcher) bus.Dispatcher {
		if logger == nil {
			return next
		}
		return bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
			started := time.Now()
			res, err := next.Dispatch(ctx, msg)
			attrs := []any{"key", msg.Key(), "duration", time.Since(started)}
			if err != nil {
				logger.WarnContext(ctx, "message failed", append(attrs, "error", err)...)
				return nil, err
			}
			logger.DebugContext(ctx, "message handled", attrs...)
			return res, nil
		})
	}
}
