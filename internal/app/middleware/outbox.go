package middleware

import (
	"context"

	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/outbox"
)

func OutboxFlush(box outbox.Outbox) bus.Middleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next bus.Dispatcher) bus.Dispatcher {
		return bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
			res, err := next.Dispatch(ctx, msg)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
