package middleware

import (
	"context"

	"stayfinder/internal/app/bus"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

func Authorization(a Authorizer) bus.Middleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next bus.Dispatcher) bus.Dispatcher {
		return bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
			if err := a.Authorize(ctx, msg); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, msg)
		})
	}
}
