package middleware

import (
	"context"

	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/uow"
)

// Transaction opens a unit of work per command and commits it when the
// handler succeeds. A unit already bound to the context is reused.
func Transaction(factory uow.Factory) bus.Middleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next bus.Dispatcher) bus.Dispatcher {
		return bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
			if _, ok := uow.FromContext(ctx); ok {
				return next.Dispatch(ctx, msg)
			}
			unit, err := factory.Begin(ctx, uow.TxOptions{})
			if err != nil {
				return nil, err
			}
			execCtx := uow.Bind(ctx, unit)
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := next.Dispatch(execCtx, msg)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			return res, nil
		})
	}
}

// ReadOnly binds a read-only unit for queries and releases it afterwards.
func ReadOnly(factory uow.Factory) bus.Middleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next bus.Dispatcher) bus.Dispatcher {
		return bus.DispatchFunc(func(ctx context.Context, msg bus.Message) (any, error) {
			if _, ok := uow.FromContext(ctx); ok {
				return next.Dispatch(ctx, msg)
			}
			unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
			if err != nil {
				return nil, err
			}
			execCtx := uow.Bind(ctx, unit)
			defer func() { _ = unit.Rollback(execCtx) }()
			return next.Dispatch(execCtx, msg)
		})
	}
}
