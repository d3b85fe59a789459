package middleware

import (
	"log/slog"

	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/outbox"
	"stayfinder/internal/app/uow"
)

// Pipeline carries what the standard command and query chains need.
// Idempotency, Locker and Outbox are optional.
type Pipeline struct {
	Logger      *slog.Logger
	Authorizer  Authorizer
	Validator   Validator
	Idempotency IdempotencyStore
	Locker      Locker
	Factory     uow.Factory
	Outbox      outbox.Outbox
}

// Commands wraps base as logging, authorization, validation, idempotency,
// lock, transaction, outbox flush.
func (p Pipeline) Commands(base bus.Dispatcher) bus.Dispatcher {
	mws := []bus.Middleware{Logging(p.Logger)}
	mws = append(mws, p.guards()...)
	if p.Idempotency != nil {
		mws = append(mws, Idempotency(p.Idempotency, JSONResultCodec{}))
	}
	if p.Locker != nil {
		mws = append(mws, Serialize(p.Locker))
	}
	mws = append(mws, Transaction(p.Factory))
	if p.Outbox != nil {
		mws = append(mws, OutboxFlush(p.Outbox))
	}
	return bus.Chain(base, mws...)
}

// Queries wraps base as logging, authorization, validation, read-only unit.
func (p Pipeline) Queries(base bus.Dispatcher) bus.Dispatcher {
	mws := []bus.Middleware{Logging(p.Logger)}
	mws = append(mws, p.guards()...)
	mws = append(mws, ReadOnly(p.Factory))
	return bus.Chain(base, mws...)
}

func (p Pipeline) guards() []bus.Middleware {
	var mws []bus.Middleware
	if p.Authorizer != nil {
		mws = append(mws, Authorization(p.Authorizer))
	}
	if p.Validator != nil {
		mws = append(mws, Validation(p.Validator))
	}
	return mws
}
