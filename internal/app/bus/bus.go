package bus

import (
	"context"
	"errors"
	"fmt"
)

// Message is a command or query routed by Key.
type Message interface {
	Key() string
}

// Handler processes a message and returns a value (if any).
type Handler[M Message, R any] interface {
	Handle(ctx context.Context, msg M) (R, error)
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc[M Message, R any] func(ctx context.Context, msg M) (R, error)

func (f HandlerFunc[M, R]) Handle(ctx context.Context, msg M) (R, error) {
	return f(ctx, msg)
}

// Dispatcher is what callers and middleware see.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) (any, error)
}

// DispatchFunc lets middleware compose without a struct per wrapper.
type DispatchFunc func(ctx context.Context, msg Message) (any, error)

func (f DispatchFunc) Dispatch(ctx context.Context, msg Message) (any, error) {
	return f(ctx, msg)
}

// Middleware wraps a dispatcher with extra behavior.
type Middleware func(next Dispatcher) Dispatcher

// Chain wraps base with mws, outermost first.
func Chain(base Dispatcher, mws ...Middleware) Dispatcher {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

var (
	ErrHandlerNotFound = errors.New("bus: handler not found")
	ErrInvalidMessage  = errors.New("bus: invalid message for handler")
	ErrResultType      = errors.New("bus: result type mismatch")
	ErrNilBus          = errors.New("bus: nil dispatcher")
	ErrDuplicateKey    = errors.New("bus: handler already registered")
)

// InMemoryBus is a registry-backed dispatcher. Registration happens at wiring
// time, before the bus is shared, so the map is not guarded.
type InMemoryBus struct {
	handlers map[string]DispatchFunc
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{handlers: make(map[string]DispatchFunc)}
}

func (b *InMemoryBus) Dispatch(ctx context.Context, msg Message) (any, error) {
	if msg == nil {
		return nil, ErrInvalidMessage
	}
	h, ok := b.handlers[msg.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, msg.Key())
	}
	return h(ctx, msg)
}

// Keys lists registered message keys.
func (b *InMemoryBus) Keys() []string {
	keys := make([]string, 0, len(b.handlers))
	for key := range b.handlers {
		keys = append(keys, key)
	}
	return keys
}

// Register attaches a typed handler. M must be a value type: its zero value
// supplies the routing key.
func Register[M Message, R any](b *InMemoryBus, handler Handler[M, R]) {
	if b == nil {
		panic(ErrNilBus)
	}
	var zero M
	key := zero.Key()
	if key == "" {
		panic("bus: empty key registration")
	}
	if _, exists := b.handlers[key]; exists {
		panic(fmt.Errorf("%w: %s", ErrDuplicateKey, key))
	}
	b.handlers[key] = func(ctx context.Context, raw Message) (any, error) {
		msg, ok := raw.(M)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidMessage, key)
		}
		return handler.Handle(ctx, msg)
	}
}

// Send dispatches msg and asserts the result type.
func Send[M Message, R any](ctx context.Context, d Dispatcher, msg M) (R, error) {
	var zero R
	if d == nil {
		return zero, ErrNilBus
	}
	res, err := d.Dispatch(ctx, msg)
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	value, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T", ErrResultType, msg.Key(), res)
	}
	return value, nil
}
