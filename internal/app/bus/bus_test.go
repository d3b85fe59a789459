package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct{ Text string }

func (echo) Key() string { return "test.echo" }

type other struct{}

func (other) Key() string { return "test.other" }

func TestRegisterAndSend(t *testing.T) {
	b := NewInMemoryBus()
	Register[echo, string](b, HandlerFunc[echo, string](func(ctx context.Context, msg echo) (string, error) {
		return "echo: " + msg.Text, nil
	}))

	out, err := Send[echo, string](context.Background(), b, echo{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
	assert.Equal(t, []string{"test.echo"}, b.Keys())

	_, err = Send[echo, int](context.Background(), b, echo{})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = Send[other, string](context.Background(), b, other{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Send[echo, string](context.Background(), nil, echo{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	b := NewInMemoryBus()
	h := HandlerFunc[echo, string](func(context.Context, echo) (string, error) { return "", nil })
	Register[echo, string](b, h)
	assert.Panics(t, func() { Register[echo, string](b, h) })
}

func TestChainOrder(t *testing.T) {
	var trail []string
	mark := func(name string) Middleware {
		return func(next Dispatcher) Dispatcher {
			return DispatchFunc(func(ctx context.Context, msg Message) (any, error) {
				trail = append(trail, name)
				return next.Dispatch(ctx, msg)
			})
		}
	}
	base := DispatchFunc(func(ctx context.Context, msg Message) (any, error) {
		trail = append(trail, "handler")
		return nil, errors.New("done")
	})

	_, err := Chain(base, mark("outer"), mark("inner")).Dispatch(context.Background(), echo{})
	assert.EqualError(t, err, "done")
	assert.Equal(t, []string{"outer", "inner", "handler"}, trail)
}
