package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/handlers/booking"
)

func TestCompleteStaysDispatchesCommand(t *testing.T) {
	fixed := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	var got booking.CompleteStaysCommand
	dispatcher := bus.DispatchFunc(func(_ context.Context, msg bus.Message) (any, error) {
		got = msg.(booking.CompleteStaysCommand)
		return &booking.CompleteStaysResult{Completed: 2}, nil
	})

	s := New(dispatcher, nil)
	s.now = func() time.Time { return fixed }
	s.completeStays()

	require.Equal(t, fixed, got.Now)
}

func TestRegisterCompleteStaysValidatesSpec(t *testing.T) {
	s := New(bus.DispatchFunc(func(context.Context, bus.Message) (any, error) { return nil, nil }), nil)
	require.NoError(t, s.RegisterCompleteStays(""))
	require.NoError(t, s.RegisterCompleteStays("0 0 3 * * *"))
	require.Error(t, s.RegisterCompleteStays("every now and then"))
}
