package booking

import (
	"log/slog"
	"time"

	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/dto"
	"stayfinder/internal/app/outbox"
)

// Deps are shared by the booking handlers.
type Deps struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

func RegisterCommands(b *bus.InMemoryBus, deps Deps) {
	bus.Register[RequestBookingCommand, *dto.Booking](b, &RequestBookingHandler{
		Outbox: deps.Outbox, Encoder: deps.Encoder, Logger: deps.Logger, Now: deps.Now, NewID: deps.NewID,
	})
	bus.Register[UpdateBookingStatusCommand, *dto.Booking](b, &UpdateBookingStatusHandler{
		Outbox: deps.Outbox, Encoder: deps.Encoder, Logger: deps.Logger, Now: deps.Now,
	})
	bus.Register[DeleteBookingCommand, *DeleteBookingResult](b, &DeleteBookingHandler{
		Outbox: deps.Outbox, Encoder: deps.Encoder, Logger: deps.Logger, Now: deps.Now,
	})
	bus.Register[PayBookingCommand, *dto.Booking](b, &PayBookingHandler{
		Outbox: deps.Outbox, Encoder: deps.Encoder, Logger: deps.Logger, Now: deps.Now,
	})
	bus.Register[CompleteStaysCommand, *CompleteStaysResult](b, &CompleteStaysHandler{
		Outbox: deps.Outbox, Encoder: deps.Encoder, Logger: deps.Logger,
	})
}

func RegisterQueries(b *bus.InMemoryBus) {
	bus.Register[GetBookingQuery, *dto.Booking](b, &GetBookingHandler{})
	bus.Register[ListGuestBookingsQuery, dto.BookingCollection](b, &ListGuestBookingsHandler{})
	bus.Register[ListHostBookingsQuery, dto.BookingCollection](b, &ListHostBookingsHandler{})
}
