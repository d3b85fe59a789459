package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/dto"
	"stayfinder/internal/app/outbox"
	"stayfinder/internal/app/uow"
	domainbooking "stayfinder/internal/domain/booking"
	domainuser "stayfinder/internal/domain/user"
)

const payBookingKey = "booking.pay"

// PayBookingCommand simulates a guest payment; no money moves.
type PayBookingCommand struct {
	Actor     authz.Actor
	BookingID string `validate:"required"`
	Reference string
}

func (c PayBookingCommand) Key() string { return payBookingKey }

func (c PayBookingCommand) Caller() authz.Actor { return c.Actor }

func (c PayBookingCommand) AllowedRoles() []domainuser.Role { return nil }

func (c PayBookingCommand) LockKey() string { return "booking:" + c.BookingID }

type PayBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *PayBookingHandler) Handle(ctx context.Context, cmd PayBookingCommand) (*dto.Booking, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if booking.GuestID != cmd.Actor.ID && !cmd.Actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	reference := cmd.Reference
	if reference == "" {
		reference = "sim_" + uuid.NewString()
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	if err := booking.MarkPaid(reference, now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := outbox.Publish(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking paid", "booking_id", booking.ID, "reference", booking.PaymentRef)
	}
	listing, err := loadListing(ctx, unit, booking.ListingID)
	if err != nil {
		return nil, err
	}
	view := dto.MapBooking(booking, listing)
	return &view, nil
}

var _ bus.Handler[PayBookingCommand, *dto.Booking] = (*PayBookingHandler)(nil)
