package booking

import (
	"context"
	"log/slog"
	"time"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/outbox"
	"stayfinder/internal/app/uow"
	domainbooking "stayfinder/internal/domain/booking"
	domainuser "stayfinder/internal/domain/user"
)

const deleteBookingKey = "booking.delete"

type DeleteBookingCommand struct {
	Actor     authz.Actor
	BookingID string `validate:"required"`
}

func (c DeleteBookingCommand) Key() string { return deleteBookingKey }

func (c DeleteBookingCommand) Caller() authz.Actor { return c.Actor }

func (c DeleteBookingCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleHost}
}

func (c DeleteBookingCommand) LockKey() string { return "booking:" + c.BookingID }

type DeleteBookingResult struct {
	BookingID      string `json:"booking_id"`
	ReleasedWindow bool   `json:"released_window"`
}

type DeleteBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

// Handle removes a booking. Only a confirmed booking gives its window back;
// other statuses are deleted as they are.
func (h *DeleteBookingHandler) Handle(ctx context.Context, cmd DeleteBookingCommand) (*DeleteBookingResult, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := lockBooking(ctx, unit, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, booking.ListingID)
	if err != nil {
		return nil, err
	}
	if !managesBooking(cmd.Actor, booking, listing) {
		return nil, ErrNotAuthorized
	}

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	released := false
	if booking.Status == domainbooking.StatusConfirmed {
		released, err = releaseWindow(ctx, unit, listing, booking, now)
		if err != nil {
			return nil, err
		}
	}
	if err := unit.Bookings().Delete(ctx, booking.ID); err != nil {
		if released {
			restoreWindow(ctx, unit, listing, booking, now, h.Logger)
		}
		return nil, err
	}
	booking.MarkDeleted(now)
	if err := outbox.Publish(ctx, h.Outbox, h.Encoder, booking, listing); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking deleted", "booking_id", booking.ID, "released_window", released, "actor_id", cmd.Actor.ID)
	}
	return &DeleteBookingResult{BookingID: string(booking.ID), ReleasedWindow: released}, nil
}

var _ bus.Handler[DeleteBookingCommand, *DeleteBookingResult] = (*DeleteBookingHandler)(nil)
