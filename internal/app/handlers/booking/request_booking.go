package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/dto"
	"stayfinder/internal/app/middleware"
	"stayfinder/internal/app/outbox"
	"stayfinder/internal/app/uow"
	domainavailability "stayfinder/internal/domain/availability"
	domainbooking "stayfinder/internal/domain/booking"
	domainlistings "stayfinder/internal/domain/listings"
	domainpricing "stayfinder/internal/domain/pricing"
	domainrange "stayfinder/internal/domain/shared/daterange"
	domainuser "stayfinder/internal/domain/user"
)

const requestBookingKey = "booking.request"

type RequestBookingCommand struct {
	Actor           authz.Actor
	ListingID       string    `validate:"required"`
	CheckIn         time.Time `validate:"required"`
	CheckOut        time.Time `validate:"required"`
	Guests          int       `validate:"gte=1"`
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &dto.Booking{} }

// LockKey serializes every write that checks or changes a listing calendar.
func (c RequestBookingCommand) LockKey() string { return ListingLockKey(c.ListingID) }

func (c RequestBookingCommand) Caller() authz.Actor { return c.Actor }

func (c RequestBookingCommand) AllowedRoles() []domainuser.Role { return nil }

func ListingLockKey(listingID string) string {
	return "listing:" + listingID
}

type RequestBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

// Handle creates a pending booking. Checks run in order: date range, listing
// exists, guest capacity, availability. The blocked window is written after
// the booking; if that write fails the booking is removed again.
func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*dto.Booking, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return nil, err
	}

	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if cmd.Guests > listing.MaxGuests {
		return nil, ErrGuestsExceedCapacity
	}

	checker := domainavailability.NewChecker(unit.Bookings())
	if err := checker.Ensure(ctx, listing.ID, dr); err != nil {
		return nil, err
	}

	price, err := domainpricing.Quote(listing.Rates, dr)
	if err != nil {
		return nil, err
	}

	now := h.now()
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(h.newID()),
		ListingID: listing.ID,
		GuestID:   cmd.Actor.ID,
		HostID:    string(listing.Host),
		Range:     dr,
		Guests:    cmd.Guests,
		Price:     price,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}

	listing.BlockWindow(dr, string(booking.ID), now)
	if err := unit.Listings().Save(ctx, listing); err != nil {
		if delErr := unit.Bookings().Delete(ctx, booking.ID); delErr != nil {
			if h.Logger != nil {
				h.Logger.Error("booking compensation failed", "booking_id", booking.ID, "listing_id", listing.ID, "error", delErr)
			}
			return nil, errors.Join(fmt.Errorf("booking: block listing dates: %w", err), delErr)
		}
		return nil, fmt.Errorf("booking: block listing dates: %w", err)
	}

	if err := outbox.Publish(ctx, h.Outbox, h.Encoder, booking, listing); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("booking requested",
			"booking_id", booking.ID,
			"listing_id", listing.ID,
			"guest_id", booking.GuestID,
			"nights", booking.Price.Nights,
			"total", booking.Price.Total.Amount,
		)
	}

	view := dto.MapBooking(booking, listing)
	return &view, nil
}

func (h *RequestBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *RequestBookingHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

var _ bus.Handler[RequestBookingCommand, *dto.Booking] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = RequestBookingCommand{}
var _ middleware.LockedCommand = RequestBookingCommand{}
var _ authz.Restricted = RequestBookingCommand{}
