package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/dto"
	"stayfinder/internal/app/middleware"
	"stayfinder/internal/app/outbox"
	"stayfinder/internal/app/uow"
	domainbooking "stayfinder/internal/domain/booking"
	domainlistings "stayfinder/internal/domain/listings"
	domainuser "stayfinder/internal/domain/user"
)

const updateBookingStatusKey = "booking.status.update"

type UpdateBookingStatusCommand struct {
	Actor     authz.Actor
	BookingID string `validate:"required"`
	Status    string `validate:"required,oneof=pending confirmed cancelled completed"`
}

func (c UpdateBookingStatusCommand) Key() string { return updateBookingStatusKey }

func (c UpdateBookingStatusCommand) Caller() authz.Actor { return c.Actor }

func (c UpdateBookingStatusCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleHost}
}

func (c UpdateBookingStatusCommand) LockKey() string { return "booking:" + c.BookingID }

type UpdateBookingStatusHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

// Handle lets the listing host (or an admin) move a booking through the status
// table. Cancelling releases the listing's matching blocked window.
func (h *UpdateBookingStatusHandler) Handle(ctx context.Context, cmd UpdateBookingStatusCommand) (*dto.Booking, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := lockBooking(ctx, unit, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	listing, err := loadListing(ctx, unit, booking.ListingID)
	if err != nil {
		return nil, err
	}
	if !managesBooking(cmd.Actor, booking, listing) {
		return nil, ErrNotAuthorized
	}

	status, err := domainbooking.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	if err := booking.ChangeStatus(status, now); err != nil {
		return nil, err
	}

	released := false
	if status == domainbooking.StatusCancelled && listing != nil {
		released, err = releaseWindow(ctx, unit, listing, booking, now)
		if err != nil {
			return nil, err
		}
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		if released {
			restoreWindow(ctx, unit, listing, booking, now, h.Logger)
		}
		return nil, err
	}

	if err := outbox.Publish(ctx, h.Outbox, h.Encoder, booking, listingRecorder(listing)); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking status changed", "booking_id", booking.ID, "status", booking.Status, "actor_id", cmd.Actor.ID)
	}
	view := dto.MapBooking(booking, listing)
	return &view, nil
}

// lockBooking loads a booking and takes its listing's calendar lock, then
// reads the booking again so the caller sees what the lock holder left.
func lockBooking(ctx context.Context, unit uow.UnitOfWork, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	booking, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := middleware.Hold(ctx, ListingLockKey(string(booking.ListingID))); err != nil {
		return nil, err
	}
	return unit.Bookings().ByID(ctx, id)
}

// releaseWindow frees the booking's dates on the listing and stores it.
func releaseWindow(ctx context.Context, unit uow.UnitOfWork, listing *domainlistings.Listing, booking *domainbooking.Booking, now time.Time) (bool, error) {
	if !listing.ReleaseWindow(booking.Range, now) {
		return false, nil
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return false, fmt.Errorf("booking: release listing dates: %w", err)
	}
	return true, nil
}

// restoreWindow blocks the dates again after the booking write failed.
func restoreWindow(ctx context.Context, unit uow.UnitOfWork, listing *domainlistings.Listing, booking *domainbooking.Booking, now time.Time, logger *slog.Logger) {
	listing.BlockWindow(booking.Range, string(booking.ID), now)
	if err := unit.Listings().Save(ctx, listing); err != nil && logger != nil {
		logger.Error("listing compensation failed", "booking_id", booking.ID, "listing_id", listing.ID, "error", err)
	}
}

// loadListing tolerates a removed listing; callers fall back to the booking's
// host snapshot.
func loadListing(ctx context.Context, unit uow.UnitOfWork, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	listing, err := unit.Listings().ByID(ctx, id)
	if errors.Is(err, domainlistings.ErrNotFound) {
		return nil, nil
	}
	return listing, err
}

func managesBooking(actor authz.Actor, booking *domainbooking.Booking, listing *domainlistings.Listing) bool {
	if actor.IsAdmin() {
		return true
	}
	if listing != nil {
		return string(listing.Host) == actor.ID
	}
	return booking.HostID == actor.ID
}

func listingRecorder(listing *domainlistings.Listing) outbox.Recorder {
	if listing == nil {
		return nil
	}
	return listing
}

var _ bus.Handler[UpdateBookingStatusCommand, *dto.Booking] = (*UpdateBookingStatusHandler)(nil)
var _ middleware.LockedCommand = UpdateBookingStatusCommand{}
