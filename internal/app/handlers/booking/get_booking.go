package booking

import (
	"context"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/dto"
	"stayfinder/internal/app/uow"
	domainbooking "stayfinder/internal/domain/booking"
	domainuser "stayfinder/internal/domain/user"
)

const getBookingKey = "booking.get"

type GetBookingQuery struct {
	Actor     authz.Actor
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

func (q GetBookingQuery) Caller() authz.Actor { return q.Actor }

func (q GetBookingQuery) AllowedRoles() []domainuser.Role { return nil }

type GetBookingHandler struct{}

// Handle returns the booking to its guest or host only.
func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (*dto.Booking, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return nil, err
	}
	if !booking.Involves(q.Actor.ID) {
		return nil, ErrNotAuthorized
	}
	listing, err := loadListing(ctx, unit, booking.ListingID)
	if err != nil {
		return nil, err
	}
	view := dto.MapBooking(booking, listing)
	return &view, nil
}

var _ bus.Handler[GetBookingQuery, *dto.Booking] = (*GetBookingHandler)(nil)
