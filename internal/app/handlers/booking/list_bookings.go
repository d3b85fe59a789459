package booking

import (
	"context"
	"strings"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/dto"
	"stayfinder/internal/app/uow"
	domainbooking "stayfinder/internal/domain/booking"
	domainlistings "stayfinder/internal/domain/listings"
	domainuser "stayfinder/internal/domain/user"
)

const (
	listGuestBookingsKey = "booking.guest.list"
	listHostBookingsKey  = "booking.host.list"
)

type ListGuestBookingsQuery struct {
	Actor authz.Actor
}

func (q ListGuestBookingsQuery) Key() string { return listGuestBookingsKey }

func (q ListGuestBookingsQuery) Caller() authz.Actor { return q.Actor }

func (q ListGuestBookingsQuery) AllowedRoles() []domainuser.Role { return nil }

type ListHostBookingsQuery struct {
	Actor  authz.Actor
	Status string `validate:"omitempty,oneof=pending confirmed cancelled completed"`
}

func (q ListHostBookingsQuery) Key() string { return listHostBookingsKey }

func (q ListHostBookingsQuery) Caller() authz.Actor { return q.Actor }

func (q ListHostBookingsQuery) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleHost}
}

type ListGuestBookingsHandler struct{}

func (h *ListGuestBookingsHandler) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.BookingCollection, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	bookings, err := unit.Bookings().ListByGuest(ctx, q.Actor.ID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return mapCollection(ctx, unit, bookings, "")
}

type ListHostBookingsHandler struct{}

func (h *ListHostBookingsHandler) Handle(ctx context.Context, q ListHostBookingsQuery) (dto.BookingCollection, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	bookings, err := unit.Bookings().ListByHost(ctx, q.Actor.ID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return mapCollection(ctx, unit, bookings, domainbooking.Status(strings.ToLower(q.Status)))
}

// mapCollection keeps repository order (newest first) and looks each listing up once.
func mapCollection(ctx context.Context, unit uow.UnitOfWork, bookings []*domainbooking.Booking, status domainbooking.Status) (dto.BookingCollection, error) {
	listings := make(map[domainlistings.ListingID]*domainlistings.Listing)
	items := make([]dto.Booking, 0, len(bookings))
	for _, booking := range bookings {
		if status != "" && booking.Status != status {
			continue
		}
		listing, seen := listings[booking.ListingID]
		if !seen {
			var err error
			listing, err = loadListing(ctx, unit, booking.ListingID)
			if err != nil {
				return dto.BookingCollection{}, err
			}
			listings[booking.ListingID] = listing
		}
		items = append(items, dto.MapBooking(booking, listing))
	}
	return dto.BookingCollection{Items: items}, nil
}

var _ bus.Handler[ListGuestBookingsQuery, dto.BookingCollection] = (*ListGuestBookingsHandler)(nil)
var _ bus.Handler[ListHostBookingsQuery, dto.BookingCollection] = (*ListHostBookingsHandler)(nil)
