package availability

import (
	"context"
	"errors"
	"fmt"

	"stayfinder/internal/domain/booking"
	"stayfinder/internal/domain/listings"
	"stayfinder/internal/domain/shared/daterange"
)

var ErrNotAvailable = errors.New("availability: listing is not available for these dates")

// Lookup narrows candidate reservations on the storage side. Implementations may
// return extra rows; Admit makes the final call.
type Lookup interface {
	Overlapping(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange, statuses []booking.Status) ([]*booking.Booking, error)
}

// Admit decides whether requested fits around existing reservations. Only
// pending and confirmed bookings hold dates; boundaries are inclusive, so a
// check-in on another stay's check-out day clashes.
func Admit(existing []*booking.Booking, requested daterange.DateRange) (*booking.Booking, bool) {
	for _, candidate := range existing {
		if candidate == nil || !candidate.Blocks() {
			continue
		}
		if candidate.Range.OverlapsInclusive(requested) {
			return candidate, false
		}
	}
	return nil, true
}

type Checker struct {
	Reservations Lookup
}

func NewChecker(reservations Lookup) Checker {
	return Checker{Reservations: reservations}
}

// Ensure returns ErrNotAvailable when requested clashes with a held reservation.
func (c Checker) Ensure(ctx context.Context, listingID listings.ListingID, requested daterange.DateRange) error {
	if c.Reservations == nil {
		return errors.New("availability: reservations lookup not configured")
	}
	existing, err := c.Reservations.Overlapping(ctx, listingID, requested, booking.BlockingStatuses)
	if err != nil {
		return fmt.Errorf("availability: load reservations: %w", err)
	}
	if conflict, ok := Admit(existing, requested); !ok {
		return fmt.Errorf("%w (conflicts with booking %s)", ErrNotAvailable, conflict.ID)
	}
	return nil
}
