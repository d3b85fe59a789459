package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayfinder/internal/domain/listings"
	"stayfinder/internal/domain/pricing"
	"stayfinder/internal/domain/shared/daterange"
	"stayfinder/internal/domain/shared/events"
)

var (
	ErrInvalidGuests     = errors.New("booking: guests count must be positive")
	ErrInvalidTransition = errors.New("booking: invalid status transition")
	ErrUnknownStatus     = errors.New("booking: unknown status")
	ErrPaymentNotAllowed = errors.New("booking: payment not allowed in current state")
	ErrBookingNotFound   = errors.New("booking: not found")
	ErrConcurrentUpdate  = errors.New("booking: concurrent update")
	ErrGuestRequired     = errors.New("booking: guest id required")
	ErrHostRequired      = errors.New("booking: host id required")
	ErrListingRequired   = errors.New("booking: listing id required")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// BlockingStatuses hold dates on the listing calendar.
var BlockingStatuses = []Status{StatusPending, StatusConfirmed}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// ParseStatus accepts any casing of a known status.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return status, nil
	}
	return "", ErrUnknownStatus
}

// CanTransition reports whether from -> to is allowed. Re-setting the current
// status is not a transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Booking struct {
	ID            BookingID
	ListingID     listings.ListingID
	GuestID       string
	HostID        string
	Range         daterange.DateRange
	Guests        int
	Price         pricing.PriceBreakdown
	Status        Status
	PaymentStatus PaymentStatus
	PaymentRef    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	Delete(ctx context.Context, id BookingID) error
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListByHost(ctx context.Context, hostID string) ([]*Booking, error)
	// Overlapping pre-filters bookings on a listing that may clash with dr.
	Overlapping(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange, statuses []Status) ([]*Booking, error)
	DueForCompletion(ctx context.Context, before time.Time, limit int) ([]*Booking, error)
}

type CreateParams struct {
	ID        BookingID
	ListingID listings.ListingID
	GuestID   string
	HostID    string
	Range     daterange.DateRange
	Guests    int
	Price     pricing.PriceBreakdown
	CreatedAt time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if strings.TrimSpace(params.HostID) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(string(params.ListingID)) == "" {
		return nil, ErrListingRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	price := params.Price.Copy()
	if err := price.RecalculateTotal(); err != nil {
		return nil, err
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	b := &Booking{
		ID:            params.ID,
		ListingID:     params.ListingID,
		GuestID:       params.GuestID,
		HostID:        params.HostID,
		Range:         params.Range,
		Guests:        params.Guests,
		Price:         price,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(BookingRequested{
		BookingID: b.ID,
		ListingID: b.ListingID,
		GuestID:   b.GuestID,
		HostID:    b.HostID,
		Range:     b.Range,
		Guests:    b.Guests,
		Total:     b.Price.Total.Amount,
		Currency:  b.Price.Total.Currency,
		At:        now,
	})
	return b, nil
}

// Blocks reports whether the booking still holds its dates.
func (b *Booking) Blocks() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// ChangeStatus applies a transition from the status table. Cancelling a paid
// booking flips the payment to refunded.
func (b *Booking) ChangeStatus(next Status, now time.Time) error {
	if _, err := ParseStatus(string(next)); err != nil {
		return err
	}
	if !CanTransition(b.Status, next) {
		return ErrInvalidTransition
	}
	previous := b.Status
	b.Status = next
	b.touch(now)
	if next == StatusCancelled && b.PaymentStatus == PaymentPaid {
		b.PaymentStatus = PaymentRefunded
	}
	b.Record(BookingStatusChanged{
		BookingID:     b.ID,
		ListingID:     b.ListingID,
		GuestID:       b.GuestID,
		HostID:        b.HostID,
		From:          previous,
		To:            next,
		PaymentStatus: b.PaymentStatus,
		Range:         b.Range,
		At:            b.UpdatedAt,
	})
	return nil
}

func (b *Booking) Complete(now time.Time) error { return b.ChangeStatus(StatusCompleted, now) }

// MarkPaid records a simulated payment.
func (b *Booking) MarkPaid(reference string, now time.Time) error {
	if !b.Blocks() || b.PaymentStatus != PaymentPending {
		return ErrPaymentNotAllowed
	}
	b.PaymentStatus = PaymentPaid
	b.PaymentRef = strings.TrimSpace(reference)
	b.touch(now)
	b.Record(BookingPaid{BookingID: b.ID, GuestID: b.GuestID, Reference: b.PaymentRef, Amount: b.Price.Total.Amount, Currency: b.Price.Total.Currency, At: b.UpdatedAt})
	return nil
}

// MarkDeleted records removal so subscribers can react; the repository does the delete.
func (b *Booking) MarkDeleted(now time.Time) {
	b.touch(now)
	b.Record(BookingDeleted{BookingID: b.ID, ListingID: b.ListingID, Status: b.Status, At: b.UpdatedAt})
}

// Involves reports whether userID is the guest or the host of the booking.
func (b *Booking) Involves(userID string) bool {
	return userID != "" && (b.GuestID == userID || b.HostID == userID)
}

func (b *Booking) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	b.UpdatedAt = now.UTC()
}
