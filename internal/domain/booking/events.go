package booking

import (
	"time"

	"stayfinder/internal/domain/listings"
	"stayfinder/internal/domain/shared/daterange"
)

const (
	EventRequested     = "booking.requested"
	EventStatusChanged = "booking.status_changed"
	EventPaid          = "booking.paid"
	EventDeleted       = "booking.deleted"
)

type BookingRequested struct {
	BookingID BookingID           `json:"booking_id"`
	ListingID listings.ListingID  `json:"listing_id"`
	GuestID   string              `json:"guest_id"`
	HostID    string              `json:"host_id"`
	Range     daterange.DateRange `json:"range"`
	Guests    int                 `json:"guests"`
	Total     int64               `json:"total"`
	Currency  string              `json:"currency"`
	At        time.Time           `json:"at"`
}

func (e BookingRequested) EventName() string     { return EventRequested }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingStatusChanged struct {
	BookingID     BookingID           `json:"booking_id"`
	ListingID     listings.ListingID  `json:"listing_id"`
	GuestID       string              `json:"guest_id"`
	HostID        string              `json:"host_id"`
	From          Status              `json:"from"`
	To            Status              `json:"to"`
	PaymentStatus PaymentStatus       `json:"payment_status"`
	Range         daterange.DateRange `json:"range"`
	At            time.Time           `json:"at"`
}

func (e BookingStatusChanged) EventName() string     { return EventStatusChanged }
func (e BookingStatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e BookingStatusChanged) OccurredAt() time.Time { return e.At }

type BookingPaid struct {
	BookingID BookingID `json:"booking_id"`
	GuestID   string    `json:"guest_id"`
	Reference string    `json:"reference"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	At        time.Time `json:"at"`
}

func (e BookingPaid) EventName() string     { return EventPaid }
func (e BookingPaid) AggregateID() string   { return string(e.BookingID) }
func (e BookingPaid) OccurredAt() time.Time { return e.At }

type BookingDeleted struct {
	BookingID BookingID          `json:"booking_id"`
	ListingID listings.ListingID `json:"listing_id"`
	Status    Status             `json:"status"`
	At        time.Time          `json:"at"`
}

func (e BookingDeleted) EventName() string     { return EventDeleted }
func (e BookingDeleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingDeleted) OccurredAt() time.Time { return e.At }
