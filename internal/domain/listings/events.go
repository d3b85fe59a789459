package listings

import (
	"time"

	"stayfinder/internal/domain/shared/daterange"
)

type ListingCreatedEvent struct {
	ListingID ListingID `json:"listing_id"`
	HostID    HostID    `json:"host_id"`
	At        time.Time `json:"at"`
}

func (e ListingCreatedEvent) EventName() string     { return "listing.created" }
func (e ListingCreatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreatedEvent) OccurredAt() time.Time { return e.At }

type ListingUpdatedEvent struct {
	ListingID ListingID `json:"listing_id"`
	At        time.Time `json:"at"`
}

func (e ListingUpdatedEvent) EventName() string     { return "listing.updated" }
func (e ListingUpdatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingUpdatedEvent) OccurredAt() time.Time { return e.At }

type ListingStateChangedEvent struct {
	ListingID ListingID    `json:"listing_id"`
	State     ListingState `json:"state"`
	At        time.Time    `json:"at"`
}

func (e ListingStateChangedEvent) EventName() string     { return "listing.state_changed" }
func (e ListingStateChangedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingStateChangedEvent) OccurredAt() time.Time { return e.At }

type ListingDeletedEvent struct {
	ListingID ListingID `json:"listing_id"`
	HostID    HostID    `json:"host_id"`
	At        time.Time `json:"at"`
}

func (e ListingDeletedEvent) EventName() string     { return "listing.deleted" }
func (e ListingDeletedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingDeletedEvent) OccurredAt() time.Time { return e.At }

type WindowBlockedEvent struct {
	ListingID ListingID           `json:"listing_id"`
	BookingID string              `json:"booking_id"`
	Range     daterange.DateRange `json:"range"`
	At        time.Time           `json:"at"`
}

func (e WindowBlockedEvent) EventName() string     { return "listing.window_blocked" }
func (e WindowBlockedEvent) AggregateID() string   { return string(e.ListingID) }
func (e WindowBlockedEvent) OccurredAt() time.Time { return e.At }

type WindowReleasedEvent struct {
	ListingID ListingID           `json:"listing_id"`
	BookingID string              `json:"booking_id"`
	Range     daterange.DateRange `json:"range"`
	At        time.Time           `json:"at"`
}

func (e WindowReleasedEvent) EventName() string     { return "listing.window_released" }
func (e WindowReleasedEvent) AggregateID() string   { return string(e.ListingID) }
func (e WindowReleasedEvent) OccurredAt() time.Time { return e.At }
