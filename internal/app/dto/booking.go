package dto

import (
	"time"

	domainbooking "stayfinder/internal/domain/booking"
	domainlistings "stayfinder/internal/domain/listings"
	domainpricing "stayfinder/internal/domain/pricing"
)

// BookingListingSnapshot is the listing context shown next to a booking.
type BookingListingSnapshot struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	City     string `json:"city"`
	Country  string `json:"country"`
	ImageURL string `json:"image_url,omitempty"`
}

type PriceBreakdown struct {
	Nights      int      `json:"nights"`
	Nightly     MoneyDTO `json:"nightly"`
	CleaningFee MoneyDTO `json:"cleaning_fee"`
	ServiceFee  MoneyDTO `json:"service_fee"`
	Total       MoneyDTO `json:"total"`
}

type Booking struct {
	ID            string                 `json:"id"`
	Listing       BookingListingSnapshot `json:"listing"`
	GuestID       string                 `json:"guest_id"`
	HostID        string                 `json:"host_id"`
	CheckIn       time.Time              `json:"check_in"`
	CheckOut      time.Time              `json:"check_out"`
	Guests        int                    `json:"guests"`
	Price         PriceBreakdown         `json:"price"`
	TotalPrice    int64                  `json:"total_price"`
	Status        string                 `json:"status"`
	PaymentStatus string                 `json:"payment_status"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

func MapPriceBreakdown(price domainpricing.PriceBreakdown) PriceBreakdown {
	return PriceBreakdown{
		Nights:      price.Nights,
		Nightly:     MapMoney(price.Nightly),
		CleaningFee: MapMoney(price.FeeAmount(domainpricing.FeeCleaning)),
		ServiceFee:  MapMoney(price.FeeAmount(domainpricing.FeeService)),
		Total:       MapMoney(price.Total),
	}
}

// MapBooking builds the booking view; listing may be nil when it was removed.
func MapBooking(booking *domainbooking.Booking, listing *domainlistings.Listing) Booking {
	if booking == nil {
		return Booking{}
	}
	snapshot := BookingListingSnapshot{ID: string(booking.ListingID)}
	if listing != nil {
		snapshot.Title = listing.Title
		snapshot.City = listing.Location.City
		snapshot.Country = listing.Location.Country
		if len(listing.Images) > 0 {
			snapshot.ImageURL = listing.Images[0]
		}
	}
	return Booking{
		ID:            string(booking.ID),
		Listing:       snapshot,
		GuestID:       booking.GuestID,
		HostID:        booking.HostID,
		CheckIn:       booking.Range.CheckIn,
		CheckOut:      booking.Range.CheckOut,
		Guests:        booking.Guests,
		Price:         MapPriceBreakdown(booking.Price),
		TotalPrice:    booking.Price.Total.Amount,
		Status:        string(booking.Status),
		PaymentStatus: string(booking.PaymentStatus),
		CreatedAt:     booking.CreatedAt,
		UpdatedAt:     booking.UpdatedAt,
	}
}
