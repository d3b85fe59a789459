package dto

import (
	"time"

	domainlistings "stayfinder/internal/domain/listings"
)

type ListingLocation struct {
	Address string  `json:"address"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type ListingPrice struct {
	Base        int64  `json:"base"`
	Currency    string `json:"currency"`
	CleaningFee int64  `json:"cleaning_fee"`
	ServiceFee  int64  `json:"service_fee"`
}

// BlockedWindow is a date span already held by a reservation.
type BlockedWindow struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

type Listing struct {
	ID           string          `json:"id"`
	HostID       string          `json:"host_id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	PropertyType string          `json:"property_type"`
	RoomType     string          `json:"room_type"`
	Location     ListingLocation `json:"location"`
	Price        ListingPrice    `json:"price"`
	Images       []string        `json:"images"`
	Amenities    []string        `json:"amenities"`
	MaxGuests    int             `json:"max_guests"`
	Bedrooms     int             `json:"bedrooms"`
	Beds         int             `json:"beds"`
	Bathrooms    int             `json:"bathrooms"`
	Blocked      []BlockedWindow `json:"blocked"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ListingPage struct {
	Items      []Listing `json:"items"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

type ListingCollection struct {
	Items []Listing `json:"items"`
}

func MapListing(listing *domainlistings.Listing) Listing {
	if listing == nil {
		return Listing{}
	}
	blocked := make([]BlockedWindow, 0, len(listing.Blocked))
	for _, window := range listing.Blocked {
		blocked = append(blocked, BlockedWindow{CheckIn: window.Range.CheckIn, CheckOut: window.Range.CheckOut})
	}
	return Listing{
		ID:           string(listing.ID),
		HostID:       string(listing.Host),
		Title:        listing.Title,
		Description:  listing.Description,
		PropertyType: string(listing.PropertyType),
		RoomType:     string(listing.RoomType),
		Location: ListingLocation{
			Address: listing.Location.Address,
			City:    listing.Location.City,
			State:   listing.Location.State,
			Country: listing.Location.Country,
			Lat:     listing.Location.Lat,
			Lng:     listing.Location.Lng,
		},
		Price: ListingPrice{
			Base:        listing.Rates.Base,
			Currency:    listing.Rates.Currency,
			CleaningFee: listing.Rates.CleaningFee,
			ServiceFee:  listing.Rates.ServiceFee,
		},
		Images:    append([]string{}, listing.Images...),
		Amenities: append([]string{}, listing.Amenities...),
		MaxGuests: listing.MaxGuests,
		Bedrooms:  listing.Bedrooms,
		Beds:      listing.Beds,
		Bathrooms: listing.Bathrooms,
		Blocked:   blocked,
		Status:    string(listing.State),
		CreatedAt: listing.CreatedAt,
		UpdatedAt: listing.UpdatedAt,
	}
}

func MapListings(items []*domainlistings.Listing) []Listing {
	out := make([]Listing, 0, len(items))
	for _, item := range items {
		out = append(out, MapListing(item))
	}
	return out
}

func MapListingPage(result domainlistings.SearchResult) ListingPage {
	return ListingPage{
		Items:      MapListings(result.Items),
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
	}
}
