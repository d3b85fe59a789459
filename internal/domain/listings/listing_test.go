package listings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayfinder/internal/domain/shared/daterange"
)

func validDetails() Details {
	return Details{
		Title:        "Seaside cottage",
		Description:  "Quiet cottage two minutes from the beach.",
		PropertyType: "House",
		RoomType:     "entire",
		Location:     Location{Address: "1 Shore Rd", City: "Brighton", State: "East Sussex", Country: "UK"},
		Rates:        Rates{Base: 10000, CleaningFee: 2000, ServiceFee: 1000},
		Images:       []string{"https://img.example.com/1.jpg"},
		Amenities:    []string{"wifi", " WiFi ", "parking"},
		MaxGuests:    4,
		Bedrooms:     2,
		Beds:         2,
		Bathrooms:    1,
	}
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}

func newTestListing(t *testing.T) *Listing {
	t.Helper()
	listing, err := NewListing(CreateListingParams{ID: "l-1", Host: "h-1", Details: validDetails(), Now: day(t, "2024-01-01")})
	require.NoError(t, err)
	return listing
}

func TestNewListingNormalizes(t *testing.T) {
	listing := newTestListing(t)

	assert.Equal(t, PropertyHouse, listing.PropertyType)
	assert.Equal(t, ListingActive, listing.State)
	assert.Equal(t, "USD", listing.Rates.Currency)
	assert.Equal(t, []string{"wifi", "parking"}, listing.Amenities)
	require.Len(t, listing.PendingEvents(), 1)
	assert.Equal(t, "listing.created", listing.PendingEvents()[0].EventName())
}

func TestNewListingValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Details)
		err    error
	}{
		{"short title", func(d *Details) { d.Title = "Hut" }, ErrTitleLength},
		{"short description", func(d *Details) { d.Description = "tiny" }, ErrDescriptionLength},
		{"property type", func(d *Details) { d.PropertyType = "castle" }, ErrPropertyType},
		{"room type", func(d *Details) { d.RoomType = "bunk" }, ErrRoomType},
		{"location", func(d *Details) { d.Location.State = " " }, ErrLocationRequired},
		{"negative fee", func(d *Details) { d.Rates.CleaningFee = -1 }, ErrNegativeRate},
		{"guests", func(d *Details) { d.MaxGuests = 0 }, ErrGuestsLimit},
		{"beds", func(d *Details) { d.Beds = 0 }, ErrRooms},
		{"image url", func(d *Details) { d.Images = []string{"ftp://x"} }, ErrImageURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := validDetails()
			tt.mutate(&details)
			_, err := NewListing(CreateListingParams{ID: "l-1", Host: "h-1", Details: details})
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestBlockAndReleaseWindow(t *testing.T) {
	listing := newTestListing(t)
	listing.ClearEvents()

	first := daterange.DateRange{CheckIn: day(t, "2024-06-01"), CheckOut: day(t, "2024-06-04")}
	second := daterange.DateRange{CheckIn: day(t, "2024-07-01"), CheckOut: day(t, "2024-07-03")}
	listing.BlockWindow(first, "b-1", day(t, "2024-02-01"))
	listing.BlockWindow(second, "b-2", day(t, "2024-02-01"))

	assert.True(t, listing.HasBlockedOverlap(daterange.DateRange{CheckIn: day(t, "2024-06-04"), CheckOut: day(t, "2024-06-06")}))
	assert.False(t, listing.HasBlockedOverlap(daterange.DateRange{CheckIn: day(t, "2024-06-05"), CheckOut: day(t, "2024-06-06")}))

	// only exact matches are released
	assert.False(t, listing.ReleaseWindow(daterange.DateRange{CheckIn: day(t, "2024-06-01"), CheckOut: day(t, "2024-06-03")}, time.Time{}))
	assert.True(t, listing.ReleaseWindow(first, day(t, "2024-02-02")))
	require.Len(t, listing.Blocked, 1)
	assert.Equal(t, "b-2", listing.Blocked[0].BookingID)

	names := []string{}
	for _, evt := range listing.PendingEvents() {
		names = append(names, evt.EventName())
	}
	assert.Equal(t, []string{"listing.window_blocked", "listing.window_blocked", "listing.window_released"}, names)
}

func TestUpdateAndState(t *testing.T) {
	listing := newTestListing(t)
	details := validDetails()
	details.MaxGuests = 6
	require.NoError(t, listing.Update(details, day(t, "2024-03-01")))
	assert.Equal(t, 6, listing.MaxGuests)
	assert.Equal(t, day(t, "2024-03-01"), listing.UpdatedAt)

	assert.ErrorIs(t, listing.ChangeState("gone", time.Time{}), ErrInvalidState)
	require.NoError(t, listing.ChangeState(ListingSuspended, time.Time{}))
	assert.Equal(t, ListingSuspended, listing.State)

	require.NoError(t, listing.AddImage("http://img.example.com/2.jpg", time.Time{}))
	assert.Len(t, listing.Images, 2)
	assert.ErrorIs(t, listing.AddImage("not-a-url", time.Time{}), ErrImageURL)
}
