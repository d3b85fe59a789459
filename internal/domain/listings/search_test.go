package listings

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stayfinder/internal/domain/shared/daterange"
)

func TestNormalizedDefaults(t *testing.T) {
	params := SearchParams{Limit: 500, Page: -3, PriceMin: 200, PriceMax: 100}.Normalized()
	assert.Equal(t, maxSearchLimit, params.Limit)
	assert.Equal(t, 1, params.Page)
	assert.Zero(t, params.PriceMax)

	params = SearchParams{}.Normalized()
	assert.Equal(t, defaultSearchLimit, params.Limit)
	assert.Equal(t, 0, params.Offset())

	params = SearchParams{Page: 3, Limit: 5}.Normalized()
	assert.Equal(t, 10, params.Offset())
}

func TestNormalizedClampsHugePage(t *testing.T) {
	params := SearchParams{Page: 1e18, Limit: 10}.Normalized()
	assert.Equal(t, maxSearchPage, params.Page)
	assert.Positive(t, params.Offset())
}

func TestNormalizedDropsInvertedRange(t *testing.T) {
	params := SearchParams{CheckIn: day(t, "2024-06-05"), CheckOut: day(t, "2024-06-01")}.Normalized()
	_, ok := params.Range()
	assert.False(t, ok)
}

func TestMatches(t *testing.T) {
	listing := newTestListing(t)
	listing.BlockWindow(daterange.DateRange{CheckIn: day(t, "2024-06-01"), CheckOut: day(t, "2024-06-04")}, "b-1", day(t, "2024-02-01"))

	tests := []struct {
		name     string
		params   SearchParams
		expected bool
	}{
		{"no filters", SearchParams{}, true},
		{"location city case-insensitive", SearchParams{Location: "brigh"}, true},
		{"location state", SearchParams{Location: "sussex"}, true},
		{"location miss", SearchParams{Location: "paris"}, false},
		{"price in range", SearchParams{PriceMin: 5000, PriceMax: 10000}, true},
		{"price above max", SearchParams{PriceMax: 9999}, false},
		{"price below min", SearchParams{PriceMin: 10001}, false},
		{"property type", SearchParams{PropertyType: "HOUSE"}, true},
		{"property type miss", SearchParams{PropertyType: "villa"}, false},
		{"guests fit", SearchParams{Guests: 4}, true},
		{"guests exceed", SearchParams{Guests: 5}, false},
		{"state filter", SearchParams{States: []ListingState{ListingInactive}}, false},
		{"dates clear", SearchParams{CheckIn: day(t, "2024-06-10"), CheckOut: day(t, "2024-06-12")}, true},
		{"dates touch blocked window", SearchParams{CheckIn: day(t, "2024-06-04"), CheckOut: day(t, "2024-06-06")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.params.Normalized().Matches(listing))
		})
	}
}

func TestNewSearchResult(t *testing.T) {
	params := SearchParams{Page: 2, Limit: 10}.Normalized()
	result := NewSearchResult(nil, 21, params)
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 21, result.Total)
}
