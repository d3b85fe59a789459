package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	domainbooking "stayfinder/internal/domain/booking"
	domainlistings "stayfinder/internal/domain/listings"
	"stayfinder/internal/domain/pricing"
	"stayfinder/internal/domain/shared/daterange"
	"stayfinder/internal/domain/shared/money"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return ts
}

func TestBuildSearchFilterEmpty(t *testing.T) {
	filter := buildSearchFilter(domainlistings.SearchParams{}.Normalized())
	require.Empty(t, filter)
}

func TestBuildSearchFilter(t *testing.T) {
	params := domainlistings.SearchParams{
		Location:     "san.jose",
		CheckIn:      day(t, "2026-03-01"),
		CheckOut:     day(t, "2026-03-04"),
		Guests:       3,
		PriceMin:     5000,
		PriceMax:     20000,
		PropertyType: "Cabin",
		States:       []domainlistings.ListingState{domainlistings.ListingActive},
	}.Normalized()

	filter := buildSearchFilter(params)

	or, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 4)
	require.Equal(t, bson.M{"location.city": bson.M{"$regex": `san\.jose`, "$options": "i"}}, or[1])
	require.Equal(t, bson.M{"$gte": int64(5000), "$lte": int64(20000)}, filter["rates.base"])
	require.Equal(t, "cabin", filter["property_type"])
	require.Equal(t, bson.M{"$gte": 3}, filter["max_guests"])
	require.Equal(t, bson.M{"$in": []string{"active"}}, filter["state"])

	blocked := filter["blocked"].(bson.M)["$not"].(bson.M)["$elemMatch"].(bson.M)
	require.Equal(t, bson.M{"$lte": day(t, "2026-03-04").UnixMilli()}, blocked["check_in"])
	require.Equal(t, bson.M{"$gte": day(t, "2026-03-01").UnixMilli()}, blocked["check_out"])
}

func TestOverlapFilterIsInclusive(t *testing.T) {
	dr := daterange.DateRange{CheckIn: day(t, "2026-05-10"), CheckOut: day(t, "2026-05-12")}
	filter := overlapFilter("l-1", dr, domainbooking.BlockingStatuses)

	require.Equal(t, "l-1", filter["listing_id"])
	require.Equal(t, bson.M{"$lte": dr.CheckOut.UnixMilli()}, filter["range.check_in"])
	require.Equal(t, bson.M{"$gte": dr.CheckIn.UnixMilli()}, filter["range.check_out"])
	require.Equal(t, bson.M{"$in": []string{"pending", "confirmed"}}, filter["status"])

	all := overlapFilter("l-1", dr, nil)
	require.NotContains(t, all, "status")
}

func TestBookingDocumentRoundTrip(t *testing.T) {
	created := day(t, "2026-01-15").Add(9 * time.Hour)
	b := &domainbooking.Booking{
		ID:        "b-1",
		ListingID: "l-1",
		GuestID:   "guest-1",
		HostID:    "host-1",
		Range:     daterange.DateRange{CheckIn: day(t, "2026-02-01"), CheckOut: day(t, "2026-02-04")},
		Guests:    2,
		Price: pricing.PriceBreakdown{
			Nights:  3,
			Nightly: money.Must(10000, "EUR"),
			Fees: []pricing.Fee{
				{Name: pricing.FeeCleaning, Amount: money.Must(2000, "EUR")},
				{Name: pricing.FeeService, Amount: money.Must(1000, "EUR")},
			},
			Total: money.Must(33000, "EUR"),
		},
		Status:        domainbooking.StatusConfirmed,
		PaymentStatus: domainbooking.PaymentPaid,
		PaymentRef:    "pay_1",
		CreatedAt:     created,
		UpdatedAt:     created,
		Version:       4,
	}

	got := newBookingDocument(b).toAggregate()

	require.Equal(t, b.Range, got.Range)
	require.Equal(t, b.Price, got.Price)
	require.Equal(t, b.Status, got.Status)
	require.Equal(t, b.PaymentRef, got.PaymentRef)
	require.True(t, b.CreatedAt.Equal(got.CreatedAt))
	require.Equal(t, int64(4), got.Version)
}
