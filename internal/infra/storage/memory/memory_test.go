package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayfinder/internal/app/middleware"
	appoutbox "stayfinder/internal/app/outbox"
	domainbooking "stayfinder/internal/domain/booking"
	domainlistings "stayfinder/internal/domain/listings"
	"stayfinder/internal/domain/shared/daterange"
)

var base = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return base.AddDate(0, 0, n) }

func stay(t *testing.T, in, out int) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(day(in), day(out))
	require.NoError(t, err)
	return dr
}

func listing(id, city string, price int64, created time.Time) *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:        domainlistings.ListingID(id),
		Host:      "host-1",
		Title:     "Listing " + id,
		Location:  domainlistings.Location{Address: "1 Main St", City: city, State: "S", Country: "C"},
		Rates:     domainlistings.Rates{Currency: "USD", Base: price},
		MaxGuests: 4,
		State:     domainlistings.ListingActive,
		CreatedAt: created,
	}
}

func TestListingSaveDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository()
	l := listing("l1", "Annecy", 100, base)
	require.NoError(t, repo.Save(ctx, l))

	first, err := repo.ByID(ctx, "l1")
	require.NoError(t, err)
	second, err := repo.ByID(ctx, "l1")
	require.NoError(t, err)

	first.Title = "Updated"
	require.NoError(t, repo.Save(ctx, first))
	second.Title = "Lost update"
	assert.ErrorIs(t, repo.Save(ctx, second), domainlistings.ErrConcurrentUpdate)

	stored, err := repo.ByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "Updated", stored.Title)
}

func TestListingReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository()
	l := listing("l1", "Annecy", 100, base)
	l.Amenities = []string{"wifi"}
	require.NoError(t, repo.Save(ctx, l))

	got, err := repo.ByID(ctx, "l1")
	require.NoError(t, err)
	got.Amenities[0] = "changed"

	again, err := repo.ByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, []string{"wifi"}, again.Amenities)
}

func TestListingSearchPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, listing(fmt.Sprintf("l%d", i), "Annecy", int64(100*(i+1)), day(i))))
	}
	require.NoError(t, repo.Save(ctx, listing("other", "Lisbon", 100, day(10))))

	res, err := repo.Search(ctx, domainlistings.SearchParams{Location: "annecy", Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Items, 2)
	assert.Equal(t, domainlistings.ListingID("l2"), res.Items[0].ID)
	assert.Equal(t, domainlistings.ListingID("l1"), res.Items[1].ID)

	res, err = repo.Search(ctx, domainlistings.SearchParams{Location: "annecy", Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 5, res.Total)

	assert.NotPanics(t, func() {
		res, err = repo.Search(ctx, domainlistings.SearchParams{Page: 1e18, Limit: 10})
	})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 6, res.Total)
}

func TestListingSearchSkipsBlockedDates(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository()
	busy := listing("busy", "Annecy", 100, base)
	busy.Blocked = []domainlistings.BlockedWindow{{Range: stay(t, 3, 6), BookingID: "b1"}}
	require.NoError(t, repo.Save(ctx, busy))
	require.NoError(t, repo.Save(ctx, listing("free", "Annecy", 100, base)))

	res, err := repo.Search(ctx, domainlistings.SearchParams{CheckIn: day(6), CheckOut: day(8)})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, domainlistings.ListingID("free"), res.Items[0].ID)

	res, err = repo.Search(ctx, domainlistings.SearchParams{CheckIn: day(7), CheckOut: day(8)})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
}

func booking(id string, listingID string, dr daterange.DateRange, status domainbooking.Status, created time.Time) *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:        domainbooking.BookingID(id),
		ListingID: domainlistings.ListingID(listingID),
		GuestID:   "guest-1",
		HostID:    "host-1",
		Range:     dr,
		Guests:    1,
		Status:    status,
		CreatedAt: created,
	}
}

func TestBookingOverlappingFiltersByListingStatusAndRange(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()
	require.NoError(t, repo.Save(ctx, booking("pending", "l1", stay(t, 1, 5), domainbooking.StatusPending, day(0))))
	require.NoError(t, repo.Save(ctx, booking("cancelled", "l1", stay(t, 1, 5), domainbooking.StatusCancelled, day(0))))
	require.NoError(t, repo.Save(ctx, booking("elsewhere", "l2", stay(t, 1, 5), domainbooking.StatusConfirmed, day(0))))
	require.NoError(t, repo.Save(ctx, booking("later", "l1", stay(t, 9, 12), domainbooking.StatusConfirmed, day(0))))

	active := []domainbooking.Status{domainbooking.StatusPending, domainbooking.StatusConfirmed}
	got, err := repo.Overlapping(ctx, "l1", stay(t, 5, 9), active)
	require.NoError(t, err)
	ids := make([]domainbooking.BookingID, 0, len(got))
	for _, b := range got {
		ids = append(ids, b.ID)
	}
	assert.ElementsMatch(t, []domainbooking.BookingID{"pending", "later"}, ids)

	got, err = repo.Overlapping(ctx, "l1", stay(t, 6, 8), active)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBookingDueForCompletion(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()
	require.NoError(t, repo.Save(ctx, booking("late", "l1", stay(t, 3, 6), domainbooking.StatusConfirmed, day(0))))
	require.NoError(t, repo.Save(ctx, booking("early", "l1", stay(t, 1, 2), domainbooking.StatusConfirmed, day(0))))
	require.NoError(t, repo.Save(ctx, booking("pending", "l1", stay(t, 1, 2), domainbooking.StatusPending, day(0))))
	require.NoError(t, repo.Save(ctx, booking("future", "l1", stay(t, 20, 22), domainbooking.StatusConfirmed, day(0))))

	due, err := repo.DueForCompletion(ctx, day(10), 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, domainbooking.BookingID("early"), due[0].ID)
	assert.Equal(t, domainbooking.BookingID("late"), due[1].ID)

	due, err = repo.DueForCompletion(ctx, day(10), 1)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestBookingListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()
	require.NoError(t, repo.Save(ctx, booking("old", "l1", stay(t, 1, 2), domainbooking.StatusPending, day(0))))
	require.NoError(t, repo.Save(ctx, booking("new", "l1", stay(t, 3, 4), domainbooking.StatusPending, day(1))))

	got, err := repo.ListByGuest(ctx, "guest-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domainbooking.BookingID("new"), got[0].ID)

	got, err = repo.ListByHost(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKeyedLockerSerializesSameKey(t *testing.T) {
	locker := NewKeyedLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "listing:l1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, locker.locks)
}

func TestKeyedLockerTimesOut(t *testing.T) {
	locker := NewKeyedLocker()
	release, err := locker.Acquire(context.Background(), "listing:l1")
	require.NoError(t, err)
	defer release()

	other, err := locker.Acquire(context.Background(), "listing:l2")
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "listing:l1")
	assert.True(t, errors.Is(err, middleware.ErrLockUnavailable))
}

func TestOutboxClaimRetryAndSend(t *testing.T) {
	ctx := context.Background()
	box := NewOutbox()
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "booking.requested"}))
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "e2", Name: "booking.confirmed"}))

	first, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "e1", first.ID)

	require.NoError(t, box.MarkFailed(ctx, "e1", time.Now().Add(time.Hour), "broker down"))
	second, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "e2", second.ID)

	none, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, box.MarkSent(ctx, "e2"))
	records := box.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "e1", records[0].ID)
}
