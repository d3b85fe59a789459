package memory

import (
	"context"
	"sort"
	"sync"

	domainlistings "stayfinder/internal/domain/listings"
	"stayfinder/internal/domain/shared/events"
)

// ListingRepository keeps listings in a map. Reads and writes copy the
// aggregate so callers never share state with the store.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[domainlistings.ListingID]*domainlistings.Listing)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return cloneListing(listing), nil
}

// Save inserts or replaces a listing. The stored version must match the
// caller's copy, otherwise ErrConcurrentUpdate is returned.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.items[listing.ID]; ok && current.Version != listing.Version {
		return domainlistings.ErrConcurrentUpdate
	}
	listing.Version++
	r.items[listing.ID] = cloneListing(listing)
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domainlistings.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	params = params.Normalized()
	r.mu.RLock()
	matched := make([]*domainlistings.Listing, 0)
	for _, listing := range r.items {
		if params.Matches(listing) {
			matched = append(matched, listing)
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(matched)
	total := len(matched)
	start := params.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := start + params.Limit
	if end > total {
		end = total
	}
	page := make([]*domainlistings.Listing, 0, end-start)
	for _, listing := range matched[start:end] {
		page = append(page, cloneListing(listing))
	}
	return domainlistings.NewSearchResult(page, total, params), nil
}

func (r *ListingRepository) ListByHost(ctx context.Context, host domainlistings.HostID) ([]*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainlistings.Listing, 0)
	for _, listing := range r.items {
		if listing.Host == host {
			out = append(out, cloneListing(listing))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(items []*domainlistings.Listing) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	if l == nil {
		return nil
	}
	c := *l
	c.EventRecorder = events.EventRecorder{}
	c.Images = append([]string(nil), l.Images...)
	c.Amenities = append([]string(nil), l.Amenities...)
	c.Blocked = append([]domainlistings.BlockedWindow(nil), l.Blocked...)
	return &c
}

var _ domainlistings.ListingRepository = (*ListingRepository)(nil)
