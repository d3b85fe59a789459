package listings

import (
	"context"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/dto"
	"stayfinder/internal/app/uow"
	domainlistings "stayfinder/internal/domain/listings"
	domainuser "stayfinder/internal/domain/user"
)

const (
	getListingKey       = "listings.get"
	searchListingsKey   = "listings.search"
	listHostListingsKey = "listings.host.list"
)

type GetListingQuery struct {
	ListingID string `validate:"required"`
}

func (q GetListingQuery) Key() string { return getListingKey }

type SearchListingsQuery struct {
	Params domainlistings.SearchParams
}

func (q SearchListingsQuery) Key() string { return searchListingsKey }

type ListHostListingsQuery struct {
	Actor authz.Actor
}

func (q ListHostListingsQuery) Key() string { return listHostListingsKey }

func (q ListHostListingsQuery) Caller() authz.Actor { return q.Actor }

func (q ListHostListingsQuery) AllowedRoles() []domainuser.Role { return hostRoles }

type QueryHandler struct{}

func (QueryHandler) Get(ctx context.Context, q GetListingQuery) (*dto.Listing, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return nil, err
	}
	view := dto.MapListing(listing)
	return &view, nil
}

// Search returns one page of listings, newest first.
func (QueryHandler) Search(ctx context.Context, q SearchListingsQuery) (dto.ListingPage, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return dto.ListingPage{}, err
	}
	result, err := unit.Listings().Search(ctx, q.Params.Normalized())
	if err != nil {
		return dto.ListingPage{}, err
	}
	return dto.MapListingPage(result), nil
}

func (QueryHandler) ListByHost(ctx context.Context, q ListHostListingsQuery) (dto.ListingCollection, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return dto.ListingCollection{}, err
	}
	items, err := unit.Listings().ListByHost(ctx, domainlistings.HostID(q.Actor.ID))
	if err != nil {
		return dto.ListingCollection{}, err
	}
	return dto.ListingCollection{Items: dto.MapListings(items)}, nil
}

