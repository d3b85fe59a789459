package listings

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/dto"
	"stayfinder/internal/app/middleware"
	"stayfinder/internal/app/outbox"
	"stayfinder/internal/app/uow"
	domainlistings "stayfinder/internal/domain/listings"
	domainuser "stayfinder/internal/domain/user"
)

const (
	createListingKey = "listings.create"
	updateListingKey = "listings.update"
	deleteListingKey = "listings.delete"
)

var hostRoles = []domainuser.Role{domainuser.RoleHost}

type CreateListingCommand struct {
	Actor           authz.Actor
	Details         domainlistings.Details
	IdempotencyKeyV string
}

func (c CreateListingCommand) Key() string { return createListingKey }

func (c CreateListingCommand) Caller() authz.Actor { return c.Actor }

func (c CreateListingCommand) AllowedRoles() []domainuser.Role { return hostRoles }

func (c CreateListingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateListingCommand) ResultPrototype() any { return &dto.Listing{} }

type UpdateListingCommand struct {
	Actor     authz.Actor
	ListingID string `validate:"required"`
	Details   domainlistings.Details
}

func (c UpdateListingCommand) Key() string { return updateListingKey }

func (c UpdateListingCommand) Caller() authz.Actor { return c.Actor }

func (c UpdateListingCommand) AllowedRoles() []domainuser.Role { return hostRoles }

func (c UpdateListingCommand) LockKey() string { return "listing:" + c.ListingID }

type DeleteListingCommand struct {
	Actor     authz.Actor
	ListingID string `validate:"required"`
}

func (c DeleteListingCommand) Key() string { return deleteListingKey }

func (c DeleteListingCommand) Caller() authz.Actor { return c.Actor }

func (c DeleteListingCommand) AllowedRoles() []domainuser.Role { return hostRoles }

func (c DeleteListingCommand) LockKey() string { return "listing:" + c.ListingID }

type DeleteListingResult struct {
	ListingID string `json:"listing_id"`
}

type HostCommandsHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

func (h *HostCommandsHandler) Create(ctx context.Context, cmd CreateListingCommand) (*dto.Listing, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	if h.NewID != nil {
		id = h.NewID()
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:      domainlistings.ListingID(id),
		Host:    domainlistings.HostID(cmd.Actor.ID),
		Details: cmd.Details,
		Now:     h.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := outbox.Publish(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing created", "listing_id", listing.ID, "host_id", listing.Host)
	}
	view := dto.MapListing(listing)
	return &view, nil
}

func (h *HostCommandsHandler) Update(ctx context.Context, cmd UpdateListingCommand) (*dto.Listing, error) {
	unit, listing, err := loadOwned(ctx, cmd.Actor, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if err := listing.Update(cmd.Details, h.now()); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := outbox.Publish(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return nil, err
	}
	view := dto.MapListing(listing)
	return &view, nil
}

func (h *HostCommandsHandler) Delete(ctx context.Context, cmd DeleteListingCommand) (*DeleteListingResult, error) {
	unit, listing, err := loadOwned(ctx, cmd.Actor, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if err := unit.Listings().Delete(ctx, listing.ID); err != nil {
		return nil, err
	}
	listing.Record(domainlistings.ListingDeletedEvent{ListingID: listing.ID, HostID: listing.Host, At: h.now()})
	if err := outbox.Publish(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing deleted", "listing_id", listing.ID, "host_id", listing.Host)
	}
	return &DeleteListingResult{ListingID: string(listing.ID)}, nil
}

func (h *HostCommandsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

// loadOwned fetches a listing the actor may change: its host only.
func loadOwned(ctx context.Context, actor authz.Actor, listingID string) (uow.UnitOfWork, *domainlistings.Listing, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return nil, nil, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		return nil, nil, err
	}
	if !listing.OwnedBy(domainlistings.HostID(actor.ID)) {
		return nil, nil, ErrNotOwner
	}
	return unit, listing, nil
}

var _ middleware.IdempotentCommand = CreateListingCommand{}
var _ middleware.LockedCommand = UpdateListingCommand{}
