package listings

import (
	"log/slog"
	"time"

	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/dto"
	"stayfinder/internal/app/outbox"
)

type Deps struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Photos  PhotoStorage
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

func RegisterCommands(b *bus.InMemoryBus, deps Deps) {
	host := &HostCommandsHandler{Outbox: deps.Outbox, Encoder: deps.Encoder, Logger: deps.Logger, Now: deps.Now, NewID: deps.NewID}
	bus.Register[CreateListingCommand, *dto.Listing](b, bus.HandlerFunc[CreateListingCommand, *dto.Listing](host.Create))
	bus.Register[UpdateListingCommand, *dto.Listing](b, bus.HandlerFunc[UpdateListingCommand, *dto.Listing](host.Update))
	bus.Register[DeleteListingCommand, *DeleteListingResult](b, bus.HandlerFunc[DeleteListingCommand, *DeleteListingResult](host.Delete))
	bus.Register[UploadListingPhotoCommand, *dto.Listing](b, &UploadListingPhotoHandler{Storage: deps.Photos, Logger: deps.Logger, Now: deps.Now})
}

func RegisterQueries(b *bus.InMemoryBus) {
	var h QueryHandler
	bus.Register[GetListingQuery, *dto.Listing](b, bus.HandlerFunc[GetListingQuery, *dto.Listing](h.Get))
	bus.Register[SearchListingsQuery, dto.ListingPage](b, bus.HandlerFunc[SearchListingsQuery, dto.ListingPage](h.Search))
	bus.Register[ListHostListingsQuery, dto.ListingCollection](b, bus.HandlerFunc[ListHostListingsQuery, dto.ListingCollection](h.ListByHost))
}
