package main

import (
	"context"
	"fmt"
	"log/slog"

	"stayfinder/internal/app/handlers/notifications"
	"stayfinder/internal/app/middleware"
	appoutbox "stayfinder/internal/app/outbox"
	"stayfinder/internal/app/uow"
	domainbooking "stayfinder/internal/domain/booking"
	domainlistings "stayfinder/internal/domain/listings"
	domainuser "stayfinder/internal/domain/user"
	"stayfinder/internal/infra/config"
	mongostore "stayfinder/internal/infra/db/mongo"
	"stayfinder/internal/infra/inbox"
	"stayfinder/internal/infra/obs"
	infraoutbox "stayfinder/internal/infra/outbox"
	"stayfinder/internal/infra/storage/memory"
)

// relayOutbox is written by command handlers and drained by the relay.
type relayOutbox interface {
	appoutbox.Outbox
	infraoutbox.Store
}

// storage bundles the persistence adapters for one backend.
type storage struct {
	Listings    domainlistings.ListingRepository
	Bookings    domainbooking.Repository
	Users       domainuser.Repository
	Factory     uow.Factory
	Idempotency middleware.IdempotencyStore
	Locker      middleware.Locker
	Outbox      relayOutbox
	Checks      map[string]obs.Check

	client *mongostore.Client
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.Storage {
	case config.StorageMongo:
		client, err := mongostore.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		db := client.DB
		listings := mongostore.NewListingRepository(db)
		bookings := mongostore.NewBookingRepository(db)
		logger.Info("mongo storage ready", "database", cfg.Mongo.Database)
		return &storage{
			Listings:    listings,
			Bookings:    bookings,
			Users:       mongostore.NewUserRepository(db),
			Factory:     mongostore.Factory{DB: db, ListingsRepo: listings, BookingsRepo: bookings},
			Idempotency: mongostore.NewIdempotencyStore(db),
			Locker:      mongostore.NewLocker(db),
			Outbox:      infraoutbox.NewMongoStore(db),
			Checks:      map[string]obs.Check{"mongo": client.Ping},
			client:      client,
		}, nil
	default:
		listings := memory.NewListingRepository()
		bookings := memory.NewBookingRepository()
		logger.Warn("using in-memory storage; data is lost on restart")
		return &storage{
			Listings:    listings,
			Bookings:    bookings,
			Users:       memory.NewUserRepository(),
			Factory:     memory.Factory{ListingsRepo: listings, BookingsRepo: bookings},
			Idempotency: memory.NewIdempotencyStore(),
			Locker:      memory.NewKeyedLocker(),
			Outbox:      memory.NewOutbox(),
			Checks:      map[string]obs.Check{},
		}, nil
	}
}

// inboxFor returns the processed-event store for a consumer name.
func (s *storage) inboxFor(consumer string) notifications.Inbox {
	if s.client == nil {
		return memory.NewInbox()
	}
	return inbox.NewStore(s.client.DB, consumer)
}

func (s *storage) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Close(ctx)
}
