package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"stayfinder/internal/app/dto"
	"stayfinder/internal/app/uow"
	domainlistings "stayfinder/internal/domain/listings"
	"stayfinder/internal/infra/config"
	"stayfinder/internal/infra/obs"
)

const defaultFixturesPath = "data/listings.json"

func seedCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import listing fixtures from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
			if cfg.Storage != config.StorageMongo {
				logger.Warn("seeding in-memory storage; fixtures are discarded on exit")
			}
			store, err := openStorage(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			imported, err := loadListingFixtures(cmd.Context(), store.Factory, path, logger)
			if err != nil {
				return err
			}
			logger.Info("listing fixtures imported", "count", imported, "path", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", getenv("LISTINGS_FIXTURES", defaultFixturesPath), "fixtures file")
	return cmd
}

type listingFixture struct {
	ID           string              `json:"id"`
	Host         string              `json:"host"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	PropertyType string              `json:"property_type"`
	RoomType     string              `json:"room_type"`
	Location     dto.ListingLocation `json:"location"`
	Price        dto.ListingPrice    `json:"price"`
	Images       []string            `json:"images"`
	Amenities    []string            `json:"amenities"`
	MaxGuests    int                 `json:"max_guests"`
	Bedrooms     int                 `json:"bedrooms"`
	Beds         int                 `json:"beds"`
	Bathrooms    int                 `json:"bathrooms"`
}

func (fx listingFixture) params(now time.Time) domainlistings.CreateListingParams {
	return domainlistings.CreateListingParams{
		ID:   domainlistings.ListingID(fx.ID),
		Host: domainlistings.HostID(fx.Host),
		Details: domainlistings.Details{
			Title:        fx.Title,
			Description:  fx.Description,
			PropertyType: domainlistings.PropertyType(fx.PropertyType),
			RoomType:     domainlistings.RoomType(fx.RoomType),
			Location: domainlistings.Location{
				Address: fx.Location.Address,
				City:    fx.Location.City,
				State:   fx.Location.State,
				Country: fx.Location.Country,
				Lat:     fx.Location.Lat,
				Lng:     fx.Location.Lng,
			},
			Rates: domainlistings.Rates{
				Currency:    fx.Price.Currency,
				Base:        fx.Price.Base,
				CleaningFee: fx.Price.CleaningFee,
				ServiceFee:  fx.Price.ServiceFee,
			},
			Images:    append([]string(nil), fx.Images...),
			Amenities: append([]string(nil), fx.Amenities...),
			MaxGuests: fx.MaxGuests,
			Bedrooms:  fx.Bedrooms,
			Beds:      fx.Beds,
			Bathrooms: fx.Bathrooms,
		},
		Now: now,
	}
}

// loadListingFixtures saves each valid fixture in its own transaction and
// skips the invalid ones. A missing file imports nothing.
func loadListingFixtures(ctx context.Context, factory uow.Factory, path string, logger *slog.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("listing fixtures file empty", "path", path)
		return 0, nil
	}

	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return 0, fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	imported := 0
	for _, fx := range fixtures {
		listing, err := domainlistings.NewListing(fx.params(now))
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := saveListing(ctx, factory, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		imported++
	}
	return imported, nil
}

func saveListing(ctx context.Context, factory uow.Factory, listing *domainlistings.Listing) error {
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	ctx = uow.Bind(ctx, unit)
	if err := unit.Listings().Save(ctx, listing); err != nil {
		_ = unit.Rollback(ctx)
		return err
	}
	return unit.Commit(ctx)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
