package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"stayfinder/internal/infra/config"
	mongostore "stayfinder/internal/infra/db/mongo"
	"stayfinder/internal/infra/inbox"
	"stayfinder/internal/infra/obs"
	infraoutbox "stayfinder/internal/infra/outbox"
)

func indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Storage != config.StorageMongo {
				return errors.New("indexes: STORAGE must be mongo")
			}
			logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			client, err := mongostore.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
			if err != nil {
				return err
			}
			defer client.Close(context.Background())

			if err := mongostore.EnsureIndexes(ctx, client.DB); err != nil {
				return err
			}
			if err := infraoutbox.NewMongoStore(client.DB).EnsureIndexes(ctx); err != nil {
				return err
			}
			if err := inbox.NewStore(client.DB, notifierConsumer).EnsureIndexes(ctx); err != nil {
				return err
			}
			logger.Info("indexes ensured", "database", cfg.Mongo.Database)
			return nil
		},
	}
}
