package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"stayfinder/internal/app/authz"
	"stayfinder/internal/app/bus"
	bookingapp "stayfinder/internal/app/handlers/booking"
	listingapp "stayfinder/internal/app/handlers/listings"
	"stayfinder/internal/app/middleware"
	appoutbox "stayfinder/internal/app/outbox"
	authsvc "stayfinder/internal/app/services/auth"
	"stayfinder/internal/infra/broker/kafka"
	"stayfinder/internal/infra/config"
	ginserver "stayfinder/internal/infra/http/gin"
	"stayfinder/internal/infra/obs"
	infraoutbox "stayfinder/internal/infra/outbox"
	"stayfinder/internal/infra/ratelimit"
	"stayfinder/internal/infra/schedule"
	"stayfinder/internal/infra/security"
	"stayfinder/internal/infra/storage/s3"
)

func serveCmd() *cobra.Command {
	var noRelay, noScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the outbox relay and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
			return serve(cmd.Context(), cfg, logger, !noRelay, !noScheduler)
		},
	}
	cmd.Flags().BoolVar(&noRelay, "no-relay", false, "do not publish outbox events")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run background jobs")
	return cmd
}

// application holds the dispatch side shared by the HTTP server and jobs.
type application struct {
	Commands bus.Dispatcher
	Queries  bus.Dispatcher
	Auth     *authsvc.Service
}

func buildApplication(cfg config.Config, store *storage, photos listingapp.PhotoStorage, logger *slog.Logger) *application {
	encoder := appoutbox.JSONEventEncoder{IDGenerator: uuid.NewString}

	commands := bus.NewInMemoryBus()
	queries := bus.NewInMemoryBus()
	bookingapp.RegisterCommands(commands, bookingapp.Deps{Outbox: store.Outbox, Encoder: encoder, Logger: logger})
	bookingapp.RegisterQueries(queries)
	listingapp.RegisterCommands(commands, listingapp.Deps{Outbox: store.Outbox, Encoder: encoder, Photos: photos, Logger: logger})
	listingapp.RegisterQueries(queries)

	pipeline := middleware.Pipeline{
		Logger:      logger,
		Authorizer:  authz.RoleAuthorizer{},
		Validator:   middleware.NewStructValidator(),
		Idempotency: store.Idempotency,
		Locker:      store.Locker,
		Factory:     store.Factory,
		Outbox:      store.Outbox,
	}
	return &application{
		Commands: pipeline.Commands(commands),
		Queries:  pipeline.Queries(queries),
		Auth: &authsvc.Service{
			Users:     store.Users,
			Passwords: security.BcryptHasher{},
			Tokens:    security.NewJWTIssuer(string(cfg.JWTSecret()), cfg.JWT.TTL),
			Logger:    logger,
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, withRelay, withScheduler bool) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error("storage close failed", "error", err)
		}
	}()

	photos, err := newPhotoStorage(cfg, logger)
	if err != nil {
		return err
	}
	app := buildApplication(cfg, store, photos, logger)

	handlers := ginserver.Handlers{
		Auth:     &ginserver.AuthHandler{Service: app.Auth, Logger: logger},
		Listings: &ginserver.ListingHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Bookings: &ginserver.BookingHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Resolver: app.Auth,
	}
	checks := store.Checks
	if cfg.RateLimit.RedisURL != "" {
		client, err := newRedisClient(cfg.RateLimit.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		handlers.RateLimit = &ginserver.RateLimit{
			Limiter: ratelimit.NewLimiter(client, cfg.RateLimit.Max, cfg.RateLimit.Window),
			Logger:  logger,
		}
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	server := ginserver.NewServer(
		ginserver.Options{Env: cfg.Env, Addr: cfg.HTTPAddr, CORSOrigins: cfg.CORSOrigins},
		obs.Middleware{Logger: logger},
		obs.HealthHandlers{Checks: checks},
		handlers,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	if withRelay {
		producer, err := newProducer(cfg, logger)
		if err != nil {
			return err
		}
		if producer != nil {
			defer producer.Close()
			worker := &infraoutbox.Worker{
				Store:       store.Outbox,
				Producer:    producer,
				Interval:    cfg.Outbox.PollInterval,
				TopicPrefix: cfg.Kafka.TopicPrefix,
				Backoff:     cfg.Outbox.RetryBackoff,
				Logger:      logger,
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("outbox relay stopped", "error", err)
				}
			}()
		}
	}

	if withScheduler {
		scheduler := schedule.New(app.Commands, logger)
		if err := scheduler.RegisterCompleteStays(cfg.Schedule.CompleteStays); err != nil {
			return fmt.Errorf("schedule complete stays: %w", err)
		}
		scheduler.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			scheduler.Stop(stopCtx)
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", "addr", cfg.HTTPAddr, "storage", cfg.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	cancel()
	wg.Wait()
	logger.Info("server stopped")
	return nil
}

func newPhotoStorage(cfg config.Config, logger *slog.Logger) (listingapp.PhotoStorage, error) {
	if cfg.S3.Endpoint == "" {
		logger.Warn("photo storage disabled; S3 endpoint not configured")
		return s3.Disabled{}, nil
	}
	store, err := s3.NewPhotoStore(s3.Config{
		Endpoint:      cfg.S3.Endpoint,
		UseSSL:        cfg.S3.UseSSL,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		Bucket:        cfg.S3.Bucket,
		PublicBaseURL: cfg.S3.PublicEndpoint,
	}, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// newProducer returns nil when no brokers are configured.
func newProducer(cfg config.Config, logger *slog.Logger) (*kafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Warn("outbox relay disabled; kafka brokers not configured")
		return nil, nil
	}
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, kafka.NewConfig("stayfinder-relay"))
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func newRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
