package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"stayfinder/internal/app/handlers/notifications"
	"stayfinder/internal/infra/broker/kafka"
	"stayfinder/internal/infra/config"
	"stayfinder/internal/infra/notify"
	"stayfinder/internal/infra/obs"
	infraoutbox "stayfinder/internal/infra/outbox"
)

const notifierConsumer = "booking-notifier"

func notifierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifier",
		Short: "Consume booking events and send emails",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
			return runNotifier(cmd.Context(), cfg, logger)
		},
	}
}

func runNotifier(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("notifier: kafka brokers not configured")
	}
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	notifier := &notifications.Notifier{
		Users:  store.Users,
		Mailer: newMailer(cfg, logger),
		Inbox:  store.inboxFor(notifierConsumer),
		Logger: logger,
	}
	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, nil, kafka.EventConsumer{Handler: notifier, Logger: logger})
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	defer consumer.Close()

	topic := infraoutbox.TopicFor(cfg.Kafka.TopicPrefix, "booking")
	logger.Info("notifier started", "topic", topic, "group", cfg.Kafka.GroupID)
	if err := consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("notifier stopped")
	return nil
}

func newMailer(cfg config.Config, logger *slog.Logger) notifications.Mailer {
	if cfg.Mail.SendGridAPIKey == "" {
		logger.Warn("sendgrid api key not set; emails are logged only")
		return notify.LogMailer{Logger: logger}
	}
	return notify.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.From, cfg.Mail.FromName)
}
