package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"stayfinder/internal/app/handlers/notifications"
)

// EventHandler reacts to one decoded outbox event.
type EventHandler interface {
	HandleEvent(ctx context.Context, env notifications.Envelope) error
}

// EventConsumer adapts CloudEvents messages to an EventHandler.
type EventConsumer struct {
	Handler EventHandler
	Logger  *slog.Logger
}

// Handle skips malformed payloads so they do not block the partition.
func (c EventConsumer) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	env, err := notifications.DecodeEnvelope(msg.Value)
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn("dropping malformed event", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
		if errors.Is(err, notifications.ErrMalformedEvent) {
			return nil
		}
		return err
	}
	if err := c.Handler.HandleEvent(ctx, env); err != nil {
		if c.Logger != nil {
			c.Logger.Error("event handling failed", "event_id", env.ID, "type", env.Type, "error", err)
		}
		return err
	}
	return nil
}

var _ MessageHandler = EventConsumer{}
