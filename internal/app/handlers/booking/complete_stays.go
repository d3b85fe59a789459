package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/outbox"
	"stayfinder/internal/app/uow"
	domainbooking "stayfinder/internal/domain/booking"
)

const (
	completeStaysKey     = "booking.stays.complete"
	defaultCompleteBatch = 200
)

// CompleteStaysCommand closes confirmed bookings whose check-out has passed.
// It is sent by the scheduler, never by a user.
type CompleteStaysCommand struct {
	Now   time.Time
	Limit int
}

func (c CompleteStaysCommand) Key() string { return completeStaysKey }

type CompleteStaysResult struct {
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
}

type CompleteStaysHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (h *CompleteStaysHandler) Handle(ctx context.Context, cmd CompleteStaysCommand) (*CompleteStaysResult, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return nil, err
	}
	now := cmd.Now
	if now.IsZero() {
		now = time.Now()
	}
	limit := cmd.Limit
	if limit <= 0 {
		limit = defaultCompleteBatch
	}
	due, err := unit.Bookings().DueForCompletion(ctx, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	result := &CompleteStaysResult{}
	for _, booking := range due {
		if booking.Status != domainbooking.StatusConfirmed || booking.Range.CheckOut.After(now) {
			result.Skipped++
			continue
		}
		if err := booking.Complete(now); err != nil {
			return nil, err
		}
		if err := unit.Bookings().Save(ctx, booking); err != nil {
			if errors.Is(err, domainbooking.ErrConcurrentUpdate) {
				result.Skipped++
				continue
			}
			return nil, err
		}
		if err := outbox.Publish(ctx, h.Outbox, h.Encoder, booking); err != nil {
			return nil, err
		}
		result.Completed++
	}
	if h.Logger != nil && (result.Completed > 0 || result.Skipped > 0) {
		h.Logger.Info("stays completed", "completed", result.Completed, "skipped", result.Skipped)
	}
	return result, nil
}

var _ bus.Handler[CompleteStaysCommand, *CompleteStaysResult] = (*CompleteStaysHandler)(nil)
