package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"stayfinder/internal/app/bus"
	"stayfinder/internal/app/handlers/booking"
)

// DefaultCompleteStays runs every fifteen minutes. Specs carry a seconds field.
const DefaultCompleteStays = "0 */15 * * * *"

// Scheduler runs background commands on cron specs in UTC.
type Scheduler struct {
	cron    *cron.Cron
	bus     bus.Dispatcher
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func New(dispatcher bus.Dispatcher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		bus:     dispatcher,
		logger:  logger,
		timeout: time.Minute,
		now:     time.Now,
	}
}

// RegisterCompleteStays schedules the stay completion sweep.
func (s *Scheduler) RegisterCompleteStays(spec string) error {
	if spec == "" {
		spec = DefaultCompleteStays
	}
	_, err := s.cron.AddFunc(spec, s.completeStays)
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) completeStays() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	res, err := bus.Send[booking.CompleteStaysCommand, *booking.CompleteStaysResult](ctx, s.bus, booking.CompleteStaysCommand{Now: s.now()})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("complete stays job failed", "error", err)
		}
		return
	}
	if s.logger != nil && res != nil {
		s.logger.Debug("complete stays job finished", "completed", res.Completed, "skipped", res.Skipped)
	}
}
