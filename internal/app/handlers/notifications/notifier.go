package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainbooking "stayfinder/internal/domain/booking"
	domainuser "stayfinder/internal/domain/user"
)

var ErrMalformedEvent = errors.New("notifications: malformed event")

// Envelope is the CloudEvents form the outbox relay publishes.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Source  string          `json:"source"`
	Subject string          `json:"subject"`
	Time    time.Time       `json:"time"`
	Data    json.RawMessage `json:"data"`
}

func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.ID == "" || env.Type == "" {
		return Envelope{}, ErrMalformedEvent
	}
	return env, nil
}

type Email struct {
	ToAddress string
	ToName    string
	Subject   string
	Text      string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// Inbox records handled event ids. Seen reports true for a repeat.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// Notifier turns booking events into emails for the guest and host.
// Delivery is at most once per event id.
type Notifier struct {
	Users  domainuser.Repository
	Mailer Mailer
	Inbox  Inbox
	Logger *slog.Logger
}

func (n *Notifier) HandleEvent(ctx context.Context, env Envelope) error {
	name := strings.TrimSuffix(env.Type, ".v1")
	if !strings.HasPrefix(name, "booking.") {
		return nil
	}
	if n.Inbox != nil {
		seen, err := n.Inbox.Seen(ctx, env.ID)
		if err != nil {
			return err
		}
		if seen {
			if n.Logger != nil {
				n.Logger.Debug("duplicate event skipped", "event_id", env.ID, "type", env.Type)
			}
			return nil
		}
	}

	emails, err := n.compose(ctx, name, env.Data)
	if err != nil {
		return err
	}
	for _, email := range emails {
		if err := n.Mailer.Send(ctx, email); err != nil {
			return fmt.Errorf("notifications: send %s: %w", name, err)
		}
	}
	if n.Logger != nil && len(emails) > 0 {
		n.Logger.Info("booking notification sent", "event_id", env.ID, "type", name, "emails", len(emails))
	}
	return nil
}

func (n *Notifier) compose(ctx context.Context, name string, data json.RawMessage) ([]Email, error) {
	switch name {
	case domainbooking.EventRequested:
		var ev domainbooking.BookingRequested
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		stay := formatStay(ev.Range.CheckIn, ev.Range.CheckOut)
		return collect(
			n.emailTo(ctx, ev.GuestID, "Booking request received",
				fmt.Sprintf("We sent your request for %s to the host. Total: %s.", stay, formatAmount(ev.Total, ev.Currency))),
			n.emailTo(ctx, ev.HostID, "New booking request",
				fmt.Sprintf("A guest asked to stay %s with %d guest(s). Booking %s is waiting for you.", stay, ev.Guests, ev.BookingID)),
		)
	case domainbooking.EventStatusChanged:
		var ev domainbooking.BookingStatusChanged
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		text := fmt.Sprintf("Your booking %s for %s is now %s.", ev.BookingID, formatStay(ev.Range.CheckIn, ev.Range.CheckOut), ev.To)
		if ev.PaymentStatus == domainbooking.PaymentRefunded {
			text += " Your payment will be refunded."
		}
		return collect(n.emailTo(ctx, ev.GuestID, "Booking "+string(ev.To), text))
	case domainbooking.EventPaid:
		var ev domainbooking.BookingPaid
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		return collect(n.emailTo(ctx, ev.GuestID, "Payment received",
			fmt.Sprintf("We received %s for booking %s (reference %s).", formatAmount(ev.Amount, ev.Currency), ev.BookingID, ev.Reference)))
	default:
		return nil, nil
	}
}

type draft struct {
	email Email
	err   error
	skip  bool
}

func (n *Notifier) emailTo(ctx context.Context, userID, subject, text string) draft {
	if userID == "" {
		return draft{skip: true}
	}
	user, err := n.Users.ByID(ctx, domainuser.ID(userID))
	if errors.Is(err, domainuser.ErrNotFound) {
		if n.Logger != nil {
			n.Logger.Warn("notification recipient missing", "user_id", userID)
		}
		return draft{skip: true}
	}
	if err != nil {
		return draft{err: err}
	}
	return draft{email: Email{ToAddress: user.Email, ToName: user.FullName(), Subject: subject, Text: text}}
}

func collect(drafts ...draft) ([]Email, error) {
	out := make([]Email, 0, len(drafts))
	for _, d := range drafts {
		if d.err != nil {
			return nil, d.err
		}
		if !d.skip {
			out = append(out, d.email)
		}
	}
	return out, nil
}

func formatStay(checkIn, checkOut time.Time) string {
	return checkIn.Format("Jan 2, 2006") + " to " + checkOut.Format("Jan 2, 2006")
}

func formatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, currency)
}
