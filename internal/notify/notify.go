package notify

import (
	"context"

	"go.uber.org/multierr"
)

type Event string

const (
	EventAnnounce Event = "announce"
	EventWithdraw Event = "withdraw"
	EventError    Event = "error"
	EventInfo     Event = "info"
)

// Message is one notification. Check is empty for events about the daemon
// itself rather than a single check.
type Message struct {
	Event Event  `json:"event"`
	Check string `json:"check,omitempty"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Notifier delivers a message to one target.
type Notifier interface {
	Send(ctx context.Context, m Message) error
}

// Sink accepts notifications without blocking the caller.
type Sink interface {
	Notify(ctx context.Context, m Message)
}

// Multi sends to every notifier and reports all failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = multierr.Append(errs, n.Send(ctx, msg))
	}
	return errs
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, Message) {}
