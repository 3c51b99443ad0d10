package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/relaybot/core/logger"
)

// Sender delivers a plain text message to a chat. A Sender that gives up on a
// call already handed to the transport wraps ErrOutcomeUnknown.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, chatID int64, text string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, chatID int64, text string) error {
	return f(ctx, chatID, text)
}

// deliver sends text to chatID within timeout and wraps transport faults.
func deliver(ctx context.Context, s Sender, timeout time.Duration, chatID int64, text string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.Send(ctx, chatID, text); err != nil {
		return &DeliveryError{Recipient: chatID, Err: err}
	}
	return nil
}

// responder answers the party that triggered an event. Failures are logged
// and never change the outcome of the handler.
type responder struct {
	sender  Sender
	timeout time.Duration
}

func (r responder) respond(ctx context.Context, ev Event, text string) {
	if err := deliver(ctx, r.sender, r.timeout, ev.ReplyTo(), text); err != nil {
		logger.Warn(ctx, "relay", "relay.respond",
			slog.String("status", "fail"),
			slog.Int64("chat_id", ev.ReplyTo()),
			slog.String("err", err.Error()),
		)
	}
}
