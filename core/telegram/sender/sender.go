// Package sender delivers plain text messages through the Telegram Bot API.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/internal/relay"
)

// ErrNilAPI is returned when the sender has no bot to talk to.
var ErrNilAPI = errors.New("telegram sender: nil bot")

// API is the subset of *tele.Bot used for sending.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Sender sends text to chats. Every call is bounded by the caller's context;
// the Bot API call itself has no context, so a call that outlives it is
// abandoned and its result is only logged.
type Sender struct {
	api API

	sent atomic.Uint64
	errs atomic.Uint64
}

// New wraps api.
func New(api API) *Sender {
	return &Sender{api: api}
}

type result struct {
	err error
}

// Send delivers text to chatID as plain text, without parse mode.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	if s == nil || s.api == nil {
		return ErrNilAPI
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	done := make(chan result, 1)
	go func() {
		_, err := s.api.Send(tele.ChatID(chatID), text)
		done <- result{err: err}
	}()

	var err error
	select {
	case r := <-done:
		err = r.err
	case <-ctx.Done():
		// The request is already on the wire and may still succeed.
		err = fmt.Errorf("telegram sender: %w: %w", relay.ErrOutcomeUnknown, ctx.Err())
	}

	if err != nil {
		s.errs.Add(1)
		logSendFailure(ctx, chatID, err, time.Since(start))
		return err
	}
	s.sent.Add(1)
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "tg.sender", "send.success",
			slog.String("action", "send_text"),
			slog.Int64("chat_id", chatID),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return nil
}

// Sent returns the number of successful sends.
func (s *Sender) Sent() uint64 {
	return s.sent.Load()
}

// Failed returns the number of failed sends.
func (s *Sender) Failed() uint64 {
	return s.errs.Load()
}

func logSendFailure(ctx context.Context, chatID int64, err error, elapsed time.Duration) {
	logger.Error(ctx, "tg.sender", "send.fail",
		slog.String("action", "send_text"),
		slog.Int64("chat_id", chatID),
		slog.String("err", SanitizeError(err)),
		slog.String("error_kind", ClassifyError(err)),
		slog.Duration("duration", elapsed),
	)
}
