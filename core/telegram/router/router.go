// Package router binds Telegram endpoints to the relay dispatcher.
package router

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/core/metrics"
	tg "github.com/m3rciful/relaybot/core/telegram"
	tghelpers "github.com/m3rciful/relaybot/core/telegram/helpers"
	"github.com/m3rciful/relaybot/internal/relay"
)

// Dispatcher handles one relay event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev relay.Event) (relay.Outcome, error)
}

// Submitter runs work in per-key order.
type Submitter interface {
	Submit(ctx context.Context, key int64, action string, run func(context.Context) error) error
}

// Relay turns telebot updates into relay events and runs them through the
// sequencer keyed by sender, so one user's events never overtake each other.
type Relay struct {
	dispatcher Dispatcher
	seq        Submitter
}

// NewRelay builds the update handler. A nil seq runs events inline.
func NewRelay(d Dispatcher, seq Submitter) *Relay {
	return &Relay{dispatcher: d, seq: seq}
}

// Handle is the telebot handler shared by every relay endpoint.
func (r *Relay) Handle(c tele.Context) error {
	start, ok := c.Get("update_start").(time.Time)
	if !ok {
		start = time.Now()
	}
	ev := tghelpers.EventFrom(c)
	ctx := tghelpers.BuildContext(c)

	job := func(jobCtx context.Context) error {
		out, err := r.dispatcher.Dispatch(jobCtx, ev)
		name := string(out.Route)
		logHandlerSummary(logger.WithHandler(jobCtx, name), name, start, out, err)
		metrics.ObserveEvent(name, out.Result, out.Notified, out.NotifyFailed, out.NotifyUnknown, time.Since(start))
		return nil
	}

	if r.seq == nil {
		return job(ctx)
	}
	if err := r.seq.Submit(ctx, ev.SenderID, "dispatch", job); err != nil {
		metrics.IncSequencerRejected()
		logger.Warn(ctx, "tg", "dispatch.rejected",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

// CommandRoutes binds every registered command.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	routes := make([]tg.Route, 0, len(reg.Commands()))
	for name, cmd := range reg.Commands() {
		routes = append(routes, tg.Route{Endpoint: name, Handler: cmd.Handler})
	}
	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "complete",
		slog.Int("commands", len(routes)),
	)
	return routes
}

// payloadEndpoints are the non-command updates the relay answers.
var payloadEndpoints = []string{
	tele.OnText,
	tele.OnMedia,
	tele.OnContact,
	tele.OnLocation,
	tele.OnVenue,
	tele.OnDice,
	tele.OnPoll,
	tele.OnGame,
}

// PayloadRoutes binds text and every other user payload to h.
func PayloadRoutes(h tele.HandlerFunc) []tg.Route {
	routes := make([]tg.Route, 0, len(payloadEndpoints))
	for _, ep := range payloadEndpoints {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: h})
	}
	return routes
}

// userFacing reports errors the acting party was told about in a normal reply.
func userFacing(err error) bool {
	return errors.Is(err, relay.ErrMalformedCommand) ||
		errors.Is(err, relay.ErrInvalidIdentifier) ||
		errors.Is(err, relay.ErrRecipientUnknown) ||
		errors.Is(err, relay.ErrNotAdministrator)
}
