package relay

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/internal/directory"
)

// AckPolicy decides what an inbound sender is told after the admin fan-out.
type AckPolicy string

const (
	// AckRequireOne reports success only if at least one admin was reached.
	AckRequireOne AckPolicy = "require_one"
	// AckBestEffort always reports success.
	AckBestEffort AckPolicy = "best_effort"
)

// Inbound relays user messages to every administrator.
type Inbound struct {
	dir     directory.Directory
	sender  Sender
	admins  AdminSet
	msgs    Messages
	policy  AckPolicy
	timeout time.Duration
	limit   int
	now     func() time.Time
	resp    responder
}

// Handle records the sender, notifies the admins and acknowledges the sender.
func (in *Inbound) Handle(ctx context.Context, ev Event) (Outcome, error) {
	rec := ev.record(in.now())
	touch(ctx, in.dir, rec)

	notice := in.msgs.FormatNotice(rec, ev.Text)
	errs := in.notifyAdmins(ctx, notice)

	out := Outcome{Route: RouteInbound}
	var firstErr error
	for _, err := range errs {
		if IsOutcomeUnknown(err) {
			out.NotifyUnknown++
			continue
		}
		if err != nil {
			out.NotifyFailed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out.Notified++
	}

	switch {
	case out.NotifyFailed == 0 && out.NotifyUnknown == 0:
		out.Result = ResultSent
	case out.Notified > 0:
		out.Result = ResultPartial
	case out.NotifyUnknown > 0:
		// No admin is known to have missed the notice, so the sender is not
		// told that delivery failed.
		out.Result = ResultUnconfirmed
	default:
		out.Result = ResultUndelivered
	}

	if out.Result == ResultUndelivered && in.policy != AckBestEffort {
		in.resp.respond(ctx, ev, in.msgs.SendFailed)
		return out, firstErr
	}
	in.resp.respond(ctx, ev, in.msgs.Sent)
	return out, nil
}

// notifyAdmins delivers text to every admin; errs[i] belongs to the i-th admin.
// A failed admin never stops delivery to the others.
func (in *Inbound) notifyAdmins(ctx context.Context, text string) []error {
	ids := in.admins.IDs()
	errs := make([]error, len(ids))

	var g errgroup.Group
	if in.limit > 0 {
		g.SetLimit(in.limit)
	}
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := deliver(ctx, in.sender, in.timeout, id, text); err != nil {
				errs[i] = err
				logger.Error(ctx, "relay", "relay.notice",
					slog.String("status", "fail"),
					slog.Int64("admin_id", id),
					slog.String("err", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	if len(ids) == 0 {
		return []error{ErrNoAdminReached}
	}
	return errs
}

// touch upserts rec; a storage fault is logged and the event goes on.
func touch(ctx context.Context, dir directory.Directory, rec directory.Record) {
	if err := dir.Upsert(ctx, rec); err != nil {
		logger.Error(ctx, "relay", "relay.directory.upsert",
			slog.String("status", "fail"),
			slog.Int64("contact_id", rec.ID),
			slog.String("err", err.Error()),
		)
	}
}
