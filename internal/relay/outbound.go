package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m3rciful/relaybot/internal/directory"
)

// Outbound delivers admin replies to users found in the directory.
type Outbound struct {
	dir     directory.Directory
	sender  Sender
	msgs    Messages
	timeout time.Duration
	resp    responder
}

// Handle parses args, checks the directory and sends the reply body.
// The issuer must already be known to be an administrator.
func (o *Outbound) Handle(ctx context.Context, ev Event, args string) (Outcome, error) {
	out := Outcome{Route: RouteReply}

	cmd, err := ParseReply(args)
	switch {
	case errors.Is(err, ErrMalformedCommand):
		out.Result = ResultMalformed
		o.resp.respond(ctx, ev, o.msgs.ReplyUsage)
		return out, err
	case errors.Is(err, ErrInvalidIdentifier):
		out.Result = ResultInvalidID
		o.resp.respond(ctx, ev, o.msgs.InvalidID)
		return out, err
	}

	rec, found, err := o.dir.Lookup(ctx, cmd.Target)
	if err != nil {
		out.Result = ResultUnavailable
		o.resp.respond(ctx, ev, o.msgs.Unavailable)
		return out, err
	}
	if !found {
		out.Result = ResultNotFound
		o.resp.respond(ctx, ev, o.msgs.notFound(cmd.Target))
		return out, fmt.Errorf("%w: %d", ErrRecipientUnknown, cmd.Target)
	}

	if err := deliver(ctx, o.sender, o.timeout, rec.ID, o.msgs.replyBody(cmd.Body)); err != nil {
		if IsOutcomeUnknown(err) {
			out.Result = ResultUnconfirmed
			o.resp.respond(ctx, ev, o.msgs.replyUnconfirmed(rec.ID))
			return out, err
		}
		out.Result = ResultDeliveryFailed
		o.resp.respond(ctx, ev, o.msgs.replyFailed(rec.ID))
		return out, err
	}
	out.Result = ResultDelivered
	o.resp.respond(ctx, ev, o.msgs.replySent(rec))
	return out, nil
}
