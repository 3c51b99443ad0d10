// Package relay forwards user messages to support administrators and routes
// administrator replies back to users.
package relay

import (
	"context"
	"errors"
	"time"

	"github.com/m3rciful/relaybot/internal/directory"
)

// Result values reported in Outcome.Result.
const (
	ResultWelcomed       = "welcomed"
	ResultSent           = "sent"
	ResultPartial        = "partial"
	ResultUndelivered    = "undelivered"
	ResultForbidden      = "forbidden"
	ResultMalformed      = "malformed"
	ResultInvalidID      = "invalid_id"
	ResultNotFound       = "not_found"
	ResultUnavailable    = "unavailable"
	ResultDeliveryFailed = "delivery_failed"
	ResultDelivered      = "delivered"
	ResultUnconfirmed    = "unconfirmed"
	ResultUnknown        = "unknown_command"
	ResultHinted         = "hinted"
)

// Outcome summarises how a single event was handled.
type Outcome struct {
	Route        Route
	Result       string
	Notified     int
	NotifyFailed int
	// NotifyUnknown counts notices abandoned in flight; they may have arrived.
	NotifyUnknown int
}

// Options wires a Dispatcher.
type Options struct {
	Directory directory.Directory
	Sender    Sender
	Admins    AdminSet
	Messages  Messages
	AckPolicy AckPolicy
	// SendTimeout bounds every single send; zero means no bound.
	SendTimeout time.Duration
	// FanoutLimit caps concurrent admin notices; zero means unlimited.
	FanoutLimit int
	Now         func() time.Time
}

// Dispatcher classifies events and routes them to the matching handler.
type Dispatcher struct {
	dir      directory.Directory
	admins   AdminSet
	msgs     Messages
	now      func() time.Time
	resp     responder
	inbound  *Inbound
	outbound *Outbound
}

// NewDispatcher validates opts and builds the handlers.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Directory == nil {
		return nil, errors.New("relay: nil directory")
	}
	if opts.Sender == nil {
		return nil, errors.New("relay: nil sender")
	}
	if opts.Admins.Len() == 0 {
		return nil, errors.New("relay: at least one administrator is required")
	}
	policy := opts.AckPolicy
	switch policy {
	case "":
		policy = AckRequireOne
	case AckRequireOne, AckBestEffort:
	default:
		return nil, errors.New("relay: unknown ack policy " + string(policy))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	msgs := opts.Messages.WithDefaults()
	resp := responder{sender: opts.Sender, timeout: opts.SendTimeout}

	return &Dispatcher{
		dir:    opts.Directory,
		admins: opts.Admins,
		msgs:   msgs,
		now:    now,
		resp:   resp,
		inbound: &Inbound{
			dir:     opts.Directory,
			sender:  opts.Sender,
			admins:  opts.Admins,
			msgs:    msgs,
			policy:  policy,
			timeout: opts.SendTimeout,
			limit:   opts.FanoutLimit,
			now:     now,
			resp:    resp,
		},
		outbound: &Outbound{
			dir:     opts.Directory,
			sender:  opts.Sender,
			msgs:    msgs,
			timeout: opts.SendTimeout,
			resp:    resp,
		},
	}, nil
}

// Admins returns the configured administrator set.
func (d *Dispatcher) Admins() AdminSet {
	return d.admins
}

// Dispatch handles ev. The returned error describes why the acting party got
// a failure answer; it has already been reported to them and is meant for logs.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (Outcome, error) {
	route, args := Classify(ev)
	switch route {
	case RouteStart:
		touch(ctx, d.dir, ev.record(d.now()))
		d.resp.respond(ctx, ev, d.msgs.Welcome)
		return Outcome{Route: route, Result: ResultWelcomed}, nil

	case RouteReply:
		if !d.admins.Contains(ev.SenderID) {
			d.resp.respond(ctx, ev, d.msgs.AdminsOnly)
			return Outcome{Route: route, Result: ResultForbidden}, ErrNotAdministrator
		}
		return d.outbound.Handle(ctx, ev, args)

	case RouteInbound:
		return d.inbound.Handle(ctx, ev)

	case RouteUnknownCommand:
		d.resp.respond(ctx, ev, d.msgs.UnknownCommand)
		return Outcome{Route: route, Result: ResultUnknown}, nil

	default:
		if d.admins.Contains(ev.SenderID) {
			d.resp.respond(ctx, ev, d.msgs.AdminHint)
		} else {
			d.resp.respond(ctx, ev, d.msgs.TextOnly)
		}
		return Outcome{Route: RouteOther, Result: ResultHinted}, nil
	}
}
