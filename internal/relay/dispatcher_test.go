package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/m3rciful/relaybot/internal/directory"
)

func TestNewDispatcherValidates(t *testing.T) {
	dir := directory.NewMemory()
	s := newFakeSender()
	cases := []Options{
		{Sender: s, Admins: NewAdminSet(1)},
		{Directory: dir, Admins: NewAdminSet(1)},
		{Directory: dir, Sender: s},
		{Directory: dir, Sender: s, Admins: NewAdminSet(1), AckPolicy: "sometimes"},
	}
	for i, opts := range cases {
		if _, err := NewDispatcher(opts); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestRoundTripAliceAndAdmin(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemory()
	s := newFakeSender()
	d := newTestDispatcher(dir, s, AckRequireOne, 1)
	msgs := DefaultMessages()

	out, err := d.Dispatch(ctx, textEvent(100, "Alice", "alice", "Help please"))
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if out.Route != RouteInbound || out.Result != ResultSent || out.Notified != 1 {
		t.Fatalf("inbound outcome = %+v", out)
	}
	notices := s.to(1)
	if len(notices) != 1 {
		t.Fatalf("admin got %d messages, want 1", len(notices))
	}
	for _, part := range []string{"100", "Alice", "@alice", "Help please"} {
		if !strings.Contains(notices[0], part) {
			t.Fatalf("notice %q lacks %q", notices[0], part)
		}
	}
	if got := s.to(100); len(got) != 1 || got[0] != msgs.Sent {
		t.Fatalf("user acks = %q", got)
	}

	out, err = d.Dispatch(ctx, textEvent(1, "Admin", "", "/reply 100 Hello Alice"))
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if out.Result != ResultDelivered {
		t.Fatalf("reply outcome = %+v", out)
	}
	userMsgs := s.to(100)
	if len(userMsgs) != 2 || !strings.HasSuffix(userMsgs[1], "Hello Alice") {
		t.Fatalf("user messages = %q", userMsgs)
	}
	adminMsgs := s.to(1)
	last := adminMsgs[len(adminMsgs)-1]
	if !strings.Contains(last, "Alice") || !strings.Contains(last, "100") {
		t.Fatalf("confirmation = %q", last)
	}
}

func TestReplyToUnknownUserSendsNothingToTarget(t *testing.T) {
	ctx := context.Background()
	s := newFakeSender()
	d := newTestDispatcher(directory.NewMemory(), s, AckRequireOne, 1)

	out, err := d.Dispatch(ctx, textEvent(1, "Admin", "", "/reply 999 Hello"))
	if !errors.Is(err, ErrRecipientUnknown) {
		t.Fatalf("err = %v, want ErrRecipientUnknown", err)
	}
	if out.Result != ResultNotFound {
		t.Fatalf("outcome = %+v", out)
	}
	if got := s.to(999); len(got) != 0 {
		t.Fatalf("target received %q", got)
	}
	admin := s.to(1)
	if len(admin) != 1 || !strings.Contains(admin[0], "999") {
		t.Fatalf("admin messages = %q", admin)
	}
}

func TestReplyFromNonAdminIsRejected(t *testing.T) {
	ctx := context.Background()
	dir := &countingDirectory{Directory: directory.NewMemory()}
	_ = dir.Directory.Upsert(ctx, directory.Record{ID: 200, DisplayName: "Bob"})
	s := newFakeSender()
	d := newTestDispatcher(dir, s, AckRequireOne, 1)

	out, err := d.Dispatch(ctx, textEvent(300, "Mallory", "", "/reply 200 gotcha"))
	if !errors.Is(err, ErrNotAdministrator) || out.Result != ResultForbidden {
		t.Fatalf("outcome = %+v, err = %v", out, err)
	}
	if dir.lookups != 0 {
		t.Fatalf("lookups = %d, want 0", dir.lookups)
	}
	if got := s.to(200); len(got) != 0 {
		t.Fatalf("target received %q", got)
	}
	if got := s.to(300); len(got) != 1 || got[0] != DefaultMessages().AdminsOnly {
		t.Fatalf("issuer messages = %q", got)
	}
}

func TestReplyParseErrors(t *testing.T) {
	ctx := context.Background()
	dir := &countingDirectory{Directory: directory.NewMemory()}
	s := newFakeSender()
	d := newTestDispatcher(dir, s, AckRequireOne, 1)
	msgs := DefaultMessages()

	cases := []struct {
		text   string
		result string
		err    error
		answer string
	}{
		{"/reply", ResultMalformed, ErrMalformedCommand, msgs.ReplyUsage},
		{"/reply 42", ResultMalformed, ErrMalformedCommand, msgs.ReplyUsage},
		{"/reply abc Hello", ResultInvalidID, ErrInvalidIdentifier, msgs.InvalidID},
	}
	for _, tc := range cases {
		out, err := d.Dispatch(ctx, textEvent(1, "Admin", "", tc.text))
		if !errors.Is(err, tc.err) || out.Result != tc.result {
			t.Fatalf("%q: outcome = %+v, err = %v", tc.text, out, err)
		}
		got := s.to(1)
		if got[len(got)-1] != tc.answer {
			t.Fatalf("%q: answer = %q", tc.text, got[len(got)-1])
		}
	}
	if dir.lookups != 0 {
		t.Fatalf("parse errors must not reach the directory, lookups = %d", dir.lookups)
	}
	if s.total() != len(cases) {
		t.Fatalf("sends = %d, want %d", s.total(), len(cases))
	}
}

func TestReplyDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemory()
	_ = dir.Upsert(ctx, directory.Record{ID: 100, DisplayName: "Alice"})
	s := newFakeSender()
	s.fail[100] = errBlocked
	d := newTestDispatcher(dir, s, AckRequireOne, 1)

	out, err := d.Dispatch(ctx, textEvent(1, "Admin", "", "/reply 100 Hi"))
	if !IsDeliveryFailure(err) || !errors.Is(err, errBlocked) {
		t.Fatalf("err = %v", err)
	}
	if out.Result != ResultDeliveryFailed {
		t.Fatalf("outcome = %+v", out)
	}
	admin := s.to(1)
	if len(admin) != 1 || !strings.Contains(admin[0], "100") {
		t.Fatalf("admin messages = %q", admin)
	}
}

func TestReplyUnconfirmedDelivery(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemory()
	_ = dir.Upsert(ctx, directory.Record{ID: 100, DisplayName: "Alice"})
	s := newFakeSender()
	s.fail[100] = fmt.Errorf("%w: %w", ErrOutcomeUnknown, context.DeadlineExceeded)
	d := newTestDispatcher(dir, s, AckRequireOne, 1)

	out, err := d.Dispatch(ctx, textEvent(1, "Admin", "", "/reply 100 Hi"))
	if !IsOutcomeUnknown(err) {
		t.Fatalf("err = %v", err)
	}
	if out.Result != ResultUnconfirmed {
		t.Fatalf("outcome = %+v", out)
	}
	admin := s.to(1)
	if len(admin) != 1 || admin[0] == DefaultMessages().replyFailed(100) || !strings.Contains(admin[0], "100") {
		t.Fatalf("admin must hear the reply is unconfirmed, got %q", admin)
	}
	var de *DeliveryError
	if !errors.As(err, &de) || de.Code() != "DELIVERY_UNCONFIRMED" {
		t.Fatalf("code = %v", err)
	}
}

func TestInboundUnconfirmedNoticeIsNotFailure(t *testing.T) {
	ctx := context.Background()
	s := newFakeSender()
	s.fail[1] = fmt.Errorf("%w: %w", ErrOutcomeUnknown, context.DeadlineExceeded)
	d := newTestDispatcher(directory.NewMemory(), s, AckRequireOne, 1)

	out, err := d.Dispatch(ctx, textEvent(100, "Alice", "", "Hi"))
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if out.Result != ResultUnconfirmed || out.NotifyUnknown != 1 || out.NotifyFailed != 0 {
		t.Fatalf("outcome = %+v", out)
	}
	if got := s.to(100); len(got) != 1 || got[0] != DefaultMessages().Sent {
		t.Fatalf("ack = %q", got)
	}
}

func TestReplyDirectoryFault(t *testing.T) {
	ctx := context.Background()
	dir := &countingDirectory{Directory: directory.NewMemory(), lookupErr: errors.New("db down")}
	s := newFakeSender()
	d := newTestDispatcher(dir, s, AckRequireOne, 1)

	out, err := d.Dispatch(ctx, textEvent(1, "Admin", "", "/reply 100 Hi"))
	if err == nil || out.Result != ResultUnavailable {
		t.Fatalf("outcome = %+v, err = %v", out, err)
	}
	if got := s.to(1); len(got) != 1 || got[0] != DefaultMessages().Unavailable {
		t.Fatalf("admin messages = %q", got)
	}
}

func TestInboundPartialFailure(t *testing.T) {
	ctx := context.Background()
	s := newFakeSender()
	s.fail[2] = errBlocked
	d := newTestDispatcher(directory.NewMemory(), s, AckRequireOne, 1, 2, 3)

	out, err := d.Dispatch(ctx, textEvent(100, "Alice", "", "Hi"))
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if out.Result != ResultPartial || out.Notified != 2 || out.NotifyFailed != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if len(s.to(1)) != 1 || len(s.to(3)) != 1 {
		t.Fatalf("reachable admins must still be notified")
	}
	if got := s.to(100); len(got) != 1 || got[0] != DefaultMessages().Sent {
		t.Fatalf("ack = %q", got)
	}
}

func TestInboundAckPolicies(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		policy  AckPolicy
		ack     string
		wantErr bool
	}{
		{AckRequireOne, DefaultMessages().SendFailed, true},
		{AckBestEffort, DefaultMessages().Sent, false},
	}
	for _, tc := range cases {
		s := newFakeSender()
		s.fail[1] = errBlocked
		d := newTestDispatcher(directory.NewMemory(), s, tc.policy, 1)

		out, err := d.Dispatch(ctx, textEvent(100, "Alice", "", "Hi"))
		if out.Result != ResultUndelivered {
			t.Fatalf("%s: outcome = %+v", tc.policy, out)
		}
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err = %v", tc.policy, err)
		}
		if got := s.to(100); len(got) != 1 || got[0] != tc.ack {
			t.Fatalf("%s: ack = %q", tc.policy, got)
		}
	}
}

func TestInboundNoHandlePlaceholder(t *testing.T) {
	ctx := context.Background()
	s := newFakeSender()
	d := newTestDispatcher(directory.NewMemory(), s, AckRequireOne, 1)

	if _, err := d.Dispatch(ctx, textEvent(100, "Alice", "", "text with {name}")); err != nil {
		t.Fatalf("err = %v", err)
	}
	notice := s.to(1)[0]
	if !strings.Contains(notice, DefaultMessages().NoHandle) {
		t.Fatalf("notice lacks placeholder: %q", notice)
	}
	if !strings.Contains(notice, "text with {name}") {
		t.Fatalf("user text must stay verbatim: %q", notice)
	}
}

func TestInboundUpdatesDirectory(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemory()
	d := newTestDispatcher(dir, newFakeSender(), AckRequireOne, 1)

	_, _ = d.Dispatch(ctx, textEvent(100, "Alice", "alice", "one"))
	_, _ = d.Dispatch(ctx, textEvent(100, "Alice Smith", "", "two"))

	rec, found, _ := dir.Lookup(ctx, 100)
	if !found || rec.DisplayName != "Alice Smith" || rec.Handle != "" || !rec.LastSeen.Equal(fixedNow) {
		t.Fatalf("record = %+v, found %v", rec, found)
	}
}

func TestStartRegistersAndWelcomes(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemory()
	s := newFakeSender()
	d := newTestDispatcher(dir, s, AckRequireOne, 1)

	for i := 0; i < 2; i++ {
		out, err := d.Dispatch(ctx, textEvent(100, "Alice", "alice", "/start"))
		if err != nil || out.Result != ResultWelcomed {
			t.Fatalf("outcome = %+v, err = %v", out, err)
		}
	}
	if dir.Len() != 1 {
		t.Fatalf("directory size = %d", dir.Len())
	}
	if got := s.to(100); len(got) != 2 || got[0] != DefaultMessages().Welcome {
		t.Fatalf("welcome = %q", got)
	}
	if len(s.to(1)) != 0 {
		t.Fatalf("admins must not be notified on /start")
	}
}

func TestUnknownCommandAndMedia(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemory()
	s := newFakeSender()
	d := newTestDispatcher(dir, s, AckRequireOne, 1)
	msgs := DefaultMessages()

	if out, _ := d.Dispatch(ctx, textEvent(100, "Alice", "", "/help")); out.Result != ResultUnknown {
		t.Fatalf("outcome = %+v", out)
	}
	media := Event{SenderID: 100, ChatID: 100, Kind: KindOther}
	if out, _ := d.Dispatch(ctx, media); out.Route != RouteOther || out.Result != ResultHinted {
		t.Fatalf("outcome = %+v", out)
	}
	adminMedia := Event{SenderID: 1, ChatID: 1, Kind: KindOther}
	_, _ = d.Dispatch(ctx, adminMedia)

	if got := s.to(100); len(got) != 2 || got[0] != msgs.UnknownCommand || got[1] != msgs.TextOnly {
		t.Fatalf("user messages = %q", got)
	}
	if got := s.to(1); len(got) != 1 || got[0] != msgs.AdminHint {
		t.Fatalf("admin messages = %q", got)
	}
	if dir.Len() != 0 {
		t.Fatalf("unknown commands and media must not register contacts")
	}
}

func TestCustomMessages(t *testing.T) {
	ctx := context.Background()
	s := newFakeSender()
	d, err := NewDispatcher(Options{
		Directory: directory.NewMemory(),
		Sender:    s,
		Admins:    NewAdminSet(1),
		Messages:  Messages{Notice: "[{id}] {name} {handle}: {text}", NoHandle: "-"},
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	_, _ = d.Dispatch(ctx, textEvent(5, "Eve", "", "ping"))
	if got := s.to(1); len(got) != 1 || got[0] != "[5] Eve -: ping" {
		t.Fatalf("notice = %q", got)
	}
	if got := s.to(5); len(got) != 1 || got[0] != DefaultMessages().Sent {
		t.Fatalf("defaults must fill unset texts, got %q", got)
	}
}
