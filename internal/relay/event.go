package relay

import (
	"strings"
	"time"
	"unicode"

	"github.com/m3rciful/relaybot/internal/directory"
)

const (
	// CommandStart is the greeting command.
	CommandStart = "/start"
	// CommandReply is the admin reply command: /reply <id> <text>.
	CommandReply = "/reply"

	commandMarker = "/"
)

// Kind tells text payloads apart from everything else (media, stickers, ...).
type Kind int

const (
	// KindOther is any non-text payload.
	KindOther Kind = iota
	// KindText is a text message, commands included.
	KindText
)

// Event is a transport-neutral inbound update.
type Event struct {
	UpdateID    int
	SenderID    int64
	ChatID      int64
	DisplayName string
	Handle      string
	Kind        Kind
	Text        string
}

// ReplyTo returns the chat that answers to the acting party go to.
func (e Event) ReplyTo() int64 {
	if e.ChatID != 0 {
		return e.ChatID
	}
	return e.SenderID
}

func (e Event) record(now time.Time) directory.Record {
	return directory.Record{
		ID:          e.SenderID,
		DisplayName: e.DisplayName,
		Handle:      strings.TrimPrefix(strings.TrimSpace(e.Handle), "@"),
		LastSeen:    now,
	}
}

// Route names the handler an event is dispatched to.
type Route string

const (
	RouteStart          Route = "start"
	RouteReply          Route = "reply"
	RouteInbound        Route = "inbound"
	RouteUnknownCommand Route = "unknown_command"
	RouteOther          Route = "other"
)

// Classify picks the route for ev. For the reply route it also returns the
// command arguments with leading whitespace removed.
func Classify(ev Event) (Route, string) {
	if ev.Kind != KindText {
		return RouteOther, ""
	}
	cmd, args, isCommand := splitCommand(ev.Text)
	switch {
	case isCommand && cmd == CommandStart:
		return RouteStart, ""
	case isCommand && cmd == CommandReply:
		return RouteReply, args
	case !isCommand:
		return RouteInbound, ""
	default:
		return RouteUnknownCommand, ""
	}
}

// splitCommand separates "/cmd@bot args" into "/cmd" and "args".
func splitCommand(text string) (string, string, bool) {
	if !strings.HasPrefix(text, commandMarker) {
		return "", "", false
	}
	token, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		token, rest = text[:i], text[i:]
	}
	if at := strings.IndexByte(token, '@'); at >= 0 {
		token = token[:at]
	}
	return token, strings.TrimLeftFunc(rest, unicode.IsSpace), true
}
