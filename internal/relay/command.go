package relay

import (
	"strconv"
	"strings"
	"unicode"
)

// ReplyCommand is a parsed "/reply <id> <text>" argument string.
type ReplyCommand struct {
	Target int64
	Body   string
}

// ParseReply splits args on the first whitespace run into the target
// identifier and the reply body. The body is kept verbatim after the
// separator; a missing or whitespace-only body is malformed.
func ParseReply(args string) (ReplyCommand, error) {
	args = strings.TrimLeftFunc(args, unicode.IsSpace)
	sep := strings.IndexFunc(args, unicode.IsSpace)
	if args == "" || sep < 0 {
		return ReplyCommand{}, ErrMalformedCommand
	}
	idToken := args[:sep]
	body := strings.TrimLeftFunc(args[sep:], unicode.IsSpace)
	if body == "" {
		return ReplyCommand{}, ErrMalformedCommand
	}
	id, err := strconv.ParseInt(idToken, 10, 64)
	if err != nil || id < 0 {
		return ReplyCommand{}, ErrInvalidIdentifier
	}
	return ReplyCommand{Target: id, Body: body}, nil
}
