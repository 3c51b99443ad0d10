package helpers

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/relaybot/internal/relay"
)

// DisplayName joins the first and last name of u.
func DisplayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// EventFrom copies the parts of an update the relay needs. Text messages
// (commands included) become text events; everything else is KindOther.
func EventFrom(c tele.Context) relay.Event {
	ev := relay.Event{UpdateID: c.Update().ID}
	if u := c.Sender(); u != nil {
		ev.SenderID = u.ID
		ev.DisplayName = DisplayName(u)
		ev.Handle = u.Username
	}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	if m := c.Message(); m != nil && m.Text != "" && m.Media() == nil {
		ev.Kind = relay.KindText
		ev.Text = m.Text
	}
	return ev
}

// PayloadKind labels an update for receipt logs and metrics.
func PayloadKind(c tele.Context) string {
	m := c.Message()
	switch {
	case m == nil:
		return "other"
	case m.Text != "" && strings.HasPrefix(m.Text, "/"):
		return "command"
	case m.Text != "":
		return "text"
	case m.Media() != nil:
		return "media"
	default:
		return "other"
	}
}
