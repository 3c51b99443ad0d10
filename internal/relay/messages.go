package relay

import (
	"strconv"
	"strings"

	"github.com/m3rciful/relaybot/internal/directory"
)

// Messages holds every user-visible text. Templates may reference
// {id}, {name}, {handle} and {text}.
type Messages struct {
	Welcome        string
	Notice         string
	NoHandle       string
	Sent           string
	SendFailed     string
	ReplyUsage     string
	InvalidID      string
	NotFound       string
	ReplyHeader    string
	ReplySent      string
	ReplyFailed    string
	AdminsOnly     string
	UnknownCommand string
	AdminHint      string
	TextOnly       string
	Unavailable    string
	ReplyUnknown   string
}

// DefaultMessages returns the built-in texts.
func DefaultMessages() Messages {
	return Messages{
		Welcome: "👋 Hello! This is the support service.\n" +
			"Describe your problem and we will answer you through this bot.\n\n" +
			"❗ Please do not delete this chat, otherwise we cannot reply.",
		Notice: "📩 New request:\n" +
			"🔹 ID: {id}\n" +
			"🔹 Name: {name}\n" +
			"🔹 Username: {handle}\n" +
			"🔹 Message:\n> {text}",
		NoHandle:   "no username",
		Sent:       "✅ Your request has been sent. Please wait for a reply from support!",
		SendFailed: "❌ Could not deliver your message. Please try again later.",
		ReplyUsage: "📌 Usage: /reply <user_id> <reply text>\n" +
			"Example: /reply 123456789 Hello! The problem is solved.",
		InvalidID: "❌ Invalid ID format. Specify an integer.",
		NotFound: "⚠️ User with ID {id} was not found among active contacts.\n" +
			"They may not have written to the bot yet, or wrote too long ago.",
		ReplyHeader: "📬 Reply from support:\n\n{text}",
		ReplySent:   "✅ Reply sent to {name} (ID: {id}).",
		ReplyFailed: "❌ Could not send the message to the user (ID: {id}).\n" +
			"They may have blocked the bot or deleted the chat.",
		AdminsOnly:     "🚫 This command is available to administrators only.",
		UnknownCommand: "❓ Unknown command. Use /start to open a request.",
		AdminHint:      "ℹ️ Tip: use /reply <ID> text to answer a user.",
		TextOnly:       "📩 Please send a text message describing your problem.",
		Unavailable:    "⚠️ The contact directory is temporarily unavailable. Please try again later.",
		ReplyUnknown: "⏳ Telegram did not confirm the reply to the user (ID: {id}) in time.\n" +
			"It may still have been delivered; check before sending it again.",
	}
}

// WithDefaults fills empty texts from DefaultMessages.
func (m Messages) WithDefaults() Messages {
	def := DefaultMessages()
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = src
		}
	}
	fill(&m.Welcome, def.Welcome)
	fill(&m.Notice, def.Notice)
	fill(&m.NoHandle, def.NoHandle)
	fill(&m.Sent, def.Sent)
	fill(&m.SendFailed, def.SendFailed)
	fill(&m.ReplyUsage, def.ReplyUsage)
	fill(&m.InvalidID, def.InvalidID)
	fill(&m.NotFound, def.NotFound)
	fill(&m.ReplyHeader, def.ReplyHeader)
	fill(&m.ReplySent, def.ReplySent)
	fill(&m.ReplyFailed, def.ReplyFailed)
	fill(&m.AdminsOnly, def.AdminsOnly)
	fill(&m.UnknownCommand, def.UnknownCommand)
	fill(&m.AdminHint, def.AdminHint)
	fill(&m.TextOnly, def.TextOnly)
	fill(&m.Unavailable, def.Unavailable)
	fill(&m.ReplyUnknown, def.ReplyUnknown)
	return m
}

// render substitutes placeholders in a single pass, so user text containing
// "{id}" and the like is never expanded again.
func render(tmpl string, pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// FormatNotice builds the admin-facing notice for an inbound message.
func (m Messages) FormatNotice(rec directory.Record, text string) string {
	handle := m.NoHandle
	if rec.HasHandle() {
		handle = "@" + rec.Handle
	}
	return render(m.Notice,
		"{id}", strconv.FormatInt(rec.ID, 10),
		"{name}", rec.DisplayName,
		"{handle}", handle,
		"{text}", text,
	)
}

func (m Messages) notFound(id int64) string {
	return render(m.NotFound, "{id}", strconv.FormatInt(id, 10))
}

func (m Messages) replyBody(body string) string {
	return render(m.ReplyHeader, "{text}", body)
}

func (m Messages) replySent(rec directory.Record) string {
	return render(m.ReplySent,
		"{id}", strconv.FormatInt(rec.ID, 10),
		"{name}", rec.DisplayName,
	)
}

func (m Messages) replyFailed(id int64) string {
	return render(m.ReplyFailed, "{id}", strconv.FormatInt(id, 10))
}

func (m Messages) replyUnconfirmed(id int64) string {
	return render(m.ReplyUnknown, "{id}", strconv.FormatInt(id, 10))
}
