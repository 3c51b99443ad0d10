package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m3rciful/relaybot/internal/directory"
)

type sentMessage struct {
	chatID int64
	text   string
}

// fakeSender records every send and fails for chats listed in fail.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[int64]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{fail: make(map[int64]error)}
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[chatID]; ok {
		return err
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeSender) to(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.chatID == chatID {
			out = append(out, m.text)
		}
	}
	return out
}

func (f *fakeSender) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// countingDirectory counts calls and can simulate storage faults.
type countingDirectory struct {
	directory.Directory
	mu        sync.Mutex
	lookups   int
	upserts   int
	lookupErr error
}

func (c *countingDirectory) Upsert(ctx context.Context, rec directory.Record) error {
	c.mu.Lock()
	c.upserts++
	c.mu.Unlock()
	return c.Directory.Upsert(ctx, rec)
}

func (c *countingDirectory) Lookup(ctx context.Context, id int64) (directory.Record, bool, error) {
	c.mu.Lock()
	c.lookups++
	err := c.lookupErr
	c.mu.Unlock()
	if err != nil {
		return directory.Record{}, false, err
	}
	return c.Directory.Lookup(ctx, id)
}

var errBlocked = errors.New("telegram: bot was blocked by the user (403)")

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestDispatcher(dir directory.Directory, s Sender, policy AckPolicy, admins ...int64) *Dispatcher {
	d, err := NewDispatcher(Options{
		Directory: dir,
		Sender:    s,
		Admins:    NewAdminSet(admins...),
		AckPolicy: policy,
		Now:       func() time.Time { return fixedNow },
	})
	if err != nil {
		panic(err)
	}
	return d
}

func textEvent(sender int64, name, handle, text string) Event {
	return Event{SenderID: sender, ChatID: sender, DisplayName: name, Handle: handle, Kind: KindText, Text: text}
}
