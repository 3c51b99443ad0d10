package telegram

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/relaybot/core/config"
)

func noop(tele.Context) error { return nil }

func TestRegistryListCommandsHidesHidden(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", Command{Handler: noop, Description: "Start"})
	reg.RegisterCommand("/reply", Command{Handler: noop, Description: "Reply", Hidden: true})

	visible := reg.ListCommands(true)
	if len(visible) != 1 || visible[0].Text != "start" {
		t.Fatalf("unexpected visible commands: %+v", visible)
	}
	all := reg.ListCommands(false)
	if len(all) != 2 || all[0].Text != "reply" {
		t.Fatalf("expected sorted commands, got %+v", all)
	}
}

func TestRegistrySkipsInvalid(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("start", Command{Handler: noop, Description: "x"})
	reg.RegisterCommand("/nohandler", Command{Description: "x"})
	reg.RegisterCommand("/start", Command{Handler: noop, Description: "first"})
	reg.RegisterCommand("/start", Command{Handler: noop, Description: "second"})

	cmds := reg.Commands()
	if len(cmds) != 1 {
		t.Fatalf("expected one command, got %d", len(cmds))
	}
	if cmds["/start"].Description != "first" {
		t.Fatalf("duplicate must not overwrite")
	}
}

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: coreconfig.RunModeLongpoll, LongPollTimeoutSeconds: 25})
	lp, ok := p.(*tele.LongPoller)
	if !ok || lp.Timeout != 25*time.Second {
		t.Fatalf("expected 25s long poller, got %#v", p)
	}

	p = BuildPoller(PollerOptions{
		RunMode: coreconfig.RunModeWebhook,
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://example.org/hook", SecretToken: "s3"},
	})
	wh, ok := p.(*tele.Webhook)
	if !ok {
		t.Fatalf("expected webhook, got %T", p)
	}
	if wh.Listen != "0.0.0.0:8443" || wh.SecretToken != "s3" || wh.Endpoint.PublicURL != "https://example.org/hook" {
		t.Fatalf("unexpected webhook %+v", wh)
	}
}

func TestHTTPClientOutlivesLongPoll(t *testing.T) {
	c := BuildHTTPClient(30 * time.Second)
	if c.Timeout <= 30*time.Second {
		t.Fatalf("client timeout %v must exceed the poll timeout", c.Timeout)
	}
	if d := BuildHTTPClient(0).Timeout; d <= defaultLongPollTimeout {
		t.Fatalf("default timeout %v too short", d)
	}
}

func TestDefaultMiddlewaresOrder(t *testing.T) {
	mws := DefaultMiddlewares()
	want := []string{"recover", "logger", "metrics"}
	if len(mws) != len(want) {
		t.Fatalf("expected %d middlewares, got %d", len(want), len(mws))
	}
	for i, name := range want {
		if mws[i].Name != name || mws[i].Use == nil {
			t.Fatalf("middleware %d: got %q", i, mws[i].Name)
		}
	}
}
