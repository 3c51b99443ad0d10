// Package app wires the relay onto the Telegram runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/relaybot/core/config"
	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/core/metrics"
	"github.com/m3rciful/relaybot/core/scheduler"
	tg "github.com/m3rciful/relaybot/core/telegram"
	"github.com/m3rciful/relaybot/core/telegram/router"
	tgsender "github.com/m3rciful/relaybot/core/telegram/sender"
	"github.com/m3rciful/relaybot/core/telegram/sequencer"
	"github.com/m3rciful/relaybot/internal/directory"
	"github.com/m3rciful/relaybot/internal/relay"
)

const sweepJob = "directory.sweep"

// App owns the relay components for one bot process.
type App struct {
	cfg        *coreconfig.Config
	bot        *tele.Bot
	dir        directory.Directory
	dispatcher *relay.Dispatcher
	seq        *sequencer.Sequencer
	registry   *tg.Registry
	handler    tele.HandlerFunc

	metricsSrv *metrics.Server
	sched      *scheduler.Scheduler
}

// New builds the relay around bot and dir. The directory is closed on stop.
func New(cfg *coreconfig.Config, bot *tele.Bot, dir directory.Directory) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if bot == nil {
		return nil, errors.New("app: nil bot")
	}

	dispatcher, err := relay.NewDispatcher(relay.Options{
		Directory:   dir,
		Sender:      tgsender.New(bot),
		Admins:      relay.NewAdminSet(cfg.Telegram.AdminIDs...),
		Messages:    relay.Messages(cfg.Relay.Messages),
		AckPolicy:   relay.AckPolicy(cfg.Relay.AckPolicy),
		SendTimeout: cfg.Relay.SendTimeout,
		FanoutLimit: cfg.Relay.FanoutLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a := &App{
		cfg:        cfg,
		bot:        bot,
		dir:        dir,
		dispatcher: dispatcher,
		seq: sequencer.New(sequencer.Options{
			Shards:    cfg.Relay.Shards,
			QueueSize: cfg.Relay.QueueSize,
		}),
		registry: tg.NewRegistry(),
	}
	a.handler = router.NewRelay(dispatcher, a.seq).Handle

	a.registry.RegisterCommand(relay.CommandStart, tg.Command{
		Handler:     a.handler,
		Description: "Start a conversation with support",
	})
	a.registry.RegisterCommand(relay.CommandReply, tg.Command{
		Handler:     a.handler,
		Description: "Reply to a user: /reply <id> <text>",
		Hidden:      true,
	})

	if cfg.Metrics.Listen != "" {
		metrics.MustRegister(prometheus.DefaultRegisterer)
		a.metricsSrv = metrics.NewServer(cfg.Metrics.Listen, prometheus.DefaultGatherer)
	}

	if err := a.scheduleSweep(); err != nil {
		a.seq.Close()
		return nil, err
	}
	return a, nil
}

// scheduleSweep registers the expiry job for backends that prune on demand.
// Redis expires keys natively and needs no sweep.
func (a *App) scheduleSweep() error {
	d := a.cfg.Directory
	pruner, ok := a.dir.(directory.Pruner)
	if d.TTL <= 0 || !ok {
		return nil
	}
	sched, err := scheduler.New()
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	sweep := scheduler.NewDirectorySweep(pruner, d.TTL)
	if err := sched.Every(sweepJob, d.SweepInterval, sweep.Task); err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("app: %w", err)
	}
	a.sched = sched
	return nil
}

// Dispatcher exposes the relay dispatcher.
func (a *App) Dispatcher() *relay.Dispatcher {
	return a.dispatcher
}

// TelegramRunOptions describes how the runtime should run this app.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.registry)
	routes = append(routes, router.PayloadRoutes(a.handler)...)

	return tg.RunOptions{
		Config:      a.cfg,
		Bot:         a.bot,
		Registry:    a.registry,
		Sequencer:   a.seq,
		Middlewares: tg.DefaultMiddlewares(),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, _ tg.Runtime) error {
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Start(ctx); err != nil {
			return fmt.Errorf("app: metrics listener: %w", err)
		}
	}
	if a.sched != nil {
		a.sched.Start()
	}
	if a.metricsSrv != nil {
		a.metricsSrv.SetReady(true)
	}
	logger.Info(ctx, "app", "relay.start",
		slog.String("status", "ok"),
		slog.Int("admins", a.dispatcher.Admins().Len()),
		slog.String("backend", a.cfg.Directory.Backend),
		slog.String("mode", a.cfg.Telegram.RunMode),
		slog.String("ack_policy", a.cfg.Relay.AckPolicy),
	)
	return nil
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	var errs []error
	if a.metricsSrv != nil {
		a.metricsSrv.SetReady(false)
	}
	if a.sched != nil {
		if err := a.sched.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: metrics shutdown: %w", err))
		}
	}
	if err := directory.Close(a.dir); err != nil {
		errs = append(errs, fmt.Errorf("app: directory close: %w", err))
	}
	logger.Info(ctx, "app", "relay.stop",
		slog.Uint64("processed", a.seq.Processed()),
		slog.Uint64("failed", a.seq.Failed()),
	)
	return errors.Join(errs...)
}
