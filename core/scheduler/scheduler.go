// Package scheduler runs periodic maintenance jobs on gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/m3rciful/relaybot/core/logger"
)

// Scheduler wraps a gocron scheduler whose jobs share one lifetime context.
type Scheduler struct {
	s      gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a stopped scheduler running in UTC.
func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(gocronLogger{}),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: create: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{s: s, ctx: ctx, cancel: cancel}, nil
}

// Every schedules task at a fixed interval. Runs never overlap; a run still
// in progress when the next is due pushes it back.
func (s *Scheduler) Every(name string, interval time.Duration, task func(ctx context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: job %q: interval must be positive", name)
	}
	_, err := s.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { task(s.ctx) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error(s.ctx, "scheduler", "job.add",
			slog.String("status", "fail"),
			slog.String("job", name),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("scheduler: job %q: %w", name, err)
	}
	logger.Info(s.ctx, "scheduler", "job.add",
		slog.String("status", "ok"),
		slog.String("job", name),
		slog.Duration("interval", interval),
	)
	return nil
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return len(s.s.Jobs())
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.s.Start()
}

// Shutdown cancels running jobs and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.s.Shutdown(); err != nil {
		return fmt.Errorf("scheduler: shutdown: %w", err)
	}
	return nil
}

// gocronLogger forwards gocron's own messages to the scheduler component.
type gocronLogger struct{}

func (gocronLogger) Debug(msg string, args ...any) { logArgs(slog.LevelDebug, msg, args) }
func (gocronLogger) Info(msg string, args ...any)  { logArgs(slog.LevelDebug, msg, args) }
func (gocronLogger) Warn(msg string, args ...any)  { logArgs(slog.LevelWarn, msg, args) }
func (gocronLogger) Error(msg string, args ...any) { logArgs(slog.LevelError, msg, args) }

func logArgs(level slog.Level, msg string, args []any) {
	attrs := []slog.Attr{slog.String("msg", msg)}
	for i := 0; i+1 < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if err, ok := args[i+1].(error); ok {
			attrs = append(attrs, slog.String("err", err.Error()))
			continue
		}
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}
	logger.Event(context.Background(), "scheduler", level, "gocron", attrs...)
}
