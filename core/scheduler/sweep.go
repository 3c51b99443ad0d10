package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/core/metrics"
)

// Pruner deletes contacts last seen before a cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// DirectorySweep forgets contacts idle for longer than TTL.
type DirectorySweep struct {
	pruner Pruner
	ttl    time.Duration
	now    func() time.Time
}

// NewDirectorySweep builds a sweep over p.
func NewDirectorySweep(p Pruner, ttl time.Duration) *DirectorySweep {
	return &DirectorySweep{pruner: p, ttl: ttl, now: time.Now}
}

// Run prunes once and reports how many contacts were removed.
func (d *DirectorySweep) Run(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := d.now().Add(-d.ttl)
	n, err := d.pruner.Prune(ctx, cutoff)
	if err != nil {
		logger.Warn(ctx, "directory", "sweep",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return 0, err
	}
	metrics.AddPruned(n)
	logger.Info(ctx, "directory", "sweep",
		slog.String("status", "ok"),
		slog.Int("pruned", n),
		slog.Duration("duration", logger.Took(start)),
	)
	return n, nil
}

// Task adapts Run to Scheduler.Every.
func (d *DirectorySweep) Task(ctx context.Context) {
	_, _ = d.Run(ctx)
}
