// Package sequencer runs jobs in per-key order. Jobs sharing a key run one
// after another in submit order; jobs of different keys run concurrently on
// other shards.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/relaybot/core/logger"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("sequencer: closed")

// Options sizes the sequencer.
type Options struct {
	// Shards is the number of workers; a key always maps to the same shard.
	Shards int
	// QueueSize bounds pending jobs per shard; Submit blocks when it is full.
	QueueSize int
}

type job struct {
	ctx    context.Context
	key    int64
	action string
	run    func(context.Context) error
}

// Sequencer is a keyed worker pool.
type Sequencer struct {
	opts   Options
	queues []chan job
	stop   chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup

	done atomic.Uint64
	errs atomic.Uint64
}

// New starts a sequencer with defaults for zeroed options.
func New(opts Options) *Sequencer {
	if opts.Shards <= 0 {
		opts.Shards = 16
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}

	s := &Sequencer{
		opts:   opts,
		queues: make([]chan job, opts.Shards),
		stop:   make(chan struct{}),
	}
	s.wg.Add(opts.Shards)
	for i := range s.queues {
		s.queues[i] = make(chan job, opts.QueueSize)
		go s.worker(s.queues[i])
	}
	return s
}

func (s *Sequencer) shard(key int64) chan job {
	return s.queues[uint64(key)%uint64(len(s.queues))]
}

// Submit queues run behind every earlier job with the same key. It blocks
// while the shard queue is full and gives up when ctx is done or the
// sequencer closes.
func (s *Sequencer) Submit(ctx context.Context, key int64, action string, run func(context.Context) error) error {
	if run == nil {
		return errors.New("sequencer: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	j := job{ctx: ctx, key: key, action: action, run: run}
	select {
	case s.shard(key) <- j:
		return nil
	case <-s.stop:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("sequencer: submit: %w", ctx.Err())
	}
}

// Processed returns the number of finished jobs.
func (s *Sequencer) Processed() uint64 {
	return s.done.Load()
}

// Failed returns the number of jobs that returned an error or panicked.
func (s *Sequencer) Failed() uint64 {
	return s.errs.Load()
}

// Close rejects new jobs, lets workers drain what is queued and waits for them.
func (s *Sequencer) Close() {
	s.once.Do(func() {
		close(s.stop)
		s.mu.Lock()
		s.closed = true
		for _, q := range s.queues {
			close(q)
		}
		s.mu.Unlock()
		s.wg.Wait()
	})
}

func (s *Sequencer) worker(q chan job) {
	defer s.wg.Done()
	for j := range q {
		s.handle(j)
	}
}

func (s *Sequencer) handle(j job) {
	start := time.Now()
	defer func() {
		s.done.Add(1)
		if r := recover(); r != nil {
			s.errs.Add(1)
			logger.Error(j.ctx, "tg", "tg.panic",
				slog.String("action", j.action),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	if err := j.run(j.ctx); err != nil {
		s.errs.Add(1)
		if logger.ShouldSampleDebug() {
			logger.Debug(j.ctx, "tg", "sequencer.job",
				slog.String("status", "fail"),
				slog.String("action", j.action),
				slog.Duration("duration", logger.Took(start)),
				slog.String("err", err.Error()),
			)
		}
	}
}
