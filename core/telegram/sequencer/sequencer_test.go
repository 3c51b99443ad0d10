package sequencer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSameKeyRunsInSubmitOrder(t *testing.T) {
	s := New(Options{Shards: 4, QueueSize: 8})
	ctx := context.Background()

	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < 50; i++ {
		for _, key := range []int64{100, 200, -300} {
			i, key := i, key
			err := s.Submit(ctx, key, "test", func(context.Context) error {
				if i%7 == 0 {
					time.Sleep(time.Millisecond)
				}
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
		}
	}
	s.Close()

	for key, seq := range got {
		if len(seq) != 50 {
			t.Fatalf("key %d ran %d jobs, want 50", key, len(seq))
		}
		for i, v := range seq {
			if v != i {
				t.Fatalf("key %d out of order at %d: %v", key, i, seq)
			}
		}
	}
	if s.Processed() != 150 {
		t.Fatalf("Processed = %d", s.Processed())
	}
}

func TestDifferentKeysRunConcurrently(t *testing.T) {
	s := New(Options{Shards: 2, QueueSize: 1})
	defer s.Close()
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	_ = s.Submit(ctx, 0, "blocker", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	done := make(chan struct{})
	_ = s.Submit(ctx, 1, "other", func(context.Context) error {
		close(done)
		return nil
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job on another shard was blocked")
	}
	close(release)
}

func TestSubmitAfterClose(t *testing.T) {
	s := New(Options{Shards: 1})
	s.Close()
	err := s.Submit(context.Background(), 1, "late", func(context.Context) error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
	s.Close()
}

func TestSubmitHonoursContextWhenFull(t *testing.T) {
	s := New(Options{Shards: 1, QueueSize: 1})
	defer s.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	_ = s.Submit(context.Background(), 1, "busy", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started
	_ = s.Submit(context.Background(), 1, "queued", func(context.Context) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Submit(ctx, 1, "overflow", func(context.Context) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	close(release)
}

func TestPanicIsRecovered(t *testing.T) {
	s := New(Options{Shards: 1})
	ctx := context.Background()
	_ = s.Submit(ctx, 1, "boom", func(context.Context) error { panic("boom") })
	ran := false
	_ = s.Submit(ctx, 1, "after", func(context.Context) error { ran = true; return nil })
	s.Close()
	if !ran {
		t.Fatalf("worker died after panic")
	}
	if s.Failed() != 1 {
		t.Fatalf("Failed = %d", s.Failed())
	}
}
