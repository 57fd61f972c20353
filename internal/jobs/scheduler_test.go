package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

// everySchedule fires at a fixed interval.
type everySchedule struct {
	interval time.Duration
}

func (s everySchedule) Next(t time.Time) time.Time {
	return t.Add(s.interval)
}

func TestRunOnceFiresExactlyOnce(t *testing.T) {
	var runs atomic.Int32

	svc := NewService(discardLogger())
	svc.Add(Job{
		Name:         "once",
		Schedule:     everySchedule{interval: time.Millisecond},
		RunOnce:      true,
		InitialDelay: time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()
	svc.Wait()

	if got := runs.Load(); got != 1 {
		t.Fatalf("got %d runs, want 1", got)
	}
}

func TestRunOnceWaitsForSchedule(t *testing.T) {
	var runs atomic.Int32

	// The delay expires almost immediately, but the schedule's next
	// occurrence is far away; the job must not fire at the delay boundary.
	svc := NewService(discardLogger())
	svc.Add(Job{
		Name:         "distant",
		Schedule:     everySchedule{interval: 24 * time.Hour},
		RunOnce:      true,
		InitialDelay: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()
	svc.Wait()

	if got := runs.Load(); got != 0 {
		t.Fatalf("got %d runs before the scheduled occurrence, want 0", got)
	}
}

func TestInitialDelayBoundsFirstActivation(t *testing.T) {
	var firstRun atomic.Int64

	svc := NewService(discardLogger())
	svc.Add(Job{
		Name:         "bounded",
		Schedule:     everySchedule{interval: time.Millisecond},
		InitialDelay: 50 * time.Millisecond,
		Run: func(ctx context.Context) error {
			firstRun.CompareAndSwap(0, time.Now().UnixNano())
			return nil
		},
	})

	start := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	time.Sleep(150 * time.Millisecond)
	cancel()
	svc.Wait()

	at := firstRun.Load()
	if at == 0 {
		t.Fatal("job never ran")
	}
	if elapsed := time.Duration(at - start.UnixNano()); elapsed < 50*time.Millisecond {
		t.Fatalf("first activation after %v, want at least the 50ms delay", elapsed)
	}
}

func TestRecurringKeepsFiring(t *testing.T) {
	var runs atomic.Int32

	svc := NewService(discardLogger())
	svc.Add(Job{
		Name:     "recurring",
		Schedule: everySchedule{interval: 10 * time.Millisecond},
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()
	svc.Wait()

	if got := runs.Load(); got < 2 {
		t.Fatalf("got %d runs, want at least 2", got)
	}
}

func TestFailureKeepsSchedule(t *testing.T) {
	var runs atomic.Int32

	svc := NewService(discardLogger())
	svc.Add(Job{
		Name:     "flaky",
		Schedule: everySchedule{interval: 10 * time.Millisecond},
		Run: func(ctx context.Context) error {
			if runs.Add(1) == 1 {
				return errors.New("transient")
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()
	svc.Wait()

	if got := runs.Load(); got < 2 {
		t.Fatalf("job stopped after a failure: %d runs", got)
	}
}

func TestPanicKeepsSchedule(t *testing.T) {
	var runs atomic.Int32

	svc := NewService(discardLogger())
	svc.Add(Job{
		Name:     "panicky",
		Schedule: everySchedule{interval: 10 * time.Millisecond},
		Run: func(ctx context.Context) error {
			if runs.Add(1) == 1 {
				panic("boom")
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()
	svc.Wait()

	if got := runs.Load(); got < 2 {
		t.Fatalf("job stopped after a panic: %d runs", got)
	}
}

func TestFailureIsolatedPerJob(t *testing.T) {
	var healthy atomic.Int32

	svc := NewService(discardLogger())
	svc.Add(Job{
		Name:     "broken",
		Schedule: everySchedule{interval: 10 * time.Millisecond},
		Run: func(ctx context.Context) error {
			return errors.New("always fails")
		},
	})
	svc.Add(Job{
		Name:     "healthy",
		Schedule: everySchedule{interval: 10 * time.Millisecond},
		Run: func(ctx context.Context) error {
			healthy.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()
	svc.Wait()

	if got := healthy.Load(); got < 2 {
		t.Fatalf("healthy job starved by broken one: %d runs", got)
	}
}

func TestParseCron(t *testing.T) {
	sched, err := ParseCron("*/5 * * * *")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	base := time.Date(2026, 1, 1, 12, 2, 0, 0, time.UTC)
	next := sched.Next(base)
	want := time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("got %v, want %v", next, want)
	}

	if _, err := ParseCron("not a cron"); err == nil {
		t.Error("expected error")
	}
}
