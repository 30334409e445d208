package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"langarr/internal/services"
	"langarr/internal/worker"
)

func startPool(t *testing.T, pool *worker.Pool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pool.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestSubmitRunsTask(t *testing.T) {
	pool := worker.New(2, 4, nil)
	startPool(t, pool)

	var ran atomic.Bool
	err := pool.Submit(worker.Task{
		Name: "test",
		Key:  "radarr:main",
		Run: func(context.Context) error {
			ran.Store(true)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	waitFor(t, time.Second, ran.Load)
}

func TestSubmitRejectsNilRun(t *testing.T) {
	pool := worker.New(1, 1, nil)
	err := pool.Submit(worker.Task{Name: "empty"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	// No Serve running, so nothing drains the queue.
	pool := worker.New(1, 1, nil)

	block := func(context.Context) error { return nil }
	if err := pool.Submit(worker.Task{Name: "first", Run: block}); err != nil {
		t.Fatalf("first submit should be accepted: %v", err)
	}
	err := pool.Submit(worker.Task{Name: "second", Run: block})
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict error on full queue, got %v", err)
	}
	if pool.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", pool.Pending())
	}
}

func TestPanicInTaskDoesNotKillPool(t *testing.T) {
	pool := worker.New(1, 4, nil)
	startPool(t, pool)

	if err := pool.Submit(worker.Task{
		Name: "boom",
		Run:  func(context.Context) error { panic("kaboom") },
	}); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	var ran atomic.Bool
	if err := pool.Submit(worker.Task{
		Name: "after",
		Run: func(context.Context) error {
			ran.Store(true)
			return nil
		},
	}); err != nil {
		t.Fatalf("Submit after panic returned error: %v", err)
	}
	waitFor(t, time.Second, ran.Load)
}

func TestTaskErrorsAreContained(t *testing.T) {
	pool := worker.New(1, 4, nil)
	startPool(t, pool)

	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		if err := pool.Submit(worker.Task{
			Name: "failing",
			Run: func(context.Context) error {
				ran.Add(1)
				return errors.New("remote unavailable")
			},
		}); err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
	}
	waitFor(t, time.Second, func() bool { return ran.Load() == 3 })
}

func TestServeStopsOnContextCancel(t *testing.T) {
	pool := worker.New(2, 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
