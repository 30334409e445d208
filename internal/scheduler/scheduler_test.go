package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"langarr/internal/config"
	"langarr/internal/scheduler"
	"langarr/internal/syncer"
	"langarr/internal/testsupport"
	"langarr/internal/worker"
)

// inlinePool runs submitted tasks synchronously so tests observe effects
// without a running worker pool.
type inlinePool struct {
	mu   sync.Mutex
	keys []string
}

func (p *inlinePool) Submit(task worker.Task) error {
	p.mu.Lock()
	p.keys = append(p.keys, task.Key)
	p.mu.Unlock()
	return task.Run(context.Background())
}

func (p *inlinePool) submitted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type recordingRunner struct {
	mu   sync.Mutex
	runs []string
}

func (r *recordingRunner) SyncOne(_ context.Context, service, name string, _ syncer.Options) error {
	r.mu.Lock()
	r.runs = append(r.runs, service+":"+name)
	r.mu.Unlock()
	return nil
}

func (r *recordingRunner) ranKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func newTestConfig(t *testing.T) *config.Config {
	cfg := testsupport.NewConfig(t,
		testsupport.WithRadarr(testsupport.NewInstance("main", "http://radarr.local:7878", "key")),
		testsupport.WithSonarr(testsupport.NewInstance("main", "http://sonarr.local:8989", "key")),
	)
	cfg.General.RunOnStartup = true
	return cfg
}

func TestRescanCreatesTimersPerEnabledInstance(t *testing.T) {
	cfg := newTestConfig(t)
	runner := &recordingRunner{}
	pool := &inlinePool{}
	sched := scheduler.New(cfg, runner, pool, nil)

	sched.Rescan(context.Background())

	if got := sched.EntryCount(); got != 2 {
		t.Fatalf("EntryCount = %d, want 2", got)
	}
	if _, ok := sched.Interval("radarr:main"); !ok {
		t.Fatal("expected a radarr:main timer")
	}
	if _, ok := sched.Interval("sonarr:main"); !ok {
		t.Fatal("expected a sonarr:main timer")
	}
}

func TestRunOnStartupFiresOncePerKey(t *testing.T) {
	cfg := newTestConfig(t)
	runner := &recordingRunner{}
	pool := &inlinePool{}
	sched := scheduler.New(cfg, runner, pool, nil)

	sched.Rescan(context.Background())
	if got := len(runner.ranKeys()); got != 2 {
		t.Fatalf("startup runs = %d, want 2", got)
	}

	// A second rescan must not re-fire the startup run.
	sched.Rescan(context.Background())
	if got := len(runner.ranKeys()); got != 2 {
		t.Fatalf("runs after second rescan = %d, want 2", got)
	}
}

func TestRescanSkipsStartupWhenDisabledGlobally(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.General.RunOnStartup = false
	runner := &recordingRunner{}
	sched := scheduler.New(cfg, runner, &inlinePool{}, nil)

	sched.Rescan(context.Background())
	if got := len(runner.ranKeys()); got != 0 {
		t.Fatalf("startup runs = %d, want 0", got)
	}
	if got := sched.EntryCount(); got != 2 {
		t.Fatalf("EntryCount = %d, want 2", got)
	}
}

func TestIntervalChangeRecreatesTimer(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.General.RunOnStartup = false
	sched := scheduler.New(cfg, &recordingRunner{}, &inlinePool{}, nil)

	sched.Rescan(context.Background())
	before, ok := sched.Interval("radarr:main")
	if !ok {
		t.Fatal("expected a radarr:main timer")
	}

	cfg.Radarr[0].SyncIntervalHours = 6
	sched.Rescan(context.Background())

	after, ok := sched.Interval("radarr:main")
	if !ok {
		t.Fatal("radarr:main timer missing after interval change")
	}
	if after == before {
		t.Fatalf("interval unchanged: %s", after)
	}
	if after != 6*time.Hour {
		t.Fatalf("interval = %s, want 6h", after)
	}
}

func TestDisabledInstanceTearsDownTimerAndResetsStartup(t *testing.T) {
	cfg := newTestConfig(t)
	runner := &recordingRunner{}
	sched := scheduler.New(cfg, runner, &inlinePool{}, nil)

	sched.Rescan(context.Background())
	if got := sched.EntryCount(); got != 2 {
		t.Fatalf("EntryCount = %d, want 2", got)
	}
	startupRuns := len(runner.ranKeys())

	disabled := false
	cfg.Radarr[0].Enabled = &disabled
	sched.Rescan(context.Background())

	if got := sched.EntryCount(); got != 1 {
		t.Fatalf("EntryCount after disable = %d, want 1", got)
	}
	if _, ok := sched.Interval("radarr:main"); ok {
		t.Fatal("disabled instance still has a timer")
	}

	// Re-enabling runs startup again because the flag was reset.
	enabled := true
	cfg.Radarr[0].Enabled = &enabled
	sched.Rescan(context.Background())
	if got := len(runner.ranKeys()); got != startupRuns+1 {
		t.Fatalf("runs after re-enable = %d, want %d", got, startupRuns+1)
	}
}

func TestBrokerTimersUseMinutes(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBroker(config.Overseerr{
		Name:                "requests",
		BaseURL:             "http://overseerr.local:5055",
		APIKey:              "key",
		PollIntervalMinutes: 10,
	}))
	cfg.General.RunOnStartup = false
	sched := scheduler.New(cfg, &recordingRunner{}, &inlinePool{}, nil)

	sched.Rescan(context.Background())
	interval, ok := sched.Interval("overseerr:requests")
	if !ok {
		t.Fatal("expected an overseerr:requests timer")
	}
	if interval != 10*time.Minute {
		t.Fatalf("interval = %s, want 10m", interval)
	}
}

func TestBrokerPollFloorIsOneMinute(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBroker(config.Overseerr{
		Name:                "requests",
		BaseURL:             "http://overseerr.local:5055",
		APIKey:              "key",
		PollIntervalMinutes: 0,
	}))
	cfg.General.RunOnStartup = false
	sched := scheduler.New(cfg, &recordingRunner{}, &inlinePool{}, nil)

	sched.Rescan(context.Background())
	interval, ok := sched.Interval("overseerr:requests")
	if !ok {
		t.Fatal("expected an overseerr:requests timer")
	}
	if interval < time.Minute {
		t.Fatalf("interval = %s, want at least 1m", interval)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.General.RunOnStartup = false
	sched := scheduler.New(cfg, &recordingRunner{}, &inlinePool{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
