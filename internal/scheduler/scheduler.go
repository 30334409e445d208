// Package scheduler keeps one recurring sync timer per enabled instance
// and broker. A periodic rescan picks up interval changes and disabled
// instances; the actual work is submitted to the worker pool, never run
// on the cron goroutine itself.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"langarr/internal/arr"
	"langarr/internal/config"
	"langarr/internal/logging"
	"langarr/internal/services"
	"langarr/internal/syncer"
	"langarr/internal/worker"
)

// rescanInterval is how often the schedule is reconciled against the
// current configuration.
const rescanInterval = 5 * time.Minute

// Runner is the syncer surface the scheduler drives.
type Runner interface {
	SyncOne(ctx context.Context, service, name string, opts syncer.Options) error
}

// Submitter accepts background tasks; satisfied by *worker.Pool.
type Submitter interface {
	Submit(task worker.Task) error
}

type scheduled struct {
	id       cron.EntryID
	interval time.Duration
}

// Scheduler owns the cron timers. Implements suture.Service.
type Scheduler struct {
	cfg    *config.Config
	runner Runner
	pool   Submitter
	logger *slog.Logger
	cron   *cron.Cron

	mu         sync.Mutex
	entries    map[string]scheduled
	startupRan map[string]bool
}

// New constructs a scheduler over the shared syncer and worker pool.
func New(cfg *config.Config, runner Runner, pool Submitter, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		cfg:        cfg,
		runner:     runner,
		pool:       pool,
		logger:     logging.NewComponentLogger(logger, "scheduler"),
		cron:       cron.New(),
		entries:    make(map[string]scheduled),
		startupRan: make(map[string]bool),
	}
}

// Serve runs the timers until ctx is cancelled. The schedule is built
// immediately and reconciled every rescan interval.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.cron.Start()
	defer s.cron.Stop()

	s.Rescan(ctx)

	ticker := time.NewTicker(rescanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Rescan(ctx)
		}
	}
}

// Rescan reconciles the timer set against the configuration: missing
// entries are created (running once immediately when run_on_startup is
// set and this key has not yet startup-run this process), entries whose
// interval changed are recreated, and entries for disabled or removed
// instances are torn down with their startup flag reset.
func (s *Scheduler) Rescan(ctx context.Context) {
	desired := s.desiredIntervals()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.entries {
		if _, keep := desired[key]; keep {
			continue
		}
		s.cron.Remove(entry.id)
		delete(s.entries, key)
		delete(s.startupRan, key)
		s.logger.Info("timer removed", logging.String("key", key))
	}

	for key, interval := range desired {
		existing, exists := s.entries[key]
		if exists && existing.interval == interval {
			continue
		}
		if exists {
			s.cron.Remove(existing.id)
			delete(s.entries, key)
			s.logger.Info("timer interval changed, rescheduling",
				logging.String("key", key),
				logging.Duration("interval", interval),
			)
		}

		service, name := splitKey(key)
		if !exists && s.cfg.General.RunOnStartup && !s.startupRan[key] {
			s.startupRan[key] = true
			s.submit(service, name)
		}

		id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
			s.submit(service, name)
		})
		if err != nil {
			logging.ErrorWithContext(s.logger, "timer creation failed", "schedule_failed",
				logging.String("key", key),
				logging.Error(err),
				logging.String(logging.FieldImpact, "this instance only syncs on manual triggers"),
			)
			continue
		}
		s.entries[key] = scheduled{id: id, interval: interval}
		if !exists {
			s.logger.Info("timer created",
				logging.String("key", key),
				logging.Duration("interval", interval),
			)
		}
	}
}

// EntryCount reports how many timers are currently scheduled.
func (s *Scheduler) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Interval reports the scheduled interval for one key, if present.
func (s *Scheduler) Interval(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	return entry.interval, ok
}

func (s *Scheduler) desiredIntervals() map[string]time.Duration {
	desired := make(map[string]time.Duration)
	for _, service := range []string{arr.ServiceRadarr, arr.ServiceSonarr} {
		for _, inst := range s.cfg.Instances(service) {
			if !inst.IsEnabled() {
				continue
			}
			key := services.InstanceKey(service, inst.Name)
			desired[key] = inst.SyncInterval(s.cfg.General.SyncIntervalHours)
		}
	}
	for _, broker := range s.cfg.Overseerr {
		if !broker.IsEnabled() {
			continue
		}
		key := services.InstanceKey(syncer.ServiceOverseerr, broker.Name)
		desired[key] = broker.PollInterval()
	}
	return desired
}

func (s *Scheduler) submit(service, name string) {
	err := s.pool.Submit(worker.Task{
		Name: "scheduled-sync",
		Key:  services.InstanceKey(service, name),
		Run: func(ctx context.Context) error {
			return s.runner.SyncOne(ctx, service, name, syncer.Options{})
		},
	})
	if err != nil {
		logging.WarnWithContext(s.logger, "scheduled sync dropped", "queue_full",
			logging.String(logging.FieldService, service),
			logging.String(logging.FieldInstance, name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "this tick is skipped, the next timer fire retries"),
		)
	}
}

func splitKey(key string) (service, name string) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
