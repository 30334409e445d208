// Package worker runs background tasks on a supervised fixed-size pool.
// Every asynchronous trigger in the process (scheduler ticks, API sync
// requests, webhook items) is submitted here instead of spawning ad-hoc
// goroutines, so in-flight work is bounded and observable.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"langarr/internal/logging"
	"langarr/internal/services"
)

const (
	// DefaultWorkers bounds concurrent background tasks process-wide.
	DefaultWorkers = 4
	// DefaultQueueSize is how many accepted tasks may wait for a worker.
	DefaultQueueSize = 64
)

// Task is one unit of background work. Key identifies the subject for
// logs; Run does the work and reports its own failure.
type Task struct {
	Name string
	Key  string
	Run  func(ctx context.Context) error
}

// Pool accepts tasks and runs them on a fixed set of workers. It
// implements suture.Service; tasks only execute while Serve is running.
type Pool struct {
	queue   chan Task
	workers int
	logger  *slog.Logger

	mu        sync.Mutex
	active    int
	completed uint64
}

// New constructs a pool. Non-positive sizes fall back to the defaults.
func New(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		queue:   make(chan Task, queueSize),
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "worker"),
	}
}

// Submit accepts a task for asynchronous execution and returns
// immediately. A full queue is an error; callers log it and drop the
// trigger rather than blocking.
func (p *Pool) Submit(task Task) error {
	if task.Run == nil {
		return services.Wrap(services.ErrValidation, "worker", "submit", "task has no run function", nil)
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return services.Wrap(services.ErrConflict, "worker", "submit",
			fmt.Sprintf("queue full, dropping task %q for %s", task.Name, task.Key), nil)
	}
}

// Pending reports how many accepted tasks have not started yet.
func (p *Pool) Pending() int {
	return len(p.queue)
}

// Active reports how many tasks are currently executing.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Serve runs the workers until ctx is cancelled. Queued tasks left behind
// at shutdown are dropped; the next process start reschedules them.
func (p *Pool) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task := <-p.queue:
					p.execute(ctx, task)
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (p *Pool) execute(ctx context.Context, task Task) {
	logger := p.logger.With(
		logging.String("task", task.Name),
		logging.String("key", task.Key),
	)

	p.mu.Lock()
	p.active++
	p.mu.Unlock()
	started := time.Now()

	defer func() {
		p.mu.Lock()
		p.active--
		p.completed++
		p.mu.Unlock()

		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "task panicked", "task_panic",
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldImpact, "this task is abandoned, the pool keeps running"),
			)
		}
	}()

	if err := task.Run(ctx); err != nil && ctx.Err() == nil {
		// The task already logged its own failure detail; this line keeps
		// the pool's view of outcomes in one place.
		logger.Debug("task finished with error",
			logging.Error(err),
			logging.Duration("elapsed", time.Since(started)),
		)
		return
	}
	logger.Debug("task finished", logging.Duration("elapsed", time.Since(started)))
}
