package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"langarr/internal/config"
	"langarr/internal/logging"
)

// Daemon runs the supervised background services and enforces
// single-instance execution via a lock file under the data dir.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock
	services []namedService

	running atomic.Bool
	cancel  context.CancelFunc
	errCh   <-chan error
}

type namedService struct {
	name    string
	service suture.Service
}

// New constructs a daemon. Services are supervised in registration order.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Register adds a service to the supervision tree. Must be called before
// Start.
func (d *Daemon) Register(name string, service suture.Service) {
	d.services = append(d.services, namedService{name: name, service: service})
}

// Start acquires the daemon lock and launches the supervisor tree. The
// returned error channel (via Wait) closes when the tree stops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another langarr daemon holds %s", d.lockPath)
	}

	hook := (&sutureslog.Handler{Logger: d.logger}).MustHook()
	supervisor := suture.New("langarr", suture.Spec{EventHook: hook})
	for _, svc := range d.services {
		supervisor.Add(svc.service)
		d.logger.Debug("service registered", logging.String("service_name", svc.name))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.errCh = supervisor.ServeBackground(runCtx)
	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Wait returns the supervisor's completion channel. It yields once, when
// the tree has fully stopped.
func (d *Daemon) Wait() <-chan error {
	return d.errCh
}

// Running reports whether the daemon has been started and not stopped.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Stop cancels the supervisor tree, waits for it to drain, and releases
// the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.errCh != nil {
		if err := <-d.errCh; err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("supervisor stopped with error", logging.Error(err))
		}
		d.errCh = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("lock release failed", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}
