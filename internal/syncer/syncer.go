package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"langarr/internal/arr"
	"langarr/internal/config"
	"langarr/internal/engine"
	"langarr/internal/logging"
	"langarr/internal/lookupcache"
	"langarr/internal/notifications"
	"langarr/internal/overseerr"
	"langarr/internal/searchgate"
	"langarr/internal/services"
	"langarr/internal/store"
	"langarr/internal/tagging"
)

// ServiceOverseerr names the broker pseudo-service in sync keys, next to
// arr.ServiceRadarr and arr.ServiceSonarr.
const ServiceOverseerr = "overseerr"

// maxParallelInstances bounds how many instances sync at once.
const maxParallelInstances = 3

// RadarrClient is the slice of a Radarr server the syncer drives.
type RadarrClient interface {
	SystemStatus(ctx context.Context) (arr.SystemStatus, error)
	QualityProfiles(ctx context.Context) ([]arr.QualityProfile, error)
	Tags(ctx context.Context) ([]arr.Tag, error)
	CreateTag(ctx context.Context, label string) (arr.Tag, error)
	Movies(ctx context.Context) ([]arr.Movie, error)
	MovieByTmdbID(ctx context.Context, tmdbID int64) (*arr.Movie, error)
	engine.MovieClient
}

// SonarrClient is the slice of a Sonarr server the syncer drives.
type SonarrClient interface {
	SystemStatus(ctx context.Context) (arr.SystemStatus, error)
	QualityProfiles(ctx context.Context) ([]arr.QualityProfile, error)
	Tags(ctx context.Context) ([]arr.Tag, error)
	CreateTag(ctx context.Context, label string) (arr.Tag, error)
	Series(ctx context.Context) ([]arr.Series, error)
	SeriesByTvdbID(ctx context.Context, tvdbID int64) (*arr.Series, error)
	SeriesByTmdbID(ctx context.Context, tmdbID int64) (*arr.Series, error)
	engine.SeriesClient
}

// BrokerClient is the slice of an Overseerr server the syncer drives.
type BrokerClient interface {
	Status(ctx context.Context) (overseerr.Status, error)
	PendingRequests(ctx context.Context) ([]overseerr.Request, error)
	Movie(ctx context.Context, tmdbID int64) (overseerr.MediaDetails, error)
	TV(ctx context.Context, tmdbID int64) (overseerr.MediaDetails, error)
	ServerProfiles(ctx context.Context, service string, serverID int) ([]overseerr.Profile, error)
	UpdateRequest(ctx context.Context, id int64, mediaType string, profileID int, seasons []int) error
}

// Clients builds remote clients per instance. Tests swap these for fakes;
// production uses the real HTTP clients.
type Clients struct {
	Radarr func(inst config.Instance) (RadarrClient, error)
	Sonarr func(inst config.Instance) (SonarrClient, error)
	Broker func(broker config.Overseerr) (BrokerClient, error)
}

func defaultClients() Clients {
	return Clients{
		Radarr: func(inst config.Instance) (RadarrClient, error) {
			return arr.NewRadarr(inst.BaseURL, inst.APIKey)
		},
		Sonarr: func(inst config.Instance) (SonarrClient, error) {
			return arr.NewSonarr(inst.BaseURL, inst.APIKey)
		},
		Broker: func(broker config.Overseerr) (BrokerClient, error) {
			return overseerr.New(broker.BaseURL, broker.APIKey)
		},
	}
}

// Option customizes a Syncer.
type Option func(*Syncer)

// WithClients overrides the remote client factories.
func WithClients(clients Clients) Option {
	return func(s *Syncer) {
		if clients.Radarr != nil {
			s.clients.Radarr = clients.Radarr
		}
		if clients.Sonarr != nil {
			s.clients.Sonarr = clients.Sonarr
		}
		if clients.Broker != nil {
			s.clients.Broker = clients.Broker
		}
	}
}

// WithNotifier overrides the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(s *Syncer) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// Options selects per-call sync behavior.
type Options struct {
	DryRun bool
}

// Syncer coordinates full and single-instance reconciliation runs. One
// Syncer is shared by the scheduler, the HTTP API, and the webhook handler,
// so the lookup cache and search gate state carry across triggers.
type Syncer struct {
	cfg      *config.Config
	store    *store.Store
	cache    *lookupcache.Cache
	gate     *searchgate.Gate
	engine   *engine.Engine
	notifier notifications.Service
	clients  Clients
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New builds a Syncer from configuration. The store may be nil for
// one-shot runs that keep no history.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) *Syncer {
	if logger == nil {
		logger = logging.NewNop()
	}
	gate := searchgate.New()
	s := &Syncer{
		cfg:      cfg,
		store:    st,
		cache:    lookupcache.New(cfg.Cache.TTL()),
		gate:     gate,
		engine:   engine.New(audioRules(cfg), gate, logger),
		notifier: notifications.NewService(cfg),
		clients:  defaultClients(),
		logger:   logging.NewComponentLogger(logger, "syncer"),
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func audioRules(cfg *config.Config) []tagging.Rule {
	if cfg == nil || len(cfg.AudioTags.Rules) == 0 {
		return nil
	}
	rules := make([]tagging.Rule, 0, len(cfg.AudioTags.Rules))
	for _, rule := range cfg.AudioTags.Rules {
		rules = append(rules, tagging.Rule{Language: rule.Language, Tag: rule.Tag})
	}
	return rules
}

// SyncAll reconciles every enabled broker and instance: brokers first so
// pending requests land on the right profile before inventories are walked,
// then instances with bounded parallelism. Failures are isolated per
// instance and surface as one aggregate error.
func (s *Syncer) SyncAll(ctx context.Context, opts Options) error {
	var failures atomic.Int32

	for _, broker := range s.cfg.Overseerr {
		if !broker.IsEnabled() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.SyncOne(ctx, ServiceOverseerr, broker.Name, opts); err != nil {
			failures.Add(1)
		}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxParallelInstances)
	for _, service := range []string{arr.ServiceRadarr, arr.ServiceSonarr} {
		for _, inst := range s.cfg.Instances(service) {
			if !inst.IsEnabled() {
				s.logger.Debug("instance disabled, skipping",
					logging.String(logging.FieldService, service),
					logging.String(logging.FieldInstance, inst.Name),
				)
				continue
			}
			wg.Add(1)
			go func(service, name string) {
				defer wg.Done()
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					return
				}
				if err := s.SyncOne(ctx, service, name, opts); err != nil {
					failures.Add(1)
				}
			}(service, inst.Name)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if n := failures.Load(); n > 0 {
		return services.Wrap(services.ErrTransient, "syncer", "sync all",
			fmt.Sprintf("%d sync passes failed", n), nil)
	}
	return nil
}

// SyncOne reconciles a single instance or broker by name. Concurrent
// requests for the same key are skipped, not queued.
func (s *Syncer) SyncOne(ctx context.Context, service, name string, opts Options) error {
	key := services.InstanceKey(service, name)
	logger := s.logger.With(
		logging.String(logging.FieldService, service),
		logging.String(logging.FieldInstance, name),
	)

	if !s.begin(key) {
		logging.WarnWithContext(logger, "sync already in flight, skipping duplicate request", "sync_in_flight",
			logging.String(logging.FieldImpact, "this trigger is dropped, the running sync continues"),
		)
		return nil
	}
	defer s.end(key)

	if service == ServiceOverseerr {
		broker, ok := s.findBroker(name)
		if !ok {
			return services.Wrap(services.ErrNotFound, "syncer", "sync", "unknown broker "+name, nil)
		}
		if !broker.IsEnabled() {
			logger.Debug("broker disabled, skipping")
			return nil
		}
		err := s.syncBroker(ctx, broker, opts, logger)
		if err != nil {
			logging.ErrorWithContext(logger, "broker sync failed", "sync_failed", logging.Error(err))
		}
		return err
	}

	inst, ok := s.cfg.FindInstance(service, name)
	if !ok {
		return services.Wrap(services.ErrNotFound, "syncer", "sync", "unknown instance "+key, nil)
	}
	if !inst.IsEnabled() {
		logger.Debug("instance disabled, skipping")
		return nil
	}
	return s.syncInstance(ctx, service, inst, opts, logger)
}

func (s *Syncer) findBroker(name string) (config.Overseerr, bool) {
	for _, broker := range s.cfg.Overseerr {
		if broker.Name == name {
			return broker, true
		}
	}
	return config.Overseerr{}, false
}

func (s *Syncer) begin(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *Syncer) end(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

// notify publishes a notification without ever failing the sync path.
func (s *Syncer) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event, payload); err != nil {
		s.logger.Debug("notification failed", logging.Error(err))
	}
}
