package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"langarr/internal/arr"
	"langarr/internal/config"
	"langarr/internal/engine"
	"langarr/internal/logging"
	"langarr/internal/notifications"
	"langarr/internal/services"
	"langarr/internal/store"
)

// placeholderTagID stands in for the marker tag during dry runs when the
// tag does not exist yet, so the plan still shows the membership change.
const placeholderTagID = 999999

const progressBucketPercent = 10

// runStats accumulates counters and the last updated item over one pass.
type runStats struct {
	counters    store.Counters
	lastTitle   string
	lastPoster  string
	lastProfile string
}

func (st *runStats) apply(outcome engine.Outcome, err error) {
	switch {
	case err != nil:
		st.counters.Failed++
	case outcome.Updated:
		st.counters.Updated++
		if outcome.Searched {
			st.counters.Searched++
		}
	case outcome.Planned:
		st.counters.Planned++
	default:
		st.counters.Skipped++
	}
}

func (st *runStats) noteItem(title, poster, profile string) {
	st.lastTitle = title
	st.lastPoster = poster
	st.lastProfile = profile
}

func (s *Syncer) syncInstance(ctx context.Context, service string, inst config.Instance, opts Options, logger *slog.Logger) error {
	key := services.InstanceKey(service, inst.Name)
	dryRun := opts.DryRun || s.cfg.General.DryRun
	started := time.Now()

	run := s.beginRun(ctx, service, inst.Name, dryRun, logger)

	var stats runStats
	var runErr error
	switch service {
	case arr.ServiceRadarr:
		stats, runErr = s.syncMovies(ctx, inst, dryRun, logger)
	case arr.ServiceSonarr:
		stats, runErr = s.syncSeries(ctx, inst, dryRun, logger)
	default:
		runErr = services.Wrap(services.ErrValidation, "syncer", "sync", "unknown service "+service, nil)
	}

	s.finishRun(ctx, run, key, service, inst.Name, dryRun, stats, runErr, time.Since(started), logger)
	return runErr
}

func (s *Syncer) syncMovies(ctx context.Context, inst config.Instance, dryRun bool, logger *slog.Logger) (runStats, error) {
	var stats runStats

	client, err := s.clients.Radarr(inst)
	if err != nil {
		return stats, err
	}

	status, err := client.SystemStatus(ctx)
	if err != nil {
		return stats, services.Wrap(services.ErrTransient, "syncer", "preflight", "connection test failed", err)
	}
	logger.Debug("connected", logging.String("version", status.Version))

	policy := engine.PolicyFromInstance(arr.ServiceRadarr, inst, dryRun)
	res, err := s.resolve(ctx, policy.Key(), client, inst, dryRun, logger)
	if err != nil {
		return stats, err
	}

	movies, err := client.Movies(ctx)
	if err != nil {
		return stats, services.Wrap(services.ErrTransient, "syncer", "fetch inventory", "movie fetch failed", err)
	}
	stats.counters.Total = len(movies)
	logger.Info("sync started",
		logging.Int("total", len(movies)),
		logging.Bool("dry_run", dryRun),
	)

	pacer := newPacer(inst, dryRun)
	sampler := logging.NewProgressSampler(progressBucketPercent)

	for i, movie := range movies {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		outcome, err := s.engine.ProcessMovie(ctx, policy, res, client, movie)
		stats.apply(outcome, err)
		if err == nil && outcome.Updated {
			stats.noteItem(movie.Title, arr.PosterURL(movie.Images), outcome.ProfileName)
			if pacer != nil {
				if err := pacer.Wait(ctx); err != nil {
					return stats, err
				}
			}
		}

		if pct := percent(i+1, len(movies)); sampler.ShouldLog(pct, "movies") {
			logger.Info("sync progress",
				logging.Int("processed", i+1),
				logging.Int("total", len(movies)),
			)
		}
	}
	return stats, nil
}

func (s *Syncer) syncSeries(ctx context.Context, inst config.Instance, dryRun bool, logger *slog.Logger) (runStats, error) {
	var stats runStats

	client, err := s.clients.Sonarr(inst)
	if err != nil {
		return stats, err
	}

	status, err := client.SystemStatus(ctx)
	if err != nil {
		return stats, services.Wrap(services.ErrTransient, "syncer", "preflight", "connection test failed", err)
	}
	logger.Debug("connected", logging.String("version", status.Version))

	policy := engine.PolicyFromInstance(arr.ServiceSonarr, inst, dryRun)
	res, err := s.resolve(ctx, policy.Key(), client, inst, dryRun, logger)
	if err != nil {
		return stats, err
	}

	series, err := client.Series(ctx)
	if err != nil {
		return stats, services.Wrap(services.ErrTransient, "syncer", "fetch inventory", "series fetch failed", err)
	}
	stats.counters.Total = len(series)
	logger.Info("sync started",
		logging.Int("total", len(series)),
		logging.Bool("dry_run", dryRun),
	)

	pacer := newPacer(inst, dryRun)
	sampler := logging.NewProgressSampler(progressBucketPercent)

	for i, item := range series {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		outcome, err := s.engine.ProcessSeries(ctx, policy, res, client, item)
		stats.apply(outcome, err)
		if err == nil && outcome.Updated {
			stats.noteItem(item.Title, arr.PosterURL(item.Images), outcome.ProfileName)
			if pacer != nil {
				if err := pacer.Wait(ctx); err != nil {
					return stats, err
				}
			}
		}

		if pct := percent(i+1, len(series)); sampler.ShouldLog(pct, "series") {
			logger.Info("sync progress",
				logging.Int("processed", i+1),
				logging.Int("total", len(series)),
			)
		}
	}
	return stats, nil
}

// lookupClient is the profile and tag surface shared by both manager types.
type lookupClient interface {
	QualityProfiles(ctx context.Context) ([]arr.QualityProfile, error)
	Tags(ctx context.Context) ([]arr.Tag, error)
	CreateTag(ctx context.Context, label string) (arr.Tag, error)
}

// resolve maps the instance's configured profile and tag names to remote
// ids, fetching through the cache. Profile matching is case-insensitive.
// The marker tag is created when missing, except in dry runs, which plan
// with a placeholder id instead.
func (s *Syncer) resolve(ctx context.Context, key string, client lookupClient, inst config.Instance, dryRun bool, logger *slog.Logger) (engine.Resolution, error) {
	profiles, err := s.profileMap(ctx, key, client)
	if err != nil {
		return engine.Resolution{}, err
	}
	tags, err := s.tagMap(ctx, key, client)
	if err != nil {
		return engine.Resolution{}, err
	}

	res := engine.Resolution{
		OriginalProfileID: profiles[strings.ToLower(strings.TrimSpace(inst.OriginalProfile))],
		DubProfileID:      profiles[strings.ToLower(strings.TrimSpace(inst.DubProfile))],
		TagIDs:            tags,
	}
	if res.OriginalProfileID == 0 {
		logging.WarnWithContext(logger, "original profile not found on server", "profile_unresolved",
			logging.String("profile", inst.OriginalProfile),
			logging.String(logging.FieldImpact, "original-language items keep their current profile"),
		)
	}
	if res.DubProfileID == 0 {
		logging.WarnWithContext(logger, "dub profile not found on server", "profile_unresolved",
			logging.String("profile", inst.DubProfile),
			logging.String(logging.FieldImpact, "dubbed items keep their current profile"),
		)
	}

	if name := strings.TrimSpace(inst.TagName); name != "" {
		res.MarkerTagID = tags[strings.ToLower(name)]
		if res.MarkerTagID == 0 {
			res.MarkerTagID = s.ensureMarkerTag(ctx, key, client, name, dryRun, logger)
		}
	}
	return res, nil
}

func (s *Syncer) ensureMarkerTag(ctx context.Context, key string, client lookupClient, name string, dryRun bool, logger *slog.Logger) int {
	if dryRun {
		logger.Info("DRY RUN: would create tag", logging.String("tag", name))
		return placeholderTagID
	}
	created, err := client.CreateTag(ctx, name)
	if err != nil {
		logging.WarnWithContext(logger, "marker tag creation failed", "tag_create_failed",
			logging.String("tag", name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "marker tags skipped this run"),
		)
		return 0
	}
	logger.Info("created tag", logging.String("tag", name), logging.Int("tag_id", created.ID))
	// The cached tag list no longer matches the server.
	s.cache.Invalidate(key)
	return created.ID
}

func (s *Syncer) profileMap(ctx context.Context, key string, client lookupClient) (map[string]int, error) {
	if cached, ok := s.cache.Profiles(key); ok {
		return cached, nil
	}
	list, err := client.QualityProfiles(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "syncer", "resolve profiles", "quality profile fetch failed", err)
	}
	values := make(map[string]int, len(list))
	for _, profile := range list {
		values[strings.ToLower(strings.TrimSpace(profile.Name))] = profile.ID
	}
	s.cache.SetProfiles(key, values)
	return values, nil
}

func (s *Syncer) tagMap(ctx context.Context, key string, client lookupClient) (map[string]int, error) {
	if cached, ok := s.cache.Tags(key); ok {
		return cached, nil
	}
	list, err := client.Tags(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "syncer", "resolve tags", "tag fetch failed", err)
	}
	values := make(map[string]int, len(list))
	for _, tag := range list {
		values[strings.ToLower(strings.TrimSpace(tag.Label))] = tag.ID
	}
	s.cache.SetTags(key, values)
	return values, nil
}

// newPacer spaces consecutive updates when update_delay_seconds is set.
// The initial token is drained so the first update paces like the rest.
func newPacer(inst config.Instance, dryRun bool) *rate.Limiter {
	delay := inst.UpdateDelay()
	if delay <= 0 || dryRun {
		return nil
	}
	pacer := rate.NewLimiter(rate.Every(delay), 1)
	pacer.Allow()
	return pacer
}

func percent(done, total int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}

func (s *Syncer) beginRun(ctx context.Context, service, instance string, dryRun bool, logger *slog.Logger) *store.Run {
	if s.store == nil {
		return nil
	}
	run, err := s.store.RecordRunStart(ctx, service, instance, dryRun)
	if err != nil {
		logging.WarnWithContext(logger, "run record failed", "store_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history will miss this sync"),
		)
		return nil
	}
	return run
}

func (s *Syncer) finishRun(ctx context.Context, run *store.Run, key, service, instance string, dryRun bool, stats runStats, runErr error, elapsed time.Duration, logger *slog.Logger) {
	if run != nil {
		message := ""
		if runErr != nil {
			message = runErr.Error()
		}
		if err := s.store.RecordRunFinish(ctx, run.ID, stats.counters, message); err != nil {
			logging.WarnWithContext(logger, "run record update failed", "store_unavailable", logging.Error(err))
		}
	}

	if runErr != nil {
		logging.ErrorWithContext(logger, "sync failed", "sync_failed",
			logging.Error(runErr),
			logging.Duration("elapsed", elapsed),
		)
		s.notify(ctx, notifications.EventSyncFailed, notifications.Payload{
			"key":   key,
			"error": runErr.Error(),
		})
		return
	}

	if !dryRun && s.store != nil {
		now := time.Now().UTC()
		state := store.InstanceState{
			Service:         service,
			Instance:        instance,
			LastSyncAt:      &now,
			LastItemTitle:   stats.lastTitle,
			LastItemPoster:  stats.lastPoster,
			LastItemProfile: stats.lastProfile,
		}
		if err := s.store.UpsertInstanceState(ctx, state); err != nil {
			logging.WarnWithContext(logger, "instance state update failed", "store_unavailable", logging.Error(err))
		}
	}

	summary := summarize(stats.counters, dryRun)
	logger.Info("sync finished",
		logging.String("summary", summary),
		logging.Duration("elapsed", elapsed),
		logging.Bool("dry_run", dryRun),
	)
	s.notify(ctx, notifications.EventSyncCompleted, notifications.Payload{
		"key":      key,
		"summary":  summary,
		"duration": elapsed.Round(time.Second).String(),
		"failed":   fmt.Sprintf("%d", stats.counters.Failed),
		"dry_run":  fmt.Sprintf("%t", dryRun),
	})
}

func summarize(c store.Counters, dryRun bool) string {
	if dryRun {
		return fmt.Sprintf("%d planned of %d items", c.Planned, c.Total)
	}
	parts := fmt.Sprintf("%d updated, %d searched", c.Updated, c.Searched)
	if c.Failed > 0 {
		parts += fmt.Sprintf(", %d failed", c.Failed)
	}
	return fmt.Sprintf("%s of %d items", parts, c.Total)
}
