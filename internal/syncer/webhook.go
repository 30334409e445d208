package syncer

import (
	"context"
	"fmt"
	"time"

	"langarr/internal/arr"
	"langarr/internal/engine"
	"langarr/internal/logging"
	"langarr/internal/notifications"
	"langarr/internal/overseerr"
	"langarr/internal/services"
)

// webhookLookupDelay gives the broker's own add a moment to land in the
// library before the first lookup, because approval webhooks fire while
// Overseerr is still pushing the item to the server.
const webhookLookupDelay = 500 * time.Millisecond

// ProcessWebhookItem reconciles one item identified by external ids on
// every enabled instance of the matching type. Instances that do not hold
// the item are skipped with a warning; per-instance failures never stop
// the remaining instances.
func (s *Syncer) ProcessWebhookItem(ctx context.Context, mediaType string, tmdbID, tvdbID int64) error {
	switch mediaType {
	case overseerr.MediaTypeMovie:
		if tmdbID == 0 {
			return services.Wrap(services.ErrValidation, "syncer", "webhook", "movie webhook without tmdb id", nil)
		}
	case overseerr.MediaTypeTV:
		if tmdbID == 0 && tvdbID == 0 {
			return services.Wrap(services.ErrValidation, "syncer", "webhook", "series webhook without external ids", nil)
		}
	default:
		return services.Wrap(services.ErrValidation, "syncer", "webhook", fmt.Sprintf("unsupported media type %q", mediaType), nil)
	}

	if err := pause(ctx, webhookLookupDelay); err != nil {
		return err
	}

	if mediaType == overseerr.MediaTypeMovie {
		s.webhookMovies(ctx, tmdbID)
	} else {
		s.webhookSeries(ctx, tmdbID, tvdbID)
	}
	return nil
}

func (s *Syncer) webhookMovies(ctx context.Context, tmdbID int64) {
	dryRun := s.cfg.General.DryRun
	for _, inst := range s.cfg.Radarr {
		if !inst.IsEnabled() {
			continue
		}
		logger := s.logger.With(
			logging.String(logging.FieldService, arr.ServiceRadarr),
			logging.String(logging.FieldInstance, inst.Name),
			logging.Int64("tmdb_id", tmdbID),
		)

		client, err := s.clients.Radarr(inst)
		if err != nil {
			logging.WarnWithContext(logger, "client setup failed", "instance_unavailable", logging.Error(err))
			continue
		}

		policy := engine.PolicyFromInstance(arr.ServiceRadarr, inst, dryRun)
		res, err := s.resolve(ctx, policy.Key(), client, inst, dryRun, logger)
		if err != nil {
			logging.WarnWithContext(logger, "lookup resolution failed", "instance_unavailable", logging.Error(err))
			continue
		}

		movie, err := client.MovieByTmdbID(ctx, tmdbID)
		if err != nil {
			logging.WarnWithContext(logger, "movie lookup failed", "instance_unavailable", logging.Error(err))
			continue
		}
		if movie == nil {
			logger.Warn("movie not in library yet, skipping")
			continue
		}

		outcome, err := s.engine.ProcessMovie(ctx, policy, res, client, *movie)
		if err != nil {
			continue
		}
		s.notify(ctx, notifications.EventWebhookProcessed, notifications.Payload{
			"title":      movie.Title,
			"media_type": overseerr.MediaTypeMovie,
			"updated":    fmt.Sprintf("%t", outcome.Updated),
		})
	}
}

func (s *Syncer) webhookSeries(ctx context.Context, tmdbID, tvdbID int64) {
	dryRun := s.cfg.General.DryRun
	for _, inst := range s.cfg.Sonarr {
		if !inst.IsEnabled() {
			continue
		}
		logger := s.logger.With(
			logging.String(logging.FieldService, arr.ServiceSonarr),
			logging.String(logging.FieldInstance, inst.Name),
			logging.Int64("tvdb_id", tvdbID),
			logging.Int64("tmdb_id", tmdbID),
		)

		client, err := s.clients.Sonarr(inst)
		if err != nil {
			logging.WarnWithContext(logger, "client setup failed", "instance_unavailable", logging.Error(err))
			continue
		}

		policy := engine.PolicyFromInstance(arr.ServiceSonarr, inst, dryRun)
		res, err := s.resolve(ctx, policy.Key(), client, inst, dryRun, logger)
		if err != nil {
			logging.WarnWithContext(logger, "lookup resolution failed", "instance_unavailable", logging.Error(err))
			continue
		}

		series, err := lookupSeries(ctx, client, tmdbID, tvdbID)
		if err != nil {
			logging.WarnWithContext(logger, "series lookup failed", "instance_unavailable", logging.Error(err))
			continue
		}
		if series == nil {
			logger.Warn("series not in library yet, skipping")
			continue
		}

		outcome, err := s.engine.ProcessSeries(ctx, policy, res, client, *series)
		if err != nil {
			continue
		}
		s.notify(ctx, notifications.EventWebhookProcessed, notifications.Payload{
			"title":      series.Title,
			"media_type": overseerr.MediaTypeTV,
			"updated":    fmt.Sprintf("%t", outcome.Updated),
		})
	}
}

// lookupSeries prefers the tvdb id Sonarr indexes on, falling back to the
// tmdb id webhooks sometimes carry instead.
func lookupSeries(ctx context.Context, client SonarrClient, tmdbID, tvdbID int64) (*arr.Series, error) {
	if tvdbID != 0 {
		series, err := client.SeriesByTvdbID(ctx, tvdbID)
		if err != nil || series != nil {
			return series, err
		}
	}
	if tmdbID != 0 {
		return client.SeriesByTmdbID(ctx, tmdbID)
	}
	return nil, nil
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
