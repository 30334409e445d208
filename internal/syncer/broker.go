package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"langarr/internal/arr"
	"langarr/internal/config"
	"langarr/internal/engine"
	"langarr/internal/language"
	"langarr/internal/logging"
	"langarr/internal/overseerr"
	"langarr/internal/services"
)

// syncBroker walks one Overseerr instance's pending requests and rewrites
// each request's quality profile to match the mapped instance's language
// policy. Request failures are logged and skipped so one bad request never
// stalls the queue.
func (s *Syncer) syncBroker(ctx context.Context, broker config.Overseerr, opts Options, logger *slog.Logger) error {
	dryRun := opts.DryRun || s.cfg.General.DryRun

	client, err := s.clients.Broker(broker)
	if err != nil {
		return err
	}

	status, err := client.Status(ctx)
	if err != nil {
		return services.Wrap(services.ErrTransient, "syncer", "preflight", "connection test failed", err)
	}
	logger.Debug("connected", logging.String("version", status.Version))

	requests, err := client.PendingRequests(ctx)
	if err != nil {
		return services.Wrap(services.ErrTransient, "syncer", "fetch requests", "pending request fetch failed", err)
	}
	if len(requests) == 0 {
		logger.Debug("no pending requests")
		return nil
	}
	logger.Info("processing pending requests",
		logging.Int("total", len(requests)),
		logging.Bool("dry_run", dryRun),
	)

	updated := 0
	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.processRequest(ctx, broker, client, req, dryRun, logger) {
			updated++
		}
	}
	logger.Info("request pass finished",
		logging.Int("updated", updated),
		logging.Int("total", len(requests)),
	)
	return nil
}

func (s *Syncer) processRequest(ctx context.Context, broker config.Overseerr, client BrokerClient, req overseerr.Request, dryRun bool, logger *slog.Logger) bool {
	mediaType := req.MediaType()
	service := arr.ServiceSonarr
	if mediaType == overseerr.MediaTypeMovie {
		service = arr.ServiceRadarr
	}
	reqLogger := logger.With(
		logging.Int64("request_id", req.ID),
		logging.String("media_type", mediaType),
	)

	instName, ok := mapServer(broker, service, req.ServerID)
	if !ok {
		logging.WarnWithContext(reqLogger, "request server not mapped to an instance", "server_unmapped",
			logging.Int("server_id", req.ServerID),
			logging.String(logging.FieldImpact, "request keeps the profile Overseerr chose"),
		)
		return false
	}
	inst, found := s.cfg.FindInstance(service, instName)
	if !found || !inst.IsEnabled() {
		logging.WarnWithContext(reqLogger, "mapped instance not configured", "server_unmapped",
			logging.String(logging.FieldInstance, instName),
			logging.String(logging.FieldImpact, "request keeps the profile Overseerr chose"),
		)
		return false
	}

	if req.Media.TmdbID == 0 {
		reqLogger.Debug("request has no tmdb id, skipping")
		return false
	}

	var details overseerr.MediaDetails
	var err error
	if mediaType == overseerr.MediaTypeMovie {
		details, err = client.Movie(ctx, req.Media.TmdbID)
	} else {
		details, err = client.TV(ctx, req.Media.TmdbID)
	}
	if err != nil {
		logging.WarnWithContext(reqLogger, "media detail fetch failed", "media_detail_unavailable",
			logging.Error(err),
			logging.Int64("tmdb_id", req.Media.TmdbID),
		)
		return false
	}
	title := details.DisplayTitle()

	policy := engine.PolicyFromInstance(service, inst, dryRun)
	isOriginal := classifyRequest(policy, details, reqLogger)

	targetName := inst.DubProfile
	if isOriginal {
		targetName = inst.OriginalProfile
	}

	profiles, err := s.brokerProfiles(ctx, broker, client, service, req.ServerID)
	if err != nil {
		logging.WarnWithContext(reqLogger, "server profile fetch failed", "profile_unresolved",
			logging.Error(err),
		)
		return false
	}
	profileID := profiles[strings.ToLower(strings.TrimSpace(targetName))]
	if profileID == 0 {
		logging.WarnWithContext(reqLogger, "target profile not found on server", "profile_unresolved",
			logging.String("profile", targetName),
		)
		return false
	}
	if profileID == req.ProfileID {
		reqLogger.Debug("request already on target profile", logging.String("title", title))
		return false
	}

	if dryRun {
		reqLogger.Info("DRY RUN: would update request",
			logging.String("title", title),
			logging.String("profile", targetName),
		)
		return false
	}

	if err := client.UpdateRequest(ctx, req.ID, mediaType, profileID, overseerr.SeasonNumbers(req.Seasons)); err != nil {
		logging.WarnWithContext(reqLogger, "request update failed", "remote_update_failed",
			logging.Error(err),
			logging.String("title", title),
		)
		return false
	}
	reqLogger.Info("request updated",
		logging.String("title", title),
		logging.String("profile", targetName),
	)
	return true
}

// mapServer resolves a request's serverId to a configured instance name.
// Requests without a serverId fall through to the lone mapping when exactly
// one server is configured for the service.
func mapServer(broker config.Overseerr, service string, serverID int) (string, bool) {
	mappings := broker.RadarrMappings()
	if service == arr.ServiceSonarr {
		mappings = broker.SonarrMappings()
	}
	if name, ok := mappings[serverID]; ok && name != "" {
		return name, true
	}
	if len(mappings) == 1 {
		for _, name := range mappings {
			return name, name != ""
		}
	}
	return "", false
}

func classifyRequest(policy engine.Policy, details overseerr.MediaDetails, logger *slog.Logger) bool {
	lang := strings.TrimSpace(details.OriginalLanguage)
	if lang == "" {
		logging.WarnWithContext(logger, "original language missing, classifying as original", "missing_original_language",
			logging.String("title", details.DisplayTitle()),
			logging.String(logging.FieldImpact, "request profile only changes when it differs from the original-language profile"),
		)
		return true
	}
	_, ok := policy.OriginalLanguages[language.Normalize(lang)]
	return ok
}

// brokerProfiles returns the broker's profile mirror for one server, cached
// under a broker-scoped key so repeated requests in a poll share one fetch.
func (s *Syncer) brokerProfiles(ctx context.Context, broker config.Overseerr, client BrokerClient, service string, serverID int) (map[string]int, error) {
	key := fmt.Sprintf("%s:%s:%s:%d", ServiceOverseerr, broker.Name, service, serverID)
	if cached, ok := s.cache.Profiles(key); ok {
		return cached, nil
	}
	list, err := client.ServerProfiles(ctx, service, serverID)
	if err != nil {
		return nil, err
	}
	values := make(map[string]int, len(list))
	for _, profile := range list {
		values[strings.ToLower(strings.TrimSpace(profile.Name))] = profile.ID
	}
	s.cache.SetProfiles(key, values)
	return values, nil
}
