// Package engine applies the language policy to one remote item at a time:
// classify by original language, pick the target quality profile, reconcile
// the marker and audio tags, and push the minimal update back to the server.
package engine

import (
	"context"
	"log/slog"
	"time"

	"langarr/internal/arr"
	"langarr/internal/config"
	"langarr/internal/language"
	"langarr/internal/logging"
	"langarr/internal/searchgate"
	"langarr/internal/services"
	"langarr/internal/tagging"
)

// Policy is the per-instance slice of configuration the engine acts on,
// normalized once per run.
type Policy struct {
	Service           string
	Instance          string
	OriginalLanguages map[string]struct{}
	OriginalProfile   string
	DubProfile        string
	TagName           string
	AudioTagsEnabled  bool
	OnlyMonitored     bool
	TriggerSearch     bool
	SearchCooldown    time.Duration
	MinSearchInterval time.Duration
	DryRun            bool
}

// Key returns the instance key used for gate and cache state.
func (p Policy) Key() string {
	return services.InstanceKey(p.Service, p.Instance)
}

// PolicyFromInstance normalizes a config block into an engine policy.
func PolicyFromInstance(service string, inst config.Instance, dryRun bool) Policy {
	return Policy{
		Service:           service,
		Instance:          inst.Name,
		OriginalLanguages: language.NormalizeSet(inst.OriginalLanguages),
		OriginalProfile:   inst.OriginalProfile,
		DubProfile:        inst.DubProfile,
		TagName:           inst.TagName,
		AudioTagsEnabled:  inst.AudioTagsEnabled,
		OnlyMonitored:     inst.OnlyMonitored,
		TriggerSearch:     inst.SearchOnUpdate(),
		SearchCooldown:    inst.SearchCooldown(),
		MinSearchInterval: inst.MinSearchInterval(),
		DryRun:            dryRun,
	}
}

// Resolution carries the name→id lookups the orchestrator resolved for one
// run. Zero ids mean the name did not resolve on the remote; the matching
// branch becomes a no-op.
type Resolution struct {
	OriginalProfileID int
	DubProfileID      int
	MarkerTagID       int
	TagIDs            map[string]int
}

// ProfileName maps a resolved id back to its configured name for logs.
func (r Resolution) ProfileName(policy Policy, id int) string {
	switch id {
	case 0:
		return ""
	case r.OriginalProfileID:
		return policy.OriginalProfile
	case r.DubProfileID:
		return policy.DubProfile
	}
	return ""
}

// Outcome summarizes what one item pass did.
type Outcome struct {
	Updated     bool
	Planned     bool
	Searched    bool
	ProfileName string
}

// MovieClient is the slice of the Radarr client the engine needs.
type MovieClient interface {
	UpdateMovie(ctx context.Context, id int64, profileID int, tags []int) (arr.Movie, error)
	TriggerSearch(ctx context.Context, movieIDs ...int64) error
}

// SeriesClient is the slice of the Sonarr client the engine needs.
type SeriesClient interface {
	EpisodeFiles(ctx context.Context, seriesID int64) ([]arr.EpisodeFile, error)
	UpdateSeries(ctx context.Context, id int64, profileID int, tags []int) (arr.Series, error)
	TriggerSearch(ctx context.Context, seriesID int64) error
}

// Engine runs the per-item reconciliation pass.
type Engine struct {
	rules  []tagging.Rule
	gate   *searchgate.Gate
	logger *slog.Logger
}

// New constructs an engine with the shared audio rules and search gate.
func New(rules []tagging.Rule, gate *searchgate.Gate, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		rules:  rules,
		gate:   gate,
		logger: logging.NewComponentLogger(logger, "engine"),
	}
}

// ProcessMovie runs one reconciliation pass over a movie. A nil error with a
// zero Outcome means the item needed nothing (or was skipped); a non-nil
// error means the remote update failed and the run should count a failure
// and continue.
func (e *Engine) ProcessMovie(ctx context.Context, policy Policy, res Resolution, client MovieClient, movie arr.Movie) (Outcome, error) {
	logger := e.itemLogger(policy, movie.ID, movie.Title)

	if policy.OnlyMonitored && !movie.Monitored {
		logger.Debug("skipping unmonitored movie")
		return Outcome{}, nil
	}

	isOriginal := e.classify(logger, policy, movie.OriginalLanguage)
	targetProfile := e.decideProfile(logger, policy, res, isOriginal, movie.QualityProfileID)

	tags := movie.Tags
	tagsChanged := false
	if res.MarkerTagID != 0 {
		tags, tagsChanged = tagging.Apply(tags, res.MarkerTagID, !isOriginal)
	}

	if e.wantAudioTags(policy) && movie.HasFile && movie.MovieFile != nil {
		detected := language.ParseAudioLanguages(
			movie.MovieFile.AudioMediaInfo(),
			arr.LanguageNames(movie.MovieFile.Languages),
		)
		var audioChanged bool
		tags, audioChanged = tagging.Reconcile(detected, e.rules, res.TagIDs, tags)
		tagsChanged = tagsChanged || audioChanged
	}

	if targetProfile == 0 && !tagsChanged {
		logger.Debug("movie already reconciled")
		return Outcome{}, nil
	}

	profileID := targetProfile
	if profileID == 0 {
		profileID = movie.QualityProfileID
	}
	profileName := res.ProfileName(policy, targetProfile)

	if policy.DryRun {
		logger.Info("DRY RUN: would update movie",
			logging.String("profile", profileName),
			logging.Bool("tags_changed", tagsChanged),
		)
		return Outcome{Planned: true, ProfileName: profileName}, nil
	}

	if _, err := client.UpdateMovie(ctx, movie.ID, profileID, tags); err != nil {
		logging.ErrorWithContext(logger, "movie update failed", "remote_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the instance URL and API key"),
		)
		return Outcome{}, err
	}

	outcome := Outcome{Updated: true, ProfileName: profileName}
	if targetProfile != 0 {
		outcome.Searched = e.maybeSearch(ctx, logger, policy, movie.ID, func(ctx context.Context) error {
			return client.TriggerSearch(ctx, movie.ID)
		})
	}

	logger.Info("movie updated",
		logging.String("profile", profileName),
		logging.Bool("tags_changed", tagsChanged),
		logging.Bool("search_triggered", outcome.Searched),
	)
	return outcome, nil
}

// ProcessSeries runs one reconciliation pass over a series. Audio detection
// intersects the spoken languages across every downloaded episode file.
func (e *Engine) ProcessSeries(ctx context.Context, policy Policy, res Resolution, client SeriesClient, series arr.Series) (Outcome, error) {
	logger := e.itemLogger(policy, series.ID, series.Title)

	if policy.OnlyMonitored && !series.Monitored {
		logger.Debug("skipping unmonitored series")
		return Outcome{}, nil
	}

	isOriginal := e.classify(logger, policy, series.OriginalLanguage)
	targetProfile := e.decideProfile(logger, policy, res, isOriginal, series.QualityProfileID)

	tags := series.Tags
	tagsChanged := false
	if res.MarkerTagID != 0 {
		tags, tagsChanged = tagging.Apply(tags, res.MarkerTagID, !isOriginal)
	}

	if e.wantAudioTags(policy) && series.HasFiles() {
		files, err := client.EpisodeFiles(ctx, series.ID)
		if err != nil {
			// Leave existing audio tags alone rather than reconciling
			// against data we could not fetch.
			logging.WarnWithContext(logger, "episode file fetch failed, skipping audio tags", "episode_files_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "audio tags unchanged this run"),
			)
		} else {
			sets := make([]map[string]struct{}, 0, len(files))
			for _, file := range files {
				sets = append(sets, language.ParseAudioLanguages(
					file.AudioMediaInfo(),
					arr.LanguageNames(file.Languages),
				))
			}
			detected := tagging.IntersectEpisodes(sets)
			var audioChanged bool
			tags, audioChanged = tagging.Reconcile(detected, e.rules, res.TagIDs, tags)
			tagsChanged = tagsChanged || audioChanged
		}
	}

	if targetProfile == 0 && !tagsChanged {
		logger.Debug("series already reconciled")
		return Outcome{}, nil
	}

	profileID := targetProfile
	if profileID == 0 {
		profileID = series.QualityProfileID
	}
	profileName := res.ProfileName(policy, targetProfile)

	if policy.DryRun {
		logger.Info("DRY RUN: would update series",
			logging.String("profile", profileName),
			logging.Bool("tags_changed", tagsChanged),
		)
		return Outcome{Planned: true, ProfileName: profileName}, nil
	}

	if _, err := client.UpdateSeries(ctx, series.ID, profileID, tags); err != nil {
		logging.ErrorWithContext(logger, "series update failed", "remote_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the instance URL and API key"),
		)
		return Outcome{}, err
	}

	outcome := Outcome{Updated: true, ProfileName: profileName}
	if targetProfile != 0 {
		outcome.Searched = e.maybeSearch(ctx, logger, policy, series.ID, func(ctx context.Context) error {
			return client.TriggerSearch(ctx, series.ID)
		})
	}

	logger.Info("series updated",
		logging.String("profile", profileName),
		logging.Bool("tags_changed", tagsChanged),
		logging.Bool("search_triggered", outcome.Searched),
	)
	return outcome, nil
}

// classify maps the item's original language onto the instance policy.
// Unknown or missing metadata classifies as original, never as dubbed.
func (e *Engine) classify(logger *slog.Logger, policy Policy, lang arr.OriginalLanguage) bool {
	if !lang.Known() {
		logging.WarnWithContext(logger, "original language missing, classifying as original", "missing_original_language",
			logging.String(logging.FieldImpact, "item keeps the original-language profile"),
		)
		return true
	}
	canonical := language.Normalize(lang.Value())
	_, ok := policy.OriginalLanguages[canonical]
	return ok
}

// decideProfile returns the profile id to assign, or zero when the current
// assignment already matches or the target name did not resolve.
func (e *Engine) decideProfile(logger *slog.Logger, policy Policy, res Resolution, isOriginal bool, current int) int {
	target := res.DubProfileID
	if isOriginal {
		target = res.OriginalProfileID
	}
	if target == 0 {
		// The orchestrator warned when the name failed to resolve.
		logger.Debug("target profile unresolved, leaving assignment unchanged")
		return 0
	}
	if target == current {
		return 0
	}
	return target
}

func (e *Engine) wantAudioTags(policy Policy) bool {
	return policy.AudioTagsEnabled && len(e.rules) > 0
}

// maybeSearch triggers a release search when the gate allows it. Item
// cooldowns skip silently; the instance interval is waited out because the
// caller just performed a mutation and the spacing is short.
func (e *Engine) maybeSearch(ctx context.Context, logger *slog.Logger, policy Policy, itemID int64, trigger func(context.Context) error) bool {
	if !policy.TriggerSearch || e.gate == nil {
		return false
	}
	key := policy.Key()

	decision := e.gate.CanSearch(key, itemID, policy.SearchCooldown, policy.MinSearchInterval)
	if !decision.Allowed {
		if decision.Reason == searchgate.ReasonItemCooldown {
			logger.Debug("search suppressed",
				logging.String("reason", decision.Reason),
				logging.Duration("wait", decision.Wait),
			)
			return false
		}
		if err := e.gate.WaitGlobal(ctx, key, policy.MinSearchInterval); err != nil {
			return false
		}
	}

	if err := trigger(ctx); err != nil {
		logging.WarnWithContext(logger, "search trigger failed", "search_trigger_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "profile updated but no search queued"),
		)
		return false
	}
	e.gate.RecordSearch(key, itemID)
	return true
}

func (e *Engine) itemLogger(policy Policy, itemID int64, title string) *slog.Logger {
	return e.logger.With(
		logging.String(logging.FieldService, policy.Service),
		logging.String(logging.FieldInstance, policy.Instance),
		logging.Int64(logging.FieldItemID, itemID),
		logging.String("title", title),
	)
}
