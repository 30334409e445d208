package arr

import (
	"context"
	"net/url"
	"strconv"
)

// Sonarr talks to one Sonarr server.
type Sonarr struct {
	*Client
}

// NewSonarr constructs a Sonarr client for the given server.
func NewSonarr(baseURL, apiKey string, opts ...Option) (*Sonarr, error) {
	c, err := newClient(ServiceSonarr, baseURL, apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &Sonarr{Client: c}, nil
}

// Series fetches the full series inventory.
func (s *Sonarr) Series(ctx context.Context) ([]Series, error) {
	var series []Series
	err := s.get(ctx, "/series", nil, &series)
	return series, err
}

// SeriesByID fetches a single series by its Sonarr ID.
func (s *Sonarr) SeriesByID(ctx context.Context, id int64) (Series, error) {
	var series Series
	err := s.get(ctx, "/series/"+strconv.FormatInt(id, 10), nil, &series)
	return series, err
}

// SeriesByTvdbID looks a series up by TVDB ID using the server-side filter.
// Returns nil without error when the server has no such series.
func (s *Sonarr) SeriesByTvdbID(ctx context.Context, tvdbID int64) (*Series, error) {
	query := url.Values{}
	query.Set("tvdbId", strconv.FormatInt(tvdbID, 10))
	var series []Series
	if err := s.get(ctx, "/series", query, &series); err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, nil
	}
	return &series[0], nil
}

// SeriesByTmdbID scans the full series list for a TMDB ID match. Sonarr has
// no server-side tmdbId filter, so this is the webhook fallback when the
// payload carries no TVDB ID.
func (s *Sonarr) SeriesByTmdbID(ctx context.Context, tmdbID int64) (*Series, error) {
	all, err := s.Series(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].TmdbID == tmdbID {
			return &all[i], nil
		}
	}
	return nil, nil
}

// EpisodeFiles lists the downloaded episode files for a series.
func (s *Sonarr) EpisodeFiles(ctx context.Context, seriesID int64) ([]EpisodeFile, error) {
	query := url.Values{}
	query.Set("seriesId", strconv.FormatInt(seriesID, 10))
	var files []EpisodeFile
	err := s.get(ctx, "/episodefile", query, &files)
	return files, err
}

// UpdateSeries re-fetches the complete series document, patches the quality
// profile and tag list, and PUTs the whole payload back so fields this
// package does not model survive the round-trip.
func (s *Sonarr) UpdateSeries(ctx context.Context, id int64, profileID int, tags []int) (Series, error) {
	path := "/series/" + strconv.FormatInt(id, 10)

	var doc map[string]any
	if err := s.get(ctx, path, nil, &doc); err != nil {
		return Series{}, err
	}
	if tags == nil {
		tags = []int{}
	}
	doc["qualityProfileId"] = profileID
	doc["tags"] = tags

	var updated Series
	if err := s.put(ctx, path, doc, &updated); err != nil {
		return Series{}, err
	}
	return updated, nil
}

// TriggerSearch queues an automatic release search for a whole series.
func (s *Sonarr) TriggerSearch(ctx context.Context, seriesID int64) error {
	cmd := searchCommand{Name: "SeriesSearch", SeriesID: seriesID}
	return s.post(ctx, "/command", cmd, nil)
}
