package arr

import (
	"context"
	"net/url"
	"strconv"
)

// Radarr talks to one Radarr server.
type Radarr struct {
	*Client
}

// NewRadarr constructs a Radarr client for the given server.
func NewRadarr(baseURL, apiKey string, opts ...Option) (*Radarr, error) {
	c, err := newClient(ServiceRadarr, baseURL, apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &Radarr{Client: c}, nil
}

// Movies fetches the full movie inventory.
func (r *Radarr) Movies(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	err := r.get(ctx, "/movie", nil, &movies)
	return movies, err
}

// Movie fetches a single movie by its Radarr ID.
func (r *Radarr) Movie(ctx context.Context, id int64) (Movie, error) {
	var movie Movie
	err := r.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &movie)
	return movie, err
}

// MovieByTmdbID looks a movie up by TMDB ID using the server-side filter.
// Returns nil without error when the server has no such movie.
func (r *Radarr) MovieByTmdbID(ctx context.Context, tmdbID int64) (*Movie, error) {
	query := url.Values{}
	query.Set("tmdbId", strconv.FormatInt(tmdbID, 10))
	var movies []Movie
	if err := r.get(ctx, "/movie", query, &movies); err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, nil
	}
	return &movies[0], nil
}

// UpdateMovie re-fetches the complete movie document, patches the quality
// profile and tag list, and PUTs the whole payload back so fields this
// package does not model survive the round-trip.
func (r *Radarr) UpdateMovie(ctx context.Context, id int64, profileID int, tags []int) (Movie, error) {
	path := "/movie/" + strconv.FormatInt(id, 10)

	var doc map[string]any
	if err := r.get(ctx, path, nil, &doc); err != nil {
		return Movie{}, err
	}
	if tags == nil {
		tags = []int{}
	}
	doc["qualityProfileId"] = profileID
	doc["tags"] = tags

	var updated Movie
	if err := r.put(ctx, path, doc, &updated); err != nil {
		return Movie{}, err
	}
	return updated, nil
}

// TriggerSearch queues an automatic release search for the given movies.
func (r *Radarr) TriggerSearch(ctx context.Context, movieIDs ...int64) error {
	if len(movieIDs) == 0 {
		return nil
	}
	cmd := searchCommand{Name: "MoviesSearch", MovieIDs: movieIDs}
	return r.post(ctx, "/command", cmd, nil)
}
