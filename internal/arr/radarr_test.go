package arr_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"langarr/internal/arr"
)

func TestMoviesDecodeTypedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/movie" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"id": 12,
				"title": "Dark Waters",
				"monitored": true,
				"originalLanguage": {"id": 2, "name": "German"},
				"qualityProfileId": 6,
				"tags": [3, 5],
				"hasFile": true,
				"movieFile": {"id": 90, "mediaInfo": {"audioLanguages": "German / English"}, "languages": [{"id": 2, "name": "German"}]},
				"tmdbId": 522241,
				"images": [{"coverType": "poster", "remoteUrl": "https://img/poster.jpg"}]
			}
		]`))
	}))
	t.Cleanup(server.Close)

	client, err := arr.NewRadarr(server.URL, "key")
	if err != nil {
		t.Fatalf("NewRadarr returned error: %v", err)
	}

	movies, err := client.Movies(context.Background())
	if err != nil {
		t.Fatalf("Movies returned error: %v", err)
	}
	if len(movies) != 1 {
		t.Fatalf("expected one movie, got %d", len(movies))
	}
	m := movies[0]
	if m.OriginalLanguage.Name != "German" || m.OriginalLanguage.Code != "" {
		t.Fatalf("unexpected original language: %+v", m.OriginalLanguage)
	}
	if m.MovieFile == nil || m.MovieFile.MediaInfo.AudioLanguages != "German / English" {
		t.Fatalf("unexpected movie file: %+v", m.MovieFile)
	}
	if got := arr.PosterURL(m.Images); got != "https://img/poster.jpg" {
		t.Fatalf("PosterURL = %q", got)
	}
}

func TestMovieByTmdbID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tmdbId"); got != "522241" {
			t.Fatalf("expected tmdbId query, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":12,"title":"Dark Waters","tmdbId":522241}]`))
	}))
	t.Cleanup(server.Close)

	client, err := arr.NewRadarr(server.URL, "key")
	if err != nil {
		t.Fatalf("NewRadarr returned error: %v", err)
	}

	movie, err := client.MovieByTmdbID(context.Background(), 522241)
	if err != nil {
		t.Fatalf("MovieByTmdbID returned error: %v", err)
	}
	if movie == nil || movie.ID != 12 {
		t.Fatalf("unexpected movie: %+v", movie)
	}
}

func TestMovieByTmdbIDMissingIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	client, err := arr.NewRadarr(server.URL, "key")
	if err != nil {
		t.Fatalf("NewRadarr returned error: %v", err)
	}

	movie, err := client.MovieByTmdbID(context.Background(), 1)
	if err != nil {
		t.Fatalf("MovieByTmdbID returned error: %v", err)
	}
	if movie != nil {
		t.Fatalf("expected nil for unknown id, got %+v", movie)
	}
}

func TestUpdateMoviePreservesUnmodeledFields(t *testing.T) {
	var putBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/movie/12" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{
				"id": 12,
				"title": "Dark Waters",
				"path": "/movies/Dark Waters (2019)",
				"rootFolderPath": "/movies",
				"qualityProfileId": 6,
				"tags": [3]
			}`))
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(data, &putBody); err != nil {
				t.Fatalf("decode put body: %v", err)
			}
			_, _ = w.Write([]byte(`{"id":12,"title":"Dark Waters","qualityProfileId":9,"tags":[3,4]}`))
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))
	t.Cleanup(server.Close)

	client, err := arr.NewRadarr(server.URL, "key")
	if err != nil {
		t.Fatalf("NewRadarr returned error: %v", err)
	}

	updated, err := client.UpdateMovie(context.Background(), 12, 9, []int{3, 4})
	if err != nil {
		t.Fatalf("UpdateMovie returned error: %v", err)
	}
	if updated.QualityProfileID != 9 {
		t.Fatalf("unexpected updated movie: %+v", updated)
	}

	if putBody["path"] != "/movies/Dark Waters (2019)" {
		t.Fatalf("unmodeled field lost in PUT body: %v", putBody)
	}
	if putBody["qualityProfileId"] != float64(9) {
		t.Fatalf("profile id not patched: %v", putBody["qualityProfileId"])
	}
	tags, ok := putBody["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Fatalf("tags not patched: %v", putBody["tags"])
	}
}

func TestUpdateMovieNilTagsSendsEmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"id":12,"qualityProfileId":6,"tags":[3]}`))
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			var body map[string]any
			_ = json.Unmarshal(data, &body)
			tags, ok := body["tags"].([]any)
			if !ok || len(tags) != 0 {
				t.Fatalf("expected empty tags array, got %v", body["tags"])
			}
			_, _ = w.Write([]byte(`{"id":12,"qualityProfileId":9,"tags":[]}`))
		}
	}))
	t.Cleanup(server.Close)

	client, err := arr.NewRadarr(server.URL, "key")
	if err != nil {
		t.Fatalf("NewRadarr returned error: %v", err)
	}
	if _, err := client.UpdateMovie(context.Background(), 12, 9, nil); err != nil {
		t.Fatalf("UpdateMovie returned error: %v", err)
	}
}

func TestTriggerMovieSearch(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v3/command" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Fatalf("decode command body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1,"name":"MoviesSearch"}`))
	}))
	t.Cleanup(server.Close)

	client, err := arr.NewRadarr(server.URL, "key")
	if err != nil {
		t.Fatalf("NewRadarr returned error: %v", err)
	}
	if err := client.TriggerSearch(context.Background(), 12); err != nil {
		t.Fatalf("TriggerSearch returned error: %v", err)
	}

	if body["name"] != "MoviesSearch" {
		t.Fatalf("unexpected command name: %v", body["name"])
	}
	ids, ok := body["movieIds"].([]any)
	if !ok || len(ids) != 1 || ids[0] != float64(12) {
		t.Fatalf("unexpected movieIds: %v", body["movieIds"])
	}
	if _, present := body["seriesId"]; present {
		t.Fatalf("movie search must not carry seriesId: %v", body)
	}
}

func TestTriggerMovieSearchNoIDsIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	t.Cleanup(server.Close)

	client, err := arr.NewRadarr(server.URL, "key")
	if err != nil {
		t.Fatalf("NewRadarr returned error: %v", err)
	}
	if err := client.TriggerSearch(context.Background()); err != nil {
		t.Fatalf("TriggerSearch returned error: %v", err)
	}
}
