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

func TestSeriesByTvdbID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/series" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("tvdbId"); got != "361753" {
			t.Fatalf("expected tvdbId query, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":7,"title":"Dark","tvdbId":361753,"originalLanguage":{"id":4,"name":"German"}}]`))
	}))
	t.Cleanup(server.Close)

	client, err := arr.NewSonarr(server.URL, "key")
	if err != nil {
		t.Fatalf("NewSonarr returned error: %v", err)
	}

	series, err := client.SeriesByTvdbID(context.Background(), 361753)
	if err != nil {
		t.Fatalf("SeriesByTvdbID returned error: %v", err)
	}
	if series == nil || series.Title != "Dark" {
		t.Fatalf("unexpected series: %+v", series)
	}
}

func TestSeriesByTmdbIDScansInventory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Fatalf("tmdb lookup must fetch the full list, got query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":7,"title":"Dark","tvdbId":361753,"tmdbId":70523},
			{"id":8,"title":"Pagan Peak","tvdbId":356069,"tmdbId":84496}
		]`))
	}))
	t.Cleanup(server.Close)

	client, err := arr.NewSonarr(server.URL, "key")
	if err != nil {
		t.Fatalf("NewSonarr returned error: %v", err)
	}

	series, err := client.SeriesByTmdbID(context.Background(), 84496)
	if err != nil {
		t.Fatalf("SeriesByTmdbID returned error: %v", err)
	}
	if series == nil || series.ID != 8 {
		t.Fatalf("unexpected series: %+v", series)
	}

	missing, err := client.SeriesByTmdbID(context.Background(), 1)
	if err != nil {
		t.Fatalf("SeriesByTmdbID returned error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}
}

func TestEpisodeFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/episodefile" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("seriesId"); got != "7" {
			t.Fatalf("expected seriesId query, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":100,"seriesId":7,"mediaInfo":{"audioLanguages":"German"},"languages":[{"id":4,"name":"German"}]},
			{"id":101,"seriesId":7,"languages":[{"id":4,"name":"German"}]}
		]`))
	}))
	t.Cleanup(server.Close)

	client, err := arr.NewSonarr(server.URL, "key")
	if err != nil {
		t.Fatalf("NewSonarr returned error: %v", err)
	}

	files, err := client.EpisodeFiles(context.Background(), 7)
	if err != nil {
		t.Fatalf("EpisodeFiles returned error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected two files, got %d", len(files))
	}
	if files[0].AudioMediaInfo() != "German" {
		t.Fatalf("unexpected media info: %q", files[0].AudioMediaInfo())
	}
	if files[1].AudioMediaInfo() != "" {
		t.Fatalf("file without media info should yield empty string, got %q", files[1].AudioMediaInfo())
	}
}

func TestUpdateSeriesRoundTripsDocument(t *testing.T) {
	var putBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/series/7" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{
				"id": 7,
				"title": "Dark",
				"seasonFolder": true,
				"seasons": [{"seasonNumber": 1, "monitored": true}],
				"qualityProfileId": 6,
				"tags": []
			}`))
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(data, &putBody); err != nil {
				t.Fatalf("decode put body: %v", err)
			}
			_, _ = w.Write([]byte(`{"id":7,"title":"Dark","qualityProfileId":9,"tags":[4]}`))
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))
	t.Cleanup(server.Close)

	client, err := arr.NewSonarr(server.URL, "key")
	if err != nil {
		t.Fatalf("NewSonarr returned error: %v", err)
	}

	updated, err := client.UpdateSeries(context.Background(), 7, 9, []int{4})
	if err != nil {
		t.Fatalf("UpdateSeries returned error: %v", err)
	}
	if updated.QualityProfileID != 9 {
		t.Fatalf("unexpected updated series: %+v", updated)
	}

	if _, ok := putBody["seasons"]; !ok {
		t.Fatalf("seasons lost in PUT body: %v", putBody)
	}
	if putBody["seasonFolder"] != true {
		t.Fatalf("seasonFolder lost in PUT body: %v", putBody)
	}
	if putBody["qualityProfileId"] != float64(9) {
		t.Fatalf("profile id not patched: %v", putBody["qualityProfileId"])
	}
}

func TestTriggerSeriesSearch(t *testing.T) {
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
		_, _ = w.Write([]byte(`{"id":2,"name":"SeriesSearch"}`))
	}))
	t.Cleanup(server.Close)

	client, err := arr.NewSonarr(server.URL, "key")
	if err != nil {
		t.Fatalf("NewSonarr returned error: %v", err)
	}
	if err := client.TriggerSearch(context.Background(), 7); err != nil {
		t.Fatalf("TriggerSearch returned error: %v", err)
	}

	if body["name"] != "SeriesSearch" {
		t.Fatalf("unexpected command name: %v", body["name"])
	}
	if body["seriesId"] != float64(7) {
		t.Fatalf("unexpected seriesId: %v", body["seriesId"])
	}
	if _, present := body["movieIds"]; present {
		t.Fatalf("series search must not carry movieIds: %v", body)
	}
}
