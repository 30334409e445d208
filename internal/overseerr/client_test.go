package overseerr_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"langarr/internal/overseerr"
	"langarr/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *overseerr.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := overseerr.New(server.URL, "test-key")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresBaseURLAndKey(t *testing.T) {
	if _, err := overseerr.New("", "key"); !errors.Is(err, services.ErrConfiguration) {
		t.Errorf("New with empty base url = %v, want ErrConfiguration", err)
	}
	if _, err := overseerr.New("http://overseerr:5055", "  "); !errors.Is(err, services.ErrConfiguration) {
		t.Errorf("New with blank api key = %v, want ErrConfiguration", err)
	}
}

func TestStatusSendsAPIKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/status" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Fatalf("X-Api-Key = %q, want %q", got, "test-key")
		}
		io.WriteString(w, `{"version":"1.33.2"}`)
	})

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.Version != "1.33.2" {
		t.Errorf("Version = %q, want %q", status.Version, "1.33.2")
	}
}

func TestPendingRequestsDecodesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/request" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("filter") != "pending" || q.Get("take") != "100" {
			t.Fatalf("unexpected query %q", r.URL.RawQuery)
		}
		io.WriteString(w, `{
			"pageInfo": {"pages": 1, "results": 2},
			"results": [
				{
					"id": 41,
					"type": 1,
					"profileId": 6,
					"serverId": 2,
					"media": {"id": 300, "tmdbId": 603, "status": 3, "title": "The Matrix"}
				},
				{
					"id": 42,
					"type": "tv",
					"media": {"id": 301, "tmdbId": 1396, "tvdbId": 81189},
					"seasons": [
						{"id": 9, "seasonNumber": 1, "status": 1},
						{"id": 10, "seasonNumber": 2, "status": 1}
					]
				}
			]
		}`)
	})

	requests, err := client.PendingRequests(context.Background())
	if err != nil {
		t.Fatalf("PendingRequests returned error: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(requests))
	}

	movie := requests[0]
	if movie.ID != 41 || movie.MediaType() != overseerr.MediaTypeMovie {
		t.Errorf("request 41 decoded as %+v, want movie request", movie)
	}
	if movie.ProfileID != 6 || movie.ServerID != 2 {
		t.Errorf("request 41 profile/server = %d/%d, want 6/2", movie.ProfileID, movie.ServerID)
	}
	if movie.Media.TmdbID != 603 || movie.Media.Title != "The Matrix" {
		t.Errorf("request 41 media = %+v", movie.Media)
	}

	tv := requests[1]
	if tv.MediaType() != overseerr.MediaTypeTV {
		t.Errorf("request 42 media type = %q, want tv", tv.MediaType())
	}
	if tv.ServerID != 0 {
		t.Errorf("request 42 server id = %d, want 0 for absent field", tv.ServerID)
	}
	if got := overseerr.SeasonNumbers(tv.Seasons); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("SeasonNumbers = %v, want [1 2]", got)
	}
}

func TestMediaLookupsHitTypedEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/movie/603":
			io.WriteString(w, `{"id": 603, "title": "The Matrix", "originalLanguage": "en"}`)
		case "/api/v1/tv/70523":
			io.WriteString(w, `{"id": 70523, "name": "Dark", "originalLanguage": "de"}`)
		default:
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
	})

	movie, err := client.Movie(context.Background(), 603)
	if err != nil {
		t.Fatalf("Movie returned error: %v", err)
	}
	if movie.OriginalLanguage != "en" || movie.DisplayTitle() != "The Matrix" {
		t.Errorf("movie = %+v", movie)
	}

	tv, err := client.TV(context.Background(), 70523)
	if err != nil {
		t.Fatalf("TV returned error: %v", err)
	}
	if tv.OriginalLanguage != "de" || tv.DisplayTitle() != "Dark" {
		t.Errorf("tv = %+v", tv)
	}
}

func TestServerProfiles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/service/radarr/2" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, `{
			"server": {"id": 2, "name": "main"},
			"profiles": [
				{"id": 6, "name": "HD-1080p"},
				{"id": 9, "name": "German (dub)"}
			]
		}`)
	})

	profiles, err := client.ServerProfiles(context.Background(), "radarr", 2)
	if err != nil {
		t.Fatalf("ServerProfiles returned error: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
	if profiles[1].ID != 9 || profiles[1].Name != "German (dub)" {
		t.Errorf("profiles[1] = %+v", profiles[1])
	}
}

func TestServerProfilesRejectsUnknownService(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.ServerProfiles(context.Background(), "lidarr", 1)
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("ServerProfiles(lidarr) = %v, want ErrValidation", err)
	}
}

func TestUpdateRequestMovieBodyOmitsSeasons(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/request/41" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		var body map[string]any
		if err := json.Unmarshal(data, &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["mediaType"] != "movie" || body["profileId"] != float64(9) {
			t.Errorf("body = %v", body)
		}
		if _, ok := body["seasons"]; ok {
			t.Error("movie update must not carry a seasons field")
		}
		io.WriteString(w, `{"id": 41}`)
	})

	if err := client.UpdateRequest(context.Background(), 41, overseerr.MediaTypeMovie, 9, nil); err != nil {
		t.Fatalf("UpdateRequest returned error: %v", err)
	}
}

func TestUpdateRequestTVCarriesSeasons(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		text := string(data)
		if !strings.Contains(text, `"seasons":[1,2]`) {
			t.Errorf("body %q missing season list", text)
		}
		if !strings.Contains(text, `"mediaType":"tv"`) {
			t.Errorf("body %q missing media type", text)
		}
		io.WriteString(w, `{"id": 42}`)
	})

	if err := client.UpdateRequest(context.Background(), 42, overseerr.MediaTypeTV, 4, []int{1, 2}); err != nil {
		t.Fatalf("UpdateRequest returned error: %v", err)
	}
}

func TestUpdateRequestRejectsUnknownMediaType(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	err := client.UpdateRequest(context.Background(), 41, "music", 9, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("UpdateRequest(music) = %v, want ErrValidation", err)
	}
}

func TestErrorsCarryBodyExcerptAndMarker(t *testing.T) {
	tests := []struct {
		status int
		marker error
	}{
		{http.StatusUnauthorized, services.ErrConfiguration},
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusBadGateway, services.ErrTransient},
	}

	for _, tt := range tests {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			io.WriteString(w, `{"message":"broker detail"}`)
		})

		_, err := client.Status(context.Background())
		if !errors.Is(err, tt.marker) {
			t.Errorf("status %d: error %v does not match %v", tt.status, err, tt.marker)
		}
		if err == nil || !strings.Contains(err.Error(), "broker detail") {
			t.Errorf("status %d: error %v missing response body detail", tt.status, err)
		}
	}
}
