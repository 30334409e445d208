package overseerr_test

import (
	"testing"

	json "github.com/goccy/go-json"

	"langarr/internal/overseerr"
)

func TestRequestTypeShapes(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected string
	}{
		{"numeric movie", `{"type": 1}`, overseerr.MediaTypeMovie},
		{"numeric tv", `{"type": 2}`, overseerr.MediaTypeTV},
		{"string movie", `{"type": "movie"}`, overseerr.MediaTypeMovie},
		{"string tv", `{"type": "tv"}`, overseerr.MediaTypeTV},
		{"null", `{"type": null}`, overseerr.MediaTypeTV},
		{"absent", `{}`, overseerr.MediaTypeTV},
		{"garbage", `{"type": "music"}`, overseerr.MediaTypeTV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var request overseerr.Request
			if err := json.Unmarshal([]byte(tt.payload), &request); err != nil {
				t.Fatalf("Unmarshal(%s) returned error: %v", tt.payload, err)
			}
			if got := request.MediaType(); got != tt.expected {
				t.Errorf("MediaType() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWebhookPayloadToleratesStringIDs(t *testing.T) {
	payload := `{
		"notification_type": "MEDIA_PENDING",
		"media": {"media_type": "movie", "tmdbId": "603", "tvdbId": "", "status": "PENDING"},
		"request": {"request_id": 41}
	}`

	var hook overseerr.WebhookPayload
	if err := json.Unmarshal([]byte(payload), &hook); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if hook.NotificationType != overseerr.NotificationMediaPending {
		t.Errorf("NotificationType = %q", hook.NotificationType)
	}
	if hook.Media == nil || hook.Media.TmdbID != 603 {
		t.Errorf("Media = %+v, want tmdb id 603", hook.Media)
	}
	if hook.Media.TvdbID != 0 {
		t.Errorf("TvdbID = %d, want 0 for empty string", hook.Media.TvdbID)
	}
	if hook.Request == nil || hook.Request.RequestID != 41 {
		t.Errorf("Request = %+v, want request id 41", hook.Request)
	}
}

func TestExternalIDUnparseableIsZero(t *testing.T) {
	var media overseerr.WebhookMedia
	if err := json.Unmarshal([]byte(`{"tmdbId": "not-a-number", "tvdbId": null}`), &media); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if media.TmdbID != 0 || media.TvdbID != 0 {
		t.Errorf("ids = %d/%d, want 0/0", media.TmdbID, media.TvdbID)
	}
}

func TestSeasonNumbersEmpty(t *testing.T) {
	if got := overseerr.SeasonNumbers(nil); got != nil {
		t.Errorf("SeasonNumbers(nil) = %v, want nil", got)
	}
}

func TestMediaDetailsDisplayTitle(t *testing.T) {
	movie := overseerr.MediaDetails{Title: "The Matrix"}
	if got := movie.DisplayTitle(); got != "The Matrix" {
		t.Errorf("DisplayTitle() = %q", got)
	}
	tv := overseerr.MediaDetails{Name: "Dark"}
	if got := tv.DisplayTitle(); got != "Dark" {
		t.Errorf("DisplayTitle() = %q", got)
	}
}
