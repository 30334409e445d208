package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"langarr/internal/config"
	"langarr/internal/notifications"
)

func TestNewServiceReturnsNoopWhenUnconfigured(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventSyncCompleted, notifications.Payload{"key": "radarr:main"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsEvents(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "sync completed",
			event: notifications.EventSyncCompleted,
			payload: notifications.Payload{
				"key":      "radarr:main",
				"summary":  "3 updated, 2 searched of 120 items",
				"duration": "42s",
			},
			expectTitle:   "Langarr - Sync Complete",
			expectMessage: "✅ radarr:main: 3 updated, 2 searched of 120 items in 42s",
			expectTags:    "langarr,sync,completed",
		},
		{
			name:  "sync completed with failures",
			event: notifications.EventSyncCompleted,
			payload: notifications.Payload{
				"key":     "sonarr:anime",
				"summary": "1 updated, 2 failed of 50 items",
				"failed":  "2",
			},
			expectTitle:    "Langarr - Sync Complete (with errors)",
			expectMessage:  "✅ sonarr:anime: 1 updated, 2 failed of 50 items",
			expectTags:     "langarr,sync,completed",
			expectPriority: "high",
		},
		{
			name:  "dry run",
			event: notifications.EventSyncCompleted,
			payload: notifications.Payload{
				"key":     "radarr:main",
				"summary": "4 planned of 120 items",
				"dry_run": "true",
			},
			expectTitle:   "Langarr - Dry Run Complete",
			expectMessage: "radarr:main: 4 planned of 120 items",
			expectTags:    "langarr,sync,completed",
		},
		{
			name:  "sync failed",
			event: notifications.EventSyncFailed,
			payload: notifications.Payload{
				"key":   "radarr:main",
				"error": "connection refused",
			},
			expectTitle:    "Langarr - Sync Failed",
			expectMessage:  "❌ radarr:main sync failed: connection refused",
			expectTags:     "langarr,sync,failed",
			expectPriority: "high",
		},
		{
			name:  "webhook processed",
			event: notifications.EventWebhookProcessed,
			payload: notifications.Payload{
				"title":      "Parasite",
				"media_type": "movie",
				"updated":    "true",
			},
			expectTitle:   "Langarr - Request Processed",
			expectMessage: "🎬 Request processed: Parasite (movie), profile updated",
			expectTags:    "langarr,webhook,processed",
		},
		{
			name:           "test notification",
			event:          notifications.EventTest,
			payload:        nil,
			expectTitle:    "Langarr - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "langarr,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				path     string
				auth     string
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.path = r.URL.Path
				captured.auth = r.Header.Get("Authorization")
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.URL = server.URL
			cfg.Notifications.Topic = "langarr"
			cfg.Notifications.Token = "tk_secret"

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("publish returned error: %v", err)
			}

			if captured.path != "/langarr" {
				t.Fatalf("expected topic path /langarr, got %q", captured.path)
			}
			if captured.auth != "Bearer tk_secret" {
				t.Fatalf("expected bearer token, got %q", captured.auth)
			}
			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceDropsUnknownEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for unknown event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.URL = server.URL
	cfg.Notifications.Topic = "langarr"

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.Event("someday"), nil); err != nil {
		t.Fatalf("expected unknown event to be dropped, got %v", err)
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.URL = server.URL
	cfg.Notifications.Topic = "langarr"

	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status in error, got %v", err)
	}
}
