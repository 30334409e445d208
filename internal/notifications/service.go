package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"langarr/internal/config"
)

const userAgent = "Langarr/0.1"

// Event identifies a notification-worthy moment in a sync.
type Event string

// Events published by the sync and webhook paths.
const (
	EventSyncCompleted    Event = "sync_completed"
	EventSyncFailed       Event = "sync_failed"
	EventWebhookProcessed Event = "webhook_processed"
	EventTest             Event = "test"
)

// Payload carries the string fields an event message is rendered from.
type Payload map[string]string

// Service is the notification surface exposed to the syncer and webhook
// handler. Implementations must never block the sync path on failures.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service when notifications are
// configured, and a noop otherwise.
func NewService(cfg *config.Config) Service {
	if cfg == nil || !cfg.Notifications.Configured() {
		return noopService{}
	}
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Notifications.URL), "/") +
		"/" + strings.TrimSpace(cfg.Notifications.Topic)
	return &ntfyService{
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.Notifications.Token),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	token    string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

// render maps an event and its payload onto an ntfy message. Unknown
// events render nothing and are dropped.
func render(event Event, payload Payload) (message, bool) {
	get := func(key string) string {
		return strings.TrimSpace(payload[key])
	}

	switch event {
	case EventSyncCompleted:
		key := get("key")
		summary := get("summary")
		duration := get("duration")
		body := fmt.Sprintf("✅ %s: %s", key, summary)
		if duration != "" {
			body += " in " + duration
		}
		title := "Langarr - Sync Complete"
		priority := ""
		if get("failed") != "" && get("failed") != "0" {
			title = "Langarr - Sync Complete (with errors)"
			priority = "high"
		}
		if get("dry_run") == "true" {
			title = "Langarr - Dry Run Complete"
			body = fmt.Sprintf("%s: %s", key, summary)
		}
		return message{
			title:    title,
			body:     body,
			tags:     []string{"langarr", "sync", "completed"},
			priority: priority,
		}, true

	case EventSyncFailed:
		body := fmt.Sprintf("❌ %s sync failed: %s", get("key"), get("error"))
		return message{
			title:    "Langarr - Sync Failed",
			body:     body,
			tags:     []string{"langarr", "sync", "failed"},
			priority: "high",
		}, true

	case EventWebhookProcessed:
		outcome := "no change needed"
		if get("updated") == "true" {
			outcome = "profile updated"
		}
		body := fmt.Sprintf("🎬 Request processed: %s (%s), %s", get("title"), get("media_type"), outcome)
		return message{
			title: "Langarr - Request Processed",
			body:  body,
			tags:  []string{"langarr", "webhook", "processed"},
		}, true

	case EventTest:
		return message{
			title:    "Langarr - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"langarr", "test"},
			priority: "low",
		}, true
	}

	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
