package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"langarr/internal/logging"
	"langarr/internal/overseerr"
	"langarr/internal/worker"
)

// handleWebhook accepts Overseerr notification posts. Approval events are
// turned into single-item reconciliation tasks; everything else is
// acknowledged and dropped so Overseerr never sees webhook errors for
// notification types it was configured to send anyway.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Server.WebhookEnabled {
		s.writeError(w, http.StatusNotFound, "webhook disabled")
		return
	}
	if !s.webhookAuthorized(r) {
		s.writeError(w, http.StatusUnauthorized, "invalid auth token")
		return
	}

	var payload overseerr.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	switch payload.NotificationType {
	case overseerr.NotificationMediaPending, overseerr.NotificationMediaAutoApproved:
	default:
		s.logger.Debug("webhook ignored",
			logging.String("notification_type", payload.NotificationType),
		)
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if payload.Media == nil {
		s.writeError(w, http.StatusBadRequest, "webhook payload has no media")
		return
	}
	mediaType := strings.ToLower(strings.TrimSpace(payload.Media.MediaType))
	tmdbID := int64(payload.Media.TmdbID)
	tvdbID := int64(payload.Media.TvdbID)

	logger := s.logger.With(
		logging.String("media_type", mediaType),
		logging.Int64("tmdb_id", tmdbID),
		logging.Int64("tvdb_id", tvdbID),
	)

	task := worker.Task{
		Name: "webhook-item",
		Key:  mediaType,
		Run: func(ctx context.Context) error {
			return s.sync.ProcessWebhookItem(ctx, mediaType, tmdbID, tvdbID)
		},
	}
	if err := s.pool.Submit(task); err != nil {
		logging.WarnWithContext(logger, "webhook item dropped", "queue_full",
			logging.Error(err),
			logging.String(logging.FieldImpact, "item reconciles on the next scheduled sync instead"),
		)
		s.writeError(w, http.StatusServiceUnavailable, "queue full, retry later")
		return
	}

	logger.Info("webhook accepted",
		logging.String("notification_type", payload.NotificationType),
	)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) webhookAuthorized(r *http.Request) bool {
	token := strings.TrimSpace(s.cfg.Server.WebhookAuthToken)
	if token == "" {
		return true
	}
	provided := strings.TrimSpace(r.Header.Get("X-Auth-Token"))
	return subtle.ConstantTimeCompare([]byte(token), []byte(provided)) == 1
}
