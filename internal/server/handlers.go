package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"langarr/internal/arr"
	"langarr/internal/logging"
	"langarr/internal/services"
	"langarr/internal/store"
	"langarr/internal/syncer"
	"langarr/internal/worker"
)

// StatusResponse is the GET /api/v1/status payload.
type StatusResponse struct {
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	DryRun    bool             `json:"dry_run"`
	Instances []InstanceStatus `json:"instances"`
}

// InstanceStatus summarizes one configured instance or broker for the
// status surface.
type InstanceStatus struct {
	Service         string     `json:"service"`
	Instance        string     `json:"instance"`
	Enabled         bool       `json:"enabled"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	LastItemTitle   string     `json:"last_item_title,omitempty"`
	LastItemProfile string     `json:"last_item_profile,omitempty"`
}

// RunsResponse is the GET /api/v1/runs payload.
type RunsResponse struct {
	Runs []*store.Run `json:"runs"`
}

// LogsResponse is the GET /api/v1/logs payload.
type LogsResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "langarr",
		"version": s.version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	states := make(map[string]store.InstanceState)
	if s.store != nil {
		list, err := s.store.InstanceStates(r.Context())
		if err != nil {
			s.logger.Warn("instance state read failed", logging.Error(err))
		}
		for _, state := range list {
			states[state.Key] = state
		}
	}

	var instances []InstanceStatus
	for _, service := range []string{arr.ServiceRadarr, arr.ServiceSonarr} {
		for _, inst := range s.cfg.Instances(service) {
			instances = append(instances, instanceStatus(service, inst.Name, inst.IsEnabled(), states))
		}
	}
	for _, broker := range s.cfg.Overseerr {
		instances = append(instances, instanceStatus(syncer.ServiceOverseerr, broker.Name, broker.IsEnabled(), states))
	}

	s.writeJSON(w, http.StatusOK, StatusResponse{
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		DryRun:    s.cfg.General.DryRun,
		Instances: instances,
	})
}

func instanceStatus(service, name string, enabled bool, states map[string]store.InstanceState) InstanceStatus {
	status := InstanceStatus{
		Service:  service,
		Instance: name,
		Enabled:  enabled,
	}
	if state, ok := states[services.InstanceKey(service, name)]; ok {
		status.LastSyncAt = state.LastSyncAt
		status.LastItemTitle = state.LastItemTitle
		status.LastItemProfile = state.LastItemProfile
	}
	return status
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusOK, RunsResponse{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil && s.store == nil {
		s.writeJSON(w, http.StatusOK, LogsResponse{})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := boolParam(query.Get("follow"))
	tail := boolParam(query.Get("tail"))

	// Requests older than the hub's ring buffer are served from the
	// sqlite archive instead.
	if s.store != nil && since > 0 && (s.hub == nil || since < s.hub.FirstSequence()) {
		events, err := s.store.LogEventsSince(r.Context(), since, limit)
		if err != nil {
			s.logger.Warn("log archive read failed", logging.Error(err))
		} else if len(events) > 0 {
			s.writeJSON(w, http.StatusOK, LogsResponse{
				Events: events,
				Next:   events[len(events)-1].Sequence,
			})
			return
		}
	}

	if s.hub == nil {
		s.writeJSON(w, http.StatusOK, LogsResponse{})
		return
	}

	if tail && since == 0 && !follow {
		events, next := s.hub.Tail(limit)
		s.writeJSON(w, http.StatusOK, LogsResponse{Events: events, Next: next})
		return
	}

	events, next, err := s.hub.Fetch(r.Context(), since, limit, follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, LogsResponse{Events: events, Next: next})
}

// handleSync accepts a manual sync trigger and submits it to the worker
// pool. The response only acknowledges acceptance; completion shows up in
// the log stream and run history.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	service := strings.ToLower(strings.TrimSpace(query.Get("service")))
	instance := strings.TrimSpace(query.Get("instance"))
	opts := syncer.Options{DryRun: boolParam(query.Get("dry_run"))}

	switch service {
	case "", arr.ServiceRadarr, arr.ServiceSonarr, syncer.ServiceOverseerr:
	default:
		s.writeError(w, http.StatusBadRequest, "unknown service "+service)
		return
	}
	if service == "" && instance != "" {
		s.writeError(w, http.StatusBadRequest, "instance requires a service")
		return
	}
	if service != "" && instance == "" {
		s.writeError(w, http.StatusBadRequest, "service requires an instance")
		return
	}

	task := worker.Task{Name: "api-sync", Key: "all"}
	if service == "" {
		task.Run = func(ctx context.Context) error {
			return s.sync.SyncAll(ctx, opts)
		}
	} else {
		if !s.knownInstance(service, instance) {
			s.writeError(w, http.StatusNotFound, "unknown instance "+services.InstanceKey(service, instance))
			return
		}
		task.Key = services.InstanceKey(service, instance)
		task.Run = func(ctx context.Context) error {
			return s.sync.SyncOne(ctx, service, instance, opts)
		}
	}

	if err := s.pool.Submit(task); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "sync queue full, retry later")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"key":    task.Key,
	})
}

func (s *Server) knownInstance(service, name string) bool {
	if service == syncer.ServiceOverseerr {
		for _, broker := range s.cfg.Overseerr {
			if broker.Name == name {
				return true
			}
		}
		return false
	}
	_, ok := s.cfg.FindInstance(service, name)
	return ok
}

func boolParam(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}
