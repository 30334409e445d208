package store

import "time"

// Counters aggregates per-item outcomes for one reconciliation run.
type Counters struct {
	Total    int `json:"total"`
	Updated  int `json:"updated"`
	Planned  int `json:"planned"`
	Skipped  int `json:"skipped"`
	Searched int `json:"searched"`
	Failed   int `json:"failed"`
}

// Run records one reconciliation pass over a single instance.
type Run struct {
	ID           string     `json:"id"`
	Service      string     `json:"service"`
	Instance     string     `json:"instance"`
	DryRun       bool       `json:"dry_run"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Counters     Counters   `json:"counters"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Finished reports whether the run has been closed out.
func (r *Run) Finished() bool {
	return r != nil && r.FinishedAt != nil
}

// Duration returns the elapsed run time, zero while still in flight.
func (r *Run) Duration() time.Duration {
	if r == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// InstanceState carries the last-sync bookkeeping for one instance.
type InstanceState struct {
	Key             string     `json:"key"`
	Service         string     `json:"service"`
	Instance        string     `json:"instance"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	LastItemTitle   string     `json:"last_item_title,omitempty"`
	LastItemPoster  string     `json:"last_item_poster,omitempty"`
	LastItemProfile string     `json:"last_item_profile,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
