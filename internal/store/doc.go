// Package store persists sync run history, per-instance bookkeeping, and the
// log event archive in SQLite.
//
// The Store manages the database connection, schema initialization, and the
// three tables langarr writes: runs (one row per reconciliation pass with
// outcome counters), instance_state (last sync time and last touched item per
// instance), and log_events (append-only archive of the live log stream).
//
// The database is bookkeeping, not remote state: deleting it loses history
// but never affects Radarr, Sonarr, or Overseerr. Schema changes bump the
// version in schema.go; users delete the database to adopt the new schema.
package store
