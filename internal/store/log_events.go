package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"langarr/internal/logging"
)

type eventExtras struct {
	Fields  map[string]string     `json:"fields,omitempty"`
	Details []logging.DetailField `json:"details,omitempty"`
}

// AppendLogEvent archives one stream event.
func (s *Store) AppendLogEvent(ctx context.Context, evt logging.LogEvent) error {
	var extrasJSON any
	if len(evt.Fields) > 0 || len(evt.Details) > 0 {
		payload, err := json.Marshal(eventExtras{Fields: evt.Fields, Details: evt.Details})
		if err != nil {
			return fmt.Errorf("marshal event fields: %w", err)
		}
		extrasJSON = string(payload)
	}

	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO log_events (ts, level, message, component, service, instance, item_id, run_id, fields_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.UTC().Format(time.RFC3339Nano),
		evt.Level,
		evt.Message,
		nullableString(evt.Component),
		nullableString(evt.Service),
		nullableString(evt.Instance),
		nullableInt64(evt.ItemID),
		nullableString(evt.RunID),
		extrasJSON,
	)
	if err != nil {
		return fmt.Errorf("append log event: %w", err)
	}
	return nil
}

// LogEventsSince returns archived events with archive sequence greater than
// seq, oldest first. The archive assigns its own monotonic sequence, distinct
// from the in-memory stream numbering that resets on restart.
func (s *Store) LogEventsSince(ctx context.Context, seq uint64, limit int) ([]logging.LogEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, ts, level, message, component, service, instance, item_id, run_id, fields_json
         FROM log_events WHERE id > ? ORDER BY id LIMIT ?`,
		int64(seq),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query log events: %w", err)
	}
	defer rows.Close()

	var events []logging.LogEvent
	for rows.Next() {
		var (
			id        int64
			tsRaw     string
			level     string
			message   string
			component sql.NullString
			service   sql.NullString
			instance  sql.NullString
			itemID    sql.NullInt64
			runID     sql.NullString
			extras    sql.NullString
		)
		if err := rows.Scan(&id, &tsRaw, &level, &message, &component, &service, &instance, &itemID, &runID, &extras); err != nil {
			return nil, err
		}

		evt := logging.LogEvent{
			Sequence:  uint64(id),
			Level:     level,
			Message:   message,
			Component: component.String,
			Service:   service.String,
			Instance:  instance.String,
			ItemID:    itemID.Int64,
			RunID:     runID.String,
		}
		if ts, err := parseTimeString(tsRaw); err == nil {
			evt.Timestamp = ts
		}
		if extras.Valid && extras.String != "" {
			var decoded eventExtras
			if err := json.Unmarshal([]byte(extras.String), &decoded); err == nil {
				evt.Fields = decoded.Fields
				evt.Details = decoded.Details
			}
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// PruneLogEvents deletes all but the newest keep events and returns the
// number of rows removed.
func (s *Store) PruneLogEvents(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM log_events
         WHERE id NOT IN (SELECT id FROM log_events ORDER BY id DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune log events: %w", err)
	}
	return res.RowsAffected()
}

// Sink adapts the store to the logging sink interface. Archive failures are
// reported on stderr so the logging pipeline can never recurse into itself.
func (s *Store) Sink() logging.LogEventSink {
	return eventSink{store: s}
}

type eventSink struct {
	store *Store
}

func (e eventSink) Append(evt logging.LogEvent) {
	if e.store == nil {
		return
	}
	if err := e.store.AppendLogEvent(context.Background(), evt); err != nil {
		fmt.Fprintf(os.Stderr, "langarr: archive log event: %v\n", err)
	}
}
