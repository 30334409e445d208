package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"langarr/internal/services"
)

// UpsertInstanceState stores the last-sync bookkeeping for an instance,
// replacing any previous row for the same key.
func (s *Store) UpsertInstanceState(ctx context.Context, state InstanceState) error {
	if state.Service == "" || state.Instance == "" {
		return errors.New("instance state requires service and instance")
	}
	key := services.InstanceKey(state.Service, state.Instance)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO instance_state (
            key, service, instance, last_sync_at,
            last_item_title, last_item_poster, last_item_profile, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET
            last_sync_at = excluded.last_sync_at,
            last_item_title = excluded.last_item_title,
            last_item_poster = excluded.last_item_poster,
            last_item_profile = excluded.last_item_profile,
            updated_at = excluded.updated_at`,
		key,
		state.Service,
		state.Instance,
		nullableTime(state.LastSyncAt),
		nullableString(state.LastItemTitle),
		nullableString(state.LastItemPoster),
		nullableString(state.LastItemProfile),
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert instance state: %w", err)
	}
	return nil
}

// InstanceState fetches bookkeeping for one instance, nil when absent.
func (s *Store) InstanceState(ctx context.Context, service, instance string) (*InstanceState, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+instanceStateColumns+` FROM instance_state WHERE key = ?`,
		services.InstanceKey(service, instance),
	)
	state, err := scanInstanceState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance state: %w", err)
	}
	return state, nil
}

// InstanceStates returns bookkeeping for every known instance ordered by key.
func (s *Store) InstanceStates(ctx context.Context) ([]InstanceState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+instanceStateColumns+` FROM instance_state ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list instance states: %w", err)
	}
	defer rows.Close()

	var states []InstanceState
	for rows.Next() {
		state, err := scanInstanceState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}
	return states, rows.Err()
}

const instanceStateColumns = "key, service, instance, last_sync_at, last_item_title, last_item_poster, last_item_profile, updated_at"

func scanInstanceState(scanner interface{ Scan(dest ...any) error }) (*InstanceState, error) {
	var (
		key         string
		service     string
		instance    string
		lastSyncRaw sql.NullString
		title       sql.NullString
		poster      sql.NullString
		profile     sql.NullString
		updatedRaw  string
	)

	if err := scanner.Scan(
		&key,
		&service,
		&instance,
		&lastSyncRaw,
		&title,
		&poster,
		&profile,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	state := &InstanceState{
		Key:             key,
		Service:         service,
		Instance:        instance,
		LastItemTitle:   title.String,
		LastItemPoster:  poster.String,
		LastItemProfile: profile.String,
	}
	if lastSyncRaw.Valid {
		if lastSync, err := parseTimeString(lastSyncRaw.String); err == nil {
			state.LastSyncAt = &lastSync
		}
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		state.UpdatedAt = updated
	}
	return state, nil
}
