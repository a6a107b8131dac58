package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/songdeck/internal/shared"
)

// StateRepository stores the latest presentation payload per channel key.
//
// It backs present.SQLStore: every Save bumps the channel's version so pollers can tell new
// writes from old ones.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new [StateRepository] with the given database connection
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Save upserts payload for channel and returns the new version.
func (r *StateRepository) Save(ctx context.Context, channel string, payload []byte) (int64, error) {
	if channel == "" {
		return 0, fmt.Errorf("%w: channel key", shared.ErrMissingArgument)
	}

	query := `
		INSERT INTO presentation_states (channel, payload, version, updated_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(channel) DO UPDATE SET
			payload = excluded.payload,
			version = presentation_states.version + 1,
			updated_at = excluded.updated_at
		RETURNING version
	`

	var version int64
	if err := r.db.QueryRowContext(ctx, query, channel, string(payload), time.Now()).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to save presentation state: %w", err)
	}
	return version, nil
}

// Latest returns the stored payload and version for channel.
func (r *StateRepository) Latest(ctx context.Context, channel string) ([]byte, int64, error) {
	var (
		payload string
		version int64
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT payload, version FROM presentation_states WHERE channel = ?`, channel,
	).Scan(&payload, &version)
	if err != nil {
		return nil, 0, notFound(err, "presentation state", channel)
	}
	return []byte(payload), version, nil
}

// Clear removes the stored state for channel.
func (r *StateRepository) Clear(ctx context.Context, channel string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM presentation_states WHERE channel = ?`, channel); err != nil {
		return fmt.Errorf("failed to clear presentation state: %w", err)
	}
	return nil
}

// Channels lists the channel keys with stored state, most recently updated first.
func (r *StateRepository) Channels(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT channel FROM presentation_states ORDER BY updated_at DESC, channel ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var channel string
		if err := rows.Scan(&channel); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return channels, nil
}
