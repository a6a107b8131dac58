package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
)

// DailySongRepository implements [models.Repository] for the per-day set list.
type DailySongRepository struct {
	db *sql.DB
}

// NewDailySongRepository creates a new [DailySongRepository] with the given database connection
func NewDailySongRepository(db *sql.DB) *DailySongRepository {
	return &DailySongRepository{db: db}
}

const dailySongColumns = `id, sequence, day, position, song_key, title, created_at, updated_at, deleted_at`

const insertDailySong = `
	INSERT INTO daily_songs (id, sequence, day, position, song_key, title, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// Create inserts a new daily song entry with generated ID and sequence
func (r *DailySongRepository) Create(song *models.DailySong) error {
	sequence, err := NextSequence(r.db, "daily_songs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	song.SetID(shared.GenerateID())
	song.SetSequence(sequence)

	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, err = r.db.Exec(insertDailySong,
		song.ID(), sequence, song.Day(), song.Position(), song.SongKey(), song.Title(), song.CreatedAt(), song.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert daily song: %w", err)
	}
	return nil
}

// Replace sets day's list to songs in order, soft-deleting the previous list in the same transaction.
func (r *DailySongRepository) Replace(day string, songs []models.Song) ([]*models.DailySong, error) {
	if _, err := time.Parse(models.DayLayout, day); err != nil {
		return nil, fmt.Errorf("%w: invalid day %q", shared.ErrInvalidInput, day)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.Exec(`UPDATE daily_songs SET deleted_at = ? WHERE day = ? AND deleted_at IS NULL`, now, day); err != nil {
		return nil, fmt.Errorf("failed to clear daily songs: %w", err)
	}

	entries := make([]*models.DailySong, 0, len(songs))
	for i, s := range songs {
		sequence, err := nextSequenceTx(tx, "daily_songs")
		if err != nil {
			return nil, fmt.Errorf("failed to generate sequence: %w", err)
		}

		entry := models.NewDailySong(sequence, day, i, s.Key(), s.Title)
		entry.SetID(shared.GenerateID())
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		_, err = tx.Exec(insertDailySong,
			entry.ID(), sequence, day, i, entry.SongKey(), entry.Title(), entry.CreatedAt(), entry.UpdatedAt(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert daily song: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit daily songs: %w", err)
	}
	return entries, nil
}

// Get retrieves a daily song by ID, excluding soft-deleted entries
func (r *DailySongRepository) Get(id string) (*models.DailySong, error) {
	query := `SELECT ` + dailySongColumns + ` FROM daily_songs WHERE id = ? AND deleted_at IS NULL`

	song, err := scanDailySong(r.db.QueryRow(query, id))
	if err != nil {
		return nil, notFound(err, "daily song", id)
	}
	return song, nil
}

// Update changes the position and title of a daily song
func (r *DailySongRepository) Update(song *models.DailySong) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	song.SetUpdatedAt(now)

	result, err := r.db.Exec(
		`UPDATE daily_songs SET position = ?, title = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		song.Position(), song.Title(), now, song.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update daily song: %w", err)
	}
	return expectRows(result, "daily song", song.ID())
}

// Delete soft-deletes a daily song by ID
func (r *DailySongRepository) Delete(id string) error {
	return softDelete(r.db, "daily_songs", "daily song", id)
}

// ListByDay returns day's set list ordered by position.
func (r *DailySongRepository) ListByDay(day string) ([]*models.DailySong, error) {
	return r.List(map[string]any{"day": day})
}

// List retrieves daily songs filtered by the "day" criterion, ordered by day and position
func (r *DailySongRepository) List(criteria map[string]any) ([]*models.DailySong, error) {
	query := `SELECT ` + dailySongColumns + ` FROM daily_songs WHERE deleted_at IS NULL`
	args := []any{}

	if day, ok := criteria["day"].(string); ok && day != "" {
		query += " AND day = ?"
		args = append(args, day)
	}

	query += " ORDER BY day ASC, position ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily songs: %w", err)
	}
	defer rows.Close()

	var songs []*models.DailySong
	for rows.Next() {
		song, err := scanDailySong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily song: %w", err)
		}
		songs = append(songs, song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return songs, nil
}

func scanDailySong(row scanner) (*models.DailySong, error) {
	var (
		id, day, key, title  string
		sequence, position   int
		createdAt, updatedAt time.Time
		deletedAt            sql.NullTime
	)

	if err := row.Scan(&id, &sequence, &day, &position, &key, &title, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	song := models.NewDailySong(sequence, day, position, key, title)
	song.SetID(id)
	song.SetCreatedAt(createdAt)
	song.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		song.SetDeletedAt(&deletedAt.Time)
	}
	return song, nil
}
