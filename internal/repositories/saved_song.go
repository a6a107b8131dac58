package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
)

// SavedSongRepository implements [models.Repository] for a user's saved songs.
//
// A user saves a song key at most once; saving it again returns the existing entry.
type SavedSongRepository struct {
	db *sql.DB
}

// NewSavedSongRepository creates a new [SavedSongRepository] with the given database connection
func NewSavedSongRepository(db *sql.DB) *SavedSongRepository {
	return &SavedSongRepository{db: db}
}

const savedSongColumns = `id, sequence, user_id, song_key, title, created_at, updated_at, deleted_at`

// Create inserts a new saved song with generated ID and sequence
func (r *SavedSongRepository) Create(song *models.SavedSong) error {
	sequence, err := NextSequence(r.db, "saved_songs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	song.SetID(shared.GenerateID())
	song.SetSequence(sequence)

	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO saved_songs (id, sequence, user_id, song_key, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, song.ID(), sequence, song.UserID(), song.SongKey(), song.Title(), song.CreatedAt(), song.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert saved song: %w", err)
	}
	return nil
}

// Save stores songKey for userID unless it is already saved, returning the live entry.
func (r *SavedSongRepository) Save(userID, songKey, title string) (*models.SavedSong, error) {
	if existing, err := r.find(userID, songKey); err != nil || existing != nil {
		return existing, err
	}

	song := models.NewSavedSong(0, userID, songKey, title)
	if err := r.Create(song); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return r.find(userID, songKey)
		}
		return nil, err
	}
	return song, nil
}

func (r *SavedSongRepository) find(userID, songKey string) (*models.SavedSong, error) {
	existing, err := r.List(map[string]any{"user_id": userID, "song_key": songKey})
	if err != nil || len(existing) == 0 {
		return nil, err
	}
	return existing[0], nil
}

// Get retrieves a saved song by ID, excluding soft-deleted entries
func (r *SavedSongRepository) Get(id string) (*models.SavedSong, error) {
	query := `SELECT ` + savedSongColumns + ` FROM saved_songs WHERE id = ? AND deleted_at IS NULL`

	song, err := scanSavedSong(r.db.QueryRow(query, id))
	if err != nil {
		return nil, notFound(err, "saved song", id)
	}
	return song, nil
}

// Update changes the stored title of a saved song
func (r *SavedSongRepository) Update(song *models.SavedSong) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	song.SetUpdatedAt(now)

	result, err := r.db.Exec(
		`UPDATE saved_songs SET title = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		song.Title(), now, song.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update saved song: %w", err)
	}
	return expectRows(result, "saved song", song.ID())
}

// Delete soft-deletes a saved song by ID
func (r *SavedSongRepository) Delete(id string) error {
	return softDelete(r.db, "saved_songs", "saved song", id)
}

// Remove soft-deletes userID's saved entry for songKey.
func (r *SavedSongRepository) Remove(userID, songKey string) error {
	result, err := r.db.Exec(
		`UPDATE saved_songs SET deleted_at = ? WHERE user_id = ? AND song_key = ? AND deleted_at IS NULL`,
		time.Now(), userID, songKey,
	)
	if err != nil {
		return fmt.Errorf("failed to remove saved song: %w", err)
	}
	return expectRows(result, "saved song", songKey)
}

// ListByUser returns userID's saved songs in save order.
func (r *SavedSongRepository) ListByUser(userID string) ([]*models.SavedSong, error) {
	return r.List(map[string]any{"user_id": userID})
}

// List retrieves saved songs filtered by "user_id" and "song_key" criteria
func (r *SavedSongRepository) List(criteria map[string]any) ([]*models.SavedSong, error) {
	query := `SELECT ` + savedSongColumns + ` FROM saved_songs WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if key, ok := criteria["song_key"].(string); ok && key != "" {
		query += " AND song_key = ?"
		args = append(args, key)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved songs: %w", err)
	}
	defer rows.Close()

	var songs []*models.SavedSong
	for rows.Next() {
		song, err := scanSavedSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved song: %w", err)
		}
		songs = append(songs, song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return songs, nil
}

func scanSavedSong(row scanner) (*models.SavedSong, error) {
	var (
		id, userID, key, title string
		sequence               int
		createdAt, updatedAt   time.Time
		deletedAt              sql.NullTime
	)

	if err := row.Scan(&id, &sequence, &userID, &key, &title, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	song := models.NewSavedSong(sequence, userID, key, title)
	song.SetID(id)
	song.SetCreatedAt(createdAt)
	song.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		song.SetDeletedAt(&deletedAt.Time)
	}
	return song, nil
}
