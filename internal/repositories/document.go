package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
)

// DocumentRepository implements [models.Repository] for cached song documents.
type DocumentRepository struct {
	db *sql.DB
}

// NewDocumentRepository creates a new [DocumentRepository] with the given database connection
func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, sequence, song_key, html, fetched_at, created_at, updated_at, deleted_at`

// Create inserts a new document with generated ID and sequence
func (r *DocumentRepository) Create(doc *models.SongDocument) error {
	sequence, err := NextSequence(r.db, "song_documents")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	doc.SetID(shared.GenerateID())
	doc.SetSequence(sequence)

	if err := doc.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO song_documents (id, sequence, song_key, html, fetched_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, doc.ID(), sequence, doc.SongKey(), doc.HTML(), doc.FetchedAt(), doc.CreatedAt(), doc.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// Get retrieves a document by ID, excluding soft-deleted documents
func (r *DocumentRepository) Get(id string) (*models.SongDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM song_documents WHERE id = ? AND deleted_at IS NULL`

	doc, err := scanDocument(r.db.QueryRow(query, id))
	if err != nil {
		return nil, notFound(err, "document", id)
	}
	return doc, nil
}

// GetByKey retrieves the live document for songKey
func (r *DocumentRepository) GetByKey(songKey string) (*models.SongDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM song_documents WHERE song_key = ? AND deleted_at IS NULL`

	doc, err := scanDocument(r.db.QueryRow(query, songKey))
	if err != nil {
		return nil, notFound(err, "document", songKey)
	}
	return doc, nil
}

// Update replaces a document's HTML and fetch time
func (r *DocumentRepository) Update(doc *models.SongDocument) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	doc.SetUpdatedAt(now)

	result, err := r.db.Exec(
		`UPDATE song_documents SET html = ?, fetched_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		doc.HTML(), doc.FetchedAt(), now, doc.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return expectRows(result, "document", doc.ID())
}

// Delete removes a document by ID.
//
// Documents are a cache, so rows are removed outright: the song_key column is unique across deleted
// rows too.
func (r *DocumentRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM song_documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return expectRows(result, "document", id)
}

// List retrieves cached documents filtered by the "song_key" criterion
func (r *DocumentRepository) List(criteria map[string]any) ([]*models.SongDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM song_documents WHERE deleted_at IS NULL`
	args := []any{}

	if key, ok := criteria["song_key"].(string); ok && key != "" {
		query += " AND song_key = ?"
		args = append(args, key)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.SongDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

func scanDocument(row scanner) (*models.SongDocument, error) {
	var (
		id, key, html                   string
		sequence                        int
		fetchedAt, createdAt, updatedAt time.Time
		deletedAt                       sql.NullTime
	)

	if err := row.Scan(&id, &sequence, &key, &html, &fetchedAt, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	doc := models.NewSongDocument(sequence, key, html)
	doc.SetID(id)
	doc.SetFetchedAt(fetchedAt)
	doc.SetCreatedAt(createdAt)
	doc.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		doc.SetDeletedAt(&deletedAt.Time)
	}
	return doc, nil
}

// DocumentCacheAdapter implements services.DocumentCache using [DocumentRepository].
//
// Store creates the row on first fetch and refreshes it afterwards.
type DocumentCacheAdapter struct {
	repo *DocumentRepository
}

// NewDocumentCacheAdapter creates a new DocumentCacheAdapter with the given repository
func NewDocumentCacheAdapter(repo *DocumentRepository) *DocumentCacheAdapter {
	return &DocumentCacheAdapter{repo: repo}
}

// Lookup returns the cached HTML for songKey and when it was fetched.
func (a *DocumentCacheAdapter) Lookup(songKey string) (string, time.Time, error) {
	doc, err := a.repo.GetByKey(songKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return doc.HTML(), doc.FetchedAt(), nil
}

// Store caches html for songKey.
// A concurrent insert of the same key is treated as success.
func (a *DocumentCacheAdapter) Store(songKey, html string) error {
	existing, err := a.repo.GetByKey(songKey)
	if err == nil {
		existing.SetHTML(html)
		return a.repo.Update(existing)
	}

	if err := a.repo.Create(models.NewSongDocument(0, songKey, html)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache document: %w", err)
	}
	return nil
}
