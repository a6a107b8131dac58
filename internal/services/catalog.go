package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
)

// CatalogService fetches the catalog index once and serves the cached copy afterwards.
type CatalogService struct {
	client *ObjectClient
	path   string

	mu     sync.Mutex
	cached *models.Catalog
}

// NewCatalogService creates a [CatalogService] reading path (absolute URL or relative to the
// client's base URL).
func NewCatalogService(client *ObjectClient, path string) *CatalogService {
	return &CatalogService{client: client, path: path}
}

// FetchCatalog returns the catalog, fetching it on first use. Failed fetches are not cached.
func (s *CatalogService) FetchCatalog(ctx context.Context) (models.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached, nil
	}

	var catalog models.Catalog
	if err := s.client.GetJSON(ctx, s.path, &catalog); err != nil {
		return models.Catalog{}, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	s.cached = &catalog
	return catalog, nil
}

// Invalidate drops the cached catalog.
func (s *CatalogService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}

// FileCatalog reads the catalog index from a local JSON file.
type FileCatalog struct {
	path string
}

// NewFileCatalog creates a [FileCatalog].
func NewFileCatalog(path string) *FileCatalog {
	return &FileCatalog{path: path}
}

func (c *FileCatalog) FetchCatalog(_ context.Context) (models.Catalog, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return models.Catalog{}, fmt.Errorf("%w: %w", shared.ErrFetchFailed, err)
	}

	var catalog models.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return models.Catalog{}, fmt.Errorf("%w: invalid catalog %s: %w", shared.ErrFetchFailed, c.path, err)
	}
	return catalog, nil
}

// FindSong locates a song by content key ("aboveallpowers" or "aboveallpowers.html") or by
// title compared without whitespace or case ("Above All Powers").
func FindSong(catalog models.Catalog, slug string) (models.Song, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return models.Song{}, fmt.Errorf("%w: empty song key", shared.ErrInvalidInput)
	}

	folded := shared.FoldSlug(slug)
	song, ok := lo.Find(catalog.Songs, func(s models.Song) bool {
		return s.FileName == slug || s.Key() == slug || s.Key()+".html" == slug
	})
	if !ok {
		song, ok = lo.Find(catalog.Songs, func(s models.Song) bool {
			return shared.FoldSlug(s.Title) == folded || shared.FoldSlug(s.Key()) == folded
		})
	}
	if !ok {
		return models.Song{}, fmt.Errorf("%w: %s", shared.ErrSongNotFound, slug)
	}
	return song, nil
}

type songTitles []models.Song

func (s songTitles) String(i int) string { return s[i].Title }
func (s songTitles) Len() int            { return len(s) }

// SearchSongs ranks songs by fuzzy title match. An empty query returns songs unchanged.
func SearchSongs(songs []models.Song, query string) []models.Song {
	query = strings.TrimSpace(query)
	if query == "" {
		return songs
	}

	matches := fuzzy.FindFrom(query, songTitles(songs))
	return lo.Map(matches, func(m fuzzy.Match, _ int) models.Song {
		return songs[m.Index]
	})
}

// FilterByCategory keeps songs in category, compared case-insensitively. An empty category keeps
// every song.
func FilterByCategory(songs []models.Song, category string) []models.Song {
	category = strings.TrimSpace(category)
	if category == "" {
		return songs
	}
	return lo.Filter(songs, func(s models.Song, _ int) bool {
		return strings.EqualFold(s.Category, category)
	})
}

// Categories returns the distinct non-empty categories, sorted.
func Categories(songs []models.Song) []string {
	categories := lo.Uniq(lo.FilterMap(songs, func(s models.Song, _ int) (string, bool) {
		return s.Category, s.Category != ""
	}))
	sort.Strings(categories)
	return categories
}
