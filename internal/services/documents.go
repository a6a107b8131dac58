package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdeck/internal/shared"
)

// documentName returns key with a .html extension.
func documentName(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: empty document key", shared.ErrInvalidInput)
	}
	if !strings.HasSuffix(key, ".html") {
		key += ".html"
	}
	return key, nil
}

// HTTPDocumentStore fetches documents from an object store.
type HTTPDocumentStore struct {
	client *ObjectClient
}

// NewHTTPDocumentStore creates an [HTTPDocumentStore].
func NewHTTPDocumentStore(client *ObjectClient) *HTTPDocumentStore {
	return &HTTPDocumentStore{client: client}
}

func (s *HTTPDocumentStore) FetchDocument(ctx context.Context, key string) (string, error) {
	name, err := documentName(key)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// DirDocumentStore reads documents from a local directory.
type DirDocumentStore struct {
	dir string
}

// NewDirDocumentStore creates a [DirDocumentStore].
func NewDirDocumentStore(dir string) *DirDocumentStore {
	return &DirDocumentStore{dir: dir}
}

func (s *DirDocumentStore) FetchDocument(_ context.Context, key string) (string, error) {
	name, err := documentName(key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrFetchFailed, err)
	}
	return string(data), nil
}

// DocumentCache persists fetched documents. Lookup returns [shared.ErrNotFound] on a miss.
type DocumentCache interface {
	Lookup(key string) (html string, fetchedAt time.Time, err error)
	Store(key, html string) error
}

// CachedDocumentStore reads through a [DocumentCache].
//
// Entries younger than the TTL are served without a fetch. When the upstream fetch fails, a stale
// entry is served instead of the error.
type CachedDocumentStore struct {
	next  DocumentStore
	cache DocumentCache
	ttl   time.Duration
	now   func() time.Time
	log   *log.Logger
}

// CacheOption configures a [CachedDocumentStore].
type CacheOption func(*CachedDocumentStore)

// WithCacheLogger sets the logger used for cache failures.
func WithCacheLogger(l *log.Logger) CacheOption {
	return func(s *CachedDocumentStore) { s.log = l }
}

// NewCachedDocumentStore wraps next. A zero ttl never expires entries.
func NewCachedDocumentStore(next DocumentStore, cache DocumentCache, ttl time.Duration, opts ...CacheOption) *CachedDocumentStore {
	s := &CachedDocumentStore{next: next, cache: cache, ttl: ttl, now: time.Now, log: log.New(io.Discard)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CachedDocumentStore) FetchDocument(ctx context.Context, key string) (string, error) {
	name, err := documentName(key)
	if err != nil {
		return "", err
	}
	cacheKey := strings.TrimSuffix(name, ".html")

	cached, fetchedAt, lookupErr := s.cache.Lookup(cacheKey)
	hit := lookupErr == nil
	if hit && (s.ttl == 0 || s.now().Sub(fetchedAt) < s.ttl) {
		return cached, nil
	}

	doc, err := s.next.FetchDocument(ctx, key)
	if err != nil {
		if hit && !errors.Is(err, shared.ErrDocumentNotFound) {
			s.log.Warn("serving stale document", "key", cacheKey, "err", err)
			return cached, nil
		}
		return "", err
	}

	// A failed cache write still serves the fetched document.
	if err := s.cache.Store(cacheKey, doc); err != nil {
		s.log.Warn("failed to cache document", "key", cacheKey, "err", err)
	}
	return doc, nil
}
