package services

import (
	"context"
	"strings"
	"time"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
)

// CatalogSource provides the song index.
type CatalogSource interface {
	FetchCatalog(ctx context.Context) (models.Catalog, error)
}

// DocumentStore fetches a song's chord-sheet HTML by content key.
//
// A missing key fails with [shared.ErrDocumentNotFound]; network failures with
// [shared.ErrFetchFailed].
type DocumentStore interface {
	FetchDocument(ctx context.Context, key string) (string, error)
}

// NewCatalogSource returns the catalog source configured by cfg. A URL without a scheme is read as
// a local file.
func NewCatalogSource(ctx context.Context, cfg shared.CatalogConfig) CatalogSource {
	if !isRemote(cfg.URL) {
		return NewFileCatalog(cfg.URL)
	}
	client := NewObjectClient("", NewHTTPClient(ctx, cfg), NewLimiter(cfg))
	return NewCatalogService(client, cfg.URL)
}

// NewDocumentStore returns the document store configured by cfg. A non-empty documents_dir takes
// precedence over the object store. When cache is non-nil, reads go through it with ttl.
func NewDocumentStore(ctx context.Context, cfg shared.CatalogConfig, cache DocumentCache, ttl time.Duration, opts ...CacheOption) DocumentStore {
	var store DocumentStore
	if cfg.DocumentsDir != "" {
		store = NewDirDocumentStore(cfg.DocumentsDir)
	} else {
		client := NewObjectClient(cfg.DocumentBaseURL, NewHTTPClient(ctx, cfg), NewLimiter(cfg))
		store = NewHTTPDocumentStore(client)
	}

	if cache == nil {
		return store
	}
	return NewCachedDocumentStore(store, cache, ttl, opts...)
}

func isRemote(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
