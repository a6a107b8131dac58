// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
)

// StaticDocuments is an in-memory document store keyed by content key (no .html extension).
//
// Missing keys return [shared.ErrDocumentNotFound]. Calls counts fetches per key.
type StaticDocuments struct {
	mu    sync.Mutex
	Docs  map[string]string
	Err   error
	Calls map[string]int
}

func NewStaticDocuments(docs map[string]string) *StaticDocuments {
	return &StaticDocuments{Docs: docs, Calls: map[string]int{}}
}

func (s *StaticDocuments) FetchDocument(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSuffix(key, ".html")
	s.Calls[key]++
	if s.Err != nil {
		return "", s.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc, ok := s.Docs[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, key)
	}
	return doc, nil
}

// CallCount returns the number of fetches for key.
func (s *StaticDocuments) CallCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[key]
}

// StaticCatalog serves a fixed catalog.
type StaticCatalog struct {
	Catalog models.Catalog
	Err     error
}

func (s *StaticCatalog) FetchCatalog(context.Context) (models.Catalog, error) {
	return s.Catalog, s.Err
}

// SampleSongs returns a small catalog used across package tests.
func SampleSongs() []models.Song {
	return []models.Song{
		{Title: "Above All Powers", Category: "Worship", FileName: "aboveallpowers.html"},
		{Title: "How Great Thou Art", Category: "Hymn", FileName: "howgreatthouart.html"},
		{Title: "Amazing Grace", Category: "hymn", FileName: "amazinggrace.html"},
		{Title: "Vasundharega", FileName: "vasundharega.html"},
	}
}

// BracketedDocument is a plain song document with bracketed section headings.
const BracketedDocument = `<html><body><pre>[Verse 1]
Above all powers
Above all kings

[Chorus]
Crucified
Laid behind a stone
</pre></body></html>`

// SectionedDocument is a semantic song document with chord lines.
const SectionedDocument = `<html><body><pre>
<div class="heading">Verse 1</div>
<section class="verse"><span class="chord" data-original="G">G</span>Amazing grace how sweet the sound</section>
<div class="heading">Chorus</div>
<section class="chorus"><span class="chord" data-original="D">D</span>My chains are gone</section>
</pre></body></html>`

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
