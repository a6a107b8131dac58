// package tasks loads songs into slide decks and exports them in bulk.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/services"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/desertthunder/songdeck/internal/slides"
)

// SongLoader fetches a song's document and parses it into a deck.
//
// It satisfies present.Loader; progress for those loads goes to the channel set with
// [WithProgress].
type SongLoader struct {
	docs     services.DocumentStore
	parser   *slides.Parser
	progress chan<- ProgressUpdate
	log      *log.Logger
}

// LoaderOption configures a [SongLoader].
type LoaderOption func(*SongLoader)

// WithParser replaces the default slide parser.
func WithParser(p *slides.Parser) LoaderOption {
	return func(l *SongLoader) { l.parser = p }
}

// WithProgress sets the channel [SongLoader.Load] reports to.
func WithProgress(ch chan<- ProgressUpdate) LoaderOption {
	return func(l *SongLoader) { l.progress = ch }
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *log.Logger) LoaderOption {
	return func(l *SongLoader) { l.log = logger }
}

// NewSongLoader creates a [SongLoader] reading from docs.
func NewSongLoader(docs services.DocumentStore, opts ...LoaderOption) *SongLoader {
	l := &SongLoader{docs: docs, parser: slides.NewParser(), log: log.New(io.Discard)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches and parses song, reporting to the configured progress channel.
func (l *SongLoader) Load(ctx context.Context, song models.Song) (models.Deck, error) {
	return l.LoadWithProgress(ctx, l.progress, song)
}

// LoadWithProgress fetches and parses song.
//
// A document that yields no slides fails with [shared.ErrNoSlides]; the parsed deck is still
// returned so callers can inspect its shape.
func (l *SongLoader) LoadWithProgress(ctx context.Context, progress chan<- ProgressUpdate, song models.Song) (models.Deck, error) {
	if l.docs == nil {
		return models.Deck{}, fmt.Errorf("%w: document store not configured", shared.ErrServiceUnavailable)
	}

	key := song.Key()
	if key == "" {
		return models.Deck{}, fmt.Errorf("%w: song %q has no file name", shared.ErrInvalidInput, song.Title)
	}

	sendProgress(progress, fetchDocumentUpdate(song))
	doc, err := l.docs.FetchDocument(ctx, key)
	if err != nil {
		l.log.Warn("document fetch failed", "song", key, "err", err)
		return models.Deck{}, err
	}

	sendProgress(progress, parseSlidesUpdate(song))
	deck := l.parser.ParseDeck(doc)
	if len(deck.Slides) == 0 {
		l.log.Warn("document has no slides", "song", key, "shape", deck.Shape)
		return deck, fmt.Errorf("%w: %s", shared.ErrNoSlides, key)
	}

	l.log.Debug("deck loaded", "song", key, "slides", len(deck.Slides), "shape", deck.Shape)
	sendProgress(progress, parsedSlidesUpdate(song, deck))
	return deck, nil
}
