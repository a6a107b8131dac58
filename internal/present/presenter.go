package present

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
)

// Status is the presenter's lifecycle state.
type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "uninitialized"
	}
}

// Loader fetches and parses a song into a deck.
type Loader interface {
	Load(ctx context.Context, song models.Song) (models.Deck, error)
}

// LoaderFunc adapts a function to [Loader].
type LoaderFunc func(ctx context.Context, song models.Song) (models.Deck, error)

func (f LoaderFunc) Load(ctx context.Context, song models.Song) (models.Deck, error) {
	return f(ctx, song)
}

// PublishMode selects what a navigation publishes.
type PublishMode int

const (
	// PublishState sends the full state on every change. Required for store transports.
	PublishState PublishMode = iota
	// PublishIndex sends the full state on song change and only the index on navigation.
	PublishIndex
)

// Presenter owns the presentation state for the selected song and publishes every change.
//
// Publish failures never stop the presenter; they are logged and navigation continues locally.
type Presenter struct {
	transport Transport
	loader    Loader
	fixedKey  string
	mode      PublishMode
	log       *log.Logger
	now       func() time.Time

	mu         sync.Mutex
	generation uint64
	status     Status
	err        error
	song       models.Song
	deck       models.Deck
	state      models.PresentationState
	channel    *Channel
}

// PresenterOption configures a [Presenter].
type PresenterOption func(*Presenter)

// WithChannelKey publishes every song on one fixed key instead of the song's slug.
func WithChannelKey(key string) PresenterOption {
	return func(p *Presenter) { p.fixedKey = key }
}

// WithPublishMode sets the [PublishMode].
func WithPublishMode(m PublishMode) PresenterOption {
	return func(p *Presenter) { p.mode = m }
}

// WithPresenterLogger sets the logger.
func WithPresenterLogger(l *log.Logger) PresenterOption {
	return func(p *Presenter) { p.log = l }
}

// WithClock replaces time.Now for state timestamps.
func WithClock(now func() time.Time) PresenterOption {
	return func(p *Presenter) { p.now = now }
}

// NewPresenter creates an uninitialized [Presenter].
func NewPresenter(transport Transport, loader Loader, opts ...PresenterOption) *Presenter {
	p := &Presenter{transport: transport, loader: loader, log: discardLogger(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ChannelKey returns the key songs are published on: the fixed key when set, else the song slug.
func (p *Presenter) ChannelKey(song models.Song) string {
	if p.fixedKey != "" {
		return p.fixedKey
	}
	if slug := shared.Slugify(song.Key()); slug != "" {
		return slug
	}
	return shared.Slugify(song.Title)
}

// Select loads song and, on success, replaces the state and publishes it at slide 0.
//
// When another Select starts before this one's load finishes, the result is discarded and
// [shared.ErrStaleLoad] is returned. On a load failure the previously published state is left
// untouched for audiences and the presenter moves to [StatusError].
func (p *Presenter) Select(ctx context.Context, song models.Song) error {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.status = StatusLoading
	p.err = nil
	p.mu.Unlock()

	logger := p.log.With("song", song.Title)
	logger.Debug("loading song")

	deck, err := p.loader.Load(ctx, song)
	if err == nil && len(deck.Slides) == 0 {
		err = shared.ErrNoSlides
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		logger.Debug("discarding stale load", "generation", gen, "current", p.generation)
		return fmt.Errorf("%w: %s", shared.ErrStaleLoad, song.Title)
	}

	if err != nil {
		p.status = StatusError
		p.err = err
		logger.Warn("failed to load song", "err", err)
		return err
	}

	if err := p.bind(ctx, p.ChannelKey(song)); err != nil {
		p.status = StatusError
		p.err = err
		return err
	}

	p.song = song
	p.deck = deck
	p.state = models.PresentationState{Slides: deck.Slides, CurrentSlide: 0, Song: song.Title, TS: p.now().UnixMilli()}
	p.status = StatusReady
	p.publish(ctx, true)
	return nil
}

// bind switches the channel to key, closing the previous one when the key changes.
func (p *Presenter) bind(ctx context.Context, key string) error {
	if p.channel != nil && p.channel.Key() == key {
		return nil
	}

	ch, err := Open(ctx, p.transport, key, WithChannelLogger(p.log))
	if err != nil {
		return err
	}
	if err := ch.Claim(); err != nil {
		ch.Close()
		return err
	}

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn("failed to close channel", "channel", p.channel.Key(), "err", err)
		}
	}
	p.channel = ch
	return nil
}

// publish sends the current state. Must be called with p.mu held.
func (p *Presenter) publish(ctx context.Context, full bool) {
	if p.channel == nil {
		p.log.Debug("no channel bound, not publishing")
		return
	}

	var err error
	if full || p.mode == PublishState {
		err = p.channel.Publish(ctx, p.state)
	} else {
		err = p.channel.PublishIndex(ctx, p.state.CurrentSlide)
	}
	if err != nil {
		p.log.Warn("publish failed", "channel", p.channel.Key(), "err", err)
	}
}

// SetIndex moves to slide i, clamped to the deck, and publishes. It returns the new index.
func (p *Presenter) SetIndex(ctx context.Context, i int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.move(ctx, i)
}

// Next advances one slide, stopping at the last.
func (p *Presenter) Next(ctx context.Context) (int, error) {
	return p.step(ctx, 1)
}

// Prev goes back one slide, stopping at the first.
func (p *Presenter) Prev(ctx context.Context) (int, error) {
	return p.step(ctx, -1)
}

func (p *Presenter) step(ctx context.Context, delta int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.move(ctx, p.state.CurrentSlide+delta)
}

// move must be called with p.mu held.
func (p *Presenter) move(ctx context.Context, i int) (int, error) {
	if p.status != StatusReady {
		return 0, fmt.Errorf("%w: %s", shared.ErrNotReady, p.status)
	}

	p.state.CurrentSlide = p.state.Clamp(i)
	p.state.TS = p.now().UnixMilli()
	p.publish(ctx, false)
	return p.state.CurrentSlide, nil
}

// HandleKey maps navigation keys to [Presenter.Next] and [Presenter.Prev]. It reports whether
// the key was a navigation key.
func (p *Presenter) HandleKey(ctx context.Context, key string) (bool, error) {
	switch key {
	case "ArrowRight", "right", "l":
		_, err := p.Next(ctx)
		return true, err
	case "ArrowLeft", "left", "h":
		_, err := p.Prev(ctx)
		return true, err
	}
	return false, nil
}

// State returns a copy of the current state.
func (p *Presenter) State() models.PresentationState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Deck returns the deck of the selected song, including presenter labels.
func (p *Presenter) Deck() models.Deck {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deck
}

// Song returns the selected song.
func (p *Presenter) Song() models.Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.song
}

func (p *Presenter) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Err returns the error that put the presenter in [StatusError].
func (p *Presenter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Key returns the key of the bound channel, or an empty string before the first song.
func (p *Presenter) Key() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return ""
	}
	return p.channel.Key()
}

// Close closes the bound channel.
func (p *Presenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return nil
	}
	err := p.channel.Close()
	p.channel = nil
	if errors.Is(err, shared.ErrChannelClosed) {
		return nil
	}
	return err
}
