package present

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdeck/internal/models"
)

// Placeholder is shown by an audience until the first state arrives.
const Placeholder = "Waiting for presenter..."

// AudienceStatus is the audience lifecycle state.
type AudienceStatus int

const (
	WaitingForFirstState AudienceStatus = iota
	Displaying
)

func (s AudienceStatus) String() string {
	if s == Displaying {
		return "displaying"
	}
	return "waiting"
}

// View is what an audience display should render.
type View struct {
	Song    string
	Index   int
	Total   int
	Slide   models.Slide
	Waiting bool
}

// Text returns the slide, or the placeholder while waiting.
func (v View) Text() string {
	if v.Waiting {
		return Placeholder
	}
	return string(v.Slide)
}

// Audience is the read-only consumer of a presentation channel.
//
// It moves from [WaitingForFirstState] to [Displaying] on the first usable update and never goes
// back. Malformed or unusable updates are logged and ignored, leaving the last good slide shown.
type Audience struct {
	log    *log.Logger
	render func(View)

	mu     sync.Mutex
	status AudienceStatus
	state  models.PresentationState
}

// AudienceOption configures an [Audience].
type AudienceOption func(*Audience)

// WithRender registers a callback invoked with the new view after every applied update.
func WithRender(fn func(View)) AudienceOption {
	return func(a *Audience) { a.render = fn }
}

// WithAudienceLogger sets the logger.
func WithAudienceLogger(l *log.Logger) AudienceOption {
	return func(a *Audience) { a.log = l }
}

// NewAudience creates a waiting [Audience].
func NewAudience(opts ...AudienceOption) *Audience {
	a := &Audience{log: discardLogger()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Preload supplies slides ahead of time for transports that only carry indices. It does not
// leave the waiting state.
func (a *Audience) Preload(song string, slides []models.Slide) {
	if len(slides) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = models.PresentationState{Slides: slides, Song: song, CurrentSlide: a.state.CurrentSlide}
}

// Apply decodes and applies one channel payload.
func (a *Audience) Apply(payload []byte) error {
	env, err := models.DecodeEnvelope(payload)
	if err != nil {
		a.log.Warn("ignoring malformed update", "err", err)
		return err
	}
	return a.ApplyEnvelope(env)
}

// ApplyEnvelope applies a decoded update. Full states replace the cached state; indices move
// within it.
func (a *Audience) ApplyEnvelope(env models.Envelope) error {
	a.mu.Lock()
	switch env.Type {
	case models.EnvelopeState:
		if env.State == nil || !env.State.Ready() {
			a.mu.Unlock()
			a.log.Warn("ignoring state without slides")
			return fmt.Errorf("state without slides")
		}
		a.state = *env.State
		a.state.CurrentSlide = a.state.Clamp(a.state.CurrentSlide)
	case models.EnvelopeIndex:
		if env.Index == nil {
			a.mu.Unlock()
			a.log.Warn("ignoring index update without index")
			return fmt.Errorf("index update without index")
		}
		if !a.state.Ready() {
			a.mu.Unlock()
			a.log.Debug("ignoring index before any slides", "index", *env.Index)
			return fmt.Errorf("index update before slides")
		}
		a.state.CurrentSlide = a.state.Clamp(*env.Index)
	default:
		a.mu.Unlock()
		return nil
	}
	a.status = Displaying
	view := a.viewLocked()
	a.mu.Unlock()

	if a.render != nil {
		a.render(view)
	}
	return nil
}

// Run applies every payload from sub until it closes or ctx ends.
func (a *Audience) Run(ctx context.Context, sub Subscription) error {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			_ = a.Apply(payload)
		}
	}
}

// Current returns the view to render.
func (a *Audience) Current() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewLocked()
}

func (a *Audience) viewLocked() View {
	if a.status == WaitingForFirstState || !a.state.Ready() {
		return View{Waiting: true, Total: len(a.state.Slides), Song: a.state.Song}
	}
	i := a.state.Clamp(a.state.CurrentSlide)
	return View{Song: a.state.Song, Index: i, Total: len(a.state.Slides), Slide: a.state.Slides[i]}
}

func (a *Audience) Status() AudienceStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// State returns the cached state.
func (a *Audience) State() models.PresentationState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}
