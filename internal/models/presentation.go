package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Slide is a self-contained HTML fragment shown on an audience display.
type Slide string

// DocumentShape identifies which convention a chord-sheet document follows.
type DocumentShape int

const (
	ShapeEmpty DocumentShape = iota
	ShapePlainBracketed
	ShapeSemanticSectioned
)

func (s DocumentShape) String() string {
	switch s {
	case ShapePlainBracketed:
		return "bracketed"
	case ShapeSemanticSectioned:
		return "sectioned"
	default:
		return "empty"
	}
}

func (s DocumentShape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Deck is the parsed form of a document: slides in reading order with a presenter-facing label per slide.
type Deck struct {
	Slides []Slide       `json:"slides"`
	Labels []string      `json:"labels"`
	Shape  DocumentShape `json:"shape"`
}

// Label returns the label for slide i, or an empty string.
func (d Deck) Label(i int) string {
	if i < 0 || i >= len(d.Labels) {
		return ""
	}
	return d.Labels[i]
}

// PresentationState is the full snapshot a presenter publishes.
//
// The JSON field names match the storage slot written by the web presenter.
type PresentationState struct {
	Slides       []Slide `json:"slides"`
	CurrentSlide int     `json:"currentSlide"`
	Song         string  `json:"song"`
	TS           int64   `json:"ts"`
}

// NewPresentationState creates a state at index 0 stamped with the current time.
func NewPresentationState(song string, slides []Slide) PresentationState {
	return PresentationState{Slides: slides, Song: song, TS: time.Now().UnixMilli()}
}

// Ready reports whether the state has slides to show.
func (s PresentationState) Ready() bool {
	return len(s.Slides) > 0
}

// Clamp restricts i to the valid slide range. It returns 0 when there are no slides.
func (s PresentationState) Clamp(i int) int {
	return ClampIndex(i, len(s.Slides))
}

// Current returns the slide at the clamped current index.
func (s PresentationState) Current() (Slide, bool) {
	if !s.Ready() {
		return "", false
	}
	return s.Slides[s.Clamp(s.CurrentSlide)], true
}

// ClampIndex restricts i to [0, n-1], returning 0 when n is zero.
func ClampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// EnvelopeType distinguishes messages on a presentation channel.
type EnvelopeType string

const (
	EnvelopeState EnvelopeType = "state"
	EnvelopeIndex EnvelopeType = "index"
	EnvelopeReady EnvelopeType = "ready"
)

// Envelope is the wire message exchanged between presenters and audiences.
type Envelope struct {
	Type  EnvelopeType       `json:"type"`
	Index *int               `json:"index,omitempty"`
	State *PresentationState `json:"state,omitempty"`
}

// StateEnvelope wraps a full state.
func StateEnvelope(state PresentationState) Envelope {
	return Envelope{Type: EnvelopeState, State: &state}
}

// IndexEnvelope wraps an index-only update.
func IndexEnvelope(i int) Envelope {
	return Envelope{Type: EnvelopeIndex, Index: &i}
}

// ReadyEnvelope is sent by an audience once it is listening.
func ReadyEnvelope() Envelope {
	return Envelope{Type: EnvelopeReady}
}

// Encode marshals the envelope to JSON.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a channel payload.
//
// Besides typed envelopes it accepts a bare state object ({"slides": ...}) as written to the
// storage slot, and a bare {"index": n} as sent over the same-context broadcast.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var probe struct {
		Type         EnvelopeType       `json:"type"`
		Index        *int               `json:"index"`
		State        *PresentationState `json:"state"`
		Slides       []Slide            `json:"slides"`
		CurrentSlide *int               `json:"currentSlide"`
		CurrentIndex *int               `json:"currentIndex"`
		Song         string             `json:"song"`
		TS           int64              `json:"ts"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return Envelope{}, fmt.Errorf("malformed payload: %w", err)
	}

	switch probe.Type {
	case EnvelopeState:
		if probe.State == nil {
			return Envelope{}, fmt.Errorf("state message without state")
		}
		return Envelope{Type: EnvelopeState, State: probe.State}, nil
	case EnvelopeIndex:
		if probe.Index == nil {
			return Envelope{}, fmt.Errorf("index message without index")
		}
		return Envelope{Type: EnvelopeIndex, Index: probe.Index}, nil
	case EnvelopeReady:
		return ReadyEnvelope(), nil
	case "":
	default:
		return Envelope{}, fmt.Errorf("unknown message type %q", probe.Type)
	}

	switch {
	case probe.Slides != nil:
		state := PresentationState{Slides: probe.Slides, Song: probe.Song, TS: probe.TS}
		switch {
		case probe.CurrentSlide != nil:
			state.CurrentSlide = *probe.CurrentSlide
		case probe.CurrentIndex != nil:
			state.CurrentSlide = *probe.CurrentIndex
		}
		return StateEnvelope(state), nil
	case probe.Index != nil:
		return Envelope{Type: EnvelopeIndex, Index: probe.Index}, nil
	}
	return Envelope{}, fmt.Errorf("payload has neither state nor index")
}
