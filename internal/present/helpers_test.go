package present

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/songdeck/internal/models"
)

const wait = 2 * time.Second

func recv(t *testing.T, sub Subscription) []byte {
	t.Helper()
	select {
	case payload, ok := <-sub.Messages():
		if !ok {
			t.Fatal("subscription closed before a message arrived")
		}
		return payload
	case <-time.After(wait):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func expectNone(t *testing.T, sub Subscription, d time.Duration) {
	t.Helper()
	select {
	case payload, ok := <-sub.Messages():
		if ok {
			t.Fatalf("expected no message, got %s", payload)
		}
	case <-time.After(d):
	}
}

func decode(t *testing.T, payload []byte) models.Envelope {
	t.Helper()
	env, err := models.DecodeEnvelope(payload)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", payload, err)
	}
	return env
}

func statePayload(t *testing.T, song string, index int, slides ...models.Slide) []byte {
	t.Helper()
	state := models.PresentationState{Slides: slides, CurrentSlide: index, Song: song, TS: 1}
	data, err := models.StateEnvelope(state).Encode()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func rawState(t *testing.T, index int, slides ...models.Slide) []byte {
	t.Helper()
	data, err := json.Marshal(models.PresentationState{Slides: slides, CurrentSlide: index, Song: "raw"})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func deckOf(n int) models.Deck {
	deck := models.Deck{}
	for i := range n {
		deck.Slides = append(deck.Slides, models.Slide(fmt.Sprintf("<pre>%d</pre>", i)))
		deck.Labels = append(deck.Labels, "")
	}
	return deck
}

// stubLoader returns fixed decks per song key and can hold a load until released.
type stubLoader struct {
	mu    sync.Mutex
	decks map[string]models.Deck
	errs  map[string]error
	gates map[string]chan struct{}
}

func newStubLoader() *stubLoader {
	return &stubLoader{decks: map[string]models.Deck{}, errs: map[string]error{}, gates: map[string]chan struct{}{}}
}

func (l *stubLoader) hold(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	gate := make(chan struct{})
	l.gates[key] = gate
	return gate
}

func (l *stubLoader) Load(ctx context.Context, song models.Song) (models.Deck, error) {
	l.mu.Lock()
	gate := l.gates[song.Key()]
	deck, err := l.decks[song.Key()], l.errs[song.Key()]
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.Deck{}, ctx.Err()
		}
	}
	return deck, err
}
