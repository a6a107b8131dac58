package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/present"
	"github.com/desertthunder/songdeck/internal/shared"
	tu "github.com/desertthunder/songdeck/internal/testing"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain executes cmd and every command it batches, returning the produced messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, drain(c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

// feed runs cmd and applies its messages, following the commands they return.
func feed(m tea.Model, cmd tea.Cmd) {
	for _, msg := range drain(cmd) {
		if _, ok := msg.(Msg); !ok {
			continue
		}
		_, next := m.Update(msg)
		feed(m, next)
	}
}

func loaderFor(decks map[string]models.Deck) present.Loader {
	return present.LoaderFunc(func(_ context.Context, song models.Song) (models.Deck, error) {
		deck, ok := decks[song.Key()]
		if !ok {
			return models.Deck{}, shared.ErrDocumentNotFound
		}
		return deck, nil
	})
}

func newTestPresenterModel(t *testing.T, catalog *tu.StaticCatalog, initial string) (*PresenterModel, *present.Presenter) {
	t.Helper()

	decks := map[string]models.Deck{
		"aboveallpowers": {
			Slides: []models.Slide{"Above all powers", "Above all kings", "Crucified"},
			Labels: []string{"Verse 1", "Verse 1", "Chorus"},
		},
	}
	p := present.NewPresenter(present.NewBroadcastTransport(), loaderFor(decks))
	t.Cleanup(func() { p.Close() })

	m := NewPresenterModel(context.Background(), catalog, p, initial)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, p
}

func TestPresenterModel(t *testing.T) {
	catalog := &tu.StaticCatalog{Catalog: models.Catalog{Songs: tu.SampleSongs()}}

	t.Run("loads catalog into the song list", func(t *testing.T) {
		m, _ := newTestPresenterModel(t, catalog, "")
		feed(m, m.Init())

		if len(m.songList.Items()) != 4 {
			t.Errorf("expected 4 songs, got %d", len(m.songList.Items()))
		}
		if !strings.Contains(m.View(), "Above All Powers") {
			t.Error("expected song title in view")
		}
	})

	t.Run("enter selects and navigation moves the presenter", func(t *testing.T) {
		m, p := newTestPresenterModel(t, catalog, "")
		feed(m, m.Init())

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if !strings.Contains(m.View(), "Loading Above All Powers") {
			t.Errorf("expected loading status, got %q", m.View())
		}
		feed(m, cmd)

		if m.view != SlideView {
			t.Fatalf("expected slide view, got %v (err %v)", m.view, m.err)
		}
		if !strings.Contains(m.View(), "1/3") || !strings.Contains(m.View(), "Verse 1") {
			t.Errorf("unexpected slide view %q", m.View())
		}

		m.Update(tea.KeyMsg{Type: tea.KeyRight})
		if got := p.State().CurrentSlide; got != 1 {
			t.Errorf("expected slide 1, got %d", got)
		}

		m.Update(runes("G"))
		if got := p.State().CurrentSlide; got != 2 {
			t.Errorf("expected last slide, got %d", got)
		}
		if !strings.Contains(m.View(), "Chorus") {
			t.Errorf("expected chorus label, got %q", m.View())
		}

		m.Update(runes("h"))
		m.Update(runes("g"))
		if got := p.State().CurrentSlide; got != 0 {
			t.Errorf("expected first slide, got %d", got)
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != SongListView {
			t.Errorf("expected song list after esc, got %v", m.view)
		}
	})

	t.Run("initial song is selected after catalog loads", func(t *testing.T) {
		m, p := newTestPresenterModel(t, catalog, "Above All Powers")
		feed(m, m.Init())

		if m.view != SlideView || p.Status() != present.StatusReady {
			t.Errorf("expected initial song presented, view %v status %v", m.view, p.Status())
		}
	})

	t.Run("unknown initial song shows an error", func(t *testing.T) {
		m, _ := newTestPresenterModel(t, catalog, "nope")
		feed(m, m.Init())

		if !errors.Is(m.err, shared.ErrSongNotFound) {
			t.Errorf("expected song not found, got %v", m.err)
		}
	})

	t.Run("failed load stays on the list", func(t *testing.T) {
		m, p := newTestPresenterModel(t, catalog, "")
		feed(m, m.Init())

		m.Update(tea.KeyMsg{Type: tea.KeyDown})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		feed(m, cmd)

		if m.view != SongListView || p.Status() != present.StatusError {
			t.Errorf("expected error on list, view %v status %v", m.view, p.Status())
		}
		if !strings.Contains(m.View(), "Error") {
			t.Errorf("expected error in view, got %q", m.View())
		}
	})

	t.Run("catalog failure", func(t *testing.T) {
		m, _ := newTestPresenterModel(t, &tu.StaticCatalog{Err: shared.ErrFetchFailed}, "")
		feed(m, m.Init())

		if !strings.Contains(m.View(), "fetch failed") {
			t.Errorf("expected fetch error, got %q", m.View())
		}
	})

	t.Run("q quits", func(t *testing.T) {
		m, _ := newTestPresenterModel(t, catalog, "")
		_, cmd := m.Update(runes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestAudienceModel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport := present.NewBroadcastTransport()
	sub, err := transport.Subscribe(ctx, "aboveallpowers")
	if err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}

	m := NewAudienceModel(ctx, "aboveallpowers", sub)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	t.Run("waits for the presenter", func(t *testing.T) {
		if !strings.Contains(m.View(), present.Placeholder) {
			t.Errorf("expected placeholder, got %q", m.View())
		}
	})

	done := make(chan tea.Msg, 1)
	go func() { done <- m.run()() }()

	t.Run("renders published slides", func(t *testing.T) {
		state := models.NewPresentationState("Above All Powers", []models.Slide{"Above all powers", "Crucified"})
		state.CurrentSlide = 1
		payload, err := models.StateEnvelope(state).Encode()
		if err != nil {
			t.Fatalf("failed to encode: %v", err)
		}
		if err := transport.Publish(ctx, "aboveallpowers", payload); err != nil {
			t.Fatalf("failed to publish: %v", err)
		}

		m.Update(m.waitForView()())
		if view := m.View(); !strings.Contains(view, "Crucified") || !strings.Contains(view, "2/2") {
			t.Errorf("unexpected view %q", view)
		}
		if m.Audience().Status() != present.Displaying {
			t.Errorf("expected displaying status, got %v", m.Audience().Status())
		}
	})

	t.Run("marks disconnection", func(t *testing.T) {
		sub.Close()
		select {
		case msg := <-done:
			m.Update(msg)
		case <-ctx.Done():
			t.Fatal("audience did not stop")
		}
		if !strings.Contains(m.View(), "disconnected") {
			t.Errorf("expected disconnected marker, got %q", m.View())
		}
	})
}
