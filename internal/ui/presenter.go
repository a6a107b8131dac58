package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/present"
	"github.com/desertthunder/songdeck/internal/services"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/desertthunder/songdeck/internal/slides"
)

// ViewState represents the current view in the presenter TUI.
type ViewState int

const (
	SongListView ViewState = iota
	SlideView
)

// PresenterModel is the presenter TUI: a song list that opens into a slide view driving a
// [present.Presenter].
type PresenterModel struct {
	ctx       context.Context
	view      ViewState
	catalog   services.CatalogSource
	presenter *present.Presenter
	initial   string
	width     int
	height    int
	songList  list.Model
	songs     []models.Song
	loading   string
	err       error
	help      help.Model
	keys      keyMap
}

// NewPresenterModel creates a presenter TUI. When initial is set, that song (key or title) is
// selected as soon as the catalog loads.
func NewPresenterModel(ctx context.Context, catalog services.CatalogSource, presenter *present.Presenter, initial string) *PresenterModel {
	songList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	songList.Title = "Songs"
	songList.Filter = fuzzyFilter

	return &PresenterModel{
		ctx:       ctx,
		view:      SongListView,
		catalog:   catalog,
		presenter: presenter,
		initial:   initial,
		songList:  songList,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init fetches the catalog.
func (m *PresenterModel) Init() tea.Cmd {
	return m.fetchCatalog()
}

// Update handles incoming messages and updates the model state.
func (m *PresenterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.songList.SetSize(msg.Width-4, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case SongListView:
			return m.handleSongListKeys(msg)
		case SlideView:
			return m.handleSlideKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

func (m *PresenterModel) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCatalogFetched:
		res := msg.data.(catalogResult)
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		m.songs = res.songs
		cmd := m.songList.SetItems(songItems(res.songs))
		if m.initial != "" {
			song, err := services.FindSong(models.Catalog{Songs: res.songs}, m.initial)
			m.initial = ""
			if err != nil {
				m.err = err
				return m, cmd
			}
			return m, tea.Batch(cmd, m.selectSong(song))
		}
		return m, cmd

	case MsgSongSelected:
		res := msg.data.(selectResult)
		if errors.Is(res.err, shared.ErrStaleLoad) {
			return m, nil
		}
		m.loading = ""
		m.err = res.err
		if res.err == nil {
			m.view = SlideView
		}
		return m, nil
	}
	return m, nil
}

func (m *PresenterModel) handleSongListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.songList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.songList.SelectedItem().(songItem); ok {
				return m, m.selectSong(item.song)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

func (m *PresenterModel) handleSlideKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = SongListView
		return m, nil
	case key.Matches(msg, m.keys.next):
		_, err = m.presenter.Next(m.ctx)
	case key.Matches(msg, m.keys.prev):
		_, err = m.presenter.Prev(m.ctx)
	case key.Matches(msg, m.keys.first):
		_, err = m.presenter.SetIndex(m.ctx, 0)
	case key.Matches(msg, m.keys.last):
		_, err = m.presenter.SetIndex(m.ctx, len(m.presenter.State().Slides)-1)
	}
	m.err = err
	return m, nil
}

func (m *PresenterModel) selectSong(song models.Song) tea.Cmd {
	m.loading = song.Title
	m.err = nil
	return func() tea.Msg {
		return songSelectedMsg(song, m.presenter.Select(m.ctx, song))
	}
}

func (m *PresenterModel) fetchCatalog() tea.Cmd {
	return func() tea.Msg {
		catalog, err := m.catalog.FetchCatalog(m.ctx)
		return catalogFetchedMsg(catalog.Songs, err)
	}
}

// View renders the UI based on the current view state.
func (m *PresenterModel) View() string {
	switch m.view {
	case SlideView:
		return m.renderSlide()
	default:
		return m.renderSongList()
	}
}

func (m *PresenterModel) renderSongList() string {
	status := ""
	switch {
	case m.loading != "":
		status = styles.warn.Render(fmt.Sprintf("Loading %s...", m.loading))
	case m.err != nil:
		status = styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", m.songList.View(), status, helpView)
}

func (m *PresenterModel) renderSlide() string {
	state := m.presenter.State()
	deck := m.presenter.Deck()
	current, _ := state.Current()

	title := styles.title.Render(state.Song)
	if ch := m.presenter.Key(); ch != "" {
		title += styles.help.Render("  channel " + ch)
	}

	label := ""
	if l := deck.Label(state.CurrentSlide); l != "" {
		label = styles.label.Render(l) + "\n"
	}

	body := styles.slide.Render(slides.PlainText(current))
	position := styles.ok.Render(fmt.Sprintf("%d/%d", state.CurrentSlide+1, len(state.Slides)))

	status := ""
	if m.err != nil {
		status = "\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.prev, m.keys.next, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s%s\n%s%s\n\n%s", title, label, body, position, status, helpView)
}
