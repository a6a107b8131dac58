package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/present"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUIs (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCatalogFetched MsgKind = iota
	MsgSongSelected
	MsgViewUpdated
	MsgAudienceDone
)

type catalogResult struct {
	songs []models.Song
	err   error
}

type selectResult struct {
	song models.Song
	err  error
}

// catalogFetchedMsg is the constructor for [MsgCatalogFetched]
func catalogFetchedMsg(songs []models.Song, err error) Msg {
	return Msg{kind: MsgCatalogFetched, data: catalogResult{songs, err}}
}

// songSelectedMsg is the constructor for [MsgSongSelected]
func songSelectedMsg(song models.Song, err error) Msg {
	return Msg{kind: MsgSongSelected, data: selectResult{song, err}}
}

// viewUpdatedMsg is the constructor for [MsgViewUpdated]
func viewUpdatedMsg(v present.View) Msg {
	return Msg{kind: MsgViewUpdated, data: v}
}

// audienceDoneMsg is the constructor for [MsgAudienceDone]
func audienceDoneMsg(err error) Msg {
	return Msg{kind: MsgAudienceDone, data: err}
}
