// Package ui implements the terminal presenter and audience using bubbletea's Elm architecture.
//
// The presenter TUI ([PresenterModel]) has two views:
//  1. [SongListView] : Browse the catalog with fuzzy filtering and pick a song
//  2. [SlideView] : Step through the song's slides; every move is published to the audience channel
//
// The audience TUI ([AudienceModel]) shows the waiting placeholder until the first state arrives, then
// renders the current slide. Updates arrive from a [present.Audience] render callback and reach the
// bubbletea loop as messages, keeping only the newest view.
//
// Both models implement bubbletea/Elm's standard Init/Update/View pattern and receive results via the Msg union type.
// Keyboard navigation uses arrow or vim-style bindings (h/l, g/G, enter, esc, q) with help rendered by
// charmbracelet/bubbles/help.
package ui
