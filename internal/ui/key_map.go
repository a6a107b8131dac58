package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUIs.
type keyMap struct {
	enter key.Binding
	back  key.Binding
	next  key.Binding
	prev  key.Binding
	first key.Binding
	last  key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "present")),
		back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "songs")),
		next:  key.NewBinding(key.WithKeys("right", "l", " "), key.WithHelp("→/l", "next")),
		prev:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev")),
		first: key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first")),
		last:  key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last")),
		quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.enter, k.back},
		{k.prev, k.next, k.first, k.last},
		{k.quit},
	}
}
