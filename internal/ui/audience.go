package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songdeck/internal/present"
	"github.com/desertthunder/songdeck/internal/slides"
)

// AudienceModel is the audience TUI. It renders the newest [present.View] of an
// [present.Audience] reading from a subscription.
type AudienceModel struct {
	ctx      context.Context
	sub      present.Subscription
	audience *present.Audience
	views    chan present.View
	current  present.View
	channel  string
	width    int
	height   int
	done     bool
	err      error
	keys     keyMap
}

// NewAudienceModel creates an audience TUI for sub. Extra options are passed to the
// [present.Audience].
func NewAudienceModel(ctx context.Context, channel string, sub present.Subscription, opts ...present.AudienceOption) *AudienceModel {
	m := &AudienceModel{
		ctx:     ctx,
		sub:     sub,
		views:   make(chan present.View, 1),
		channel: channel,
		keys:    newKeyMap(),
	}
	m.audience = present.NewAudience(append(opts, present.WithRender(m.push))...)
	m.current = m.audience.Current()
	return m
}

// push keeps only the newest view for the UI goroutine.
func (m *AudienceModel) push(v present.View) {
	select {
	case <-m.views:
	default:
	}
	m.views <- v
}

// Audience returns the underlying audience.
func (m *AudienceModel) Audience() *present.Audience { return m.audience }

// Init starts consuming the subscription.
func (m *AudienceModel) Init() tea.Cmd {
	return tea.Batch(m.run(), m.waitForView())
}

func (m *AudienceModel) run() tea.Cmd {
	return func() tea.Msg {
		return audienceDoneMsg(m.audience.Run(m.ctx, m.sub))
	}
}

func (m *AudienceModel) waitForView() tea.Cmd {
	return func() tea.Msg {
		select {
		case v := <-m.views:
			return viewUpdatedMsg(v)
		case <-m.ctx.Done():
			return audienceDoneMsg(m.ctx.Err())
		}
	}
}

// Update handles incoming messages and updates the model state.
func (m *AudienceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}

	case Msg:
		switch msg.kind {
		case MsgViewUpdated:
			m.current = msg.data.(present.View)
			if m.done {
				return m, nil
			}
			return m, m.waitForView()
		case MsgAudienceDone:
			m.done = true
			if err, _ := msg.data.(error); err != nil && m.ctx.Err() == nil {
				m.err = err
			}
		}
	}
	return m, nil
}

// View renders the current slide, or the waiting placeholder.
func (m *AudienceModel) View() string {
	if m.current.Waiting {
		waiting := styles.help.Render(present.Placeholder)
		if m.channel != "" {
			waiting += "\n" + styles.label.Render(m.channel)
		}
		return center(m.width, m.height, waiting)
	}

	body := styles.slide.Render(slides.PlainText(m.current.Slide))
	footer := styles.help.Render(fmt.Sprintf("%s · %d/%d", m.current.Song, m.current.Index+1, m.current.Total))
	if m.done {
		footer += styles.warn.Render("  (disconnected)")
	}
	if m.err != nil {
		footer += "\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}
	return center(m.width, m.height, body+"\n"+footer)
}
