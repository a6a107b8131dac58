package main

import (
	"context"
	"fmt"
	"net/url"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songdeck/internal/present"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/desertthunder/songdeck/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/songdeck-tui.log"

// useFileLogger redirects logs to a file to avoid interfering with TUI rendering.
func (r *Runner) useFileLogger() error {
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)
	return nil
}

func (r *Runner) transportName(cmd *cli.Command) string {
	if name := cmd.String("transport"); name != "" {
		return name
	}
	return r.config.Presentation.Transport
}

// Present launches the presenter TUI publishing on the selected transport.
func (r *Runner) Present(ctx context.Context, cmd *cli.Command) error {
	name := r.transportName(cmd)
	if name == TransportWebsocket {
		return fmt.Errorf("%w: the ws transport is served by 'songdeck serve'", shared.ErrInvalidFlag)
	}

	if err := r.useFileLogger(); err != nil {
		return err
	}

	transport, closeTransport, err := r.transport(ctx, name)
	if err != nil {
		return err
	}
	defer closeTransport()

	var docs = r.documents
	if docs == nil {
		db, err := r.openDatabase(ctx)
		if err != nil {
			r.logger.Warn("document cache unavailable", "error", err)
		} else {
			defer db.Close()
		}
		docs = r.documentStore(ctx, db)
	}

	opts := []present.PresenterOption{present.WithPresenterLogger(shared.WithLogger(r.logger, "component", "presenter"))}
	channel := cmd.String("channel")
	if channel == "" {
		channel = r.config.Presentation.Channel
	}
	if channel != "" {
		opts = append(opts, present.WithChannelKey(channel))
	}
	if cmd.Bool("index-only") {
		if name != TransportBroadcast {
			return fmt.Errorf("%w: --index-only needs the broadcast transport", shared.ErrInvalidFlag)
		}
		opts = append(opts, present.WithPublishMode(present.PublishIndex))
	}

	presenter := present.NewPresenter(transport, r.loader(docs), opts...)
	defer presenter.Close()

	model := ui.NewPresenterModel(ctx, r.catalog, presenter, cmd.String("song"))
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// Audience launches the audience TUI following one channel.
func (r *Runner) Audience(ctx context.Context, cmd *cli.Command) error {
	name := r.transportName(cmd)
	channel := cmd.String("channel")
	if channel == "" {
		channel = r.config.Presentation.Channel
	}
	if channel == "" && cmd.String("url") == "" {
		return fmt.Errorf("%w: --channel", shared.ErrMissingArgument)
	}
	if name == TransportBroadcast {
		return fmt.Errorf("%w: the broadcast transport only reaches audiences in the presenter's process", shared.ErrInvalidFlag)
	}

	if err := r.useFileLogger(); err != nil {
		return err
	}

	sub, closeSub, err := r.subscribe(ctx, name, channel, cmd.String("url"))
	if err != nil {
		return err
	}
	defer closeSub()

	model := ui.NewAudienceModel(ctx, channel, sub,
		present.WithAudienceLogger(shared.WithLogger(r.logger, "component", "audience", "channel", channel)),
	)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// subscribe opens an audience subscription on the named transport.
func (r *Runner) subscribe(ctx context.Context, name, channel, wsURL string) (present.Subscription, func() error, error) {
	if name == TransportWebsocket {
		if wsURL == "" {
			wsURL = (&url.URL{Scheme: "ws", Host: r.config.Server.Addr(), Path: "/ws/" + channel}).String()
		}
		r.logger.Info("dialing presenter", "url", wsURL)
		sub, err := present.DialAudience(ctx, wsURL)
		if err != nil {
			return nil, nil, err
		}
		return sub, func() error { return nil }, nil
	}

	transport, closeTransport, err := r.transport(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	sub, err := transport.Subscribe(ctx, channel)
	if err != nil {
		closeTransport()
		return nil, nil, err
	}
	return sub, closeTransport, nil
}
