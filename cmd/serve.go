package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/songdeck/internal/present"
	"github.com/desertthunder/songdeck/internal/repositories"
	"github.com/desertthunder/songdeck/internal/server"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the web presenter until interrupted.
//
// The server's presenter publishes to websocket audiences and to the database state slot, so
// audiences can attach over /ws/{channel}, poll /api/state/{channel}, or run the sql audience TUI.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := shared.WithLogger(r.logger, "component", "server")
	poll := r.config.Presentation.PollInterval()

	docs := r.documentStore(ctx, db)
	loader := r.loader(docs)

	handshake := present.NewHandshakeTransport(shared.WithLogger(r.logger, "component", "handshake"))
	states := present.NewSQLStore(repositories.NewStateRepository(db), poll, logger)
	transport := present.NewFanoutTransport(handshake, present.NewStoreTransport(states))

	opts := []present.PresenterOption{present.WithPresenterLogger(shared.WithLogger(r.logger, "component", "presenter"))}
	if r.config.Presentation.Channel != "" {
		opts = append(opts, present.WithChannelKey(r.config.Presentation.Channel))
	}
	presenter := present.NewPresenter(transport, loader, opts...)
	defer presenter.Close()

	srv := server.New(server.Deps{
		Catalog:      r.catalog,
		Documents:    docs,
		Loader:       loader,
		Presenter:    presenter,
		States:       states,
		Handshake:    handshake,
		Users:        repositories.NewUserRepository(db),
		Saved:        repositories.NewSavedSongRepository(db),
		Daily:        repositories.NewDailySongRepository(db),
		PollInterval: poll,
		Logger:       logger,
	})

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	if cmd.Bool("open") {
		url := fmt.Sprintf("http://%s/", addr)
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("failed to open browser", "url", url, "error", err)
		}
	}

	return srv.ListenAndServe(ctx, addr)
}
