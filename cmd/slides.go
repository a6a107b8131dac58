package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/songdeck/internal/formatter"
	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/desertthunder/songdeck/internal/slides"
	"github.com/urfave/cli/v3"
)

// readSong loads a song document from a file path, or from the catalog when source is not a file.
func (r *Runner) readSong(ctx context.Context, source string) (models.Song, string, error) {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		data, err := os.ReadFile(source)
		if err != nil {
			return models.Song{}, "", fmt.Errorf("failed to read %s: %w", source, err)
		}
		name := filepath.Base(source)
		song := models.Song{Title: strings.TrimSuffix(name, filepath.Ext(name)), FileName: name}
		return song, string(data), nil
	}

	song, err := r.findSong(ctx, source)
	if err != nil {
		return models.Song{}, "", err
	}
	doc, err := r.documentStore(ctx, nil).FetchDocument(ctx, song.Key())
	if err != nil {
		return models.Song{}, "", err
	}
	return song, doc, nil
}

// SlidesParse splits a song document into slides and prints them in the chosen format.
func (r *Runner) SlidesParse(ctx context.Context, cmd *cli.Command) error {
	source := cmd.StringArg("source")
	if source == "" {
		return fmt.Errorf("%w: document path or song key", shared.ErrMissingArgument)
	}

	song, doc, err := r.readSong(ctx, source)
	if err != nil {
		return err
	}

	deck := slides.ParseDeck(doc)
	r.logger.Debug("parsed document", "song", song.Title, "shape", deck.Shape, "slides", len(deck.Slides))
	if len(deck.Slides) == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNoSlides, source)
	}

	var out []byte
	switch format := cmd.String("format"); format {
	case "text", formatter.FormatText:
		out, err = formatter.ExportToText(song, deck)
	case "md", formatter.FormatMarkdown:
		out, err = formatter.ExportToMarkdown(song, deck)
	case formatter.FormatJSON:
		return r.writeJSON(formatter.NewDeckExport(song, deck), cmd.Bool("pretty"))
	case "table":
		formatter.DeckTable(r.output, deck)
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return fmt.Errorf("failed to format slides: %w", err)
	}
	return r.writePlain("%s", out)
}
