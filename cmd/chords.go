package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/songdeck/internal/chords"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// ChordsTranspose prints a chord, or a line of chords, moved by --steps semitones.
func (r *Runner) ChordsTranspose(ctx context.Context, cmd *cli.Command) error {
	token := cmd.StringArg("chord")
	if token == "" {
		return fmt.Errorf("%w: chord", shared.ErrMissingArgument)
	}
	return r.writePlain("%s\n", chords.TransposeLine(token, cmd.Int("steps")))
}

// ChordsApply rewrites every chord in a song document.
func (r *Runner) ChordsApply(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: document path", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc string
	if cmd.Bool("strip") {
		doc = chords.StripChords(string(data))
	} else {
		doc = chords.TransposeDocument(string(data), cmd.Int("steps"))
	}

	output := cmd.String("output")
	if output == "" {
		return r.writePlain("%s", doc)
	}
	if err := os.WriteFile(output, []byte(doc), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	r.logger.Info("wrote document", "path", output)
	return nil
}
