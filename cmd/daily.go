package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/repositories"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/urfave/cli/v3"
)

type dailyEntry struct {
	Position int    `json:"position"`
	Key      string `json:"key"`
	Title    string `json:"title"`
}

func dailyDate(cmd *cli.Command) (string, error) {
	day := cmd.String("date")
	if _, err := time.Parse(models.DayLayout, day); err != nil {
		return "", fmt.Errorf("%w: --date %q must be YYYY-MM-DD", shared.ErrInvalidFlag, day)
	}
	return day, nil
}

// DailyGet prints a day's set list.
func (r *Runner) DailyGet(ctx context.Context, cmd *cli.Command) error {
	day, err := dailyDate(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	songs, err := repositories.NewDailySongRepository(db).ListByDay(day)
	if err != nil {
		return fmt.Errorf("failed to list daily songs: %w", err)
	}

	if cmd.Bool("json") {
		entries := make([]dailyEntry, len(songs))
		for i, s := range songs {
			entries[i] = dailyEntry{Position: s.Position(), Key: s.SongKey(), Title: s.Title()}
		}
		return r.writeJSON(entries, true)
	}

	if len(songs) == 0 {
		return r.writePlain("No songs for %s\n", day)
	}
	r.writePlain("Songs for %s:\n\n", day)
	for _, s := range songs {
		r.writePlain("%d. %s (%s)\n", s.Position()+1, s.Title(), s.SongKey())
	}
	return nil
}

// DailySet replaces a day's set list with the songs named in the arguments.
func (r *Runner) DailySet(ctx context.Context, cmd *cli.Command) error {
	day, err := dailyDate(cmd)
	if err != nil {
		return err
	}

	keys := cmd.Args().Slice()
	if len(keys) == 0 {
		return fmt.Errorf("%w: at least one song", shared.ErrMissingArgument)
	}

	songs := make([]models.Song, 0, len(keys))
	for _, key := range keys {
		song, err := r.findSong(ctx, key)
		if err != nil {
			return err
		}
		songs = append(songs, song)
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := repositories.NewDailySongRepository(db).Replace(day, songs)
	if err != nil {
		return fmt.Errorf("failed to set daily songs: %w", err)
	}

	r.logger.Info("daily set list replaced", "day", day, "songs", len(entries))
	r.writePlain("✓ %d songs set for %s\n", len(entries), day)
	return nil
}
