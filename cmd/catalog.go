package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/songdeck/internal/formatter"
	"github.com/desertthunder/songdeck/internal/services"
	"github.com/desertthunder/songdeck/internal/tasks"
	"github.com/urfave/cli/v3"
)

// CatalogList prints catalog songs as a table, JSON or CSV.
func (r *Runner) CatalogList(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.catalog.FetchCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch catalog: %w", err)
	}

	if cmd.Bool("categories") {
		categories := services.Categories(catalog.Songs)
		if cmd.Bool("json") {
			return r.writeJSON(categories, true)
		}
		return r.writePlain("%s\n", strings.Join(categories, "\n"))
	}

	songs := catalog.Songs
	if category := cmd.String("category"); category != "" {
		songs = services.FilterByCategory(songs, category)
	}
	if query := cmd.String("query"); query != "" {
		songs = services.SearchSongs(songs, query)
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(songs, true)
	case cmd.Bool("csv"):
		out, err := formatter.ExportCatalogCSV(songs)
		if err != nil {
			return fmt.Errorf("failed to export CSV: %w", err)
		}
		return r.writePlain("%s", out)
	}

	formatter.CatalogTable(r.output, songs)
	return nil
}

// CatalogExport writes every song's slides to files with a manifest.
func (r *Runner) CatalogExport(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.catalog.FetchCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch catalog: %w", err)
	}

	songs := catalog.Songs
	if category := cmd.String("category"); category != "" {
		songs = services.FilterByCategory(songs, category)
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		r.logger.Warn("document cache unavailable", "error", err)
	} else {
		defer db.Close()
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	exporter := tasks.NewDeckExporter(r.loader(r.documentStore(ctx, db)))
	result, err := exporter.Export(ctx, progress, songs, tasks.ExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainHeader("Export Complete")
	r.writePlain("Songs: %d\n", result.TotalSongs)
	r.writePlain("Exported: %d\n", result.SuccessfulExports)
	r.writePlain("Failed: %d\n", result.FailedExports)
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ %s: %v\n", res.Song.Title, res.Error)
		}
	}
	return nil
}
