package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/songdeck/internal/formatter"
	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
	"golang.org/x/time/rate"
)

// ExportOpts contains configuration for bulk deck exports.
type ExportOpts struct {
	Format     string  // Export format: json, markdown, txt
	OutputDir  string  // Base output directory (default: songdeck_export_{epoch})
	NumWorkers int     // Concurrent writers (default: 5, max 10)
	RateLimit  float64 // Document fetches per second (default: 5)
}

// SongExportResult is the outcome of exporting one song.
type SongExportResult struct {
	Song    models.Song
	Slides  int
	Files   []string
	Success bool
	Error   error
}

// ExportResult summarizes a bulk export.
type ExportResult struct {
	TotalSongs        int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []SongExportResult
}

type exportJob struct {
	song models.Song
	deck models.Deck
}

// DeckExporter writes decks for many songs with a rate-limited fetcher feeding a worker pool.
type DeckExporter struct {
	loader *SongLoader
}

// NewDeckExporter creates a [DeckExporter] loading songs through loader.
func NewDeckExporter(loader *SongLoader) *DeckExporter {
	return &DeckExporter{loader: loader}
}

// Export loads every song and writes its deck to opts.OutputDir.
//
// Songs that fail to load or write are recorded in the result and the manifest; they do not stop the
// export. Cancelling ctx stops scheduling new songs.
func (e *DeckExporter) Export(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	songs []models.Song,
	opts ExportOpts,
) (*ExportResult, error) {
	if e.loader == nil {
		return nil, fmt.Errorf("%w: loader not initialized", shared.ErrServiceUnavailable)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("songdeck_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		TotalSongs:      len(songs),
		OutputDirectory: opts.OutputDir,
		Results:         make([]SongExportResult, 0, len(songs)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan exportJob, len(songs))
	results := make(chan SongExportResult, len(songs))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(&wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, song := range songs {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			sendProgress(progress, exportingDeckUpdate(i+1, len(songs), song.Title))
			deck, err := e.loader.LoadWithProgress(ctx, nil, song)
			if err != nil {
				results <- SongExportResult{Song: song, Error: fmt.Errorf("failed to load song: %w", err)}
				continue
			}

			jobs <- exportJob{song: song, deck: deck}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(progress, exportCompletedUpdate(completed, len(songs), res.Song.Title, res.Slides))
		} else {
			result.FailedExports++
			sendProgress(progress, exportFailedUpdate(completed, len(songs), res.Song.Title, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteExportManifest(manifest(result, opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export interrupted: %w", err)
	}
	return result, nil
}

// exportWorker writes decks from the jobs channel until it is closed.
func (e *DeckExporter) exportWorker(
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- SongExportResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		res := SongExportResult{Song: job.song, Slides: len(job.deck.Slides)}

		path, err := formatter.WriteDeckExport(job.song, job.deck, opts.Format, opts.OutputDir)
		if err != nil {
			res.Error = err
		} else {
			res.Files = []string{path}
			res.Success = true
		}
		results <- res
	}
}

func manifest(result *ExportResult, format string) formatter.Manifest {
	m := formatter.Manifest{
		GeneratedAt:     time.Now(),
		Format:          format,
		OutputDirectory: result.OutputDirectory,
		Total:           result.TotalSongs,
		Successful:      result.SuccessfulExports,
		Failed:          result.FailedExports,
		Entries:         make([]formatter.ManifestEntry, 0, len(result.Results)),
	}
	for _, r := range result.Results {
		entry := formatter.ManifestEntry{
			Key:     r.Song.Key(),
			Title:   r.Song.Title,
			Success: r.Success,
			Slides:  r.Slides,
			Files:   r.Files,
		}
		if r.Error != nil {
			entry.Error = r.Error.Error()
		}
		m.Entries = append(m.Entries, entry)
	}
	return m
}
