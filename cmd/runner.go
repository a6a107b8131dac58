package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/present"
	"github.com/desertthunder/songdeck/internal/repositories"
	"github.com/desertthunder/songdeck/internal/services"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/desertthunder/songdeck/internal/tasks"
	"github.com/urfave/cli/v3"
)

// documentCacheTTL is how long a stored song document is served before it is fetched again.
const documentCacheTTL = 24 * time.Hour

// Transport names accepted by --transport.
const (
	TransportBroadcast = "broadcast"
	TransportFile      = "file"
	TransportSQL       = "sql"
	TransportWebsocket = "ws"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.CatalogSource
	documents  services.DocumentStore
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Catalog and Documents default to the sources configured by Config; Documents is then backed by
// the database cache when one can be opened.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.CatalogSource
	Documents  services.DocumentStore
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Catalog == nil {
		opts.Catalog = services.NewCatalogSource(context.Background(), opts.Config.Catalog)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		documents:  opts.Documents,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, presentCommand, audienceCommand,
		slidesCommand, chordsCommand, catalogCommand, dailyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger, e.g. with a file logger while a TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// openDatabase opens the configured database and applies pending migrations.
func (r *Runner) openDatabase(ctx context.Context) (*sql.DB, error) {
	db, err := shared.NewDatabaseContext(ctx, r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrationsContext(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// documentStore returns the document store, cached in db when db is not nil.
func (r *Runner) documentStore(ctx context.Context, db *sql.DB) services.DocumentStore {
	if r.documents != nil {
		return r.documents
	}

	var cache services.DocumentCache
	if db != nil {
		cache = repositories.NewDocumentCacheAdapter(repositories.NewDocumentRepository(db))
	}
	return services.NewDocumentStore(ctx, r.config.Catalog, cache, documentCacheTTL,
		services.WithCacheLogger(shared.WithLogger(r.logger, "component", "documents")),
	)
}

// loader builds a song loader over docs.
func (r *Runner) loader(docs services.DocumentStore, opts ...tasks.LoaderOption) *tasks.SongLoader {
	opts = append([]tasks.LoaderOption{tasks.WithLoaderLogger(shared.WithLogger(r.logger, "component", "loader"))}, opts...)
	return tasks.NewSongLoader(docs, opts...)
}

// transport builds the named presentation transport. The returned closer releases anything the
// transport opened.
func (r *Runner) transport(ctx context.Context, name string) (present.Transport, func() error, error) {
	logger := shared.WithLogger(r.logger, "component", "transport", "transport", name)
	noop := func() error { return nil }
	poll := r.config.Presentation.PollInterval()

	switch name {
	case TransportBroadcast:
		return present.NewBroadcastTransport(present.WithBroadcastLogger(logger)), noop, nil

	case TransportFile:
		store, err := present.NewFileStore(
			r.config.Presentation.StateDir,
			present.WithPollInterval(poll),
			present.WithFileStoreLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return present.NewStoreTransport(store, present.WithStoreLogger(logger)), noop, nil

	case TransportSQL:
		db, err := r.openDatabase(ctx)
		if err != nil {
			return nil, nil, err
		}
		store := present.NewSQLStore(repositories.NewStateRepository(db), poll, logger)
		return present.NewStoreTransport(store, present.WithStoreLogger(logger)), db.Close, nil
	}

	return nil, nil, fmt.Errorf("%w: %q", shared.ErrUnknownTransport, name)
}

// findSong resolves a key or title against the catalog.
func (r *Runner) findSong(ctx context.Context, key string) (models.Song, error) {
	catalog, err := r.catalog.FetchCatalog(ctx)
	if err != nil {
		return models.Song{}, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	return services.FindSong(catalog, key)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
