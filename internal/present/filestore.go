package present

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
)

// FileStore keeps one JSON file per key in a directory shared by presenter and audience processes.
//
// Writes go to a temp file that is renamed over the slot, so readers never observe a partial
// state. Watchers are woken by fsnotify and also poll, which covers filesystems where change
// events are unreliable.
type FileStore struct {
	dir      string
	interval time.Duration
	log      *log.Logger
	mu       sync.Mutex
}

type fileRecord struct {
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Value     json.RawMessage `json:"value"`
}

// FileStoreOption configures a [FileStore].
type FileStoreOption func(*FileStore)

// WithPollInterval sets how often watchers re-read the slot without a change event.
func WithPollInterval(d time.Duration) FileStoreOption {
	return func(s *FileStore) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithFileStoreLogger sets the logger used for watcher errors.
func WithFileStoreLogger(l *log.Logger) FileStoreOption {
	return func(s *FileStore) { s.log = l }
}

// NewFileStore creates dir if needed and returns a [FileStore] rooted there.
func NewFileStore(dir string, opts ...FileStoreOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &FileStore{dir: dir, interval: 500 * time.Millisecond, log: discardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the slot file for key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, slotName(key)+".json")
}

func slotName(key string) string {
	if name := shared.Slugify(key); name != "" {
		return name
	}
	return "default"
}

// Put writes value as the new slot content. value must be JSON.
func (s *FileStore) Put(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("%w: state value is not JSON", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(key)
	current, err := s.read(path)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	data, err := json.Marshal(fileRecord{Version: current.Version + 1, UpdatedAt: time.Now().UTC(), Value: value})
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return writeAtomic(path, data)
}

func (s *FileStore) Get(_ context.Context, key string) (Record, error) {
	return s.read(s.Path(key))
}

func (s *FileStore) read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, fmt.Errorf("%w: %s", shared.ErrNotFound, filepath.Base(path))
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read state: %w", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode state file %s: %w", filepath.Base(path), err)
	}
	return Record{Value: rec.Value, Version: rec.Version}, nil
}

// writeAtomic writes data to a temp file in the same directory, syncs it and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Watch emits the slot whenever its version moves past after.
func (s *FileStore) Watch(ctx context.Context, key string, after int64) (<-chan Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(key)
	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		if err = fsw.Add(s.dir); err != nil {
			fsw.Close()
		}
	}
	if err != nil {
		s.log.Warn("file watch unavailable, polling only", "dir", s.dir, "err", err)
		fsw = nil
	}

	out := make(chan Record, 1)
	go s.watch(ctx, fsw, path, after, out)
	return out, nil
}

func (s *FileStore) watch(ctx context.Context, fsw *fsnotify.Watcher, path string, last int64, out chan Record) {
	defer close(out)

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if fsw != nil {
		defer fsw.Close()
		events, errs = fsw.Events, fsw.Errors
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	check := func() {
		rec, err := s.read(path)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				s.log.Debug("state read failed", "path", path, "err", err)
			}
			return
		}
		if rec.Version > last {
			last = rec.Version
			latest(out, rec)
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Base(event.Name) == filepath.Base(path) && event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				check()
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.log.Warn("file watch error", "err", err)
		case <-ticker.C:
			check()
		}
	}
}

// Claim takes an exclusive lock on key so only one presenter writes the slot.
//
// It returns [shared.ErrLocked] when another process holds the lock.
func (s *FileStore) Claim(key string) (func() error, error) {
	lock := flock.New(filepath.Join(s.dir, slotName(key)+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock channel %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrLocked, key)
	}
	return lock.Unlock, nil
}
