package present

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdeck/internal/shared"
)

// StateRecords is the persistence behind a [SQLStore].
//
// Save stores payload as the latest value of channel and returns its new version. Latest returns
// [shared.ErrNotFound] for an unknown channel.
type StateRecords interface {
	Save(ctx context.Context, channel string, payload []byte) (int64, error)
	Latest(ctx context.Context, channel string) ([]byte, int64, error)
}

// SQLStore is a [StateStore] over a database table. Watchers poll by version.
type SQLStore struct {
	records  StateRecords
	interval time.Duration
	log      *log.Logger
}

// NewSQLStore creates a [SQLStore] polling every interval (500ms when zero).
func NewSQLStore(records StateRecords, interval time.Duration, logger *log.Logger) *SQLStore {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &SQLStore{records: records, interval: interval, log: logger}
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.records.Save(ctx, key, value)
	return err
}

func (s *SQLStore) Get(ctx context.Context, key string) (Record, error) {
	value, version, err := s.records.Latest(ctx, key)
	if err != nil {
		return Record{}, err
	}
	return Record{Value: value, Version: version}, nil
}

func (s *SQLStore) Watch(ctx context.Context, key string, after int64) (<-chan Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(chan Record, 1)
	go func() {
		defer close(out)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		last := after
		for {
			rec, err := s.Get(ctx, key)
			switch {
			case err == nil && rec.Version > last:
				last = rec.Version
				latest(out, rec)
			case err != nil && !errors.Is(err, shared.ErrNotFound) && ctx.Err() == nil:
				s.log.Debug("state poll failed", "channel", key, "err", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out, nil
}
