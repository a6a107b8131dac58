package present

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdeck/internal/shared"
)

// Record is the value held in a state slot. Version increases with every write to the slot.
type Record struct {
	Value   []byte
	Version int64
}

// StateStore is a latest-value key/value store with change notification.
//
// Get returns [shared.ErrNotFound] for a slot that was never written. Watch emits records with
// a version greater than after, in increasing version order, until ctx ends. Intermediate
// versions may be skipped; the newest is always delivered.
type StateStore interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) (Record, error)
	Watch(ctx context.Context, key string, after int64) (<-chan Record, error)
}

// latest forwards records to out, replacing an undelivered record with a newer one.
func latest(out chan Record, rec Record) {
	for {
		select {
		case out <- rec:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}

// MemoryStore is an in-process [StateStore].
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]Record
	watchers map[string]map[chan Record]struct{}
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]Record),
		watchers: make(map[string]map[chan Record]struct{}),
	}
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{Value: clone(value), Version: s.records[key].Version + 1}
	s.records[key] = rec
	for ch := range s.watchers[key] {
		latest(ch, rec)
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return Record{}, fmt.Errorf("%w: state %s", shared.ErrNotFound, key)
	}
	return rec, nil
}

func (s *MemoryStore) Watch(ctx context.Context, key string, after int64) (<-chan Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan Record, 1)

	s.mu.Lock()
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[chan Record]struct{})
	}
	s.watchers[key][ch] = struct{}{}
	if rec, ok := s.records[key]; ok && rec.Version > after {
		latest(ch, rec)
	}
	s.mu.Unlock()

	context.AfterFunc(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers[key], ch)
		close(ch)
	})
	return ch, nil
}

// StoreTransport publishes by writing the slot and subscribes by watching it.
//
// A subscriber first receives the value already in the slot, if any, so an audience opened after
// the presenter moved still shows the current slide.
type StoreTransport struct {
	store  StateStore
	buffer int
	log    *log.Logger
}

// StoreOption configures a [StoreTransport].
type StoreOption func(*StoreTransport)

// WithStoreLogger sets the logger used for watch failures.
func WithStoreLogger(l *log.Logger) StoreOption {
	return func(t *StoreTransport) { t.log = l }
}

// NewStoreTransport wraps store.
func NewStoreTransport(store StateStore, opts ...StoreOption) *StoreTransport {
	t := &StoreTransport{store: store, buffer: defaultBuffer, log: discardLogger()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Store returns the underlying [StateStore].
func (t *StoreTransport) Store() StateStore { return t.store }

func (t *StoreTransport) Publish(ctx context.Context, key string, payload []byte) error {
	return t.store.Put(ctx, key, payload)
}

func (t *StoreTransport) Subscribe(ctx context.Context, key string) (Subscription, error) {
	var after int64
	rec, err := t.store.Get(ctx, key)
	switch {
	case err == nil:
		after = rec.Version
	case errors.Is(err, shared.ErrNotFound):
	default:
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	updates, err := t.store.Watch(watchCtx, key, after)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := newMailbox(t.buffer, cancel)
	if rec.Version > 0 {
		sub.deliver(rec.Value)
	}
	sub.bind(ctx)

	go func() {
		defer sub.Close()
		for rec := range updates {
			sub.deliver(rec.Value)
		}
		t.log.Debug("state watch ended", "channel", key)
	}()
	return sub, nil
}

// Claim reserves key when the underlying store supports it.
func (t *StoreTransport) Claim(key string) (func() error, error) {
	if c, ok := t.store.(Claimer); ok {
		return c.Claim(key)
	}
	return func() error { return nil }, nil
}
