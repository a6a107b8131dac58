package present

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// Transport moves encoded [models.Envelope] payloads between a presenter and its audiences.
//
// Keys scope channels: publishes on one key are never observed by subscribers of another.
type Transport interface {
	Publish(ctx context.Context, key string, payload []byte) error
	Subscribe(ctx context.Context, key string) (Subscription, error)
}

// Subscription delivers payloads in publish order until closed or its context ends.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Claimer is implemented by transports that can reserve a key for a single presenter.
type Claimer interface {
	Claim(key string) (release func() error, err error)
}

const defaultBuffer = 16

// mailbox is a bounded, ordered queue feeding a subscription channel. When full the oldest
// payload is dropped so the newest state always gets through.
type mailbox struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
	stop   func() bool
	onStop func()
}

func newMailbox(size int, onStop func()) *mailbox {
	if size <= 0 {
		size = defaultBuffer
	}
	return &mailbox{ch: make(chan []byte, size), onStop: onStop}
}

// bind closes the mailbox when ctx ends.
func (m *mailbox) bind(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { m.Close() })
	m.mu.Lock()
	m.stop = stop
	m.mu.Unlock()
}

// deliver enqueues payload and reports whether an older payload had to be dropped.
func (m *mailbox) deliver(payload []byte) (dropped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	for {
		select {
		case m.ch <- payload:
			return dropped
		default:
		}
		select {
		case <-m.ch:
			dropped = true
		default:
		}
	}
}

func (m *mailbox) Messages() <-chan []byte { return m.ch }

func (m *mailbox) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.ch)
	stop := m.stop
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	if m.onStop != nil {
		m.onStop()
	}
	return nil
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
