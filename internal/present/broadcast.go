package present

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// BroadcastTransport is an in-process publish/subscribe transport.
//
// Delivery is immediate and ordered per subscriber. Nothing is retained, so a subscriber only
// sees payloads published after it subscribed.
type BroadcastTransport struct {
	mu     sync.Mutex
	subs   map[string]map[*mailbox]struct{}
	buffer int
	log    *log.Logger
}

// BroadcastOption configures a [BroadcastTransport].
type BroadcastOption func(*BroadcastTransport)

// WithBroadcastBuffer sets the per-subscriber queue length.
func WithBroadcastBuffer(n int) BroadcastOption {
	return func(b *BroadcastTransport) { b.buffer = n }
}

// WithBroadcastLogger sets the logger used to report dropped payloads.
func WithBroadcastLogger(l *log.Logger) BroadcastOption {
	return func(b *BroadcastTransport) { b.log = l }
}

// NewBroadcastTransport creates an empty [BroadcastTransport].
func NewBroadcastTransport(opts ...BroadcastOption) *BroadcastTransport {
	b := &BroadcastTransport{
		subs:   make(map[string]map[*mailbox]struct{}),
		buffer: defaultBuffer,
		log:    discardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers payload to every current subscriber of key. It never blocks on slow readers.
func (b *BroadcastTransport) Publish(_ context.Context, key string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[key] {
		if sub.deliver(clone(payload)) {
			b.log.Debug("dropped stale payload for slow subscriber", "channel", key)
		}
	}
	return nil
}

// Subscribe registers a subscriber for key until it is closed or ctx ends.
func (b *BroadcastTransport) Subscribe(ctx context.Context, key string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sub *mailbox
	sub = newMailbox(b.buffer, func() { b.remove(key, sub) })

	b.mu.Lock()
	if b.subs[key] == nil {
		b.subs[key] = make(map[*mailbox]struct{})
	}
	b.subs[key][sub] = struct{}{}
	b.mu.Unlock()

	sub.bind(ctx)
	return sub, nil
}

// Subscribers returns the number of live subscribers on key.
func (b *BroadcastTransport) Subscribers(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[key])
}

func (b *BroadcastTransport) remove(key string, sub *mailbox) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[key], sub)
	if len(b.subs[key]) == 0 {
		delete(b.subs, key)
	}
}
