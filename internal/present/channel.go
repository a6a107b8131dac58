package present

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
)

// Channel is one song's presentation channel bound to a [Transport].
type Channel struct {
	transport Transport
	key       string
	log       *log.Logger

	mu      sync.Mutex
	closed  bool
	subs    []Subscription
	release func() error
}

// ChannelOption configures a [Channel].
type ChannelOption func(*Channel)

// WithChannelLogger sets the logger for decode failures.
func WithChannelLogger(l *log.Logger) ChannelOption {
	return func(c *Channel) { c.log = l }
}

// Open binds a channel for key on transport.
func Open(ctx context.Context, transport Transport, key string, opts ...ChannelOption) (*Channel, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: channel key", shared.ErrMissingArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &Channel{transport: transport, key: key, log: discardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("channel", key)
	return c, nil
}

// Key returns the channel key.
func (c *Channel) Key() string { return c.key }

// Claim reserves the key for this channel's publisher when the transport supports it. The
// reservation is released by Close.
func (c *Channel) Claim() error {
	claimer, ok := c.transport.(Claimer)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return shared.ErrChannelClosed
	}
	if c.release != nil {
		return nil
	}

	release, err := claimer.Claim(c.key)
	if err != nil {
		return err
	}
	c.release = release
	return nil
}

// Publish sends the full state.
func (c *Channel) Publish(ctx context.Context, state models.PresentationState) error {
	return c.send(ctx, models.StateEnvelope(state))
}

// PublishIndex sends an index-only update.
func (c *Channel) PublishIndex(ctx context.Context, index int) error {
	return c.send(ctx, models.IndexEnvelope(index))
}

func (c *Channel) send(ctx context.Context, env models.Envelope) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return shared.ErrChannelClosed
	}

	payload, err := env.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", env.Type, err)
	}
	return c.transport.Publish(ctx, c.key, payload)
}

// OnUpdate subscribes and calls fn for each state or index update, in order, from a single
// goroutine. Malformed payloads and ready announcements are skipped.
func (c *Channel) OnUpdate(ctx context.Context, fn func(models.Envelope)) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrChannelClosed
	}
	c.mu.Unlock()

	sub, err := c.transport.Subscribe(ctx, c.key)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.key, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Close()
		return shared.ErrChannelClosed
	}
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	go func() {
		for payload := range sub.Messages() {
			env, err := models.DecodeEnvelope(payload)
			if err != nil {
				c.log.Warn("ignoring malformed update", "err", err)
				continue
			}
			if env.Type == models.EnvelopeReady {
				continue
			}
			fn(env)
		}
	}()
	return nil
}

// Close ends all subscriptions and releases a claim. Further publishes fail with
// [shared.ErrChannelClosed].
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs, release := c.subs, c.release
	c.subs, c.release = nil, nil
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	if release != nil {
		return release()
	}
	return nil
}
