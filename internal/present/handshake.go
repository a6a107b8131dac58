package present

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
)

// HandshakeTransport pushes to attached peers that have announced they are listening.
//
// Payloads published before a peer is ready are not queued for it. Instead the transport keeps
// the latest full state per key and answers each ready announcement with that state, so an
// audience never misses the slide that was current when it connected.
//
// Publish never waits on a peer. Each peer has its own bounded send queue drained by a writer
// goroutine; a peer whose queue fills up is disconnected and can reconnect for the latest state.
type HandshakeTransport struct {
	mu       sync.Mutex
	channels map[string]*handshakeChannel
	buffer   int
	log      *log.Logger
}

type handshakeChannel struct {
	latest *models.PresentationState
	peers  map[Peer]*handshakePeer
}

type handshakePeer struct {
	peer  Peer
	ready bool
	queue chan []byte
	done  chan struct{}
}

// NewHandshakeTransport creates an empty [HandshakeTransport].
func NewHandshakeTransport(logger *log.Logger) *HandshakeTransport {
	if logger == nil {
		logger = discardLogger()
	}
	return &HandshakeTransport{channels: make(map[string]*handshakeChannel), buffer: defaultBuffer, log: logger}
}

// channel returns the entry for key, creating it. Must be called with t.mu held.
func (t *HandshakeTransport) channel(key string) *handshakeChannel {
	ch, ok := t.channels[key]
	if !ok {
		ch = &handshakeChannel{peers: make(map[Peer]*handshakePeer)}
		t.channels[key] = ch
	}
	return ch
}

// enqueue hands payload to hp's writer. It reports false when the queue is full.
func (hp *handshakePeer) enqueue(payload []byte) bool {
	select {
	case hp.queue <- payload:
		return true
	default:
		return false
	}
}

// Attach serves peer on key until the peer disconnects or ctx ends, then closes it.
func (t *HandshakeTransport) Attach(ctx context.Context, key string, peer Peer) error {
	logger := t.log.With("channel", key)
	hp := &handshakePeer{peer: peer, queue: make(chan []byte, t.buffer), done: make(chan struct{})}

	t.mu.Lock()
	t.channel(key).peers[peer] = hp
	t.mu.Unlock()

	go t.write(ctx, logger, hp)

	stop := context.AfterFunc(ctx, func() { peer.Close() })
	defer func() {
		stop()
		t.detach(key, peer)
		close(hp.done)
		peer.Close()
	}()

	for {
		payload, err := peer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, shared.ErrChannelClosed) {
				return nil
			}
			logger.Debug("peer disconnected", "err", err)
			return nil
		}

		env, err := models.DecodeEnvelope(payload)
		if err != nil {
			logger.Warn("ignoring malformed peer message", "err", err)
			continue
		}
		if env.Type != models.EnvelopeReady {
			logger.Debug("ignoring peer message", "type", env.Type)
			continue
		}

		if err := t.ready(key, hp); err != nil {
			logger.Warn("failed to send state to ready peer", "err", err)
			return nil
		}
	}
}

// write drains hp's queue in order. A failed send closes the peer, which ends its Attach.
func (t *HandshakeTransport) write(ctx context.Context, logger *log.Logger, hp *handshakePeer) {
	for {
		select {
		case payload := <-hp.queue:
			if err := hp.peer.Send(ctx, payload); err != nil {
				logger.Warn("dropping unreachable peer", "err", err)
				hp.peer.Close()
				return
			}
		case <-hp.done:
			return
		}
	}
}

// detach removes peer and forgets the channel once it has no peers and no state.
func (t *HandshakeTransport) detach(key string, peer Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.channels[key]
	if !ok {
		return
	}
	delete(ch.peers, peer)
	if len(ch.peers) == 0 && ch.latest == nil {
		delete(t.channels, key)
	}
}

func (t *HandshakeTransport) ready(key string, hp *handshakePeer) error {
	t.mu.Lock()
	ch, ok := t.channels[key]
	if !ok || ch.peers[hp.peer] != hp {
		t.mu.Unlock()
		return shared.ErrChannelClosed
	}
	hp.ready = true
	if ch.latest == nil {
		t.mu.Unlock()
		return nil
	}
	payload, err := models.StateEnvelope(*ch.latest).Encode()
	if err != nil {
		t.mu.Unlock()
		return err
	}
	queued := hp.enqueue(payload)
	t.mu.Unlock()

	if !queued {
		return fmt.Errorf("%w: send queue full", shared.ErrChannelClosed)
	}
	return nil
}

// Publish records payload as the channel's latest state and queues it for ready peers without
// waiting for delivery. A peer whose queue is full is disconnected.
func (t *HandshakeTransport) Publish(ctx context.Context, key string, payload []byte) error {
	env, err := models.DecodeEnvelope(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	ch, ok := t.channels[key]
	switch env.Type {
	case models.EnvelopeState:
		ch = t.channel(key)
		s := *env.State
		ch.latest = &s
	case models.EnvelopeIndex:
		if ok && ch.latest != nil {
			ch.latest.CurrentSlide = ch.latest.Clamp(*env.Index)
		}
	}

	var slow []Peer
	if ch != nil {
		payload = clone(payload)
		for peer, hp := range ch.peers {
			if hp.ready && !hp.enqueue(payload) {
				slow = append(slow, peer)
			}
		}
	}
	t.mu.Unlock()

	for _, peer := range slow {
		t.log.Warn("dropping slow peer", "channel", key)
		peer.Close()
	}
	return nil
}

// Subscribe attaches an in-process peer that is ready immediately.
func (t *HandshakeTransport) Subscribe(ctx context.Context, key string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	local, remote := NewPipe()
	go t.Attach(ctx, key, local)
	return Listen(ctx, remote)
}

// Latest returns the most recent full state published on key.
func (t *HandshakeTransport) Latest(key string) (models.PresentationState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.channels[key]
	if !ok || ch.latest == nil {
		return models.PresentationState{}, false
	}
	return *ch.latest, true
}

// Peers returns the number of attached and ready peers on key.
func (t *HandshakeTransport) Peers(key string) (attached, ready int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.channels[key]
	if !ok {
		return 0, 0
	}
	for _, hp := range ch.peers {
		attached++
		if hp.ready {
			ready++
		}
	}
	return attached, ready
}
