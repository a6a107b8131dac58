package present

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/gorilla/websocket"
)

// Peer is one end of a bidirectional message connection to an audience display.
type Peer interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// pipeEnd is an in-memory [Peer].
type pipeEnd struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

// NewPipe returns two connected in-memory peers. Closing either end closes both.
func NewPipe() (Peer, Peer) {
	ab := make(chan []byte, defaultBuffer)
	ba := make(chan []byte, defaultBuffer)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeEnd{in: ba, out: ab, done: done, once: once},
		&pipeEnd{in: ab, out: ba, done: done, once: once}
}

func (p *pipeEnd) Send(ctx context.Context, payload []byte) error {
	select {
	case <-p.done:
		return shared.ErrChannelClosed
	default:
	}

	select {
	case p.out <- clone(payload):
		return nil
	case <-p.done:
		return shared.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Receive(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-p.in:
		return payload, nil
	default:
	}

	select {
	case payload := <-p.in:
		return payload, nil
	case <-p.done:
		return nil, shared.ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

// WebsocketPeer adapts a gorilla websocket connection to [Peer].
type WebsocketPeer struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	wmu          sync.Mutex
	once         sync.Once
}

// NewWebsocketPeer wraps conn. Writes time out after ten seconds.
func NewWebsocketPeer(conn *websocket.Conn) *WebsocketPeer {
	return &WebsocketPeer{conn: conn, writeTimeout: 10 * time.Second}
}

func (p *WebsocketPeer) Send(ctx context.Context, payload []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()

	deadline := time.Now().Add(p.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return p.conn.WriteMessage(websocket.TextMessage, payload)
}

// Receive returns the next text message. It unblocks when the peer is closed.
func (p *WebsocketPeer) Receive(_ context.Context) ([]byte, error) {
	for {
		kind, data, err := p.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage {
			return data, nil
		}
	}
}

func (p *WebsocketPeer) Close() error {
	var err error
	// WriteControl and Close are safe alongside a pending write, which Close then unblocks.
	p.once.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = p.conn.Close()
	})
	return err
}

// DialAudience connects to a presenter's websocket endpoint, announces readiness and returns
// the pushed messages as a [Subscription].
func DialAudience(ctx context.Context, url string) (Subscription, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", shared.ErrServiceUnavailable, url, err)
	}
	return Listen(ctx, NewWebsocketPeer(conn))
}

// Listen sends the ready announcement on peer and forwards everything it receives.
func Listen(ctx context.Context, peer Peer) (Subscription, error) {
	ready, err := models.ReadyEnvelope().Encode()
	if err != nil {
		peer.Close()
		return nil, err
	}
	if err := peer.Send(ctx, ready); err != nil {
		peer.Close()
		return nil, fmt.Errorf("failed to announce ready: %w", err)
	}

	sub := newMailbox(defaultBuffer, func() { peer.Close() })
	sub.bind(ctx)

	go func() {
		defer sub.Close()
		for {
			payload, err := peer.Receive(ctx)
			if err != nil {
				return
			}
			sub.deliver(payload)
		}
	}()
	return sub, nil
}
