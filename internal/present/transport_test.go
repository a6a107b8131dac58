package present

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
)

func TestBroadcastTransport(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers in order to every subscriber", func(t *testing.T) {
		b := NewBroadcastTransport()
		first, _ := b.Subscribe(ctx, "song-a")
		second, _ := b.Subscribe(ctx, "song-a")
		defer first.Close()
		defer second.Close()

		for i := range 3 {
			if err := b.Publish(ctx, "song-a", []byte(fmt.Sprintf(`{"index":%d}`, i))); err != nil {
				t.Fatal(err)
			}
		}

		for _, sub := range []Subscription{first, second} {
			for i := range 3 {
				env := decode(t, recv(t, sub))
				if *env.Index != i {
					t.Errorf("expected index %d, got %d", i, *env.Index)
				}
			}
		}
	})

	t.Run("keys do not cross-talk", func(t *testing.T) {
		b := NewBroadcastTransport()
		a, _ := b.Subscribe(ctx, "song-a")
		defer a.Close()

		b.Publish(ctx, "song-b", []byte(`{"index":1}`))
		expectNone(t, a, 50*time.Millisecond)
	})

	t.Run("no replay for late subscribers", func(t *testing.T) {
		b := NewBroadcastTransport()
		b.Publish(ctx, "song-a", []byte(`{"index":1}`))

		late, _ := b.Subscribe(ctx, "song-a")
		defer late.Close()
		expectNone(t, late, 50*time.Millisecond)
	})

	t.Run("slow subscriber keeps the newest payloads", func(t *testing.T) {
		b := NewBroadcastTransport(WithBroadcastBuffer(2))
		sub, _ := b.Subscribe(ctx, "k")
		defer sub.Close()

		for i := range 5 {
			b.Publish(ctx, "k", []byte(fmt.Sprintf(`{"index":%d}`, i)))
		}
		if got := *decode(t, recv(t, sub)).Index; got != 3 {
			t.Errorf("expected oldest kept index 3, got %d", got)
		}
		if got := *decode(t, recv(t, sub)).Index; got != 4 {
			t.Errorf("expected newest index 4, got %d", got)
		}
	})

	t.Run("close and context end unsubscribe", func(t *testing.T) {
		b := NewBroadcastTransport()
		sub, _ := b.Subscribe(ctx, "k")
		sub.Close()

		cctx, cancel := context.WithCancel(ctx)
		other, _ := b.Subscribe(cctx, "k")
		cancel()

		select {
		case _, ok := <-other.Messages():
			if ok {
				t.Error("expected closed subscription")
			}
		case <-time.After(wait):
			t.Fatal("subscription not closed on cancel")
		}
		deadline := time.Now().Add(wait)
		for b.Subscribers("k") != 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if n := b.Subscribers("k"); n != 0 {
			t.Errorf("expected no subscribers, got %d", n)
		}
		if err := b.Publish(ctx, "k", []byte(`{}`)); err != nil {
			t.Errorf("publish without subscribers should succeed: %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Get(ctx, "k"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	store.Put(ctx, "k", []byte(`1`))
	store.Put(ctx, "k", []byte(`2`))
	rec, err := store.Get(ctx, "k")
	if err != nil || rec.Version != 2 || string(rec.Value) != "2" {
		t.Errorf("unexpected record %+v (%v)", rec, err)
	}

	t.Run("watch emits existing newer value then updates", func(t *testing.T) {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()

		updates, err := store.Watch(wctx, "k", 1)
		if err != nil {
			t.Fatal(err)
		}
		if rec := <-updates; rec.Version != 2 {
			t.Errorf("expected version 2, got %d", rec.Version)
		}
		store.Put(ctx, "k", []byte(`3`))
		if rec := <-updates; rec.Version != 3 {
			t.Errorf("expected version 3, got %d", rec.Version)
		}
	})
}

func TestStoreTransport(t *testing.T) {
	ctx := context.Background()

	t.Run("late joiner sees the stored state first", func(t *testing.T) {
		tr := NewStoreTransport(NewMemoryStore())
		tr.Publish(ctx, "song", statePayload(t, "Song", 0, "a", "b", "c"))
		tr.Publish(ctx, "song", statePayload(t, "Song", 2, "a", "b", "c"))

		sub, err := tr.Subscribe(ctx, "song")
		if err != nil {
			t.Fatal(err)
		}
		defer sub.Close()

		env := decode(t, recv(t, sub))
		if env.State == nil || env.State.CurrentSlide != 2 {
			t.Fatalf("expected stored state at index 2, got %+v", env)
		}

		tr.Publish(ctx, "song", statePayload(t, "Song", 1, "a", "b", "c"))
		if env := decode(t, recv(t, sub)); env.State.CurrentSlide != 1 {
			t.Errorf("expected update to index 1, got %d", env.State.CurrentSlide)
		}
	})

	t.Run("empty slot waits for first publish", func(t *testing.T) {
		tr := NewStoreTransport(NewMemoryStore())
		sub, _ := tr.Subscribe(ctx, "song")
		defer sub.Close()

		expectNone(t, sub, 50*time.Millisecond)
		tr.Publish(ctx, "song", statePayload(t, "Song", 0, "a"))
		decode(t, recv(t, sub))
	})

	t.Run("claim without claimer store is a no-op", func(t *testing.T) {
		release, err := NewStoreTransport(NewMemoryStore()).Claim("k")
		if err != nil || release() != nil {
			t.Errorf("expected no-op claim, got %v", err)
		}
	})
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(filepath.Join(dir, "state"), WithPollInterval(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("put and get", func(t *testing.T) {
		if _, err := store.Get(ctx, "ensalzar-presentation-state"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		if err := store.Put(ctx, "ensalzar-presentation-state", rawState(t, 0, "a")); err != nil {
			t.Fatal(err)
		}
		if err := store.Put(ctx, "ensalzar-presentation-state", rawState(t, 1, "a", "b")); err != nil {
			t.Fatal(err)
		}

		rec, err := store.Get(ctx, "ensalzar-presentation-state")
		if err != nil {
			t.Fatal(err)
		}
		if rec.Version != 2 {
			t.Errorf("expected version 2, got %d", rec.Version)
		}
		if env := decode(t, rec.Value); env.State.CurrentSlide != 1 {
			t.Errorf("expected index 1, got %d", env.State.CurrentSlide)
		}

		entries, _ := os.ReadDir(filepath.Join(dir, "state"))
		for _, e := range entries {
			if filepath.Ext(e.Name()) == ".tmp" {
				t.Errorf("temp file left behind: %s", e.Name())
			}
		}
	})

	t.Run("rejects non-JSON values", func(t *testing.T) {
		if err := store.Put(ctx, "k", []byte("not json")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("transport across store instances", func(t *testing.T) {
		reader, err := NewFileStore(filepath.Join(dir, "state"), WithPollInterval(20*time.Millisecond))
		if err != nil {
			t.Fatal(err)
		}

		sub, err := NewStoreTransport(reader).Subscribe(ctx, "ensalzar-presentation-state")
		if err != nil {
			t.Fatal(err)
		}
		defer sub.Close()

		if env := decode(t, recv(t, sub)); env.State.CurrentSlide != 1 {
			t.Errorf("expected stored index 1 first, got %d", env.State.CurrentSlide)
		}

		NewStoreTransport(store).Publish(ctx, "ensalzar-presentation-state", statePayload(t, "s", 0, "x"))
		if env := decode(t, recv(t, sub)); env.State.Song != "s" {
			t.Errorf("expected new state from other instance, got %+v", env.State)
		}
	})

	t.Run("claim is exclusive", func(t *testing.T) {
		release, err := store.Claim("song")
		if err != nil {
			t.Fatal(err)
		}

		other, _ := NewFileStore(filepath.Join(dir, "state"))
		if _, err := other.Claim("song"); !errors.Is(err, shared.ErrLocked) {
			t.Errorf("expected ErrLocked, got %v", err)
		}

		if err := release(); err != nil {
			t.Fatal(err)
		}
		again, err := other.Claim("song")
		if err != nil {
			t.Fatalf("expected claim after release: %v", err)
		}
		again()
	})
}

// fakeRecords is an in-memory StateRecords.
type fakeRecords struct {
	mu   sync.Mutex
	data map[string][]byte
	ver  map[string]int64
}

func (f *fakeRecords) Save(_ context.Context, channel string, payload []byte) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[channel] = payload
	f.ver[channel]++
	return f.ver[channel], nil
}

func (f *fakeRecords) Latest(_ context.Context, channel string) ([]byte, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[channel]; !ok {
		return nil, 0, shared.ErrNotFound
	}
	return f.data[channel], f.ver[channel], nil
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	records := &fakeRecords{data: map[string][]byte{}, ver: map[string]int64{}}
	tr := NewStoreTransport(NewSQLStore(records, 10*time.Millisecond, nil))

	tr.Publish(ctx, "song", statePayload(t, "Song", 1, "a", "b"))

	sub, err := tr.Subscribe(ctx, "song")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	if env := decode(t, recv(t, sub)); env.State.CurrentSlide != 1 {
		t.Errorf("expected stored state, got %+v", env)
	}

	tr.Publish(ctx, "song", statePayload(t, "Song", 0, "a", "b"))
	if env := decode(t, recv(t, sub)); env.State.CurrentSlide != 0 {
		t.Errorf("expected polled update, got %+v", env)
	}
	expectNone(t, sub, 50*time.Millisecond)
}

func TestHandshakeTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("pushes only after ready and answers ready with full state", func(t *testing.T) {
		tr := NewHandshakeTransport(nil)
		local, remote := NewPipe()
		go tr.Attach(ctx, "song", local)

		tr.Publish(ctx, "song", statePayload(t, "Song", 0, "a", "b", "c"))
		tr.Publish(ctx, "song", []byte(`{"type":"index","index":2}`))

		if _, err := receiveWithin(ctx, remote, 50*time.Millisecond); err == nil {
			t.Fatal("peer received a push before it was ready")
		}

		ready, _ := models.ReadyEnvelope().Encode()
		remote.Send(ctx, ready)

		payload, err := receiveWithin(ctx, remote, wait)
		if err != nil {
			t.Fatal(err)
		}
		env := decode(t, payload)
		if env.Type != models.EnvelopeState || env.State.CurrentSlide != 2 {
			t.Errorf("expected full state at index 2, got %+v", env)
		}

		tr.Publish(ctx, "song", []byte(`{"type":"index","index":0}`))
		payload, err = receiveWithin(ctx, remote, wait)
		if err != nil {
			t.Fatal(err)
		}
		if env := decode(t, payload); env.Type != models.EnvelopeIndex || *env.Index != 0 {
			t.Errorf("expected index push, got %+v", env)
		}

		if attached, readyPeers := tr.Peers("song"); attached != 1 || readyPeers != 1 {
			t.Errorf("expected 1 attached ready peer, got %d/%d", attached, readyPeers)
		}
	})

	t.Run("malformed peer messages are ignored", func(t *testing.T) {
		tr := NewHandshakeTransport(nil)
		local, remote := NewPipe()
		go tr.Attach(ctx, "song", local)

		remote.Send(ctx, []byte("garbage"))
		ready, _ := models.ReadyEnvelope().Encode()
		remote.Send(ctx, ready)
		tr.Publish(ctx, "song", statePayload(t, "Song", 0, "a"))

		payload, err := receiveWithin(ctx, remote, wait)
		if err != nil {
			t.Fatal(err)
		}
		decode(t, payload)
	})

	t.Run("subscribe behaves as a ready peer", func(t *testing.T) {
		tr := NewHandshakeTransport(nil)
		tr.Publish(ctx, "song", statePayload(t, "Song", 1, "a", "b"))

		sub, err := tr.Subscribe(ctx, "song")
		if err != nil {
			t.Fatal(err)
		}
		defer sub.Close()

		if env := decode(t, recv(t, sub)); env.State.CurrentSlide != 1 {
			t.Errorf("expected latest state on ready, got %+v", env)
		}

		latest, ok := tr.Latest("song")
		if !ok || latest.Song != "Song" {
			t.Errorf("unexpected latest %+v", latest)
		}
	})

	t.Run("rejects payloads that are not envelopes", func(t *testing.T) {
		tr := NewHandshakeTransport(nil)
		if err := tr.Publish(ctx, "song", []byte("nope")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("stalled peer does not hold up publish and is dropped", func(t *testing.T) {
		tr := NewHandshakeTransport(nil)
		stalled := newStalledPeer(t)
		go tr.Attach(ctx, "song", stalled)
		waitFor(t, func() bool { _, ready := tr.Peers("song"); return ready == 1 })

		local, remote := NewPipe()
		go tr.Attach(ctx, "song", local)
		ready, _ := models.ReadyEnvelope().Encode()
		remote.Send(ctx, ready)
		waitFor(t, func() bool { _, ready := tr.Peers("song"); return ready == 2 })

		received := make(chan int, 3*defaultBuffer)
		go func() {
			for {
				payload, err := remote.Receive(ctx)
				if err != nil {
					return
				}
				if env, err := models.DecodeEnvelope(payload); err == nil && env.Index != nil {
					received <- *env.Index
				}
			}
		}()

		start := time.Now()
		for i := range 3 * defaultBuffer {
			if err := tr.Publish(ctx, "song", []byte(fmt.Sprintf(`{"type":"index","index":%d}`, i))); err != nil {
				t.Fatal(err)
			}
			time.Sleep(time.Millisecond)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("publish waited on the stalled peer for %v", elapsed)
		}

		select {
		case <-stalled.closed:
		case <-time.After(wait):
			t.Fatal("stalled peer was not disconnected")
		}
		waitFor(t, func() bool { attached, _ := tr.Peers("song"); return attached == 1 })

		last := -1
		for last != 3*defaultBuffer-1 {
			select {
			case last = <-received:
			case <-time.After(wait):
				t.Fatalf("healthy peer stopped receiving at index %d", last)
			}
		}
	})

	t.Run("lookups do not track unknown keys", func(t *testing.T) {
		tr := NewHandshakeTransport(nil)
		tr.Latest("nobody")
		tr.Peers("nobody")
		tr.Publish(ctx, "nobody", []byte(`{"type":"index","index":1}`))

		local, remote := NewPipe()
		done := make(chan struct{})
		go func() {
			tr.Attach(ctx, "visitor", local)
			close(done)
		}()
		waitFor(t, func() bool { attached, _ := tr.Peers("visitor"); return attached == 1 })
		remote.Close()
		<-done

		tr.mu.Lock()
		tracked := len(tr.channels)
		tr.mu.Unlock()
		if tracked != 0 {
			t.Errorf("expected no tracked channels, got %d", tracked)
		}

		tr.Publish(ctx, "song", statePayload(t, "Song", 0, "a"))
		if _, ok := tr.Latest("song"); !ok {
			t.Error("expected published state to be kept without peers")
		}
	})

	t.Run("closed peer is detached", func(t *testing.T) {
		tr := NewHandshakeTransport(nil)
		local, remote := NewPipe()
		done := make(chan struct{})
		go func() {
			tr.Attach(ctx, "song", local)
			close(done)
		}()

		remote.Close()
		select {
		case <-done:
		case <-time.After(wait):
			t.Fatal("attach did not return after peer closed")
		}
		if attached, _ := tr.Peers("song"); attached != 0 {
			t.Errorf("expected no peers, got %d", attached)
		}
	})
}

// stalledPeer announces ready once and then never accepts a send until closed.
type stalledPeer struct {
	inbox  chan []byte
	closed chan struct{}
	once   sync.Once
}

func newStalledPeer(t *testing.T) *stalledPeer {
	t.Helper()
	ready, err := models.ReadyEnvelope().Encode()
	if err != nil {
		t.Fatal(err)
	}
	p := &stalledPeer{inbox: make(chan []byte, 1), closed: make(chan struct{})}
	p.inbox <- ready
	return p
}

func (p *stalledPeer) Send(ctx context.Context, _ []byte) error {
	select {
	case <-p.closed:
		return shared.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *stalledPeer) Receive(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-p.inbox:
		return payload, nil
	case <-p.closed:
		return nil, shared.ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *stalledPeer) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func receiveWithin(ctx context.Context, p Peer, d time.Duration) ([]byte, error) {
	rctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return p.Receive(rctx)
}
