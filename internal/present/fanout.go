package present

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/songdeck/internal/shared"
)

// FanoutTransport publishes to several transports at once and subscribes through the first.
//
// The server uses it so one presenter reaches websocket audiences and polling audiences together.
type FanoutTransport struct {
	transports []Transport
}

// NewFanoutTransport combines transports. The first one serves subscriptions.
func NewFanoutTransport(transports ...Transport) *FanoutTransport {
	return &FanoutTransport{transports: transports}
}

// Publish sends payload on every transport and joins their errors.
func (t *FanoutTransport) Publish(ctx context.Context, key string, payload []byte) error {
	var errs []error
	for _, tr := range t.transports {
		if err := tr.Publish(ctx, key, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *FanoutTransport) Subscribe(ctx context.Context, key string) (Subscription, error) {
	if len(t.transports) == 0 {
		return nil, fmt.Errorf("%w: no transports configured", shared.ErrUnknownTransport)
	}
	return t.transports[0].Subscribe(ctx, key)
}

// Claim claims key on every member that supports it, releasing earlier claims when a later one
// fails.
func (t *FanoutTransport) Claim(key string) (func() error, error) {
	var releases []func() error
	releaseAll := func() error {
		var errs []error
		for _, release := range releases {
			errs = append(errs, release())
		}
		return errors.Join(errs...)
	}

	for _, tr := range t.transports {
		claimer, ok := tr.(Claimer)
		if !ok {
			continue
		}
		release, err := claimer.Claim(key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
