// Package eventbus adapts the in-process event bus to the outbox.Bus
// interface. Used when no external broker is configured; subscribers
// receive the *outbox.Message directly. Always available.
package eventbus

import (
	"context"
	"errors"
	"fmt"

	busiface "github.com/openlms-dev/openlms/pkg/eventbus"
	"github.com/openlms-dev/openlms/pkg/outbox"
)

type Bus struct {
	bus busiface.EventBusWithError
}

func New(bus busiface.EventBusWithError) *Bus {
	return &Bus{bus: bus}
}

func (b *Bus) Ping(ctx context.Context) error {
	if b == nil || b.bus == nil {
		return fmt.Errorf("eventbus dispatcher: bus is nil")
	}
	return nil
}

func (b *Bus) Publish(ctx context.Context, msg outbox.Message) error {
	err := b.bus.PublishE(&msg)
	// An event nobody listens to is not a delivery failure in-process.
	if errors.Is(err, busiface.ErrNoSubscribers) {
		return nil
	}
	return err
}
