package outbox

import (
	"context"

	"github.com/openlms-dev/openlms/pkg/serrors"
)

// Bus is the message broker this core publishes to. Ping is consulted
// before any mutating workflow starts: a broker that cannot acknowledge
// availability fails the workflow closed, before the first row changes.
type Bus interface {
	Ping(ctx context.Context) error
	Publish(ctx context.Context, msg Message) error
}

var ErrBusUnavailable = serrors.NewError("OUTBOX_BUS_UNAVAILABLE", "message bus is unavailable", "check broker connectivity")
