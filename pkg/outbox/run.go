package outbox

import (
	"context"
	"fmt"

	"github.com/openlms-dev/openlms/pkg/composables"
)

// inTx is swappable in tests.
var inTx = composables.InTx

// Run executes fn inside one relational transaction with a fresh Batch,
// enforcing the transactional-outbox discipline:
//
//  1. the bus must be reachable before any mutation begins (fail closed);
//  2. events staged on the batch stay in memory for the whole transaction;
//  3. the batch is flushed only after the commit succeeds;
//  4. if fn or the commit fails, the batch is discarded untouched.
//
// A flush failure after commit does not fail the operation: the mutation is
// durable at that point and the loss is logged for operator follow-up.
//
// Run must own its unit of work. When a transaction is already in the
// context it is reused, and the flush then happens when fn returns rather
// than when that outer transaction commits — so workflows composed inside
// one unit of work share a single Run and pass its Batch down, instead of
// nesting Run calls.
func Run(ctx context.Context, bus Bus, fn func(txCtx context.Context, batch *Batch) error) error {
	if err := bus.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBusUnavailable, err)
	}

	batch := NewBatch()
	if err := inTx(ctx, func(txCtx context.Context) error {
		return fn(txCtx, batch)
	}); err != nil {
		return err
	}

	flush(ctx, bus, batch)
	return nil
}

// RunResult is Run for workflows that return a value.
func RunResult[T any](ctx context.Context, bus Bus, fn func(txCtx context.Context, batch *Batch) (T, error)) (T, error) {
	var out T
	err := Run(ctx, bus, func(txCtx context.Context, batch *Batch) error {
		var innerErr error
		out, innerErr = fn(txCtx, batch)
		return innerErr
	})
	return out, err
}

func flush(ctx context.Context, bus Bus, batch *Batch) {
	log := composables.UseLogger(ctx)
	for _, msg := range batch.drain() {
		if err := bus.Publish(ctx, msg); err != nil {
			log.WithError(err).
				WithField("topic", msg.Topic).
				WithField("event_id", msg.EventID).
				Error("outbox: publish after commit failed; event lost")
		}
	}
}
