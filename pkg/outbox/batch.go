package outbox

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Batch accumulates events in memory for the duration of a transaction.
// It is threaded through workflows as an explicit value and drained exactly
// once, by Run, after the enclosing transaction has committed.
type Batch struct {
	pending []Message
	drained bool
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Add(msg Message) {
	if msg.EventID == uuid.Nil {
		msg.EventID = uuid.New()
	}
	b.pending = append(b.pending, msg)
}

// Stage marshals payload and appends it under the given topic.
func (b *Batch) Stage(topic string, tenantID uuid.UUID, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.Add(Message{
		EventID:  uuid.New(),
		TenantID: tenantID,
		Topic:    topic,
		Payload:  raw,
	})
	return nil
}

func (b *Batch) Len() int {
	return len(b.pending)
}

// Messages returns the staged messages in insertion order.
func (b *Batch) Messages() []Message {
	return b.pending
}

// drain marks the batch flushed and returns its messages. A batch drains
// at most once; a second drain returns nothing.
func (b *Batch) drain() []Message {
	if b.drained {
		return nil
	}
	b.drained = true
	msgs := b.pending
	b.pending = nil
	return msgs
}
