package outbox

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Message is one pending event staged during a unit of work.
type Message struct {
	EventID  uuid.UUID       `json:"event_id"`
	TenantID uuid.UUID       `json:"tenant_id"`
	Topic    string          `json:"topic"`
	Payload  json.RawMessage `json:"payload"`
}
