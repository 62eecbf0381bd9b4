package plan

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusScheduled Status = "scheduled"
)

// EntityType of a plan target. Content items are the only target today;
// the field exists so other assignable entities can be added.
type EntityType string

const EntityTypeContent EntityType = "learning_object"

// Original carries provenance embedded into an archived plan's audit
// trail so the assigner survives the reassignment.
type Original struct {
	AssignerID int64 `json:"assigner_id"`
}

// Plan schedules a learner onto a content item with a due date. Archived
// plans are retained for audit; at most one non-archived plan exists per
// (tenant, learner, target) outside reassignment's transient overlap.
type Plan struct {
	ID         int64
	TenantID   uuid.UUID
	UserID     int64
	AssignerID int64
	EntityType EntityType
	EntityID   int64
	Status     Status
	Archived   bool
	DueAt      time.Time
	CreatedAt  time.Time
	Note       string
	Original   Original
}

// Reference statuses. References are archived, never deleted, so group
// membership changes can be reconciled later.
const (
	RefActive   = 1
	RefArchived = 0
)

// Reference records why a plan exists, e.g. a group assignment.
type Reference struct {
	ID         int64
	PlanID     int64
	SourceType string
	SourceID   int64
	Status     int
}
