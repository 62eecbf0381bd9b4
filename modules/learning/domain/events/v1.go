package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TopicEnrollmentChangedV1 = "learning.enrollment.changed.v1"
	TopicEnrollmentDeletedV1 = "learning.enrollment.deleted.v1"
	TopicPlanCreatedV1       = "learning.plan.created.v1"
	TopicPlanChangedV1       = "learning.plan.changed.v1"
)

// Action markers on plan creation so consumers can distinguish how a plan
// came to exist.
const (
	ActionAssigned       = "assigned"
	ActionReassigned     = "reassigned"
	ActionAutoReassigned = "auto-reassigned"
)

// AccountV1 is the denormalized learner account summary embedded into
// enrollment events so consumers need no directory lookup.
type AccountV1 struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type EmbeddedV1 struct {
	Account AccountV1 `json:"account"`
}

type EnrollmentChangedV1 struct {
	ID        int64      `json:"id"`
	ContentID int64      `json:"lo_id"`
	Status    string     `json:"status"`
	UserID    int64      `json:"profile_id"`
	Embedded  EmbeddedV1 `json:"embedded"`
}

// EnrollmentDeletedV1 carries the pre-deletion state; by the time a
// consumer sees it the row is gone.
type EnrollmentDeletedV1 struct {
	ID        int64      `json:"id"`
	ContentID int64      `json:"lo_id"`
	Status    string     `json:"status"`
	UserID    int64      `json:"profile_id"`
	Result    float64    `json:"result"`
	Passed    bool       `json:"passed"`
	Embedded  EmbeddedV1 `json:"embedded"`
}

type PlanCreatedV1 struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	AssignerID  int64     `json:"assigner_id"`
	InstanceID  uuid.UUID `json:"instance_id"`
	EntityID    int64     `json:"entity_id"`
	Status      string    `json:"status"`
	DueDate     time.Time `json:"due_date"`
	CreatedDate time.Time `json:"created_date"`
	Action      string    `json:"action"`
}

type OriginalV1 struct {
	AssignerID int64 `json:"assigner_id"`
}

// PlanChangedV1 covers due-date updates and archival. Silent archives
// (reassignment retiring the old plan) set Silent so user-facing fanout
// skips them.
type PlanChangedV1 struct {
	ID       int64      `json:"id"`
	Original OriginalV1 `json:"original"`
	DueDate  *time.Time `json:"due_date,omitempty"`
	Silent   bool       `json:"silent,omitempty"`
}
