package enrollment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusPending    Status = "pending"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusPending:
		return true
	}
	return false
}

// History actions recorded per mutation.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionCascade = "cascade"
	ActionDelete  = "delete"
)

// HistoryEntry is one record of the enrollment's append-only audit history,
// stored as JSON alongside the row.
type HistoryEntry struct {
	Action    string    `json:"action"`
	ActorID   int64     `json:"actor_id"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Enrollment tracks one learner's progress on one content item. Rows form a
// tree mirroring the content structure; ParentID is 0 for roots and
// otherwise references an enrollment of the same learner and tenant whose
// content item is the structural parent of this one.
type Enrollment struct {
	ID              int64
	TenantID        uuid.UUID
	UserID          int64
	ContentID       int64
	ParentContentID int64
	ParentID        int64
	ContentType     string
	ElectiveCount   int
	Status          Status
	Passed          bool
	Result          float64
	StartedAt       *time.Time
	EndedAt         *time.Time
	ChangedAt       time.Time
	History         []HistoryEntry
	CreatedBy       int64
}

func (e *Enrollment) IsRoot() bool {
	return e.ParentID == 0
}

// ApplyStatus transitions the enrollment and keeps the start/end timestamps
// and audit history consistent with the new status.
func (e *Enrollment) ApplyStatus(status Status, action string, actorID int64, now time.Time) {
	e.Status = status
	e.ChangedAt = now
	if status == StatusInProgress && e.StartedAt == nil {
		at := now
		e.StartedAt = &at
	}
	if status == StatusCompleted {
		if e.StartedAt == nil {
			at := now
			e.StartedAt = &at
		}
		at := now
		e.EndedAt = &at
	} else {
		e.EndedAt = nil
	}
	e.History = append(e.History, HistoryEntry{
		Action:    action,
		ActorID:   actorID,
		Status:    status,
		Timestamp: now,
	})
}

// Revision is a full by-value snapshot of an enrollment, written before
// destructive mutations so audit survives the hard delete.
type Revision struct {
	ID           int64
	TenantID     uuid.UUID
	EnrollmentID int64
	Snapshot     Enrollment
	CreatedBy    int64
	CreatedAt    time.Time
}
