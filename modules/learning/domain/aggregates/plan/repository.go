package plan

import (
	"context"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
)

var ErrNotFound = gerrors.New("plan not found")

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Plan, error)
	// GetLiveByTarget returns the single non-archived plan for a target
	// triple, or ErrNotFound.
	GetLiveByTarget(ctx context.Context, tenantID uuid.UUID, userID int64, entityType EntityType, entityID int64) (*Plan, error)
	Create(ctx context.Context, p *Plan) (*Plan, error)
	// CreateOrGetLive inserts p unless a live plan already covers its
	// target triple, in which case the existing plan is returned instead
	// and nothing is written. The bool reports whether p was inserted.
	// Losing the insert must not poison the surrounding transaction.
	CreateOrGetLive(ctx context.Context, p *Plan) (*Plan, bool, error)
	UpdateDueDate(ctx context.Context, id int64, dueAt time.Time) error
	// Archive marks the plan archived and embeds the original assigner
	// into its audit trail. The row is never deleted.
	Archive(ctx context.Context, id int64, original Original) error

	LinkEnrollment(ctx context.Context, enrollmentID, planID int64) error
	UnlinkByEnrollment(ctx context.Context, enrollmentID int64) error
	UnlinkByPlan(ctx context.Context, planID int64) error
	PlanIDsByEnrollment(ctx context.Context, enrollmentID int64) ([]int64, error)

	AddReference(ctx context.Context, ref *Reference) error
	ArchiveReferencesByPlan(ctx context.Context, planID int64) error
}
