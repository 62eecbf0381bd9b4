package enrollment

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
)

var ErrNotFound = gerrors.New("enrollment not found")

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Enrollment, error)
	// GetByTarget returns the live enrollment for a (tenant, learner,
	// content item) triple; at most one exists.
	GetByTarget(ctx context.Context, tenantID uuid.UUID, userID, contentID int64) (*Enrollment, error)
	GetChildren(ctx context.Context, parentID int64) ([]*Enrollment, error)
	Create(ctx context.Context, e *Enrollment) (*Enrollment, error)
	// Update persists status, pass flag, result, timestamps and history.
	Update(ctx context.Context, e *Enrollment) error
	Delete(ctx context.Context, id int64) error
	CreateRevision(ctx context.Context, rev *Revision) error
}
