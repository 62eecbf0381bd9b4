package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/enrollment"
	"github.com/openlms-dev/openlms/modules/learning/domain/events"
	"github.com/openlms-dev/openlms/pkg/outbox"
)

// CascadeService applies direct status changes and recomputes ancestor
// completion status bottom-up. The walk stops at the first ancestor whose
// recomputed status equals its stored one, or at a root.
type CascadeService struct {
	enrollments enrollment.Repository
	users       UserDirectory
	bus         outbox.Bus
	clock       clockwork.Clock
}

func NewCascadeService(
	enrollments enrollment.Repository,
	users UserDirectory,
	bus outbox.Bus,
	clock clockwork.Clock,
) *CascadeService {
	return &CascadeService{
		enrollments: enrollments,
		users:       users,
		bus:         bus,
		clock:       clock,
	}
}

// ChangeStatus sets the enrollment's status directly and cascades the
// change to its ancestors, all inside one transactional unit of work.
// A change to the already-stored status is a no-op success.
func (s *CascadeService) ChangeStatus(ctx context.Context, enrollmentID int64, status enrollment.Status, actorID int64) (*enrollment.Enrollment, error) {
	if !status.Valid() {
		return nil, newServiceError(http.StatusBadRequest, "LEARN_INVALID_STATUS", fmt.Sprintf("invalid status %q", status), nil)
	}

	return outbox.RunResult(ctx, s.bus, func(txCtx context.Context, batch *outbox.Batch) (*enrollment.Enrollment, error) {
		e, err := s.enrollments.GetByID(txCtx, enrollmentID)
		if err != nil {
			return nil, mapPgErrorToServiceError(err)
		}
		if e.Status == status {
			return e, nil
		}

		if err := s.applyChange(txCtx, batch, e, status, enrollment.ActionUpdate, actorID); err != nil {
			return nil, err
		}
		if err := s.recompute(txCtx, batch, e, actorID); err != nil {
			return nil, err
		}
		return e, nil
	})
}

// Recompute re-derives ancestor statuses for an enrollment whose status
// was already changed, as its own unit of work. Running it twice with no
// intervening child change performs no writes and stages no events.
func (s *CascadeService) Recompute(ctx context.Context, enrollmentID int64, actorID int64) error {
	return outbox.Run(ctx, s.bus, func(txCtx context.Context, batch *outbox.Batch) error {
		e, err := s.enrollments.GetByID(txCtx, enrollmentID)
		if err != nil {
			return mapPgErrorToServiceError(err)
		}
		return s.recompute(txCtx, batch, e, actorID)
	})
}

// recompute walks the parent chain of a just-changed enrollment and
// persists every ancestor whose aggregate status moved. Each ancestor's
// status is derived from all of its direct children under the content
// type's completion policy. A missing parent row is an inconsistency and
// aborts the walk loudly, never silently.
func (s *CascadeService) recompute(ctx context.Context, batch *outbox.Batch, changed *enrollment.Enrollment, actorID int64) error {
	cur := changed
	for !cur.IsRoot() {
		parent, err := s.enrollments.GetByID(ctx, cur.ParentID)
		if err != nil {
			if errors.Is(err, enrollment.ErrNotFound) {
				return newServiceError(
					http.StatusConflict,
					"LEARN_BROKEN_CHAIN",
					fmt.Sprintf("enrollment %d references missing parent %d", cur.ID, cur.ParentID),
					err,
				)
			}
			return mapPgErrorToServiceError(err)
		}

		children, err := s.enrollments.GetChildren(ctx, parent.ID)
		if err != nil {
			return mapPgErrorToServiceError(err)
		}

		next := AggregateStatus(children, PolicyFor(parent))
		if next == parent.Status {
			return nil
		}

		if err := s.applyChange(ctx, batch, parent, next, enrollment.ActionCascade, actorID); err != nil {
			return err
		}
		cur = parent
	}
	return nil
}

func (s *CascadeService) applyChange(ctx context.Context, batch *outbox.Batch, e *enrollment.Enrollment, status enrollment.Status, action string, actorID int64) error {
	now := s.clock.Now().UTC()
	e.ApplyStatus(status, action, actorID, now)

	if err := s.enrollments.Update(ctx, e); err != nil {
		return mapPgErrorToServiceError(err)
	}
	if err := s.enrollments.CreateRevision(ctx, &enrollment.Revision{
		TenantID:     e.TenantID,
		EnrollmentID: e.ID,
		Snapshot:     *e,
		CreatedBy:    actorID,
		CreatedAt:    now,
	}); err != nil {
		return mapPgErrorToServiceError(err)
	}

	return batch.Stage(events.TopicEnrollmentChangedV1, e.TenantID, events.EnrollmentChangedV1{
		ID:        e.ID,
		ContentID: e.ContentID,
		Status:    string(e.Status),
		UserID:    e.UserID,
		Embedded:  embeddedAccount(ctx, s.users, e.UserID),
	})
}
