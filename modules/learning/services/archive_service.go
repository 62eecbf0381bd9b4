package services

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/enrollment"
	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/plan"
	"github.com/openlms-dev/openlms/modules/learning/domain/events"
	"github.com/openlms-dev/openlms/pkg/composables"
	"github.com/openlms-dev/openlms/pkg/outbox"
)

// ArchiveOptions controls the archive walk. Zero value differs from the
// defaults; use DefaultArchiveOptions for the common case.
type ArchiveOptions struct {
	// Children archives the whole subtree depth-first. When false only
	// the target node is removed and descendants are intentionally left
	// orphaned (e.g. converting an enrollment type while keeping child
	// progress history).
	Children bool
	// CreateRevision writes a full pre-deletion snapshot per node.
	CreateRevision bool
	// Notify stages an enrollment.deleted event per node.
	Notify bool
}

func DefaultArchiveOptions() ArchiveOptions {
	return ArchiveOptions{Children: true, CreateRevision: true, Notify: true}
}

// ArchiveService hard-deletes enrollment subtrees while preserving audit:
// per removed node it unlinks plans, archives plan references, snapshots
// the row and stages a deletion event carrying the pre-deletion state.
type ArchiveService struct {
	enrollments enrollment.Repository
	plans       plan.Repository
	users       UserDirectory
	bus         outbox.Bus
	clock       clockwork.Clock
}

func NewArchiveService(
	enrollments enrollment.Repository,
	plans plan.Repository,
	users UserDirectory,
	bus outbox.Bus,
	clock clockwork.Clock,
) *ArchiveService {
	return &ArchiveService{
		enrollments: enrollments,
		plans:       plans,
		users:       users,
		bus:         bus,
		clock:       clock,
	}
}

// Archive removes an enrollment (and, per options, its subtree) in one
// transactional unit. Archiving a missing id is a no-op success, but any
// orphan plan links for that id are still cleaned up.
func (s *ArchiveService) Archive(ctx context.Context, enrollmentID int64, opts ArchiveOptions) error {
	actorID, err := composables.UseActorID(ctx)
	if err != nil {
		actorID = 0
	}
	return outbox.Run(ctx, s.bus, func(txCtx context.Context, batch *outbox.Batch) error {
		return s.archiveNode(txCtx, batch, enrollmentID, opts, actorID)
	})
}

// archiveNode is the per-node walk, shared with the reassignment workflow
// which runs it inside its own transaction. Children are removed before
// their parent.
func (s *ArchiveService) archiveNode(ctx context.Context, batch *outbox.Batch, enrollmentID int64, opts ArchiveOptions, actorID int64) error {
	e, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, enrollment.ErrNotFound) {
			// Defensive cleanup of links left behind by earlier
			// inconsistent state.
			if err := s.plans.UnlinkByEnrollment(ctx, enrollmentID); err != nil {
				return mapPgErrorToServiceError(err)
			}
			return nil
		}
		return mapPgErrorToServiceError(err)
	}

	if opts.Children {
		children, err := s.enrollments.GetChildren(ctx, e.ID)
		if err != nil {
			return mapPgErrorToServiceError(err)
		}
		for _, child := range children {
			if err := s.archiveNode(ctx, batch, child.ID, opts, actorID); err != nil {
				return err
			}
		}
	}

	return s.removeNode(ctx, batch, e, opts, actorID)
}

func (s *ArchiveService) removeNode(ctx context.Context, batch *outbox.Batch, e *enrollment.Enrollment, opts ArchiveOptions, actorID int64) error {
	now := s.clock.Now().UTC()

	linkedPlans, err := s.plans.PlanIDsByEnrollment(ctx, e.ID)
	if err != nil {
		return mapPgErrorToServiceError(err)
	}
	if err := s.plans.UnlinkByEnrollment(ctx, e.ID); err != nil {
		return mapPgErrorToServiceError(err)
	}
	for _, planID := range linkedPlans {
		if err := s.plans.ArchiveReferencesByPlan(ctx, planID); err != nil {
			return mapPgErrorToServiceError(err)
		}
	}

	// Snapshot and event both carry the state as it was before deletion.
	e.History = append(e.History, enrollment.HistoryEntry{
		Action:    enrollment.ActionDelete,
		ActorID:   actorID,
		Status:    e.Status,
		Timestamp: now,
	})
	if opts.CreateRevision {
		if err := s.enrollments.CreateRevision(ctx, &enrollment.Revision{
			TenantID:     e.TenantID,
			EnrollmentID: e.ID,
			Snapshot:     *e,
			CreatedBy:    actorID,
			CreatedAt:    now,
		}); err != nil {
			return mapPgErrorToServiceError(err)
		}
	}

	if err := s.enrollments.Delete(ctx, e.ID); err != nil {
		return mapPgErrorToServiceError(err)
	}

	if !opts.Notify {
		return nil
	}
	return batch.Stage(events.TopicEnrollmentDeletedV1, e.TenantID, events.EnrollmentDeletedV1{
		ID:        e.ID,
		ContentID: e.ContentID,
		Status:    string(e.Status),
		UserID:    e.UserID,
		Result:    e.Result,
		Passed:    e.Passed,
		Embedded:  embeddedAccount(ctx, s.users, e.UserID),
	})
}
