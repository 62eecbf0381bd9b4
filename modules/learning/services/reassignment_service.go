package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/enrollment"
	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/plan"
	"github.com/openlms-dev/openlms/modules/learning/domain/events"
	"github.com/openlms-dev/openlms/pkg/outbox"
)

// ReassignmentService atomically retires a learner's current plan and/or
// enrollment for a target and creates a fresh plan, carrying the old
// plan's assigner into the new plan's audit trail. The old plan row is
// kept, archived and unlinked; notifications for the retirement itself
// are suppressed.
type ReassignmentService struct {
	plans       plan.Repository
	enrollments enrollment.Repository
	archive     *ArchiveService
	bus         outbox.Bus
	clock       clockwork.Clock
}

func NewReassignmentService(
	plans plan.Repository,
	enrollments enrollment.Repository,
	archive *ArchiveService,
	bus outbox.Bus,
	clock clockwork.Clock,
) *ReassignmentService {
	return &ReassignmentService{
		plans:       plans,
		enrollments: enrollments,
		archive:     archive,
		bus:         bus,
		clock:       clock,
	}
}

// reassignRequest is the one internal shape both entry points resolve to.
type reassignRequest struct {
	planID     int64
	tenantID   uuid.UUID
	userID     int64
	contentID  int64
	dueAt      time.Time
	reassignAt time.Time
	assignerID int64
	action     string
}

// ReassignPlan retires a specific plan by id and replaces it. This is the
// operator-driven entry point; the creation event is tagged "reassigned".
func (s *ReassignmentService) ReassignPlan(ctx context.Context, planID int64, dueAt, reassignAt time.Time, assignerID int64) (int64, error) {
	return s.reassign(ctx, reassignRequest{
		planID:     planID,
		dueAt:      dueAt,
		reassignAt: reassignAt,
		assignerID: assignerID,
		action:     events.ActionReassigned,
	})
}

// ReassignTarget retires whatever plan currently covers the (learner,
// content, portal) triple. Used by automatic flows such as recurring
// assignments; the creation event is tagged "auto-reassigned".
func (s *ReassignmentService) ReassignTarget(ctx context.Context, tenantID uuid.UUID, userID, contentID int64, dueAt, reassignAt time.Time, assignerID int64) (int64, error) {
	return s.reassign(ctx, reassignRequest{
		tenantID:   tenantID,
		userID:     userID,
		contentID:  contentID,
		dueAt:      dueAt,
		reassignAt: reassignAt,
		assignerID: assignerID,
		action:     events.ActionAutoReassigned,
	})
}

func (s *ReassignmentService) reassign(ctx context.Context, req reassignRequest) (int64, error) {
	return outbox.RunResult(ctx, s.bus, func(txCtx context.Context, batch *outbox.Batch) (int64, error) {
		current, err := s.resolvePlan(txCtx, &req)
		if err != nil {
			return 0, err
		}

		assignerID := req.assignerID
		if assignerID == 0 && current != nil {
			assignerID = current.AssignerID
		}

		// Retire the enrollment first so the delete event precedes the
		// plan transition. Children are kept: reassignment resets the
		// target, not the learner's whole subtree history.
		cur, err := s.enrollments.GetByTarget(txCtx, req.tenantID, req.userID, req.contentID)
		switch {
		case err == nil:
			opts := DefaultArchiveOptions()
			opts.Children = false
			if err := s.archive.archiveNode(txCtx, batch, cur.ID, opts, assignerID); err != nil {
				return 0, err
			}
		case errors.Is(err, enrollment.ErrNotFound):
		default:
			return 0, mapPgErrorToServiceError(err)
		}

		newPlan := &plan.Plan{
			TenantID:   req.tenantID,
			UserID:     req.userID,
			AssignerID: assignerID,
			EntityType: plan.EntityTypeContent,
			EntityID:   req.contentID,
			Status:     plan.StatusAssigned,
			DueAt:      req.dueAt,
			CreatedAt:  req.reassignAt,
		}

		if current != nil {
			// Clone target and note from the retired plan.
			newPlan.EntityType = current.EntityType
			newPlan.EntityID = current.EntityID
			newPlan.Note = current.Note

			if err := s.plans.UnlinkByPlan(txCtx, current.ID); err != nil {
				return 0, mapPgErrorToServiceError(err)
			}
			if err := s.plans.Archive(txCtx, current.ID, plan.Original{AssignerID: current.AssignerID}); err != nil {
				return 0, mapPgErrorToServiceError(err)
			}
			if err := batch.Stage(events.TopicPlanChangedV1, req.tenantID, events.PlanChangedV1{
				ID:       current.ID,
				Original: events.OriginalV1{AssignerID: current.AssignerID},
				Silent:   true,
			}); err != nil {
				return 0, err
			}
		}

		created, err := s.plans.Create(txCtx, newPlan)
		if err != nil {
			return 0, mapPgErrorToServiceError(err)
		}

		if err := batch.Stage(events.TopicPlanCreatedV1, created.TenantID, events.PlanCreatedV1{
			ID:          created.ID,
			UserID:      created.UserID,
			AssignerID:  created.AssignerID,
			InstanceID:  created.TenantID,
			EntityID:    created.EntityID,
			Status:      string(created.Status),
			DueDate:     created.DueAt,
			CreatedDate: created.CreatedAt,
			Action:      req.action,
		}); err != nil {
			return 0, err
		}
		return created.ID, nil
	})
}

// resolvePlan fills the request's target from the selector and returns
// the current live plan, if any.
func (s *ReassignmentService) resolvePlan(ctx context.Context, req *reassignRequest) (*plan.Plan, error) {
	if req.planID != 0 {
		p, err := s.plans.GetByID(ctx, req.planID)
		if err != nil {
			return nil, mapPgErrorToServiceError(err)
		}
		if p.Archived {
			return nil, newServiceError(http.StatusConflict, "LEARN_PLAN_ARCHIVED", "plan is already archived", nil)
		}
		req.tenantID = p.TenantID
		req.userID = p.UserID
		req.contentID = p.EntityID
		return p, nil
	}

	p, err := s.plans.GetLiveByTarget(ctx, req.tenantID, req.userID, plan.EntityTypeContent, req.contentID)
	if err != nil {
		if errors.Is(err, plan.ErrNotFound) {
			return nil, nil
		}
		return nil, mapPgErrorToServiceError(err)
	}
	return p, nil
}
