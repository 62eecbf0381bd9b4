package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/plan"
	"github.com/openlms-dev/openlms/modules/learning/domain/events"
	"github.com/openlms-dev/openlms/pkg/composables"
	"github.com/openlms-dev/openlms/pkg/outbox"
)

// PlanService creates and maintains plans. Merge is the assignment entry
// point: concurrent assigners racing on the same target converge on one
// live plan instead of surfacing a unique violation.
type PlanService struct {
	plans plan.Repository
	bus   outbox.Bus
	clock clockwork.Clock
}

func NewPlanService(plans plan.Repository, bus outbox.Bus, clock clockwork.Clock) *PlanService {
	return &PlanService{plans: plans, bus: bus, clock: clock}
}

// Merge inserts the draft plan unless a live plan already covers its
// target, in which case the existing plan's id is returned and nothing
// is written. A concurrent insert on the same target is absorbed the
// same way, so the call is idempotent under races. notify controls
// whether a creation event is staged.
func (s *PlanService) Merge(ctx context.Context, draft *plan.Plan, notify bool, refs []plan.Reference) (int64, error) {
	return outbox.RunResult(ctx, s.bus, func(txCtx context.Context, batch *outbox.Batch) (int64, error) {
		if draft.CreatedAt.IsZero() {
			draft.CreatedAt = s.clock.Now()
		}
		if draft.Status == "" {
			draft.Status = plan.StatusAssigned
		}
		if draft.EntityType == "" {
			draft.EntityType = plan.EntityTypeContent
		}

		created, inserted, err := s.plans.CreateOrGetLive(txCtx, draft)
		if err != nil {
			return 0, mapPgErrorToServiceError(err)
		}
		if !inserted {
			composables.UseLogger(txCtx).WithField("plan_id", created.ID).
				Info("plan merge absorbed duplicate target")
			if err := s.attachReferences(txCtx, created.ID, refs); err != nil {
				return 0, err
			}
			return created.ID, nil
		}

		if err := s.attachReferences(txCtx, created.ID, refs); err != nil {
			return 0, err
		}
		if !notify {
			return created.ID, nil
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
			Action:      events.ActionAssigned,
		}); err != nil {
			return 0, err
		}
		return created.ID, nil
	})
}

// attachReferences records provenance on whichever plan the merge landed
// on, so group assignments pointing at an absorbed duplicate still show
// up on the surviving plan.
func (s *PlanService) attachReferences(ctx context.Context, planID int64, refs []plan.Reference) error {
	for i := range refs {
		ref := refs[i]
		ref.PlanID = planID
		ref.Status = plan.RefActive
		if err := s.plans.AddReference(ctx, &ref); err != nil {
			return mapPgErrorToServiceError(err)
		}
	}
	return nil
}

// UpdateDueDate moves a plan's due date and notifies consumers.
func (s *PlanService) UpdateDueDate(ctx context.Context, planID int64, dueAt time.Time) error {
	return outbox.Run(ctx, s.bus, func(txCtx context.Context, batch *outbox.Batch) error {
		p, err := s.plans.GetByID(txCtx, planID)
		if err != nil {
			return mapPgErrorToServiceError(err)
		}
		if err := s.plans.UpdateDueDate(txCtx, planID, dueAt); err != nil {
			return mapPgErrorToServiceError(err)
		}
		return batch.Stage(events.TopicPlanChangedV1, p.TenantID, events.PlanChangedV1{
			ID:       p.ID,
			Original: events.OriginalV1{AssignerID: p.AssignerID},
			DueDate:  &dueAt,
		})
	})
}

// LinkEnrollment ties an enrollment row to the plan that spawned it.
func (s *PlanService) LinkEnrollment(ctx context.Context, enrollmentID, planID int64) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		if err := s.plans.LinkEnrollment(txCtx, enrollmentID, planID); err != nil {
			return mapPgErrorToServiceError(err)
		}
		return nil
	})
}
