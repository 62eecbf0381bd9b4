package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/plan"
	"github.com/openlms-dev/openlms/modules/learning/domain/events"
)

func newPlanFixture(t *testing.T) (*PlanService, *memPlanRepo, *stubBus) {
	t.Helper()
	plans := newMemPlanRepo()
	bus := &stubBus{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	return NewPlanService(plans, bus, clock), plans, bus
}

func TestPlanService_Merge_CreatesPlan(t *testing.T) {
	svc, plans, bus := newPlanFixture(t)
	tenantID := uuid.New()

	dueAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	id, err := svc.Merge(testContext(), &plan.Plan{
		TenantID: tenantID, UserID: 7, AssignerID: 11,
		EntityID: 100, DueAt: dueAt,
	}, true, []plan.Reference{{SourceType: "group", SourceID: 9}})
	require.NoError(t, err)

	created, err := plans.GetByID(testContext(), id)
	require.NoError(t, err)
	require.Equal(t, plan.StatusAssigned, created.Status)
	require.Equal(t, plan.EntityTypeContent, created.EntityType)
	require.False(t, created.CreatedAt.IsZero())

	require.Len(t, plans.refs, 1)
	require.Equal(t, id, plans.refs[0].PlanID)
	require.Equal(t, plan.RefActive, plans.refs[0].Status)

	require.Equal(t, []string{events.TopicPlanCreatedV1}, bus.topics())
	var evt events.PlanCreatedV1
	require.NoError(t, json.Unmarshal(bus.published[0].Payload, &evt))
	require.Equal(t, events.ActionAssigned, evt.Action)
	require.Equal(t, tenantID, evt.InstanceID)
	require.Equal(t, dueAt, evt.DueDate)
}

func TestPlanService_Merge_AbsorbsDuplicateTarget(t *testing.T) {
	svc, plans, bus := newPlanFixture(t)
	tenantID := uuid.New()

	existing := plans.add(plan.Plan{
		TenantID: tenantID, UserID: 7, AssignerID: 11,
		EntityType: plan.EntityTypeContent, EntityID: 100,
	})

	// The insert loses to the already-live plan; merge resolves to the
	// winner without raising and without poisoning the transaction, so
	// the follow-up reference write still succeeds.
	id, err := svc.Merge(testContext(), &plan.Plan{
		TenantID: tenantID, UserID: 7, AssignerID: 13, EntityID: 100,
	}, true, []plan.Reference{{SourceType: "group", SourceID: 9}})
	require.NoError(t, err)
	require.Equal(t, existing.ID, id)

	// No duplicate row, no creation event, but the reference still lands
	// on the surviving plan.
	require.Len(t, plans.plans, 1)
	require.Empty(t, bus.published)
	require.Len(t, plans.refs, 1)
	require.Equal(t, existing.ID, plans.refs[0].PlanID)

	// A second equivalent call keeps converging on the same plan.
	again, err := svc.Merge(testContext(), &plan.Plan{
		TenantID: tenantID, UserID: 7, AssignerID: 13, EntityID: 100,
	}, true, nil)
	require.NoError(t, err)
	require.Equal(t, existing.ID, again)
	require.Len(t, plans.plans, 1)
	require.Empty(t, bus.published)
}

func TestPlanService_Merge_Silent(t *testing.T) {
	svc, plans, bus := newPlanFixture(t)

	id, err := svc.Merge(testContext(), &plan.Plan{
		TenantID: uuid.New(), UserID: 7, EntityID: 100,
	}, false, nil)
	require.NoError(t, err)

	_, err = plans.GetByID(testContext(), id)
	require.NoError(t, err)
	require.Empty(t, bus.published)
}

func TestPlanService_Merge_OtherConflictFails(t *testing.T) {
	svc, plans, _ := newPlanFixture(t)
	plans.createErr = &pgconn.PgError{Code: "23505", ConstraintName: "plans_pkey"}

	_, err := svc.Merge(testContext(), &plan.Plan{TenantID: uuid.New(), UserID: 7, EntityID: 100}, true, nil)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "LEARN_CONFLICT", svcErr.Code)
}

func TestPlanService_UpdateDueDate(t *testing.T) {
	svc, plans, bus := newPlanFixture(t)
	p := plans.add(plan.Plan{TenantID: uuid.New(), UserID: 7, AssignerID: 11, EntityType: plan.EntityTypeContent, EntityID: 100})

	dueAt := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.UpdateDueDate(testContext(), p.ID, dueAt))

	got, err := plans.GetByID(testContext(), p.ID)
	require.NoError(t, err)
	require.Equal(t, dueAt, got.DueAt)

	require.Equal(t, []string{events.TopicPlanChangedV1}, bus.topics())
	var evt events.PlanChangedV1
	require.NoError(t, json.Unmarshal(bus.published[0].Payload, &evt))
	require.Equal(t, p.ID, evt.ID)
	require.Equal(t, int64(11), evt.Original.AssignerID)
	require.NotNil(t, evt.DueDate)
	require.Equal(t, dueAt, *evt.DueDate)
	require.False(t, evt.Silent)
}

func TestPlanService_UpdateDueDate_NotFound(t *testing.T) {
	svc, _, _ := newPlanFixture(t)

	err := svc.UpdateDueDate(testContext(), 99, time.Now())
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "LEARN_NOT_FOUND", svcErr.Code)
}

func TestPlanService_LinkEnrollment(t *testing.T) {
	svc, plans, _ := newPlanFixture(t)

	require.NoError(t, svc.LinkEnrollment(testContext(), 1, 5))
	require.Equal(t, []int64{5}, plans.links[1])
}
