package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/enrollment"
	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/plan"
	"github.com/openlms-dev/openlms/modules/learning/domain/events"
)

func newReassignFixture(t *testing.T) (*ReassignmentService, *memEnrollmentRepo, *memPlanRepo, *stubBus) {
	t.Helper()
	enrollments := newMemEnrollmentRepo()
	plans := newMemPlanRepo()
	bus := &stubBus{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	archive := NewArchiveService(enrollments, plans, &stubDirectory{}, bus, clock)
	svc := NewReassignmentService(plans, enrollments, archive, bus, clock)
	return svc, enrollments, plans, bus
}

func TestReassignmentService_ReassignPlan(t *testing.T) {
	svc, enrollments, plans, bus := newReassignFixture(t)
	tenantID := uuid.New()

	old := plans.add(plan.Plan{
		TenantID: tenantID, UserID: 7, AssignerID: 11,
		EntityType: plan.EntityTypeContent, EntityID: 100,
		Status: plan.StatusAssigned, Note: "onboarding",
		DueAt:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	e := enrollments.add(enrollment.Enrollment{
		TenantID: tenantID, UserID: 7, ContentID: 100,
		Status: enrollment.StatusCompleted, Passed: true,
	})
	require.NoError(t, plans.LinkEnrollment(testContext(), e.ID, old.ID))

	dueAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	reassignAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	newID, err := svc.ReassignPlan(testContext(), old.ID, dueAt, reassignAt, 0)
	require.NoError(t, err)
	require.NotEqual(t, old.ID, newID)

	// Old plan survives archived, carrying its original assigner.
	archived, err := plans.GetByID(testContext(), old.ID)
	require.NoError(t, err)
	require.True(t, archived.Archived)
	require.Equal(t, int64(11), archived.Original.AssignerID)
	require.Empty(t, plans.links)

	// Assigner 0 falls back to the retired plan's assigner; the note and
	// target carry over, the dates are the caller's.
	created, err := plans.GetByID(testContext(), newID)
	require.NoError(t, err)
	require.False(t, created.Archived)
	require.Equal(t, int64(11), created.AssignerID)
	require.Equal(t, int64(100), created.EntityID)
	require.Equal(t, "onboarding", created.Note)
	require.Equal(t, dueAt, created.DueAt)
	require.Equal(t, reassignAt, created.CreatedAt)

	// The completed enrollment is gone; its children would be kept.
	require.Equal(t, []int64{e.ID}, enrollments.deleted)

	require.Equal(t, []string{
		events.TopicEnrollmentDeletedV1,
		events.TopicPlanChangedV1,
		events.TopicPlanCreatedV1,
	}, bus.topics())

	var changed events.PlanChangedV1
	require.NoError(t, json.Unmarshal(bus.published[1].Payload, &changed))
	require.Equal(t, old.ID, changed.ID)
	require.True(t, changed.Silent)
	require.Equal(t, int64(11), changed.Original.AssignerID)

	var createdEvt events.PlanCreatedV1
	require.NoError(t, json.Unmarshal(bus.published[2].Payload, &createdEvt))
	require.Equal(t, newID, createdEvt.ID)
	require.Equal(t, events.ActionReassigned, createdEvt.Action)
	require.Equal(t, tenantID, createdEvt.InstanceID)
}

func TestReassignmentService_ReassignPlan_AlreadyArchived(t *testing.T) {
	svc, _, plans, _ := newReassignFixture(t)
	old := plans.add(plan.Plan{TenantID: uuid.New(), UserID: 7, EntityType: plan.EntityTypeContent, EntityID: 100, Archived: true})

	_, err := svc.ReassignPlan(testContext(), old.ID, time.Now(), time.Now(), 11)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "LEARN_PLAN_ARCHIVED", svcErr.Code)
}

func TestReassignmentService_ReassignTarget(t *testing.T) {
	svc, enrollments, plans, bus := newReassignFixture(t)
	tenantID := uuid.New()

	plans.add(plan.Plan{
		TenantID: tenantID, UserID: 7, AssignerID: 11,
		EntityType: plan.EntityTypeContent, EntityID: 100,
	})
	enrollments.add(enrollment.Enrollment{TenantID: tenantID, UserID: 7, ContentID: 100, Status: enrollment.StatusCompleted})

	dueAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	newID, err := svc.ReassignTarget(testContext(), tenantID, 7, 100, dueAt, dueAt.AddDate(0, -3, 0), 13)
	require.NoError(t, err)

	created, err := plans.GetByID(testContext(), newID)
	require.NoError(t, err)
	require.Equal(t, int64(13), created.AssignerID)

	var createdEvt events.PlanCreatedV1
	require.NoError(t, json.Unmarshal(bus.published[len(bus.published)-1].Payload, &createdEvt))
	require.Equal(t, events.ActionAutoReassigned, createdEvt.Action)
}

func TestReassignmentService_ReassignTarget_NoExistingState(t *testing.T) {
	svc, enrollments, plans, bus := newReassignFixture(t)
	tenantID := uuid.New()

	// Nothing to retire: only the creation happens.
	dueAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	newID, err := svc.ReassignTarget(testContext(), tenantID, 7, 100, dueAt, dueAt, 13)
	require.NoError(t, err)

	created, err := plans.GetByID(testContext(), newID)
	require.NoError(t, err)
	require.Equal(t, plan.StatusAssigned, created.Status)
	require.Equal(t, plan.EntityTypeContent, created.EntityType)
	require.Empty(t, enrollments.deleted)
	require.Equal(t, []string{events.TopicPlanCreatedV1}, bus.topics())
}

func TestReassignmentService_BusDownMutatesNothing(t *testing.T) {
	enrollments := newMemEnrollmentRepo()
	plans := newMemPlanRepo()
	tenantID := uuid.New()
	old := plans.add(plan.Plan{TenantID: tenantID, UserID: 7, AssignerID: 11, EntityType: plan.EntityTypeContent, EntityID: 100})
	enrollments.add(enrollment.Enrollment{TenantID: tenantID, UserID: 7, ContentID: 100, Status: enrollment.StatusInProgress})

	bus := &stubBus{pingErr: errBusDown}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	archive := NewArchiveService(enrollments, plans, &stubDirectory{}, bus, clock)
	svc := NewReassignmentService(plans, enrollments, archive, bus, clock)

	_, err := svc.ReassignPlan(testContext(), old.ID, time.Now(), time.Now(), 0)
	require.Error(t, err)

	got, getErr := plans.GetByID(testContext(), old.ID)
	require.NoError(t, getErr)
	require.False(t, got.Archived)
	require.Empty(t, enrollments.deleted)
	require.Len(t, plans.plans, 1)
}
