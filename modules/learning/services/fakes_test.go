package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/enrollment"
	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/plan"
	"github.com/openlms-dev/openlms/pkg/composables"
	"github.com/openlms-dev/openlms/pkg/outbox"
)

var errBusDown = errors.New("bus down")

// fakeTx satisfies pgx.Tx by interface embedding; none of its methods are
// ever called because composables.InTx reuses a transaction already in the
// context.
type fakeTx struct{ pgx.Tx }

func testContext() context.Context {
	ctx := composables.WithTx(context.Background(), fakeTx{})
	return composables.WithActorID(ctx, 42)
}

// stubBus records published messages and can be forced down.
type stubBus struct {
	mu        sync.Mutex
	pingErr   error
	published []outbox.Message
}

func (b *stubBus) Ping(context.Context) error { return b.pingErr }

func (b *stubBus) Publish(_ context.Context, msg outbox.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, msg)
	return nil
}

func (b *stubBus) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.published))
	for _, m := range b.published {
		out = append(out, m.Topic)
	}
	return out
}

// stubDirectory resolves every id to a deterministic account.
type stubDirectory struct {
	err error
}

func (d *stubDirectory) Account(_ context.Context, userID int64) (Account, error) {
	if d.err != nil {
		return Account{}, d.err
	}
	return Account{ID: userID, Email: "learner@example.com", Name: "Learner", Status: "active"}, nil
}

// memEnrollmentRepo is an in-memory enrollment.Repository.
type memEnrollmentRepo struct {
	nextID    int64
	items     map[int64]enrollment.Enrollment
	revisions []enrollment.Revision
	updates   int
	deleted   []int64
}

func newMemEnrollmentRepo() *memEnrollmentRepo {
	return &memEnrollmentRepo{nextID: 1, items: map[int64]enrollment.Enrollment{}}
}

func (r *memEnrollmentRepo) add(e enrollment.Enrollment) *enrollment.Enrollment {
	if e.ID == 0 {
		e.ID = r.nextID
		r.nextID++
	} else if e.ID >= r.nextID {
		r.nextID = e.ID + 1
	}
	r.items[e.ID] = e
	return &e
}

func (r *memEnrollmentRepo) GetByID(_ context.Context, id int64) (*enrollment.Enrollment, error) {
	e, ok := r.items[id]
	if !ok {
		return nil, enrollment.ErrNotFound
	}
	out := e
	return &out, nil
}

func (r *memEnrollmentRepo) GetByTarget(_ context.Context, tenantID uuid.UUID, userID, contentID int64) (*enrollment.Enrollment, error) {
	for _, e := range r.items {
		if e.TenantID == tenantID && e.UserID == userID && e.ContentID == contentID {
			out := e
			return &out, nil
		}
	}
	return nil, enrollment.ErrNotFound
}

func (r *memEnrollmentRepo) GetChildren(_ context.Context, parentID int64) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for id := int64(1); id < r.nextID; id++ {
		e, ok := r.items[id]
		if ok && e.ParentID == parentID {
			c := e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memEnrollmentRepo) Create(_ context.Context, e *enrollment.Enrollment) (*enrollment.Enrollment, error) {
	return r.add(*e), nil
}

func (r *memEnrollmentRepo) Update(_ context.Context, e *enrollment.Enrollment) error {
	if _, ok := r.items[e.ID]; !ok {
		return enrollment.ErrNotFound
	}
	r.items[e.ID] = *e
	r.updates++
	return nil
}

func (r *memEnrollmentRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return enrollment.ErrNotFound
	}
	delete(r.items, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *memEnrollmentRepo) CreateRevision(_ context.Context, rev *enrollment.Revision) error {
	r.revisions = append(r.revisions, *rev)
	return nil
}

// memPlanRepo is an in-memory plan.Repository.
type memPlanRepo struct {
	nextID    int64
	plans     map[int64]plan.Plan
	links     map[int64][]int64 // enrollmentID -> planIDs
	refs      []plan.Reference
	createErr error
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{nextID: 1, plans: map[int64]plan.Plan{}, links: map[int64][]int64{}}
}

func (r *memPlanRepo) add(p plan.Plan) *plan.Plan {
	if p.ID == 0 {
		p.ID = r.nextID
		r.nextID++
	} else if p.ID >= r.nextID {
		r.nextID = p.ID + 1
	}
	r.plans[p.ID] = p
	return &p
}

func (r *memPlanRepo) GetByID(_ context.Context, id int64) (*plan.Plan, error) {
	p, ok := r.plans[id]
	if !ok {
		return nil, plan.ErrNotFound
	}
	out := p
	return &out, nil
}

func (r *memPlanRepo) GetLiveByTarget(_ context.Context, tenantID uuid.UUID, userID int64, entityType plan.EntityType, entityID int64) (*plan.Plan, error) {
	for _, p := range r.plans {
		if !p.Archived && p.TenantID == tenantID && p.UserID == userID && p.EntityType == entityType && p.EntityID == entityID {
			out := p
			return &out, nil
		}
	}
	return nil, plan.ErrNotFound
}

func (r *memPlanRepo) Create(_ context.Context, p *plan.Plan) (*plan.Plan, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.add(*p), nil
}

// CreateOrGetLive mirrors the ON CONFLICT DO NOTHING insert: a target
// collision yields the surviving row, never an error.
func (r *memPlanRepo) CreateOrGetLive(ctx context.Context, p *plan.Plan) (*plan.Plan, bool, error) {
	if r.createErr != nil {
		return nil, false, r.createErr
	}
	if existing, err := r.GetLiveByTarget(ctx, p.TenantID, p.UserID, p.EntityType, p.EntityID); err == nil {
		return existing, false, nil
	}
	return r.add(*p), true, nil
}

func (r *memPlanRepo) UpdateDueDate(_ context.Context, id int64, dueAt time.Time) error {
	p, ok := r.plans[id]
	if !ok {
		return plan.ErrNotFound
	}
	p.DueAt = dueAt
	r.plans[id] = p
	return nil
}

func (r *memPlanRepo) Archive(_ context.Context, id int64, original plan.Original) error {
	p, ok := r.plans[id]
	if !ok {
		return plan.ErrNotFound
	}
	p.Archived = true
	p.Original = original
	r.plans[id] = p
	return nil
}

func (r *memPlanRepo) LinkEnrollment(_ context.Context, enrollmentID, planID int64) error {
	r.links[enrollmentID] = append(r.links[enrollmentID], planID)
	return nil
}

func (r *memPlanRepo) UnlinkByEnrollment(_ context.Context, enrollmentID int64) error {
	delete(r.links, enrollmentID)
	return nil
}

func (r *memPlanRepo) UnlinkByPlan(_ context.Context, planID int64) error {
	for enrollmentID, planIDs := range r.links {
		kept := planIDs[:0]
		for _, id := range planIDs {
			if id != planID {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(r.links, enrollmentID)
		} else {
			r.links[enrollmentID] = kept
		}
	}
	return nil
}

func (r *memPlanRepo) PlanIDsByEnrollment(_ context.Context, enrollmentID int64) ([]int64, error) {
	return append([]int64(nil), r.links[enrollmentID]...), nil
}

func (r *memPlanRepo) AddReference(_ context.Context, ref *plan.Reference) error {
	cp := *ref
	cp.ID = int64(len(r.refs) + 1)
	r.refs = append(r.refs, cp)
	return nil
}

func (r *memPlanRepo) ArchiveReferencesByPlan(_ context.Context, planID int64) error {
	for i := range r.refs {
		if r.refs[i].PlanID == planID {
			r.refs[i].Status = plan.RefArchived
		}
	}
	return nil
}
