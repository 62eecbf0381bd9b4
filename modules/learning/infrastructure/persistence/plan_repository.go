package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/plan"
	"github.com/openlms-dev/openlms/modules/learning/infrastructure/persistence/models"
	"github.com/openlms-dev/openlms/pkg/composables"
	"github.com/openlms-dev/openlms/pkg/repo"
)

const planColumns = `
	id, tenant_id, user_id, assigner_id, entity_type, entity_id,
	status, archived, due_at, created_at, note, original`

type PlanRepository struct{}

func NewPlanRepository() plan.Repository {
	return &PlanRepository{}
}

func (r *PlanRepository) GetByID(ctx context.Context, id int64) (*plan.Plan, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, tx,
		`SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
}

func (r *PlanRepository) GetLiveByTarget(ctx context.Context, tenantID uuid.UUID, userID int64, entityType plan.EntityType, entityID int64) (*plan.Plan, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, tx,
		`SELECT `+planColumns+` FROM plans
		 WHERE tenant_id = $1 AND user_id = $2 AND entity_type = $3 AND entity_id = $4
		   AND NOT archived`,
		tenantID, userID, string(entityType), entityID)
}

func (r *PlanRepository) Create(ctx context.Context, p *plan.Plan) (*plan.Plan, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	dbRow := toDBPlan(p)
	if err := tx.QueryRow(ctx,
		`INSERT INTO plans (tenant_id, user_id, assigner_id, entity_type, entity_id, status, archived, due_at, created_at, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		dbRow.TenantID,
		dbRow.UserID,
		dbRow.AssignerID,
		dbRow.EntityType,
		dbRow.EntityID,
		dbRow.Status,
		dbRow.Archived,
		dbRow.DueAt,
		dbRow.CreatedAt,
		dbRow.Note,
	).Scan(&p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateOrGetLive races concurrent inserts on the partial unique index
// behind the one-live-plan invariant. ON CONFLICT DO NOTHING keeps a lost
// race from aborting the enclosing transaction, so the follow-up lookup
// runs on a healthy tx and returns the winner.
func (r *PlanRepository) CreateOrGetLive(ctx context.Context, p *plan.Plan) (*plan.Plan, bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, false, err
	}

	dbRow := toDBPlan(p)
	err = tx.QueryRow(ctx,
		`INSERT INTO plans (tenant_id, user_id, assigner_id, entity_type, entity_id, status, archived, due_at, created_at, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (tenant_id, user_id, entity_type, entity_id) WHERE NOT archived DO NOTHING
		 RETURNING id`,
		dbRow.TenantID,
		dbRow.UserID,
		dbRow.AssignerID,
		dbRow.EntityType,
		dbRow.EntityID,
		dbRow.Status,
		dbRow.Archived,
		dbRow.DueAt,
		dbRow.CreatedAt,
		dbRow.Note,
	).Scan(&p.ID)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	existing, err := r.GetLiveByTarget(ctx, p.TenantID, p.UserID, p.EntityType, p.EntityID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *PlanRepository) UpdateDueDate(ctx context.Context, id int64, dueAt time.Time) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE plans SET due_at = $2 WHERE id = $1`, id, dueAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return plan.ErrNotFound
	}
	return nil
}

func (r *PlanRepository) Archive(ctx context.Context, id int64, original plan.Original) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(original)
	if err != nil {
		return gerrors.Wrap(err, "encode plan original")
	}

	tag, err := tx.Exec(ctx,
		`UPDATE plans SET archived = TRUE, original = $2 WHERE id = $1`,
		id, encoded)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return plan.ErrNotFound
	}
	return nil
}

func (r *PlanRepository) LinkEnrollment(ctx context.Context, enrollmentID, planID int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO enrollment_plan_links (enrollment_id, plan_id) VALUES ($1, $2)`,
		enrollmentID, planID)
	return err
}

func (r *PlanRepository) UnlinkByEnrollment(ctx context.Context, enrollmentID int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM enrollment_plan_links WHERE enrollment_id = $1`, enrollmentID)
	return err
}

func (r *PlanRepository) UnlinkByPlan(ctx context.Context, planID int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM enrollment_plan_links WHERE plan_id = $1`, planID)
	return err
}

func (r *PlanRepository) PlanIDsByEnrollment(ctx context.Context, enrollmentID int64) ([]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		`SELECT plan_id FROM enrollment_plan_links WHERE enrollment_id = $1 ORDER BY plan_id`,
		enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PlanRepository) AddReference(ctx context.Context, ref *plan.Reference) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	return tx.QueryRow(ctx,
		`INSERT INTO plan_references (plan_id, source_type, source_id, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		ref.PlanID, ref.SourceType, ref.SourceID, ref.Status,
	).Scan(&ref.ID)
}

func (r *PlanRepository) ArchiveReferencesByPlan(ctx context.Context, planID int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE plan_references SET status = $2 WHERE plan_id = $1`,
		planID, plan.RefArchived)
	return err
}

func (r *PlanRepository) queryOne(ctx context.Context, tx repo.Tx, query string, args ...interface{}) (*plan.Plan, error) {
	var dbRow models.Plan
	if err := tx.QueryRow(ctx, query, args...).Scan(
		&dbRow.ID,
		&dbRow.TenantID,
		&dbRow.UserID,
		&dbRow.AssignerID,
		&dbRow.EntityType,
		&dbRow.EntityID,
		&dbRow.Status,
		&dbRow.Archived,
		&dbRow.DueAt,
		&dbRow.CreatedAt,
		&dbRow.Note,
		&dbRow.Original,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, plan.ErrNotFound
		}
		return nil, err
	}
	return toDomainPlan(&dbRow)
}
