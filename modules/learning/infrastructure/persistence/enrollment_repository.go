package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/enrollment"
	"github.com/openlms-dev/openlms/modules/learning/infrastructure/persistence/models"
	"github.com/openlms-dev/openlms/pkg/composables"
	"github.com/openlms-dev/openlms/pkg/repo"
)

const enrollmentColumns = `
	id, tenant_id, user_id, content_id, parent_content_id, parent_id,
	content_type, elective_count, status, passed, result,
	started_at, ended_at, changed_at, history, created_by`

type EnrollmentRepository struct{}

func NewEnrollmentRepository() enrollment.Repository {
	return &EnrollmentRepository{}
}

func (r *EnrollmentRepository) GetByID(ctx context.Context, id int64) (*enrollment.Enrollment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, tx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id)
}

func (r *EnrollmentRepository) GetByTarget(ctx context.Context, tenantID uuid.UUID, userID, contentID int64) (*enrollment.Enrollment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, tx,
		`SELECT `+enrollmentColumns+` FROM enrollments
		 WHERE tenant_id = $1 AND user_id = $2 AND content_id = $3`,
		tenantID, userID, contentID)
}

func (r *EnrollmentRepository) GetChildren(ctx context.Context, parentID int64) ([]*enrollment.Enrollment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments
		 WHERE parent_id = $1
		 ORDER BY id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*enrollment.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) (*enrollment.Enrollment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	dbRow, err := toDBEnrollment(e)
	if err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx,
		`INSERT INTO enrollments (
			tenant_id, user_id, content_id, parent_content_id, parent_id,
			content_type, elective_count, status, passed, result,
			started_at, ended_at, changed_at, history, created_by
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id`,
		dbRow.TenantID,
		dbRow.UserID,
		dbRow.ContentID,
		dbRow.ParentContentID,
		dbRow.ParentID,
		dbRow.ContentType,
		dbRow.ElectiveCount,
		dbRow.Status,
		dbRow.Passed,
		dbRow.Result,
		dbRow.StartedAt,
		dbRow.EndedAt,
		dbRow.ChangedAt,
		dbRow.History,
		dbRow.CreatedBy,
	).Scan(&e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EnrollmentRepository) Update(ctx context.Context, e *enrollment.Enrollment) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbRow, err := toDBEnrollment(e)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE enrollments SET
			status = $2, passed = $3, result = $4,
			started_at = $5, ended_at = $6, changed_at = $7, history = $8
		 WHERE id = $1`,
		dbRow.ID,
		dbRow.Status,
		dbRow.Passed,
		dbRow.Result,
		dbRow.StartedAt,
		dbRow.EndedAt,
		dbRow.ChangedAt,
		dbRow.History,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return enrollment.ErrNotFound
	}
	return nil
}

func (r *EnrollmentRepository) Delete(ctx context.Context, id int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return enrollment.ErrNotFound
	}
	return nil
}

func (r *EnrollmentRepository) CreateRevision(ctx context.Context, rev *enrollment.Revision) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbRow, err := toDBRevision(rev)
	if err != nil {
		return err
	}

	return tx.QueryRow(ctx,
		`INSERT INTO enrollment_revisions (tenant_id, enrollment_id, snapshot, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		dbRow.TenantID,
		dbRow.EnrollmentID,
		dbRow.Snapshot,
		dbRow.CreatedBy,
		dbRow.CreatedAt,
	).Scan(&rev.ID)
}

func (r *EnrollmentRepository) queryOne(ctx context.Context, tx repo.Tx, query string, args ...interface{}) (*enrollment.Enrollment, error) {
	e, err := scanEnrollment(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, enrollment.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func scanEnrollment(row pgx.Row) (*enrollment.Enrollment, error) {
	var dbRow models.Enrollment
	if err := row.Scan(
		&dbRow.ID,
		&dbRow.TenantID,
		&dbRow.UserID,
		&dbRow.ContentID,
		&dbRow.ParentContentID,
		&dbRow.ParentID,
		&dbRow.ContentType,
		&dbRow.ElectiveCount,
		&dbRow.Status,
		&dbRow.Passed,
		&dbRow.Result,
		&dbRow.StartedAt,
		&dbRow.EndedAt,
		&dbRow.ChangedAt,
		&dbRow.History,
		&dbRow.CreatedBy,
	); err != nil {
		return nil, err
	}
	return toDomainEnrollment(&dbRow)
}
