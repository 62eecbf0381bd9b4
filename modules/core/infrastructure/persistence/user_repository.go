package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openlms-dev/openlms/modules/core/domain/aggregates/user"
	"github.com/openlms-dev/openlms/modules/core/infrastructure/persistence/models"
	"github.com/openlms-dev/openlms/pkg/composables"
)

const userFindQuery = `SELECT id, tenant_id, email, first_name, last_name, status, created_at FROM users`

type UserRepository struct{}

func NewUserRepository() user.Repository {
	return &UserRepository{}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.queryOne(ctx, userFindQuery+` WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*user.User, error) {
	return r.queryOne(ctx,
		userFindQuery+` WHERE tenant_id = $1 AND lower(email) = $2`,
		tenantID.String(), strings.ToLower(email))
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) (*user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var id int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO users (tenant_id, email, first_name, last_name, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		u.TenantID().String(),
		strings.ToLower(u.Email()),
		u.FirstName(),
		u.LastName(),
		string(u.Status()),
		u.CreatedAt(),
	).Scan(&id); err != nil {
		return nil, err
	}

	return user.New(
		u.TenantID(),
		u.Email(),
		u.FirstName(),
		u.LastName(),
		user.WithID(id),
		user.WithStatus(u.Status()),
		user.WithCreatedAt(u.CreatedAt()),
	), nil
}

func (r *UserRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var row models.User
	if err := tx.QueryRow(ctx, query, args...).Scan(
		&row.ID,
		&row.TenantID,
		&row.Email,
		&row.FirstName,
		&row.LastName,
		&row.Status,
		&row.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return toDomainUser(&row)
}
