package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openlms-dev/openlms/modules/core/domain/entities/tenant"
	"github.com/openlms-dev/openlms/modules/core/infrastructure/persistence/models"
	"github.com/openlms-dev/openlms/pkg/composables"
)

const tenantFindQuery = `SELECT id, name, domain, is_active, created_at FROM tenants`

type TenantRepository struct{}

func NewTenantRepository() tenant.Repository {
	return &TenantRepository{}
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return r.queryOne(ctx, tenantFindQuery+` WHERE id = $1`, id.String())
}

func (r *TenantRepository) GetByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return r.queryOne(ctx, tenantFindQuery+` WHERE domain = $1`, strings.ToLower(domain))
}

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO tenants (id, name, domain, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.ID().String(),
		t.Name(),
		strings.ToLower(strings.TrimSpace(t.Domain())),
		t.IsActive(),
		t.CreatedAt(),
	); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TenantRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var row models.Tenant
	if err := tx.QueryRow(ctx, query, args...).Scan(
		&row.ID,
		&row.Name,
		&row.Domain,
		&row.IsActive,
		&row.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, err
	}
	return toDomainTenant(&row)
}
