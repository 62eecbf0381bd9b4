package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/openlms-dev/openlms/modules/core/domain/entities/tenant"
	"github.com/openlms-dev/openlms/pkg/composables"
)

type TenantService struct {
	tenants tenant.Repository
}

func NewTenantService(tenants tenant.Repository) *TenantService {
	return &TenantService{tenants: tenants}
}

func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return s.tenants.GetByID(ctx, id)
}

func (s *TenantService) GetByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return s.tenants.GetByDomain(ctx, domain)
}

func (s *TenantService) Create(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) (*tenant.Tenant, error) {
		return s.tenants.Create(txCtx, t)
	})
}
