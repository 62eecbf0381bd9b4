package persistence

import (
	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/openlms-dev/openlms/modules/core/domain/aggregates/user"
	"github.com/openlms-dev/openlms/modules/core/domain/entities/tenant"
	"github.com/openlms-dev/openlms/modules/core/infrastructure/persistence/models"
)

func toDomainTenant(row *models.Tenant) (*tenant.Tenant, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, gerrors.Wrap(err, "parse tenant id")
	}
	return tenant.New(
		row.Name,
		tenant.WithID(id),
		tenant.WithDomain(row.Domain),
		tenant.WithIsActive(row.IsActive),
		tenant.WithCreatedAt(row.CreatedAt),
	), nil
}

func toDomainUser(row *models.User) (*user.User, error) {
	tenantID, err := uuid.Parse(row.TenantID)
	if err != nil {
		return nil, gerrors.Wrap(err, "parse user tenant id")
	}
	return user.New(
		tenantID,
		row.Email,
		row.FirstName,
		row.LastName,
		user.WithID(row.ID),
		user.WithStatus(user.Status(row.Status)),
		user.WithCreatedAt(row.CreatedAt),
	), nil
}
