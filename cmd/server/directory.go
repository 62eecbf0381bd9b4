package main

import (
	"context"
	"errors"

	"github.com/openlms-dev/openlms/modules/core/domain/aggregates/user"
	coresvc "github.com/openlms-dev/openlms/modules/core/services"
	"github.com/openlms-dev/openlms/modules/learning/services"
)

// userDirectory adapts the core user lookup to the learning module's
// directory port.
type userDirectory struct {
	users *coresvc.UserQueryService
}

func (d *userDirectory) Account(ctx context.Context, userID int64) (services.Account, error) {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return services.Account{}, services.ErrAccountNotFound
		}
		return services.Account{}, err
	}
	return services.Account{
		ID:     u.ID(),
		Email:  u.Email(),
		Name:   u.FullName(),
		Status: string(u.Status()),
	}, nil
}
