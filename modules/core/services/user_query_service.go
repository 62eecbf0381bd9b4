package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/openlms-dev/openlms/modules/core/domain/aggregates/user"
	"github.com/openlms-dev/openlms/pkg/composables"
)

// UserQueryService is the read-side lookup other modules consume, e.g.
// for embedding account summaries into events.
type UserQueryService struct {
	users user.Repository
}

func NewUserQueryService(users user.Repository) *UserQueryService {
	return &UserQueryService{users: users}
}

func (s *UserQueryService) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserQueryService) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*user.User, error) {
	return s.users.GetByEmail(ctx, tenantID, email)
}

func (s *UserQueryService) Create(ctx context.Context, u *user.User) (*user.User, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) (*user.User, error) {
		return s.users.Create(txCtx, u)
	})
}
