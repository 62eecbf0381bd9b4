package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/openlms-dev/openlms/pkg/constants"
)

var (
	ErrNoTenantID = errors.New("no tenant id found in context")
	ErrNoActorID  = errors.New("no actor id found in context")
)

// WithTenantID returns a new context carrying the tenant (portal) id.
func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, tenantID)
}

func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	tenantID, ok := ctx.Value(constants.TenantIDKey).(uuid.UUID)
	if !ok || tenantID == uuid.Nil {
		return uuid.Nil, ErrNoTenantID
	}
	return tenantID, nil
}

// WithActorID returns a new context carrying the id of the user performing
// the mutation. Recorded into audit history and revision rows.
func WithActorID(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, constants.ActorIDKey, actorID)
}

func UseActorID(ctx context.Context) (int64, error) {
	actorID, ok := ctx.Value(constants.ActorIDKey).(int64)
	if !ok {
		return 0, ErrNoActorID
	}
	return actorID, nil
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger from the context, falling back to the
// standard logger so library code never has to nil-check.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry)
	if !ok {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return logger
}
