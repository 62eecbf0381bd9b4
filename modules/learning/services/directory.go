package services

import (
	"context"
	"errors"

	"github.com/openlms-dev/openlms/modules/learning/domain/events"
	"github.com/openlms-dev/openlms/pkg/composables"
)

// Account is the denormalized learner/assigner summary this core needs
// from the user directory.
type Account struct {
	ID     int64
	Email  string
	Name   string
	Status string
}

var ErrAccountNotFound = errors.New("account not found")

// UserDirectory resolves user ids to account summaries for event payloads.
// The HTTP layer uses richer directory data for authorization; this core
// only embeds summaries.
type UserDirectory interface {
	Account(ctx context.Context, userID int64) (Account, error)
}

// embeddedAccount builds the event embedding for a user. A missing
// directory entry degrades to an id-only summary rather than failing the
// mutation: the learner may have been deprovisioned already.
func embeddedAccount(ctx context.Context, dir UserDirectory, userID int64) events.EmbeddedV1 {
	acc, err := dir.Account(ctx, userID)
	if err != nil {
		composables.UseLogger(ctx).
			WithError(err).
			WithField("user_id", userID).
			Warn("learning: account summary unavailable, embedding id only")
		return events.EmbeddedV1{Account: events.AccountV1{ID: userID}}
	}
	return events.EmbeddedV1{Account: events.AccountV1{
		ID:     acc.ID,
		Email:  acc.Email,
		Name:   acc.Name,
		Status: acc.Status,
	}}
}
