package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/enrollment"
	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/plan"
)

// Constraint backing the at-most-one-live-plan invariant. The merge path
// never trips it (its insert resolves the conflict in place); anything
// else racing on it fails loudly.
const livePlanConstraint = "plans_live_target_key"

func mapPgErrorToServiceError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, enrollment.ErrNotFound) ||
		errors.Is(err, plan.ErrNotFound) {
		return newServiceError(http.StatusNotFound, "LEARN_NOT_FOUND", "not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		switch pgErr.ConstraintName {
		case "enrollments_tenant_user_content_key":
			return newServiceError(http.StatusConflict, "LEARN_ENROLLMENT_EXISTS", "enrollment already exists", err)
		case livePlanConstraint:
			return newServiceError(http.StatusConflict, "LEARN_PLAN_EXISTS", "live plan already exists", err)
		case "enrollment_plan_links_pair_key":
			return newServiceError(http.StatusConflict, "LEARN_LINK_EXISTS", "enrollment already linked to plan", err)
		default:
			return newServiceError(http.StatusConflict, "LEARN_CONFLICT", "unique constraint violated", err)
		}
	case "23503": // foreign_key_violation
		return newServiceError(http.StatusUnprocessableEntity, "LEARN_REFERENCE_NOT_FOUND", "foreign key violation", err)
	default:
		return newServiceError(http.StatusInternalServerError, "LEARN_INTERNAL", fmt.Sprintf("database error (%s)", pgErr.Code), err)
	}
}
