package services

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/enrollment"
	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/plan"
)

func TestMapPgErrorToServiceError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"no rows", pgx.ErrNoRows, http.StatusNotFound, "LEARN_NOT_FOUND"},
		{"enrollment not found", enrollment.ErrNotFound, http.StatusNotFound, "LEARN_NOT_FOUND"},
		{"plan not found", plan.ErrNotFound, http.StatusNotFound, "LEARN_NOT_FOUND"},
		{
			"duplicate enrollment",
			&pgconn.PgError{Code: "23505", ConstraintName: "enrollments_tenant_user_content_key"},
			http.StatusConflict, "LEARN_ENROLLMENT_EXISTS",
		},
		{
			"duplicate live plan",
			&pgconn.PgError{Code: "23505", ConstraintName: "plans_live_target_key"},
			http.StatusConflict, "LEARN_PLAN_EXISTS",
		},
		{
			"duplicate link",
			&pgconn.PgError{Code: "23505", ConstraintName: "enrollment_plan_links_pair_key"},
			http.StatusConflict, "LEARN_LINK_EXISTS",
		},
		{
			"other unique violation",
			&pgconn.PgError{Code: "23505", ConstraintName: "something_else"},
			http.StatusConflict, "LEARN_CONFLICT",
		},
		{
			"foreign key violation",
			&pgconn.PgError{Code: "23503"},
			http.StatusUnprocessableEntity, "LEARN_REFERENCE_NOT_FOUND",
		},
		{
			"unknown pg error",
			&pgconn.PgError{Code: "40001"},
			http.StatusInternalServerError, "LEARN_INTERNAL",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := mapPgErrorToServiceError(tc.err)
			var svcErr *ServiceError
			require.ErrorAs(t, mapped, &svcErr)
			require.Equal(t, tc.wantStatus, svcErr.Status)
			require.Equal(t, tc.wantCode, svcErr.Code)
			require.ErrorIs(t, mapped, tc.err)
		})
	}

	t.Run("nil passes through", func(t *testing.T) {
		require.NoError(t, mapPgErrorToServiceError(nil))
	})

	t.Run("non pg error passes through", func(t *testing.T) {
		sentinel := errors.New("boom")
		require.Same(t, sentinel, mapPgErrorToServiceError(sentinel))
	})
}
