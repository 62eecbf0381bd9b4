package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openlms-dev/openlms/pkg/composables"
)

func TestWithPortal(t *testing.T) {
	known := uuid.New()
	resolve := func(_ context.Context, tenantID uuid.UUID) error {
		if tenantID != known {
			return gerrors.New("unknown")
		}
		return nil
	}

	var gotTenant uuid.UUID
	var tenantErr error
	handler := WithPortal(resolve)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant, tenantErr = composables.UseTenantID(r.Context())
	}))

	t.Run("valid portal lands in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(PortalHeader, known.String())
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, tenantErr)
		require.Equal(t, known, gotTenant)
	})

	t.Run("malformed portal id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(PortalHeader, "not-a-uuid")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown portal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(PortalHeader, uuid.NewString())
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("absent header passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Error(t, tenantErr)
	})
}

func TestWithActor(t *testing.T) {
	var gotActor int64
	handler := WithActor()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor, _ = composables.UseActorID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, int64(42), gotActor)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "forty-two")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
