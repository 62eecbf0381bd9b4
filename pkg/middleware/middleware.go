package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/openlms-dev/openlms/pkg/composables"
)

// Headers carrying request identity. There is no session layer here;
// the gateway in front of this service authenticates and sets them.
const (
	PortalHeader = "X-Portal-ID"
	ActorHeader  = "X-Actor-ID"
)

func WithPool(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(composables.WithPool(r.Context(), pool)))
		})
	}
}

func WithLogger(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := logger.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			next.ServeHTTP(w, r.WithContext(composables.WithLogger(r.Context(), entry)))
		})
	}
}

// WithPortal parses the portal header into the context when present and
// validates it through resolve. Handlers that require a portal reject its
// absence themselves.
func WithPortal(resolve func(ctx context.Context, tenantID uuid.UUID) error) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := r.Header.Get(PortalHeader); raw != "" {
				tenantID, err := uuid.Parse(raw)
				if err != nil {
					http.Error(w, "invalid portal id", http.StatusBadRequest)
					return
				}
				if err := resolve(r.Context(), tenantID); err != nil {
					http.Error(w, "unknown portal", http.StatusForbidden)
					return
				}
				r = r.WithContext(composables.WithTenantID(r.Context(), tenantID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithActor() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := r.Header.Get(ActorHeader); raw != "" {
				actorID, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					http.Error(w, "invalid actor id", http.StatusBadRequest)
					return
				}
				r = r.WithContext(composables.WithActorID(r.Context(), actorID))
			}
			next.ServeHTTP(w, r)
		})
	}
}
