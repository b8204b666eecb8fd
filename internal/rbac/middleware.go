package rbac

import (
	"log/slog"
	"net/http"

	"github.com/opsdesk/opsdesk/internal/shared"
)

// Middleware wires RBAC authorization guards for HTTP handlers. Guards
// run server side on every route they wrap, independent of whatever the
// UI chose to show.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require ensures the session role is granted action on resource before
// the downstream handler runs. Unauthenticated requests never reach this
// guard in the normal pipeline; if one does, it is denied.
func (m Middleware) Require(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if !sess.IsAuthenticated() {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if !m.Service.HasPermission(r.Context(), sess.Role(), resource, action) {
				if m.Logger != nil {
					m.Logger.Warn("permission denied",
						slog.String("role", sess.Role()),
						slog.String("resource", string(resource)),
						slog.String("action", string(action)),
						slog.String("path", r.URL.Path))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
