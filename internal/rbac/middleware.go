package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/b2bmarket/marketplace/internal/platform/httpx"
	"github.com/b2bmarket/marketplace/internal/shared"
)

// Middleware wires authentication and role guards for HTTP handlers.
type Middleware struct {
	Roles  RoleSource
	Policy shared.RolePolicy
	Logger *slog.Logger
}

// Authenticate resolves the session user into an actor. Requests without a
// logged-in session are rejected with 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := shared.SessionFromContext(r.Context()).UserID()
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		role, err := m.Roles.RoleOf(r.Context(), userID)
		if err != nil {
			if errors.Is(err, shared.ErrUnauthorized) {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if m.Logger != nil {
				m.Logger.Error("rbac resolve role", slog.Any("error", err), slog.Int64("user_id", userID))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Internal server error")
			return
		}
		ctx := shared.ContextWithActor(r.Context(), shared.Actor{UserID: userID, RoleID: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSuperadmin admits only the superadmin role.
func (m Middleware) RequireSuperadmin(next http.Handler) http.Handler {
	return m.require(m.Policy.IsSuperadmin, next)
}

// RequireAdmin admits admin roles and the superadmin.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.require(m.Policy.IsAdmin, next)
}

// RequireReviewer admits the roles allowed to price a pending quotation.
func (m Middleware) RequireReviewer(next http.Handler) http.Handler {
	return m.require(m.Policy.CanReview, next)
}

func (m Middleware) require(allowed func(shared.Actor) bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := shared.ActorFromContext(r.Context())
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		if !allowed(actor) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
			return
		}
		next.ServeHTTP(w, r)
	})
}
