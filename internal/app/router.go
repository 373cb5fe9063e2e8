package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/b2bmarket/marketplace/internal/auth"
	"github.com/b2bmarket/marketplace/internal/cart"
	"github.com/b2bmarket/marketplace/internal/observability"
	"github.com/b2bmarket/marketplace/internal/orders"
	"github.com/b2bmarket/marketplace/internal/platform/httpx"
	"github.com/b2bmarket/marketplace/internal/quotations"
	"github.com/b2bmarket/marketplace/internal/rbac"
	"github.com/b2bmarket/marketplace/internal/shared"
	"github.com/b2bmarket/marketplace/internal/users"
	"github.com/b2bmarket/marketplace/jobs"
)

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	RBACMiddleware   rbac.Middleware
	AuthHandler      *auth.Handler
	CartHandler      *cart.Handler
	QuotationHandler *quotations.Handler
	OrderHandler     *orders.Handler
	UserHandler      *users.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
	Readiness        []ReadinessCheck
}

// NewRouter constructs the chi.Router with marketplace defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Readiness, params.Logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	authn := params.RBACMiddleware.Authenticate
	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r, authn)
	})
	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Route("/cart", params.CartHandler.MountRoutes)
		r.Route("/quotation", params.QuotationHandler.MountRoutes)
		r.Route("/orders", params.OrderHandler.MountRoutes)
		if params.UserHandler != nil {
			r.Route("/users", params.UserHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported here")
	})

	return r
}

func readiness(checks []ReadinessCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("check", c.Name), slog.Any("error", err))
				report[c.Name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			report[c.Name] = "ok"
		}
		httpx.JSON(w, status, report)
	}
}
