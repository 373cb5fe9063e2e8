package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bmarket/marketplace/internal/auth"
	"github.com/b2bmarket/marketplace/internal/cart"
	"github.com/b2bmarket/marketplace/internal/observability"
	"github.com/b2bmarket/marketplace/internal/orders"
	"github.com/b2bmarket/marketplace/internal/quotations"
	"github.com/b2bmarket/marketplace/internal/rbac"
	"github.com/b2bmarket/marketplace/internal/shared"
	"github.com/b2bmarket/marketplace/internal/users"
	"github.com/b2bmarket/marketplace/jobs"
)

type staticRoles map[int64]int64

func (s staticRoles) RoleOf(ctx context.Context, userID int64) (int64, error) {
	role, ok := s[userID]
	if !ok {
		return 0, rbac.ErrUnknownUser
	}
	return role, nil
}

func newTestRouter(t *testing.T, checks ...ReadinessCheck) (http.Handler, *miniredis.Miniredis, *observability.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &Config{AppEnv: "development", RateLimitPerMinute: 1000, AppRequestTimeout: 5 * time.Second, SuperadminRoleID: 5, AdminRoleIDs: []int64{4}, ReviewRoleIDs: []int64{4, 5}}
	logger := slog.Default()
	sessions := shared.NewSessionManager(client, "market_session", time.Hour, false)
	mw := rbac.Middleware{Roles: staticRoles{3: 2, 1: 5}, Policy: cfg.RolePolicy(), Logger: logger}
	metrics := observability.NewMetrics()

	router := NewRouter(RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessions,
		RBACMiddleware:   mw,
		AuthHandler:      auth.NewHandler(logger, nil, sessions, nil),
		CartHandler:      cart.NewHandler(logger, nil),
		QuotationHandler: quotations.NewHandler(logger, nil, mw, false),
		OrderHandler:     orders.NewHandler(logger, nil, mw),
		UserHandler:      users.NewHandler(logger, nil, mw),
		JobHandler:       jobs.NewHandler(nil, logger),
		Metrics:          metrics,
		Readiness:        checks,
	})
	return router, mr, metrics
}

func login(t *testing.T, mr *miniredis.Miniredis, userID string) *http.Cookie {
	t.Helper()
	require.NoError(t, mr.Set("session:sess-"+userID, `{"values":{},"user_id":`+userID+`}`))
	return &http.Cookie{Name: "market_session", Value: "sess-" + userID}
}

func get(router http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRouterPlatformEndpoints(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := get(router, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = get(router, "/jobs/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = get(router, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = get(router, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `marketplace_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestRouterReadiness(t *testing.T) {
	router, _, _ := newTestRouter(t,
		ReadinessCheck{Name: "postgres", Check: func(context.Context) error { return errors.New("refused") }},
		ReadinessCheck{Name: "redis", Check: func(context.Context) error { return nil }},
	)
	rr := get(router, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"postgres":"unavailable","redis":"ok"}`, rr.Body.String())
}

func TestRouterAuthenticationGuards(t *testing.T) {
	router, mr, _ := newTestRouter(t)

	for _, path := range []string{"/cart", "/quotation", "/orders/my-orders", "/users", "/auth/me"} {
		rr := get(router, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	customer := login(t, mr, "3")
	assert.Equal(t, http.StatusForbidden, get(router, "/orders/all", customer).Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/quotation/admin", customer).Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/users", customer).Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/users/roles", customer).Code)

	unknown := login(t, mr, "42")
	assert.Equal(t, http.StatusUnauthorized, get(router, "/cart", unknown).Code)
}

func TestConfigRolePolicyAndLoad(t *testing.T) {
	t.Setenv("REVIEW_ROLE_IDS", "4,5,6")
	t.Setenv("SUPERADMIN_ROLE_ID", "5")

	cfg, err := LoadConfig("does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5, 6}, cfg.ReviewRoleIDs)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyRetention)
	assert.Empty(t, cfg.SMTPAddr())
	assert.Equal(t, ":9091", cfg.WorkerMetricsAddr)

	policy := cfg.RolePolicy()
	assert.True(t, policy.IsSuperadmin(shared.Actor{UserID: 1, RoleID: 5}))
	assert.True(t, policy.CanReview(shared.Actor{UserID: 2, RoleID: 6}))
	assert.False(t, policy.IsAdmin(shared.Actor{UserID: 3, RoleID: 2}))

	cfg.SMTPHost = "mail.local"
	assert.Equal(t, "mail.local:1025", cfg.SMTPAddr())
}
