package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/b2bmarket/marketplace/cmd/marketplace/cli"
	"github.com/b2bmarket/marketplace/internal/app"
	"github.com/b2bmarket/marketplace/internal/auth"
	"github.com/b2bmarket/marketplace/internal/cart"
	"github.com/b2bmarket/marketplace/internal/observability"
	"github.com/b2bmarket/marketplace/internal/orders"
	"github.com/b2bmarket/marketplace/internal/platform/cache"
	"github.com/b2bmarket/marketplace/internal/platform/db"
	"github.com/b2bmarket/marketplace/internal/quotations"
	"github.com/b2bmarket/marketplace/internal/rbac"
	"github.com/b2bmarket/marketplace/internal/shared"
	"github.com/b2bmarket/marketplace/internal/users"
	"github.com/b2bmarket/marketplace/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobsCommand(ctx, cfg, os.Args[2:]))
	}

	dbpool, err := db.New(ctx, db.PoolConfig{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	policy := cfg.RolePolicy()
	metrics := observability.NewMetrics()

	rbacService := rbac.NewService(rbac.NewRoleStore(dbpool), redisClient, cfg.RoleCacheTTL, logger)
	rbacMiddleware := rbac.Middleware{Roles: rbacService, Policy: policy, Logger: logger}

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, rbacService)

	cartRepo := cart.NewRepository(dbpool)
	cartHandler := cart.NewHandler(logger, cart.NewService(cartRepo, logger))

	orderService := orders.NewService(orders.NewRepository(dbpool), policy, logger).WithAudit(shared.NewAuditLogger(dbpool))
	orderHandler := orders.NewHandler(logger, orderService, rbacMiddleware)
	userHandler := users.NewHandler(logger, users.NewService(users.NewRepository(dbpool), rbacService, policy, logger), rbacMiddleware)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	quotationService := quotations.NewService(quotations.NewRepository(dbpool, logger), cartRepo, policy, quotations.Options{
		Idempotency: shared.NewIdempotencyStore(dbpool),
		Metrics:     metrics,
		Notifier:    jobClient,
		Logger:      logger,
	})
	quotationHandler := quotations.NewHandler(logger, quotationService, rbacMiddleware, !cfg.IsProduction())

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		RBACMiddleware:   rbacMiddleware,
		AuthHandler:      authHandler,
		CartHandler:      cartHandler,
		QuotationHandler: quotationHandler,
		OrderHandler:     orderHandler,
		UserHandler:      userHandler,
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
		Readiness: []app.ReadinessCheck{
			{Name: "postgres", Check: dbpool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runJobsCommand handles `marketplace jobs stats` and `marketplace jobs trigger <task> [arg]`.
func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: marketplace jobs stats | trigger <task> [arg]")
		return 2
	}
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer jobsCLI.Close()

	switch args[0] {
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: marketplace jobs trigger <task> [arg]")
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, args[1], args[2:]...)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	default:
		fmt.Fprintf(os.Stderr, "unknown jobs command %q\n", args[0])
		return 2
	}
	return 0
}
