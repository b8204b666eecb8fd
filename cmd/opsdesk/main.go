package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/opsdesk/opsdesk/internal/app"
	"github.com/opsdesk/opsdesk/internal/assets"
	"github.com/opsdesk/opsdesk/internal/auth"
	"github.com/opsdesk/opsdesk/internal/employees"
	"github.com/opsdesk/opsdesk/internal/issuance"
	"github.com/opsdesk/opsdesk/internal/kb"
	"github.com/opsdesk/opsdesk/internal/observability"
	"github.com/opsdesk/opsdesk/internal/platform/cache"
	"github.com/opsdesk/opsdesk/internal/platform/db"
	"github.com/opsdesk/opsdesk/internal/rbac"
	"github.com/opsdesk/opsdesk/internal/repairs"
	"github.com/opsdesk/opsdesk/internal/reports"
	"github.com/opsdesk/opsdesk/internal/roles"
	"github.com/opsdesk/opsdesk/internal/shared"
	"github.com/opsdesk/opsdesk/internal/tickets"
	"github.com/opsdesk/opsdesk/internal/users"
	"github.com/opsdesk/opsdesk/internal/view"
	"github.com/opsdesk/opsdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, permission cache disabled", slog.Any("error", err))
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	sessionManager := shared.NewSessionManager("opsdesk_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := shared.NewAuditLogger(dbpool)

	rbacRepo := rbac.NewRepository(dbpool)
	rbacService := rbac.NewService(rbacRepo, redisClient, logger)
	if err := rbacService.Seed(ctx); err != nil {
		logger.Error("seed roles", slog.Any("error", err))
		os.Exit(1)
	}
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	assetsRepo := assets.NewRepository(dbpool)
	assetsService := assets.NewService(assetsRepo, auditLogger, logger)
	assetsHandler := assets.NewHandler(logger, assetsService, templates, csrfManager, rbacMiddleware)

	ticketsRepo := tickets.NewRepository(dbpool)
	ticketsService := tickets.NewService(ticketsRepo, auditLogger, logger)
	ticketsHandler := tickets.NewHandler(logger, ticketsService, templates, csrfManager, rbacMiddleware)

	repairsRepo := repairs.NewRepository(dbpool)
	repairsService := repairs.NewService(repairsRepo, auditLogger, logger)
	repairsHandler := repairs.NewHandler(logger, repairsService, templates, csrfManager, rbacMiddleware)

	issuanceRepo := issuance.NewRepository(dbpool)
	issuanceService := issuance.NewService(issuanceRepo, auditLogger, logger)
	issuanceHandler := issuance.NewHandler(logger, issuanceService, templates, csrfManager, rbacMiddleware)

	employeesRepo := employees.NewRepository(dbpool)
	employeesService := employees.NewService(employeesRepo)
	employeesHandler := employees.NewHandler(logger, employeesService, templates, csrfManager, rbacMiddleware)

	kbRepo := kb.NewRepository(dbpool)
	kbService := kb.NewService(kbRepo, auditLogger, logger)
	kbHandler := kb.NewHandler(logger, kbService, templates, csrfManager, rbacMiddleware)

	reportsRepo := reports.NewRepository(dbpool)
	reportsService := reports.NewService(reportsRepo, redisClient, logger)
	reportsHandler := reports.NewHandler(logger, reportsService, templates, csrfManager, rbacMiddleware)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, rbacService, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService, templates, csrfManager, rbacMiddleware)

	rolesHandler := roles.NewHandler(logger, rbacService, templates, csrfManager, rbacMiddleware)

	metrics := observability.NewMetrics()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("job client unavailable", slog.Any("error", err))
	}
	if jobClient != nil {
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		AssetsHandler:    assetsHandler,
		TicketsHandler:   ticketsHandler,
		RepairsHandler:   repairsHandler,
		IssuanceHandler:  issuanceHandler,
		EmployeesHandler: employeesHandler,
		KBHandler:        kbHandler,
		ReportsHandler:   reportsHandler,
		UsersHandler:     usersHandler,
		RolesHandler:     rolesHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppRequestTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
