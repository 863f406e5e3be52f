package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/dossier-service/internal/api/http"
	"github.com/spec-kit/dossier-service/internal/api/http/handlers"
	"github.com/spec-kit/dossier-service/internal/auth"
	"github.com/spec-kit/dossier-service/internal/config"
	"github.com/spec-kit/dossier-service/internal/events"
	"github.com/spec-kit/dossier-service/internal/gateway"
	"github.com/spec-kit/dossier-service/internal/observability"
	"github.com/spec-kit/dossier-service/internal/persistence"
	"github.com/spec-kit/dossier-service/internal/repository"
	"github.com/spec-kit/dossier-service/internal/sequence"
	"github.com/spec-kit/dossier-service/internal/service"
	"github.com/spec-kit/dossier-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.Pool
	userRepo := repository.NewUserRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	dossierRepo := repository.NewDossierRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	preferenceRepo := repository.NewPreferenceRepository(pool)
	smsTemplateRepo := repository.NewSmsTemplateRepository(pool)
	smsHistoryRepo := repository.NewSmsHistoryRepository(pool)
	presenceStore := repository.NewPresenceStore(redis.Client, cfg.Redis.PresenceTTL())

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	smsGateway := gateway.NewHTTPSmsGateway(cfg.Sms)
	smsService := service.NewSmsService(smsTemplateRepo, smsHistoryRepo, smsGateway, logger)
	auditService := service.NewAuditService(auditRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, preferenceRepo, staffRepo, smsService, logger)

	worker.StartNotificationWorker(dispatcher, notificationService, auditService)

	allocator := sequence.NewAllocator(dossierRepo, cfg.Sequence.Prefix)
	dossierService := service.NewDossierService(service.DossierDependencies{
		DossierRepo: dossierRepo,
		UserRepo:    userRepo,
		StaffRepo:   staffRepo,
		Allocator:   allocator,
		Dispatcher:  dispatcher,
		Audit:       auditService,
		Notifier:    notificationService,
		Presence:    presenceStore,
		Logger:      logger,
	})

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:  userRepo,
		StaffRepo: staffRepo,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, staffRepo)
	impersonation := auth.NewImpersonationResolver(userRepo, staffRepo, auditService)

	deadlineWorker := worker.NewDeadlineWorker(dossierRepo, notificationService, cfg.Worker, logger)
	go deadlineWorker.Start(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Dossiers:       handlers.NewDossiersHandler(dossierService),
		Notifications:  handlers.NewNotificationsHandler(notificationRepo, preferenceRepo),
		AuthMiddleware: authMiddleware,
		Impersonation:  impersonation,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
