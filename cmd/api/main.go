package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/incident-service/internal/api/http"
	"github.com/spec-kit/incident-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/persistence"
	"github.com/spec-kit/incident-service/internal/realtime"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/service"
	"github.com/spec-kit/incident-service/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	incidentRepo := repository.NewIncidentRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	problemRepo := repository.NewProblemRepository(pool)
	actionRepo := repository.NewProblemActionRepository(pool)
	changeRepo := repository.NewChangeRequestRepository(pool)
	serviceItemRepo := repository.NewServiceItemRepository(pool)
	slaRepo := repository.NewSLARepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(*cfg, userRepo, dispatcher)
	incidentService := service.NewIncidentService(service.IncidentDependencies{
		IncidentRepo:   incidentRepo,
		UserRepo:       userRepo,
		DepartmentRepo: departmentRepo,
		CategoryRepo:   categoryRepo,
		SLARepo:        slaRepo,
		Dispatcher:     dispatcher,
	})
	commentService := service.NewCommentService(commentRepo, incidentRepo, userRepo, dispatcher)
	timelineService := service.NewTimelineService(incidentRepo, auditRepo, userRepo)
	attachmentService := service.NewAttachmentService(attachmentRepo, incidentRepo)
	problemService := service.NewProblemService(service.ProblemDependencies{
		ProblemRepo:  problemRepo,
		ActionRepo:   actionRepo,
		ChangeRepo:   changeRepo,
		IncidentRepo: incidentRepo,
		UserRepo:     userRepo,
	})
	catalogService := service.NewCatalogService(serviceItemRepo, incidentService)
	directoryService := service.NewDirectoryService(departmentRepo, categoryRepo)
	slaService := service.NewSLAService(slaRepo)
	statsService := service.NewStatsService(incidentRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService)

	hub := realtime.NewHub(logger, redis.Client, cfg.Realtime.RedisChannel, cfg.Realtime.SendBufferLen)
	realtime.RegisterHandlers(dispatcher, hub)
	go hub.Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Incidents:      handlers.NewIncidentsHandler(incidentService, commentService, timelineService, attachmentService),
		Problems:       handlers.NewProblemsHandler(problemService),
		Catalog:        handlers.NewCatalogHandler(catalogService, directoryService, slaService),
		Stats:          handlers.NewStatsHandler(statsService),
		AuthMiddleware: authMiddleware,
		Tokens:         authService.TokenManager(),
		Hub:            hub,
		Logger:         logger,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
