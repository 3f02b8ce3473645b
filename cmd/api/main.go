package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/ticketdesk/ticketing/internal/api/http"
	"github.com/ticketdesk/ticketing/internal/api/http/handlers"
	"github.com/ticketdesk/ticketing/internal/auth"
	"github.com/ticketdesk/ticketing/internal/config"
	"github.com/ticketdesk/ticketing/internal/events"
	"github.com/ticketdesk/ticketing/internal/notify"
	"github.com/ticketdesk/ticketing/internal/observability"
	"github.com/ticketdesk/ticketing/internal/persistence"
	"github.com/ticketdesk/ticketing/internal/repository"
	"github.com/ticketdesk/ticketing/internal/service"
	"github.com/ticketdesk/ticketing/internal/worker"
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
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notifier := notify.NewEmailNotifier(logger, cfg.Notification)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		CommentRepo: commentRepo,
		UserRepo:    userRepo,
		Dispatcher:  dispatcher,
	})
	attachmentService := service.NewAttachmentService(attachmentRepo)
	statsService := service.NewStatsService(userRepo, ticketRepo, redis.Client, cfg.Redis.StatsCacheTTL(), logger)
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  dispatcher,
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		UserRepo:    userRepo,
		Notifier:    notifier,
	}, logger)

	worker.StartNotificationWorker(notificationService)

	if cfg.App.SeedDefaultAccounts {
		if err := service.SeedDefaultAccounts(ctx, userRepo, cfg.Auth.BcryptCost, logger); err != nil {
			logger.Warn("failed to seed default accounts", zap.Error(err))
		}
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	authHandler := handlers.NewAuthHandler(authService)
	ticketsHandler := handlers.NewTicketsHandler(ticketService, commentService, attachmentService, userService, statsService)
	adminHandler := handlers.NewAdminHandler(authService, userService, ticketService, statsService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		Tickets:        ticketsHandler,
		Admin:          adminHandler,
		AuthMiddleware: authMiddleware,
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
