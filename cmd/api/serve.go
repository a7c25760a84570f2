package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/filter"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	deps := []handlers.Dependency{
		{Name: "postgres", Pinger: pg},
		{Name: "redis", Pinger: redis},
	}

	pool := pg.PoolHandle()
	var (
		ticketRepo  repository.TicketRepository
		historyRepo repository.HistoryRepository
	)
	switch cfg.Store.Backend {
	case config.StoreMongo:
		mongo, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer mongo.Close(context.Background())
		deps = append(deps, handlers.Dependency{Name: "mongo", Pinger: mongo})
		ticketRepo = repository.NewMongoTicketRepository(mongo.DB)
		historyRepo = repository.NewMongoHistoryRepository(mongo.DB)
	case config.StoreMemory:
		ticketRepo = repository.NewMemoryTicketRepository(nil)
		historyRepo = repository.NewMemoryHistoryRepository(nil)
	default:
		ticketRepo = repository.NewTicketRepository(pool)
		historyRepo = repository.NewHistoryRepository(pool)
	}
	logger.Info("ticket store selected", zap.String("backend", cfg.Store.Backend))

	userRepo := repository.NewUserRepository(pool)
	metrics := observability.NewMetrics()

	history := service.NewHistoryService(historyRepo)
	builder := filter.NewBuilder(history)
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		History:     history,
		Queues:      repository.NewQueueRepository(pool),
		Categories:  repository.NewCategoryRepository(pool),
		Permissions: auth.NewAdminChecker(userRepo),
		Logger:      logger,
	})
	queries := service.NewTicketQueryService(ticketRepo, builder)

	bus := events.NewInMemoryBus(logger)
	notifyDeps := service.NotificationDependencies{Bus: bus, Users: userRepo, Logger: logger, Metrics: metrics}
	if cfg.Notification.EmailEnabled {
		notifyDeps.Email = notify.NewSMTPSender(cfg.Notification)
	}
	if cfg.Notification.InAppEnabled {
		notifyDeps.Inbox = notify.NewRedisInbox(redis.Client, redis, cfg.Notification.InboxSize)
	}
	notifications := service.NewNotificationService(notifyDeps)
	notifications.RegisterHandlers()

	dispatcher := worker.NewAsyncDispatcher(bus, cfg.Dispatch.QueueSize, cfg.Dispatch.Workers, logger, metrics)
	dispatcher.Start()

	if cfg.Archive.Cron != "" {
		archiver := service.NewArchiveService(ticketRepo, builder, cfg.Archive.Retention(), logger, metrics, nil)
		scheduler, err := worker.NewArchiveScheduler(cfg.Archive.Cron, archiver, time.Minute, logger)
		if err != nil {
			return fmt.Errorf("archive scheduler: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(userRepo, tokens, cfg.Auth.BcryptCost)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps...),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(tickets, queries, dispatcher),
		History:        handlers.NewHistoryHandler(tickets, history, dispatcher),
		Notifications:  handlers.NewNotificationsHandler(notifications),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, userRepo),
		Metrics:        metrics,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("fiber listen: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.Warn("event dispatcher did not drain", zap.Error(err))
	}
	return nil
}
