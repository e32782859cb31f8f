package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-triage/internal/api/http"
	"github.com/spec-kit/ticket-triage/internal/api/http/handlers"
	"github.com/spec-kit/ticket-triage/internal/classifier"
	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/observability"
	"github.com/spec-kit/ticket-triage/internal/persistence"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/service"
	"github.com/spec-kit/ticket-triage/internal/validation"
	"github.com/spec-kit/ticket-triage/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticketRepo, closeStore := openTicketStore(ctx, cfg, logger)
	defer closeStore()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	validator := validation.New()
	dispatcher := events.NewInMemoryDispatcher()

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Validator:  validator,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	statsService := service.NewStatsService(ticketRepo, cfg.App.Location)

	classifierOpts := []classifier.Option{
		classifier.WithTimeout(cfg.Classifier.Timeout()),
		classifier.WithMetrics(metrics),
	}
	var redisPinger handlers.Pinger
	if redis != nil {
		redisPinger = redis
		classifierOpts = append(classifierOpts, classifier.WithCache(classifier.NewRedisCache(redis.Client), cfg.Classifier.CacheTTL()))
	}
	ticketClassifier := classifier.New(newGenerator(cfg.Classifier, logger), logger, classifierOpts...)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, ticketService, redisPinger),
		Metrics:  handlers.NewMetricsHandler(metrics),
		Tickets:  handlers.NewTicketsHandler(ticketService, statsService),
		Classify: handlers.NewClassifyHandler(ticketClassifier, validator),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// openTicketStore connects the configured backend and returns its repository
// together with a release function.
func openTicketStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.TicketRepository, func()) {
	if cfg.Store.Driver == config.StoreDriverSQLite {
		db, err := persistence.NewSQLite(ctx, cfg.Store, logger)
		if err != nil {
			logger.Fatal("failed to open sqlite", zap.Error(err))
		}
		repo, err := repository.NewSQLiteTicketRepository(ctx, db.DB)
		if err != nil {
			db.Close()
			logger.Fatal("failed to prepare sqlite schema", zap.Error(err))
		}
		return repo, db.Close
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			pg.Close()
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	return repository.NewTicketRepository(pg.PoolHandle()), pg.Close
}

func newGenerator(cfg config.ClassifierConfig, logger *zap.Logger) classifier.Generator {
	opts := []classifier.GeneratorOption{
		classifier.WithBaseURL(cfg.BaseURL),
		classifier.WithModel(cfg.Model),
	}
	if cfg.APIKey == "" {
		logger.Warn("no AI API key configured; classification will return empty suggestions",
			zap.String("provider", cfg.Provider))
	}
	if cfg.Provider == config.ProviderOpenAI {
		return classifier.NewOpenAI(cfg.APIKey, opts...)
	}
	return classifier.NewGemini(cfg.APIKey, opts...)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
