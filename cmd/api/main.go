package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"beleg/internal/cache"
	"beleg/internal/config"
	"beleg/internal/database"
	"beleg/internal/database/migration"
	handlers "beleg/internal/http/handler"
	"beleg/internal/http/middleware"
	"beleg/internal/lease"
	"beleg/internal/match"
	"beleg/internal/metrics"
	"beleg/internal/otel"
	"beleg/internal/provider"
	"beleg/internal/repository/postgres"
	"beleg/internal/service"
	"beleg/internal/storage"
	"beleg/internal/worker"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "beleg",
	})

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := time.Local

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := otel.Init(ctx, loc)
	if err != nil {
		logger.Fatal("failed to initialize tracing", "error", err)
	}

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		logger.Fatal("failed to migrate database", "error", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		logger.Fatal("failed to initialize object storage", "error", err)
	}

	// Metrics registry with runtime collectors plus domain counters
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	promMiddleware, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		logger.Fatal("failed to register http metrics", "error", err)
	}

	// Repositories
	docRepo := postgres.NewDocumentPostgres(db)
	orgRepo := postgres.NewOrganisationPostgres(db)
	linkRepo := postgres.NewLinkPostgres(db)
	cacheStore := cache.NewStore(postgres.NewCachePostgres(db))
	leases := lease.NewRegistry()

	// External providers. Mail and payment credentials fall back to static
	// configuration until per-organisation credentials are stored.
	bank := provider.NewGoCardlessClient(cfg.Bank, cfg.Sync.RecentWindowDays)
	mail := provider.NewGmailClient(cfg.Mail, func(ctx context.Context, organisationID string) (string, error) {
		return cfg.Mail.Token, nil
	})
	payment := provider.NewStripeClient(cfg.Payment, func(ctx context.Context, organisationID string) (string, error) {
		return cfg.Payment.APIKey, nil
	})
	extraction := provider.NewExtractionClient(cfg.Extraction)

	// Background extraction workers
	pool := worker.NewExtractorPool(docRepo, objStore, extraction, m, logger, cfg.Sync.ExtractionWorkers)

	// Services
	scorer := match.NewScorer()
	orgSvc := service.NewOrganisationService(orgRepo)
	docSvc := service.NewDocumentService(docRepo, linkRepo, objStore, scorer, pool, m, cfg.Sync.CandidateLimit)
	syncSvc := service.NewSyncService(orgRepo, docRepo, objStore, cacheStore, leases, bank, mail, payment, pool, m, cfg.Sync, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(promMiddleware.Handler())
	app.Use(otelfiber.Middleware())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, orgSvc, docSvc, syncSvc)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatal("failed to start server", "error", err)
		}
	}()
	logger.Info("server started", "port", cfg.Port)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	pool.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := otelShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown", "error", err)
	}
}
