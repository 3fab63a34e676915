package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dukerupert/vor/internal"
	"github.com/dukerupert/vor/internal/handler/api"
	"github.com/dukerupert/vor/internal/middleware"
	"github.com/dukerupert/vor/internal/postgres"
	"github.com/dukerupert/vor/internal/router"
	"github.com/dukerupert/vor/internal/routes"
	"github.com/dukerupert/vor/internal/telemetry"
	"github.com/dukerupert/vor/internal/usps"
	"github.com/dukerupert/vor/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	// Verify database connection
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Initialize pipeline metrics
	pipelineMetrics := telemetry.NewPipeline("vor")

	// Initialize the address validation client
	logger.Info("Initializing address validation client...")
	validator, err := usps.NewClient(usps.Config{
		Credentials: usps.Credentials{
			ClientID:     cfg.USPS.ClientID,
			ClientSecret: cfg.USPS.ClientSecret,
			RefreshToken: cfg.USPS.RefreshToken,
		},
		BaseURL:    cfg.USPS.BaseURL,
		TokenURL:   cfg.USPS.TokenURL,
		Timeout:    cfg.USPS.Timeout,
		Pacing:     cfg.USPS.Pacing,
		MaxRetries: cfg.USPS.MaxRetries,
		Logger:     logger.With("component", "usps"),
		Metrics:    pipelineMetrics,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize address validation client: %w", err)
	}
	logger.Info("Address validation client initialized")

	// Initialize batch job store
	store := postgres.NewBatchStore(pool)

	// ==========================================================================
	// Build route dependencies
	// ==========================================================================

	apiDeps := routes.APIDeps{
		ValidateHandler: api.NewValidateHandler(validator, logger.With("component", "api")),
		BatchHandler:    api.NewBatchHandler(validator, store, pipelineMetrics, logger.With("component", "api")),
		Async:           true,
	}

	// ==========================================================================
	// Initialize middleware
	// ==========================================================================

	// Initialize Prometheus HTTP metrics
	metrics := middleware.NewMetrics("vor")

	// Configure rate limiting
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rateLimiter.Stop()

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	r := router.New(
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		middleware.Recover,
		metrics.Middleware,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(middleware.LongTimeout),
		rateLimiter.Middleware,
		middleware.RequestLogging,
	)

	// Metrics endpoint (protect via firewall in production)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := pool.Ping(req.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	routes.RegisterAPIRoutes(r, apiDeps)

	// ==========================================================================
	// Start worker and server
	// ==========================================================================

	batchWorker := worker.NewWorker(store, validator, pipelineMetrics, worker.Config{
		PollInterval: cfg.Batch.WorkerPollInterval,
	}, logger.With("component", "worker"))

	go func() {
		if err := batchWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker stopped", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("Starting server", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
