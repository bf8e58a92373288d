package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mindgrove-app/mindgrove/internal"
	"github.com/mindgrove-app/mindgrove/internal/ai"
	"github.com/mindgrove-app/mindgrove/internal/ai/anthropic"
	"github.com/mindgrove-app/mindgrove/internal/ai/mock"
	"github.com/mindgrove-app/mindgrove/internal/billing"
	"github.com/mindgrove-app/mindgrove/internal/handler"
	"github.com/mindgrove-app/mindgrove/internal/jobs"
	"github.com/mindgrove-app/mindgrove/internal/metrics"
	"github.com/mindgrove-app/mindgrove/internal/middleware"
	"github.com/mindgrove-app/mindgrove/internal/notify"
	"github.com/mindgrove-app/mindgrove/internal/repository"
	"github.com/mindgrove-app/mindgrove/internal/service"
	"github.com/mindgrove-app/mindgrove/internal/storage"
	"github.com/mindgrove-app/mindgrove/internal/worker"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	store := repository.NewStore(db)

	// In-app notification sink; services publish through this interface.
	sink := notify.NewDBSink(store.Queries, logger)

	// Initialize file storage
	fileStorage, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// Initialize AI provider
	aiProvider, err := newAIProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("ai provider initialization failed: %w", err)
	}
	logger.Info("AI provider ready", "provider", cfg.AIProvider)

	// Initialize services
	userService := service.NewUserService(store.Queries, logger)
	subscriptionService := service.NewSubscriptionService(store, sink, logger)
	entitlementService := service.NewEntitlementService(store, subscriptionService, logger)
	usageService := service.NewUsageService(store, logger)
	streakService := service.NewStreakService(store, sink, logger)
	documentService := service.NewDocumentService(
		store.Queries, fileStorage, entitlementService, usageService, sink, logger, cfg.MaxUploadBytes)

	// Stripe billing is optional in development; handlers report billing as
	// unconfigured when the secret key is absent.
	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			WeeklyPriceID:  cfg.StripeWeeklyPriceID,
			MonthlyPriceID: cfg.StripeMonthlyPriceID,
		})
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing disabled: STRIPE_SECRET_KEY not set")
	}

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var jobWorker *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout

		jobWorker, err = worker.New(db, store.Queries, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}

		jobWorker.Register(jobs.NewGenerateMaterialHandler(store.Queries, aiProvider, fileStorage, sink, logger))
		jobWorker.Register(jobs.NewExpirySweepHandler(store.Queries, subscriptionService, logger))
		jobWorker.Register(jobs.NewSessionCleanupHandler(userService, logger))

		jobWorker.Start(ctx)

		// Periodic maintenance jobs. Lazy expiry on read covers active users;
		// the sweep catches subscribers who never come back.
		go func() {
			enqueueMaintenance(ctx, store.Queries, logger)
			ticker := time.NewTicker(cfg.ExpirySweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					enqueueMaintenance(ctx, store.Queries, logger)
				}
			}
		}()
	} else {
		logger.Warn("Background worker disabled")
	}

	// ==========================================================================
	// Middleware and handlers
	// ==========================================================================

	isSecure := cfg.Env != "development"

	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure, cfg.AdminEmails)
	authLimiter := middleware.NewAuthRateLimiter(logger)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	authHandler := handler.NewAuthHandler(userService, streakService, entitlementService, logger, isSecure)
	documentHandler := handler.NewDocumentHandler(documentService, streakService, logger, cfg.MaxUploadBytes)
	studyHandler := handler.NewStudyHandler(
		store.Queries, aiProvider, documentService, entitlementService, usageService, streakService, logger)
	gamificationHandler := handler.NewGamificationHandler(streakService, logger)
	notificationHandler := handler.NewNotificationHandler(store.Queries, logger)
	billingHandler := handler.NewBillingHandler(billingService, userService, logger, cfg.BaseURL)
	webhookHandler := handler.NewWebhookHandler(billingService, userService, subscriptionService, sink, logger)
	adminHandler := handler.NewAdminHandler(store.Queries, logger)

	// ==========================================================================
	// Routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Local storage serves uploaded files directly; R2 serves via presigned URLs.
	if cfg.StorageProvider == storage.ProviderLocal {
		fileServer := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", fileServer))
	}

	// Stripe webhooks (signature-verified, no session auth)
	webhookHandler.RegisterRoutes(mux)

	// Public routes
	mux.Handle("POST /api/auth/register", authLimiter.LimitRegister(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", authLimiter.LimitLogin(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/billing/plans", billingHandler.Plans)
	mux.HandleFunc("GET /api/leaderboard", gamificationHandler.Leaderboard)

	// Authenticated routes
	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)

	mux.Handle("GET /api/me", requireUser(http.HandlerFunc(authHandler.Me)))
	mux.Handle("GET /api/me/usage", requireUser(http.HandlerFunc(authHandler.Usage)))
	mux.Handle("POST /api/me/password", requireUser(http.HandlerFunc(authHandler.ChangePassword)))

	mux.Handle("POST /api/documents", requireUser(http.HandlerFunc(documentHandler.Upload)))
	mux.Handle("GET /api/documents", requireUser(http.HandlerFunc(documentHandler.List)))
	mux.Handle("GET /api/documents/{id}", requireUser(http.HandlerFunc(documentHandler.Get)))
	mux.Handle("DELETE /api/documents/{id}", requireUser(http.HandlerFunc(documentHandler.Delete)))
	mux.Handle("GET /api/documents/{id}/download-url", requireUser(http.HandlerFunc(documentHandler.DownloadURL)))
	mux.Handle("GET /api/documents/{id}/materials", requireUser(http.HandlerFunc(documentHandler.Materials)))
	mux.Handle("POST /api/documents/{id}/materials", requireUser(http.HandlerFunc(studyHandler.Generate)))

	mux.Handle("POST /api/study/chat", requireUser(http.HandlerFunc(studyHandler.Chat)))

	mux.Handle("GET /api/streak", requireUser(http.HandlerFunc(gamificationHandler.Streak)))
	mux.Handle("GET /api/badges", requireUser(http.HandlerFunc(gamificationHandler.Badges)))

	mux.Handle("GET /api/notifications", requireUser(http.HandlerFunc(notificationHandler.List)))
	mux.Handle("POST /api/notifications/{id}/read", requireUser(http.HandlerFunc(notificationHandler.MarkRead)))

	mux.Handle("POST /api/billing/checkout", requireUser(http.HandlerFunc(billingHandler.Checkout)))
	mux.Handle("POST /api/billing/portal", requireUser(http.HandlerFunc(billingHandler.Portal)))

	// Admin routes (email allowlist)
	requireAdmin := middleware.Stack(authMw.WithUser, authMw.RequireAdmin)

	mux.Handle("GET /api/admin/overview", requireAdmin(http.HandlerFunc(adminHandler.Overview)))
	mux.Handle("GET /api/admin/subscription-events", requireAdmin(http.HandlerFunc(adminHandler.SubscriptionEvents)))

	// Global middleware chain
	root := middleware.Stack(
		securityMw.Handler,
		loggingMw.Handler,
		metrics.Middleware,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if jobWorker != nil {
		jobWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage builds the configured file storage backend.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
}

// newAIProvider builds the configured AI provider.
func newAIProvider(cfg *internal.Config, logger *slog.Logger) (ai.Provider, error) {
	switch cfg.AIProvider {
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			ProviderConfig: ai.ProviderConfig{
				MaxRetries:     cfg.AIMaxRetries,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, logger)
	default:
		return mock.New(logger), nil
	}
}

// enqueueMaintenance schedules one round of the periodic maintenance jobs.
func enqueueMaintenance(ctx context.Context, queries *repository.Queries, logger *slog.Logger) {
	if _, err := worker.EnqueueExpirySweep(ctx, queries, worker.WithPriority(worker.PriorityLow)); err != nil {
		logger.Error("failed to enqueue expiry sweep", "error", err)
	}
	if _, err := worker.EnqueueSessionCleanup(ctx, queries, worker.WithPriority(worker.PriorityLow)); err != nil {
		logger.Error("failed to enqueue session cleanup", "error", err)
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
