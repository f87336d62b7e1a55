package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartspendr/bfa-go/internal/appstate"
	"github.com/smartspendr/bfa-go/internal/config"
	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/handler"
	"github.com/smartspendr/bfa-go/internal/infra/cache"
	"github.com/smartspendr/bfa-go/internal/infra/client"
	"github.com/smartspendr/bfa-go/internal/infra/docstore"
	"github.com/smartspendr/bfa-go/internal/infra/kvstore"
	"github.com/smartspendr/bfa-go/internal/infra/observability"
	"github.com/smartspendr/bfa-go/internal/infra/resilience"
	"github.com/smartspendr/bfa-go/internal/offline"
	"github.com/smartspendr/bfa-go/internal/port"
	"github.com/smartspendr/bfa-go/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("cache_version", cfg.CacheVersion),
		zap.String("app_origin", cfg.AppOrigin),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("sync_interval", cfg.SyncInterval),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "smartspendr-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Durable offline store (resources + mutation queue) ---
	var resources port.ResourceStore
	var mutations port.MutationQueue
	if cfg.OfflineDBPath != "" {
		store, err := kvstore.NewSQLiteStore(cfg.OfflineDBPath)
		if err != nil {
			logger.Fatal("failed to open offline store", zap.Error(err))
		}
		defer store.Close()
		resources = store
		mutations = store
		logger.Info("offline store on disk", zap.String("path", cfg.OfflineDBPath))
	} else {
		store := kvstore.NewMemoryStore()
		resources = store
		mutations = store
		logger.Warn("offline store in memory, queued mutations will not survive restarts")
	}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	storeBreaker := resilience.NewCircuitBreaker("docstore")
	agentBreaker := resilience.NewCircuitBreaker("advice-agent")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	expenseStore := docstore.NewClient(
		httpClient,
		cfg.DocstoreURL,
		cfg.DocstoreAPIKey,
		storeBreaker,
		bulkhead,
		resilienceCfg,
		metrics,
		logger,
	)

	var agent port.AdviceAgent
	if cfg.AdviceAPIKey != "" && cfg.AdviceAPIKey != "demo-key" {
		agent = client.NewAgentClient(httpClient, cfg.AdviceAPIURL, cfg.AdviceAPIKey, agentBreaker, resilienceCfg)
	} else {
		logger.Warn("advice agent not configured, serving fallback answers only")
	}

	// --- Offline resource cache ---
	ctrl := offline.NewController(resources, cfg.CacheVersion, cfg.AppOrigin, nil, httpClient, metrics, logger)
	go func() {
		installCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := ctrl.Install(installCtx); err != nil {
			logger.Warn("resource cache install failed, shell served from network only", zap.Error(err))
			return
		}
		if err := ctrl.Activate(installCtx); err != nil {
			logger.Warn("resource cache activation failed", zap.Error(err))
		}
	}()

	// --- Offline mutation sync ---
	syncQueue := offline.NewSyncQueue(mutations, expenseStore, metrics, logger)
	syncCtx, stopSync := context.WithCancel(context.Background())
	defer stopSync()
	go syncQueue.Run(syncCtx, cfg.SyncInterval)

	// --- App state + caches ---
	state := appstate.NewStore()
	expenseCache := cache.New[[]domain.Expense](cfg.CacheTTL)
	defer expenseCache.Close()
	reportCache := cache.New[*domain.Report](cfg.CacheTTL)
	defer reportCache.Close()

	// --- Services ---
	expenseSvc := service.NewExpenseService(expenseStore, syncQueue, state, expenseCache, reportCache, metrics, logger)
	svcs := handler.Services{
		Expenses: expenseSvc,
		Reports:  service.NewReportService(expenseSvc, reportCache, metrics, logger),
		Advice:   service.NewAdviceService(agent, expenseSvc, metrics, logger),
		Insights: service.NewInsightsService(expenseSvc, logger),
	}
	verifier := service.NewSessionVerifier(cfg.SessionSecret)

	// --- Router ---
	router := handler.NewRouter(svcs, verifier, ctrl, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	// Drain anything still queued before exiting.
	if flushed, err := syncQueue.Flush(ctx); err == nil && flushed > 0 {
		logger.Info("drained offline queue", zap.Int("flushed", flushed))
	}

	logger.Info("server stopped")
}
