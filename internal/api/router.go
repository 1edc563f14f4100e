package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/api/handlers"
	mw "github.com/RyuuTheChosen/yumi-extension-sub002/internal/api/middleware"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/config"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/domain"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/embedding"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/llm"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/service"
	"github.com/RyuuTheChosen/yumi-extension-sub002/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Pruner    *service.PrunerService
	Proactive *service.ProactiveService

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	memoryStore := store.NewMemoryStore(db)
	summaryStore := store.NewSummaryStore(db)
	kvStore := store.NewKVStore(db)

	// External clients via provider factory
	llmClient, err := llm.NewClient(config.LLMProvider(), config.OpenAIAPIKey())
	if err != nil {
		logger.Warn("LLM client initialization failed, falling back to mock",
			zap.String("provider", config.LLMProvider()), zap.Error(err))
		llmClient = llm.NewMockClient()
	}

	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.OpenAIAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed, keyword-only retrieval",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
		embeddingClient = nil
	}

	// Services
	decaySvc := service.NewDecayService(memoryStore, service.DecayConfig{
		StaleThresholdDays: config.DecayStaleThresholdDays(),
		UsageThreshold:     config.DecayUsageThreshold(),
	}, logger)
	ranker := service.NewHybridRanker()
	linker := service.NewLinkerService()
	memorySvc := service.NewMemoryService(memoryStore, embeddingClient, decaySvc, ranker, logger)
	extractorSvc := service.NewExtractionService(llmClient, service.ExtractorConfig{
		MinInterval: config.MinExtractionInterval(),
		MaxPerHour:  config.MaxExtractionsPerHour(),
		IdleDelay:   config.ExtractionIdleDelay(),
	}, logger)
	summarizerSvc := service.NewSummarizerService(summaryStore, memoryStore, llmClient, embeddingClient, ranker, logger)
	prunerSvc := service.NewPrunerService(memoryStore, decaySvc, service.PrunerConfig{
		MaxMemories: config.MaxMemories(),
		MaxPerType:  config.MaxMemoriesPerType(),
	}, logger)

	proactiveCfg := service.DefaultProactiveConfig()
	proactiveCfg.Enabled = config.ProactiveEnabled()
	proactiveCfg.Cooldown = config.ProactiveCooldown()
	proactiveCfg.SessionCap = config.ProactiveSessionCap()
	proactiveSvc := service.NewProactiveService(memoryStore, kvStore, decaySvc, linker, proactiveCfg, nil, logger)

	// Handlers
	memoryHandler := handlers.NewMemoryHandler(memorySvc)
	extractHandler := handlers.NewExtractHandler(extractorSvc, memorySvc, summarizerSvc)
	proactiveHandler := handlers.NewProactiveHandler(proactiveSvc)
	contextHandler := handlers.NewContextHandler(linker, memoryStore, summaryStore, embeddingClient, logger)
	maintenanceHandler := handlers.NewMaintenanceHandler(prunerSvc, decaySvc, memoryStore)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Pruner:    prunerSvc,
		Proactive: proactiveSvc,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/memories", func(r chi.Router) {
			r.Get("/", memoryHandler.List)
			r.Post("/", memoryHandler.Create)
			r.Post("/search", memoryHandler.Search)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", memoryHandler.Delete)
				r.Post("/verify", memoryHandler.Verify)
				r.Get("/decay", maintenanceHandler.DecayStatus)
			})
		})

		r.Post("/extract", extractHandler.Extract)

		r.Route("/proactive", func(r chi.Router) {
			r.Post("/decision", proactiveHandler.Decide)
			r.Post("/feedback", proactiveHandler.Feedback)
			r.Post("/session", proactiveHandler.Session)
		})

		r.Route("/context", func(r chi.Router) {
			r.Get("/entities", contextHandler.Entities)
			r.Post("/matches", contextHandler.Matches)
			r.Post("/related", contextHandler.Related)
		})

		r.Post("/maintenance/prune", maintenanceHandler.Prune)
	})

	return app
}

// Load restores persisted controller state. Called once at startup after
// migrations.
func (app *App) Load(ctx context.Context) error {
	return app.Proactive.Load(ctx)
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
				"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
				"num_gc":   memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.MemoryStore     = (*store.MemoryStore)(nil)
	_ domain.SummaryStore    = (*store.SummaryStore)(nil)
	_ domain.KVStore         = (*store.KVStore)(nil)
	_ domain.LLMClient       = (*llm.OpenAIClient)(nil)
	_ domain.LLMClient       = (*llm.MockClient)(nil)
	_ domain.EmbeddingClient = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient = (*embedding.MockClient)(nil)
)
