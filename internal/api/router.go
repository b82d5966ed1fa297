package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cyberlab/helpdesk/internal/api/handlers"
	mw "github.com/cyberlab/helpdesk/internal/api/middleware"
	"github.com/cyberlab/helpdesk/internal/buildconfig"
	"github.com/cyberlab/helpdesk/internal/config"
	"github.com/cyberlab/helpdesk/internal/domain"
	"github.com/cyberlab/helpdesk/internal/embedding"
	"github.com/cyberlab/helpdesk/internal/llm"
	"github.com/cyberlab/helpdesk/internal/service"
	"github.com/cyberlab/helpdesk/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	TicketRetry  *service.TicketRetryService
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	fragmentStore := store.NewFragmentStore(db)
	sessionStore := store.NewSessionStore(db)
	ticketStore := store.NewTicketStore(db)
	eventStore := store.NewEventStore(db)

	// External clients via provider factory
	var embeddingClient domain.EmbeddingClient
	var generationClient domain.GenerationClient

	var err error
	generationClient, err = llm.NewClient(config.LLMProvider(), config.LLMAPIKey())
	if err != nil {
		logger.Warn("generation client initialization failed",
			zap.String("provider", config.LLMProvider()), zap.Error(err))
	} else {
		logger.Info("generation client initialized", zap.String("provider", config.LLMProvider()))
	}

	embeddingClient, err = embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	} else {
		logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	// Pipeline engines
	retrievalEngine := service.NewRetrievalEngine(fragmentStore, embeddingClient, logger)
	retrievalEngine.SetTopK(config.RetrievalTopK())
	retrievalEngine.SetThreshold(config.SimilarityThreshold())
	retrievalEngine.SetTimeout(config.CollaboratorTimeout())

	retrySvc := service.NewTicketRetryService(ticketStore, logger)
	retrySvc.SetInterval(config.TicketRetryInterval())

	orchestrator := service.NewChatOrchestrator(
		sessionStore, ticketStore, eventStore, generationClient,
		service.NewGuardrailEngine(logger),
		retrievalEngine,
		service.NewRankingResolver(logger),
		service.NewSignalExtractor(),
		service.NewClassificationEngine(logger),
		service.NewEscalationStateMachine(logger),
		retrySvc,
		logger,
	)
	orchestrator.SetGenerateTimeout(config.CollaboratorTimeout())

	// Handlers
	chatHandler := handlers.NewChatHandler(orchestrator)
	ticketHandler := handlers.NewTicketHandler(ticketStore)
	documentHandler := handlers.NewDocumentHandler(fragmentStore)
	sessionHandler := handlers.NewSessionHandler(sessionStore, eventStore)

	r := chi.NewRouter()

	app := &App{
		Router:      r,
		TicketRetry: retrySvc,
		startTime:   time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst(), logger))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat", chatHandler.Create)

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", ticketHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", ticketHandler.GetByID)
				r.Patch("/status", ticketHandler.UpdateStatus)
			})
		})

		r.Get("/documents", documentHandler.List)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", sessionHandler.GetByID)
			r.Get("/events", sessionHandler.ListEvents)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": buildconfig.Version(),
			"commit":  buildconfig.Commit(),
		})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds":  uptime.Seconds(),
			"uptime_human":    uptime.Round(time.Second).String(),
			"request_count":   app.requestCount.Load(),
			"error_count":     app.errorCount.Load(),
			"pending_tickets": app.TicketRetry.PendingCount(),
			"goroutines":      runtime.NumGoroutine(),
			"build":           buildconfig.VersionInfo(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Compile-time interface assertions for the store layer.
var (
	_ domain.FragmentStore = (*store.FragmentStore)(nil)
	_ domain.SessionStore  = (*store.SessionStore)(nil)
	_ domain.TicketStore   = (*store.TicketStore)(nil)
	_ domain.EventStore    = (*store.EventStore)(nil)
)
