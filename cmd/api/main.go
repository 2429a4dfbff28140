package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"scamtrap-lab/internal/api"
	"scamtrap-lab/internal/api/handlers"
	"scamtrap-lab/internal/config"
	"scamtrap-lab/internal/domain/services"
	"scamtrap-lab/internal/domain/services/ai"
	"scamtrap-lab/internal/infrastructure/cache"
	"scamtrap-lab/internal/infrastructure/database"
	"scamtrap-lab/internal/infrastructure/database/repository"
	"scamtrap-lab/internal/streaming"
	"scamtrap-lab/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var log *logger.Logger
	if cfg.App.Environment == "production" {
		log = logger.NewProduction()
	} else {
		log = logger.NewDevelopment()
	}
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting ScamTrap Lab")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize infrastructure
	db, redisCache := initInfrastructure(ctx, cfg, log)
	defer func() {
		if db != nil {
			db.Close()
		}
		if redisCache != nil {
			redisCache.Close()
		}
	}()

	// Initialize report journal (if database available)
	var journal services.ReportJournal
	var reports *repository.ReportRepository
	if db != nil {
		repo := repository.NewReportRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to ensure report schema, continuing without journal")
		} else {
			journal = repo
			reports = repo
			log.Info().Msg("report journal initialized with database")
		}
	} else {
		log.Warn().Msg("running without database - report journal unavailable")
	}

	// Initialize streaming infrastructure
	var natsPublisher *streaming.NATSPublisher
	if cfg.NATS.Enabled {
		var err error
		natsPublisher, err = streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing without real-time streaming")
		} else {
			log.Info().Str("url", cfg.NATS.URL).Msg("connected to NATS")
		}
	}

	// Create event bus for real-time updates
	eventBus := streaming.NewEventBus(natsPublisher, log)
	log.Info().Bool("nats_enabled", natsPublisher != nil).Msg("event bus initialized")

	// Initialize detection pipeline
	catalog := services.NewPatternCatalog(log)
	scorer := services.NewScamScorer(catalog, log)
	extractor := services.NewIntelligenceExtractor(catalog, log)
	store := services.NewSessionStore(log)
	policy := services.NewEngagementPolicy(cfg.Engagement)

	// Initialize report delivery
	dispatcher := services.NewCallbackDispatcher(cfg.Callback, store, journal, log)
	defer dispatcher.Stop()

	// Initialize reply generation. Without an API key the replier falls
	// back to its canned persona responses.
	var llmClient *ai.LLMClient
	if cfg.LLM.APIKey != "" {
		llmClient = ai.NewLLMClient(ai.LLMConfig{
			Provider:    cfg.LLM.Provider,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, log)
		log.Info().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("LLM client initialized")
	} else {
		log.Warn().Msg("no LLM API key configured, using fallback replies only")
	}

	var chatClient ai.ChatClient
	if llmClient != nil {
		chatClient = llmClient
	}
	replier := ai.NewReplier(chatClient, nil, log)

	engagement := services.NewEngagementService(store, scorer, extractor, policy, dispatcher, replier, eventBus, log)
	log.Info().
		Int("min_messages", policy.MinMessages).
		Int("max_messages", policy.MaxMessages).
		Int("high_confidence", policy.HighConfidence).
		Msg("engagement service initialized")

	// Initialize handlers
	deps := handlers.Dependencies{
		Engagement: engagement,
		Store:      store,
		Catalog:    catalog,
		Reports:    reports,
		Cache:      redisCache,
		DB:         db,
		Logger:     log,
	}
	h := handlers.NewHandlers(deps)

	// Create router
	router := api.NewRouter(*cfg, h, redisCache, log)
	httpHandler := router.Setup()

	// Start HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	// Cancel context to stop background services
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Drain pending report deliveries
	dispatcher.Stop()

	// Close streaming
	eventBus.Close()
	if natsPublisher != nil {
		natsPublisher.Close()
	}

	log.Info().Msg("shutdown complete")
}

// initInfrastructure initializes database and cache connections. Both are
// optional: the service degrades to in-memory only operation without them.
func initInfrastructure(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.PostgresDB, *cache.RedisCache) {
	var db *database.PostgresDB
	if cfg.Database.Enabled {
		var err error
		db, err = database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to PostgreSQL, continuing without database")
			db = nil
		}
	}

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		var err error
		redisCache, err = cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
			redisCache = nil
		}
	}

	return db, redisCache
}
