package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/askgraph/askgraph/internal/auth"
	"github.com/askgraph/askgraph/internal/config"
	"github.com/askgraph/askgraph/internal/graph"
	"github.com/askgraph/askgraph/internal/llm"
	"github.com/askgraph/askgraph/internal/observability"
	"github.com/askgraph/askgraph/internal/ontology"
	"github.com/askgraph/askgraph/internal/pipeline"
	"github.com/askgraph/askgraph/internal/semantic"
	"github.com/askgraph/askgraph/internal/session"
)

func main() {
	ctx := context.Background()
	cfg := config.NewDefaultLoader().MustLoad(ctx)

	gin.SetMode(cfg.Server.GinMode)
	logger := observability.NewLogger("main")

	// Model provider
	llmClient, err := llm.New(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		log.Fatal("Failed to initialize model client:", err)
	}
	llmClient = llm.NewCircuitBreakerClient(llmClient, cfg.LLM.Provider, llm.DefaultCircuitBreakerConfig)

	// Graph store behind a circuit breaker
	graphClient := graph.NewClient(graph.Config{
		Addr:         cfg.Graph.Addr,
		Password:     cfg.Graph.Password,
		GraphName:    cfg.Graph.GraphName,
		QueryTimeout: cfg.Graph.QueryTimeout,
	})
	defer graphClient.Close()
	store := graph.NewBreakerClient(graphClient, "falkordb", graph.DefaultBreakerConfig)

	ont, err := ontology.Load(cfg.Pipeline.OntologyPath)
	if err != nil {
		log.Fatal("Failed to load ontology:", err)
	}

	// Redis backs the response cache and conversation state
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	conversations := session.NewManager(rdb, cfg.Pipeline.ConversationTTL)

	embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
		Provider:   cfg.Embedding.Provider,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}

	// The example store is an enhancement; run without it if Postgres is
	// unreachable.
	var examples semantic.Store
	exampleStore, err := semantic.NewPostgresStore(semantic.PostgresConfig{
		Host:                cfg.Database.Host,
		Port:                cfg.Database.Port,
		Database:            cfg.Database.Database,
		Username:            cfg.Database.Username,
		Password:            cfg.Database.Password,
		SSLMode:             cfg.Database.SSLMode,
		SimilarityThreshold: cfg.Pipeline.SimilarityThreshold,
	})
	if err != nil {
		logger.Warn(ctx, "Example store unavailable, continuing without it", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		examples = exampleStore
		defer exampleStore.Close()
	}

	authManager := auth.NewManager(auth.Config{
		JWTSecret:     cfg.Auth.JWTSecret,
		JWTExpiry:     cfg.Auth.JWTExpiry,
		RateLimit:     cfg.Auth.RateLimit,
		DailyTokenCap: cfg.Auth.DailyTokenCap,
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	})

	// Every completion is charged against the caller's daily token budget.
	llmClient = authManager.MeterLLM(llmClient)

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			authManager.CleanupExpired()
		}
	}()

	healthChecker := observability.NewHealthChecker()

	healthChecker.Register("graph", observability.GraphHealthCheck(func(ctx context.Context) error {
		return store.Ping(ctx)
	}))

	healthChecker.Register("redis", observability.RedisHealthCheck(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}))

	if examples != nil {
		healthChecker.Register("database", observability.DatabaseHealthCheck(func(ctx context.Context) error {
			return examples.Ping(ctx)
		}))
	}

	healthChecker.Register("memory", observability.MemoryHealthCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))

	if cfg.Watcher.Enabled {
		watcher := graph.NewSchemaWatcher(store, ont, graph.WatcherConfig{
			Enabled:  cfg.Watcher.Enabled,
			Interval: cfg.Watcher.Interval,
		})
		if err := watcher.Start(ctx); err != nil {
			logger.Warn(ctx, "Failed to start schema watcher", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer watcher.Stop()
		}
	}

	svc := pipeline.NewService(llmClient, store, ont, embedder, examples, conversations, rdb, pipeline.Config{
		CacheTTL:        cfg.Pipeline.CacheTTL,
		MaxExamples:     cfg.Pipeline.MaxExamples,
		FallbackAnswer:  cfg.Pipeline.FallbackAnswer,
		MaxAttempts:     cfg.Generation.MaxAttempts,
		FreshTemplate:   cfg.Generation.FreshTemplate,
		HistoryTemplate: cfg.Generation.HistoryTemplate,
	})
	svc.SetHealthChecker(healthChecker)

	var authMiddleware pipeline.AuthMiddleware
	if !cfg.Auth.AllowAnonymous {
		authMiddleware = authManager
	}
	router := svc.SetupRoutes(authMiddleware)

	// Login stays public; the key management endpoints guard themselves.
	auth.NewHandlers(authManager).SetupRoutes(router.Group("/api/v1"))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info(ctx, "Server starting", map[string]interface{}{
			"port":  cfg.Server.Port,
			"graph": cfg.Graph.GraphName,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Server failed", err, nil)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Forced shutdown", err, nil)
	}
	logger.Info(ctx, "Server stopped", nil)
}
