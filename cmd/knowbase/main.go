package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/knowbase-io/knowbase/internal/activity"
	"github.com/knowbase-io/knowbase/internal/config"
	"github.com/knowbase-io/knowbase/internal/domain"
	logpkg "github.com/knowbase-io/knowbase/internal/logger"
	"github.com/knowbase-io/knowbase/internal/metrics"
	"github.com/knowbase-io/knowbase/internal/ratelimit"
	storeMemory "github.com/knowbase-io/knowbase/internal/store/memory"
	storeRedis "github.com/knowbase-io/knowbase/internal/store/redis"
	chiTransport "github.com/knowbase-io/knowbase/internal/transport/chi"
	openaiTransport "github.com/knowbase-io/knowbase/internal/transport/openai"
	ingestuc "github.com/knowbase-io/knowbase/internal/usecase/ingest"
	knowledgeuc "github.com/knowbase-io/knowbase/internal/usecase/knowledge"
	queryuc "github.com/knowbase-io/knowbase/internal/usecase/query"
	retrievaluc "github.com/knowbase-io/knowbase/internal/usecase/retrieval"
	"github.com/knowbase-io/knowbase/internal/version"
)

// docStore is the storage surface the pipeline services need.
type docStore interface {
	EnsureIndex(ctx context.Context) error
	Insert(ctx context.Context, doc domain.Document) error
	Delete(ctx context.Context, id string) error
	SearchKNN(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.Document, error)
	SearchByMetadata(ctx context.Context, f domain.MetadataFilter) ([]domain.Document, error)
	Append(ctx context.Context, stream string, fields map[string]string) error
}

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting "+version.String(),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()

	// Create document store based on driver
	var store docStore
	switch cfg.Database.Driver {
	case "redis":
		redisStore, err := storeRedis.NewStore(storeRedis.Config{
			Addrs:     cfg.Database.Addrs,
			Password:  cfg.Database.Password,
			KeyPrefix: cfg.Database.KeyPrefix,
			VectorDim: cfg.Embedding.Dimensions,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer redisStore.Close()

		readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := redisStore.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Store not ready", zap.Error(err))
		}
		store = redisStore
	case "memory":
		store = storeMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}

	if err := store.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}
	logger.Info("Store ready", zap.String("driver", cfg.Database.Driver))

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Embedder chain: OpenAI provider wrapped with the zero-vector fallback,
	// so provider outages degrade retrieval instead of failing queries.
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	embedder := domain.NewFallbackEmbedder(baseEmbedder, cfg.Embedding.Dimensions, logger)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Provider:    "openai",
		Logger:      logger,
	})

	logger.Info("Providers created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("generation_model", cfg.Generation.Model),
	)

	recorder := activity.NewRecorder(store, logger)

	limiter := ratelimit.New(
		time.Duration(cfg.RateLimit.WindowMs)*time.Millisecond,
		cfg.RateLimit.MaxRequests,
	)

	// Create use case services
	retrievalSvc := retrievaluc.New(store, embedder, logger).WithParams(
		cfg.Retrieval.SimilarityThreshold,
		cfg.Retrieval.MaxDocuments,
		cfg.Retrieval.MaxContextChars,
	)
	knowledgeSvc := knowledgeuc.New(store, embedder, logger)
	querySvc := queryuc.New(limiter, retrievalSvc, generator, recorder, logger).
		WithThresholds(cfg.Retrieval.MinConfidence, cfg.Retrieval.TrailerConfidence)
	ingestSvc := ingestuc.New(
		knowledgeSvc, ingestuc.TextExtractor{}, recorder,
		cfg.Ingestion.AdminIDs, logger,
	).
		WithMaxFileBytes(cfg.Ingestion.MaxFileBytes).
		WithAllowedTypes(cfg.Ingestion.AllowedTypes)

	server := chiTransport.NewServer(
		querySvc, retrievalSvc, knowledgeSvc, ingestSvc,
		cfg.Auth.APIKeys, logger,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
