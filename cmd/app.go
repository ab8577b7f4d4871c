/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tieubaoca/sikoma-be/config"
	"github.com/tieubaoca/sikoma-be/database"
	"github.com/tieubaoca/sikoma-be/handler"
	"github.com/tieubaoca/sikoma-be/metrics"
	"github.com/tieubaoca/sikoma-be/repository"
	"github.com/tieubaoca/sikoma-be/service"
	"github.com/tieubaoca/sikoma-be/utils"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
)

// app holds every wired component of one process.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	mongoDb  *mongo.Database
	weaviate *database.WeaviateStore
	gemini   *service.GeminiService

	hub       *service.ProgressHub
	ingest    *service.IngestService
	search    *service.SearchService
	documents service.DocumentService
	checks    map[string]handler.HealthCheck

	closers []func(context.Context) error
}

// loadApp reads the config named by the persistent flags and wires the app.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		hub:     service.NewProgressHub(),
		checks:  map[string]handler.HealthCheck{},
	}

	docs, chunks, blobs, err := a.buildStores(ctx)
	if err != nil {
		a.close(context.Background())
		return nil, err
	}
	ai, err := a.buildProvider(ctx)
	if err != nil {
		a.close(context.Background())
		return nil, err
	}

	extractor := service.NewExtractorService(ai, service.ExtractorConfig{
		OCRModels:        cfg.AI.OCRModels,
		InlineLimitBytes: cfg.AI.InlineLimitBytes,
	}, a.metrics, logger)
	summarizer := service.NewSummarizerService(ai, service.SummarizerConfig{
		Models:           cfg.AI.SummaryModels,
		InlineLimitBytes: cfg.AI.InlineLimitBytes,
		MaxInputChars:    cfg.AI.SummaryMaxInputChars,
	}, a.metrics, logger)
	embedder := service.NewEmbeddingService(ai, cfg.AI.EmbeddingModel, cfg.AI.EmbeddingDimensions)
	transcriber := service.NewTranscriberService(ai, cfg.AI.TranscribeModels, cfg.AI.InlineLimitBytes, a.metrics, logger)
	answerer := service.NewAnswerService(ai, cfg.AI.AnswerModel, logger)

	a.ingest = service.NewIngestService(docs, chunks, blobs, extractor, summarizer, embedder, a.hub, service.IngestConfig{
		ChunkSize:        cfg.Ingest.ChunkSize,
		ChunkOverlap:     cfg.Ingest.ChunkOverlap,
		EmbedConcurrency: cfg.Ingest.EmbedConcurrency,
		EmbedRetries:     cfg.Ingest.EmbedRetries,
		MaxUploadBytes:   cfg.Ingest.MaxUploadBytes,
	}, a.metrics, logger)
	a.search = service.NewSearchService(chunks, docs, embedder, transcriber, answerer, service.SearchConfig{
		DefaultTopK:      cfg.Search.DefaultTopK,
		MaxTopK:          cfg.Search.MaxTopK,
		DefaultThreshold: cfg.Search.DefaultThreshold,
	}, a.metrics, logger)
	a.documents = service.NewDocumentService(docs, chunks, blobs, extractor, summarizer, logger)
	return a, nil
}

func (a *app) buildStores(ctx context.Context) (repository.DocumentRepo, repository.ChunkRepo, repository.BlobRepo, error) {
	if a.cfg.VectorStore.Backend == "memory" {
		a.logger.Warn("Using the in-memory store, nothing survives a restart")
		store := repository.NewMemoryStore()
		return store, store, store, nil
	}

	mongoClient, err := database.ConnectMongo(ctx, a.cfg.Mongo.URI)
	if err != nil {
		return nil, nil, nil, err
	}
	a.closers = append(a.closers, mongoClient.Disconnect)
	a.checks["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	a.mongoDb = mongoClient.Database(a.cfg.Mongo.Database)

	docs := repository.NewDocumentRepo(a.mongoDb)
	blobs := repository.NewBlobRepo(a.mongoDb, a.cfg.Mongo.BlobBucket)
	if a.cfg.VectorStore.Backend == "weaviate" {
		weaviateDb, err := database.NewWeaviateStore(ctx, a.cfg.VectorStore.Weaviate)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to Weaviate database: %w", err)
		}
		a.weaviate = weaviateDb
		a.checks["weaviate"] = weaviateDb.Ping
		return docs, weaviateDb, blobs, nil
	}
	return docs, repository.NewChunkRepo(a.mongoDb, a.cfg.Mongo.VectorIndex), blobs, nil
}

func (a *app) buildProvider(ctx context.Context) (service.AIService, error) {
	switch a.cfg.AI.Provider {
	case "gemini":
		gemini, err := service.NewGeminiService(ctx, a.cfg.AI.APIKey, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		a.gemini = gemini
		a.closers = append(a.closers, func(context.Context) error { return gemini.Close() })
		return gemini, nil
	case "openai":
		if a.cfg.AI.APIKey == "" && a.cfg.AI.BaseURL == "" {
			return nil, errors.New("openai provider needs an API key or a base_url")
		}
		return service.NewOpenAIService(a.cfg.AI.BaseURL, a.cfg.AI.APIKey), nil
	case "mock":
		a.logger.Warn("Using the mock AI provider, results are not semantic")
		return service.NewMockAIService(a.cfg.AI.EmbeddingDimensions), nil
	}
	return nil, fmt.Errorf("unknown ai.provider %q", a.cfg.AI.Provider)
}

// close releases clients in reverse order of creation.
func (a *app) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("Failed to close client", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}
