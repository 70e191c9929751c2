package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"knowledgebase/internal/chunker"
	"knowledgebase/internal/config"
	"knowledgebase/internal/embedding"
	"knowledgebase/internal/http"
	"knowledgebase/internal/llm"
	"knowledgebase/internal/objectstore"
	"knowledgebase/internal/parser"
	"knowledgebase/internal/rerank"
	"knowledgebase/internal/search"
	"knowledgebase/internal/service"
	"knowledgebase/internal/storage"
	"knowledgebase/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	notebookRepo := storage.NewNotebookRepo(db)
	documentRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := vectorStore.EnsureCollection(ctx, cfg.EmbeddingDim); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingDim)

	// Object storage for raw uploads
	objectStore, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Endpoint:  cfg.S3Endpoint,
	})
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	// Embedding clients. The sparse chain always terminates in local TF-IDF,
	// so a missing remote sparse service degrades rather than fails.
	denseClient := embedding.NewDenseClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim, cfg.EmbeddingBatchSize)

	// The constructors below return nil pointers when unconfigured; assigning
	// one to an interface directly would defeat the downstream nil checks, so
	// gate each here.
	var sparseTiers []embedding.SparseTier
	if rc := embedding.NewRemoteSparseClient(cfg.SparseBaseURL, cfg.SparseAPIKey); rc != nil {
		sparseTiers = append(sparseTiers, rc)
	}
	sparseChain := embedding.NewSparseChain(sparseTiers...)

	var encoder rerank.CrossEncoder
	if jc := rerank.NewJinaClient(cfg.RerankURL, cfg.RerankAPIKey, cfg.RerankModel); jc != nil {
		encoder = jc
	}
	reranker := rerank.New(encoder, denseClient)

	parserClient := parser.NewClient(cfg.ParserBaseURL, cfg.ParserAPIKey)

	var summaryClient service.SummaryClient
	if cfg.SummaryBaseURL != "" {
		summaryClient = llm.NewClient(cfg.SummaryBaseURL, cfg.SummaryAPIKey, cfg.SummaryModel)
	}

	// Services
	notebookService := service.NewNotebookService(notebookRepo)
	documentService := service.NewDocumentService(
		documentRepo,
		chunkRepo,
		notebookRepo,
		objectStore,
		vectorStore,
		parserClient,
		denseClient,
		sparseChain,
		chunker.New(chunker.DefaultConfig()),
		summaryClient,
	)
	searchEngine := search.NewEngine(chunkRepo, vectorStore, denseClient, sparseChain, reranker)
	taskRunner := service.NewTaskRunner(ctx, cfg.MaxConcurrentTasks)
	slog.Info("Services initialized", "max_concurrent_tasks", cfg.MaxConcurrentTasks)

	// Create router with dependencies
	deps := &http.Deps{
		Notebooks: notebookService,
		Documents: documentService,
		Engine:    searchEngine,
		Tasks:     taskRunner,
		DB:        db,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:    addr,
		Handler: router,
	}
	go func() {
		slog.Info("Starting API server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	// Let in-flight ingestion tasks finish before closing the listener's
	// dependencies out from under them.
	taskRunner.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
