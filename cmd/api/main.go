package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/activeaging/internal/api"
	"example.com/activeaging/internal/audit"
	"example.com/activeaging/internal/auth"
	"example.com/activeaging/internal/catalog"
	"example.com/activeaging/internal/coach"
	"example.com/activeaging/internal/coaching"
	"example.com/activeaging/internal/config"
	"example.com/activeaging/internal/llm"
	"example.com/activeaging/internal/observability"
	"example.com/activeaging/internal/persistence/postgres"
	"example.com/activeaging/internal/planning"
	"example.com/activeaging/internal/retrieval"
	"example.com/activeaging/internal/store/memory"
	httptransport "example.com/activeaging/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("coaching api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	logger.Info("movement catalog loaded", zap.String("version", cat.Version()), zap.Int("movements", cat.Len()))

	var pool *pgxpool.Pool
	if cfg.PlanStore == config.StorePostgres || cfg.AuditSink != config.StoreMemory {
		pool, err = pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
	}

	sink, reader, closeSink := buildAuditSink(cfg, pool)
	defer closeSink()
	recorder := audit.NewLogger(sink, audit.WithLogger(logger), audit.WithWriteTimeout(cfg.AuditWriteTimeout))

	var plans planning.Repository = memory.NewPlanRepository()
	if cfg.PlanStore == config.StorePostgres {
		plans = postgres.NewPlanRepository(pool)
	}

	model, err := buildModel(ctx, cfg)
	if err != nil {
		return err
	}
	retriever, err := buildRetriever(cfg)
	if err != nil {
		return err
	}
	if cfg.RedisAddr != "" {
		cache, err := retrieval.NewRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer cache.Close()
		retriever = retrieval.NewCachedClient(retriever, cache, cfg.RetrievalCacheTTL, logger)
	}

	orchestrator := coaching.NewOrchestrator(model,
		coaching.WithRetriever(retriever),
		coaching.WithRecorder(recorder),
		coaching.WithLogger(logger),
	)
	service, err := coach.NewService(planning.NewEngine(cat), orchestrator, plans,
		coach.WithRecorder(recorder),
		coach.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	api.NewHandler(service, reader, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, auth.SkipProbes)
	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress),
		httptransport.AccessLog(logger, authMiddleware.Wrap(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("coaching api listening",
			zap.String("address", cfg.HTTPAddress),
			zap.String("plan_store", cfg.PlanStore),
			zap.String("audit_sink", cfg.AuditSink),
			zap.String("llm_provider", cfg.LLMProvider),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-shutdownCh:
		logger.Info("shutdown requested")
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	// Drain pending audit writes before the sink and pool are closed.
	if err := recorder.Close(shutdownCtx); err != nil {
		logger.Warn("audit writes still pending at shutdown", zap.Error(err))
	}
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

// buildAuditSink returns the sink, the reader backing GET /v1/audit, and a close func.
// The Kafka sink is read back from the table the audit consumer fills.
func buildAuditSink(cfg config.Config, pool *pgxpool.Pool) (audit.Sink, audit.Reader, func()) {
	switch cfg.AuditSink {
	case config.StorePostgres:
		store := postgres.NewAuditStore(pool)
		return store, store, func() {}
	case config.SinkKafka:
		sink := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		return sink, postgres.NewAuditStore(pool), func() { _ = sink.Close() }
	default:
		sink := audit.NewMemorySink()
		return sink, sink, func() {}
	}
}

func buildModel(ctx context.Context, cfg config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini, config.ProviderVertex:
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			Vertex:   cfg.LLMProvider == config.ProviderVertex,
			APIKey:   cfg.GenAIAPIKey,
			Project:  cfg.GCPProject,
			Location: cfg.GCPLocation,
			Model:    cfg.ModelName,
		})
	case config.ProviderMock:
		return llm.NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func buildRetriever(cfg config.Config) (retrieval.Client, error) {
	switch {
	case cfg.RetrievalURL != "":
		return retrieval.NewHTTPClient(cfg.RetrievalURL, cfg.RetrievalToken, cfg.HTTPTimeout), nil
	case cfg.RetrievalIndexPath != "":
		return retrieval.LoadMemoryIndexFile(cfg.RetrievalIndexPath)
	default:
		return retrieval.NoopClient{}, nil
	}
}
