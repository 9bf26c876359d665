package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/grounder/internal/config"
	dbRedis "github.com/kailas-cloud/grounder/internal/db/redis"
	"github.com/kailas-cloud/grounder/internal/domain"
	logpkg "github.com/kailas-cloud/grounder/internal/logger"
	"github.com/kailas-cloud/grounder/internal/metrics"
	contentrepo "github.com/kailas-cloud/grounder/internal/repository/content"
	"github.com/kailas-cloud/grounder/internal/repository/embcache"
	sessionrepo "github.com/kailas-cloud/grounder/internal/repository/session"
	"github.com/kailas-cloud/grounder/internal/transport/httpapi"
	openaiEmb "github.com/kailas-cloud/grounder/internal/transport/openai"
	"github.com/kailas-cloud/grounder/internal/usecase/contextcache"
	embeddinguc "github.com/kailas-cloud/grounder/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/grounder/internal/usecase/health"
	searchuc "github.com/kailas-cloud/grounder/internal/usecase/search"
	"github.com/kailas-cloud/grounder/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting grounder API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	// Build embedder chain — composition root
	backend := openaiEmb.NewBackend(&openaiEmb.Config{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Logger:  logger,
	})
	embedder, err := buildEmbedder(backend, cfg, store, logger)
	if err != nil {
		logger.Fatal("Failed to build embedder", zap.Error(err))
	}
	logger.Info("Embedder created",
		zap.Strings("models", cfg.Embedding.Models),
		zap.Int("dimensions", domain.EmbeddingDim),
	)

	// Create repositories (domain-native, no adapters)
	contentRepo := contentrepo.New(store, cfg.Storage.KeyPrefix)
	sessionRepo := sessionrepo.New(store, cfg.Storage.KeyPrefix,
		time.Duration(cfg.Cache.TTLSec)*time.Second)

	// Source searchers and the orchestrator
	textSearcher := searchuc.NewTextChunkSearcher(contentRepo, contentRepo, contentRepo)
	vectorSearcher := searchuc.NewVectorChunkSearcher(
		embedder, contentRepo, contentRepo, contentRepo, contentRepo,
		textSearcher, cfg.Retrieval.SimilarityThreshold, logger,
	)
	orchestrator := searchuc.NewOrchestrator(
		searchuc.NewFAQSearcher(contentRepo),
		searchuc.NewFileSearcher(contentRepo),
		searchuc.NewWebsiteSearcher(contentRepo),
		searchuc.NewPageSearcher(contentRepo),
		vectorSearcher,
		textSearcher,
		cfg.Retrieval.DefaultLimit, cfg.Retrieval.MaxLimit,
		logger,
	)

	// Session context cache with background sweep
	cache := contextcache.New(
		orchestrator, contentRepo, contentRepo, sessionRepo,
		contextcache.Options{
			TTL:                   time.Duration(cfg.Cache.TTLSec) * time.Second,
			SweepInterval:         time.Duration(cfg.Cache.SweepIntervalSec) * time.Second,
			MaxMessages:           cfg.Cache.MaxMessages,
			ConfidenceFloor:       cfg.Cache.ConfidenceFloor,
			ConfidenceMinMessages: cfg.Cache.ConfidenceMinMessages,
			MaxChunks:             cfg.Cache.MaxChunks,
			MaxChunksPerDocument:  cfg.Cache.MaxChunksPerDocument,
			PrefilterLimit:        cfg.Cache.PrefilterLimit,
		},
		nil, logger,
	)
	cache.Start()
	defer cache.Stop()

	// Health service
	healthSvc := healthuc.New(store, backend)

	// HTTP transport
	server := httpapi.NewServer(orchestrator, cache, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain:
// OpenAI backend -> model fallback -> store cache -> in-process LRU.
func buildEmbedder(
	backend *openaiEmb.Backend,
	cfg config.Config,
	store *dbRedis.Store,
	logger *zap.Logger,
) (domain.Embedder, error) {
	provider := embeddinguc.NewProvider(backend, cfg.Embedding.Models, cfg.Embedding.MaxInputChars, logger)
	cached := embcache.New(provider, store, cfg.Storage.KeyPrefix, logger)
	return embeddinguc.NewMemoryCached(cached, cfg.Embedding.MemoryCacheSize)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
