package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/framegrab/internal/api/handler"
	"github.com/hszk-dev/framegrab/internal/api/middleware"
	"github.com/hszk-dev/framegrab/internal/config"
	"github.com/hszk-dev/framegrab/internal/domain/repository"
	"github.com/hszk-dev/framegrab/internal/extractor"
	"github.com/hszk-dev/framegrab/internal/infrastructure/queue"
	"github.com/hszk-dev/framegrab/internal/infrastructure/streamcache"
	"github.com/hszk-dev/framegrab/internal/infrastructure/tier"
	"github.com/hszk-dev/framegrab/internal/resolver"
	"github.com/hszk-dev/framegrab/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Cache tiers
	memoryTier, err := tier.NewMemory(cfg.Cache.MemoryBudgetBytes)
	if err != nil {
		return fmt.Errorf("failed to create memory tier: %w", err)
	}

	fileTier, err := tier.NewFile(cfg.Cache.Dir)
	if err != nil {
		return fmt.Errorf("failed to create file tier: %w", err)
	}

	var objectTier repository.Tier
	if cfg.MinIO.Enabled {
		objStore, err := tier.NewObjectStore(ctx, tier.ObjectStoreConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to object storage: %w", err)
		}
		objectTier = objStore
		logger.Info("connected to object storage", slog.String("bucket", cfg.MinIO.Bucket))
	} else {
		logger.Info("object storage disabled, running with memory and file tiers only")
	}

	// Resolved-stream cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	// Upload-retry queue
	var msgQueue repository.MessageQueue
	if cfg.RabbitMQ.Enabled && objectTier != nil {
		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer queueClient.Close()
		msgQueue = queueClient
		logger.Info("connected to RabbitMQ")
	}

	// External tools
	res := resolver.NewCachedResolver(
		resolver.NewYtDlpResolver(resolver.YtDlpConfig{
			BinaryPath:           cfg.Resolver.BinaryPath,
			SocketTimeoutSeconds: cfg.Resolver.SocketTimeout,
			Retries:              cfg.Resolver.Retries,
		}),
		streamcache.NewRedisStreamCache(redisClient),
		resolver.CachedResolverConfig{StreamTTL: cfg.Redis.StreamTTL},
	)

	ext := extractor.NewFFmpegExtractor(extractor.FFmpegConfig{
		FFmpegPath: cfg.Extractor.FFmpegPath,
		WorkDir:    cfg.Extractor.WorkDir,
		Qscale:     cfg.Extractor.Qscale,
	})

	svcCfg := usecase.DefaultFrameServiceConfig()
	svcCfg.ResolveTimeout = cfg.Resolver.Timeout
	svcCfg.ExtractTimeout = cfg.Extractor.Timeout
	svcCfg.WaitTimeout = cfg.Cache.WaitTimeout

	frameSvc := usecase.NewFrameService(
		memoryTier,
		fileTier,
		objectTier,
		res,
		ext,
		msgQueue,
		svcCfg,
	)

	r := setupRouter(logger, cfg, frameSvc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupRouter(logger *slog.Logger, cfg *config.Config, svc usecase.FrameService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	frameHandler := handler.NewFrameHandler(svc)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateWindow))
			r.Post("/frames", frameHandler.Create)
			r.Get("/frames", frameHandler.Get)
			r.Get("/videos/{id}/thumbnails", frameHandler.Thumbnails)
		})
		r.Get("/cache/stats", frameHandler.Stats)
	})

	return r
}
