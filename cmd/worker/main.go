package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hszk-dev/framegrab/internal/config"
	"github.com/hszk-dev/framegrab/internal/domain/repository"
	"github.com/hszk-dev/framegrab/internal/infrastructure/queue"
	"github.com/hszk-dev/framegrab/internal/infrastructure/tier"
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

	fileTier, err := tier.NewFile(cfg.Cache.Dir)
	if err != nil {
		return fmt.Errorf("failed to open file tier: %w", err)
	}

	objectTier, err := tier.NewObjectStore(ctx, tier.ObjectStoreConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to object storage: %w", err)
	}
	logger.Info("connected to object storage", slog.String("bucket", cfg.MinIO.Bucket))

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	// Periodic expiry sweep of the file tier
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.Worker.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := fileTier.Cleanup(cfg.Cache.FileTTL)
				if err != nil {
					logger.Error("file tier cleanup failed", slog.String("error", err.Error()))
					continue
				}
				if removed > 0 {
					logger.Info("file tier cleanup completed", slog.Int("removed", removed))
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming replication tasks")
		err := queueClient.ConsumeReplicateTasks(ctx, func(task repository.ReplicateTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("replicating entry to object storage",
				slog.String("key", task.Key),
				slog.Int("retry_count", task.RetryCount),
			)

			if task.RetryCount >= cfg.Worker.MaxRetries {
				logger.Error("replication retries exhausted, dropping task",
					slog.String("key", task.Key),
					slog.Int("retry_count", task.RetryCount),
				)
				return nil
			}

			if err := replicate(ctx, fileTier, objectTier, task.Key); err != nil {
				logger.Error("replication failed",
					slog.String("key", task.Key),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.Info("replication completed", slog.String("key", task.Key))
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some tasks may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}

// replicate reads an entry from the file tier and uploads it to object
// storage. An entry evicted from the file tier before the retry lands is not
// an error; there is simply nothing left to replicate.
func replicate(ctx context.Context, fileTier *tier.File, objectTier *tier.ObjectStore, key string) error {
	entry, err := fileTier.Lookup(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			slog.Warn("entry no longer in file tier, skipping replication",
				slog.String("key", key),
			)
			return nil
		}
		return fmt.Errorf("read entry from file tier: %w", err)
	}

	if err := objectTier.Store(ctx, key, entry); err != nil {
		return fmt.Errorf("store entry in object storage: %w", err)
	}

	return nil
}
