// cmd/matching-engine/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"matching-engine/internal/common/broker"
	"matching-engine/internal/common/config"
	"matching-engine/internal/common/database"
	apperrors "matching-engine/internal/common/errors"
	"matching-engine/internal/common/logger"
	"matching-engine/internal/matching/catalog"
	"matching-engine/internal/matching/engine"
	"matching-engine/internal/matching/lead"
	"matching-engine/internal/matching/preference"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting matching engine",
		zap.String("name", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
		zap.Int("intervalMinutes", cfg.Matching.IntervalMinutes),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Init users (preference) store with retry ---
	var usersDB *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		usersDB, err = database.NewPostgres(cfg.Database.Users)
		if err != nil {
			return err
		}
		return usersDB.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "users database connection")
	if err != nil {
		zapLog.Fatal("users database failed after retries",
			zap.Error(apperrors.NewStartupFailedError("users database", err)))
	}
	defer usersDB.Close()
	zapLog.Info("users database connected")

	// --- Init catalog store with retry ---
	var catalogDB *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		catalogDB, err = database.NewPostgres(cfg.Database.Catalog)
		if err != nil {
			return err
		}
		return catalogDB.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "catalog database connection")
	if err != nil {
		zapLog.Fatal("catalog database failed after retries",
			zap.Error(apperrors.NewStartupFailedError("catalog database", err)))
	}
	defer catalogDB.Close()
	zapLog.Info("catalog database connected")

	// --- Init Kafka producer with retry ---
	producer := broker.NewKafkaProducer(cfg.Kafka)
	err = retryWithBackoff(func() error {
		return producer.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "kafka connection")
	if err != nil {
		zapLog.Fatal("kafka failed after retries",
			zap.Error(apperrors.NewStartupFailedError("kafka producer", err)))
	}
	defer producer.Close()
	zapLog.Info("kafka connected", zap.String("topic", cfg.Kafka.LeadsTopic))

	// --- Init dedup window (optional) ---
	var dedup engine.Deduper
	if cfg.Dedup.Enabled {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries",
				zap.Error(apperrors.NewStartupFailedError("redis", err)))
		}
		defer redisClient.Close()
		zapLog.Info("redis connected")

		dedup = lead.NewDedupWindow(redisClient.Client, time.Duration(cfg.Dedup.TTLMinutes)*time.Minute)
	}

	// --- Metrics endpoint ---
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				zapLog.Error("metrics server stopped", zap.Error(err))
			}
		}()
		zapLog.Info("metrics endpoint listening", zap.String("address", cfg.Metrics.Address))
	}

	// --- Wire the engine ---
	loader := preference.NewLoader(usersDB.DB, log)
	retriever := catalog.NewRetriever(catalogDB.DB, log)
	emitter := lead.NewEmitter(
		&lead.Config{PublishTimeout: config.GetDuration(cfg.Kafka.PublishTimeout)},
		producer,
		log,
	)

	eng := engine.New(
		&engine.Config{Workers: cfg.Matching.Workers},
		loader, retriever, emitter, dedup, log,
	)

	scheduler := engine.NewScheduler(eng, cfg.Matching.IntervalMinutes, log)
	if err := scheduler.Start(ctx); err != nil {
		zapLog.Fatal("scheduler start failed",
			zap.Error(apperrors.NewStartupFailedError("scheduler", err)))
	}

	// --- Wait for stop signal ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))

	// No new cycles; the in-flight cycle drains before resources close.
	scheduler.Stop()
	cancel()
	zapLog.Info("matching engine stopped")
}
