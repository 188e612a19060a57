package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pobabytouch/leaderboard/internal/config"
	"github.com/pobabytouch/leaderboard/internal/engine"
	"github.com/pobabytouch/leaderboard/internal/handler"
	"github.com/pobabytouch/leaderboard/internal/kafka"
	"github.com/pobabytouch/leaderboard/internal/store"
	"github.com/pobabytouch/leaderboard/internal/store/memstore"
	"github.com/pobabytouch/leaderboard/internal/store/pgstore"
	"github.com/pobabytouch/leaderboard/internal/store/redisstore"
	"github.com/pobabytouch/leaderboard/internal/websocket"
	"github.com/pobabytouch/leaderboard/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the hot score store. A missing Redis degrades to an
	// in-process store so the game stays playable; the leaderboard then
	// starts empty and is not durable across restarts.
	var hotStore store.Store
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	redisStore, err := redisstore.New(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("failed to connect to Redis, using in-memory score store", "error", err)
		hotStore = memstore.New()
	} else {
		defer redisStore.Close()
		hotStore = redisStore
		logger.Info("connected to Redis")
	}

	// Initialize the durable PostgreSQL mirror
	var durableStore *pgstore.Store
	if cfg.Postgres.Enabled {
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		durableStore, err = pgstore.New(&cfg.Postgres, logger)
		if err != nil {
			logger.Warn("failed to connect to PostgreSQL, continuing without durable mirror", "error", err)
			durableStore = nil
		} else {
			defer durableStore.Close()
			logger.Info("connected to PostgreSQL")

			if err := durableStore.RunMigrations(ctx); err != nil {
				logger.Error("failed to run migrations", "error", err)
				os.Exit(1)
			}
		}
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize the leaderboard engine
	leaderboard := engine.New(hotStore, &cfg.Leaderboard, logger)

	// Initialize the mirror worker
	var mirrorWorker *worker.MirrorWorker
	if durableStore != nil {
		mirrorWorker = worker.NewMirrorWorker(hotStore, durableStore, &cfg.Mirror, logger)

		// Restore the hot store from the durable mirror on startup
		logger.Info("restoring leaderboards from durable store")
		if err := mirrorWorker.RestoreAll(ctx); err != nil {
			logger.Warn("failed to restore from durable store on startup", "error", err)
		}

		if cfg.Mirror.Enabled {
			if err := mirrorWorker.Start(ctx); err != nil {
				logger.Error("failed to start mirror worker", "error", err)
				os.Exit(1)
			}
		}
	}

	// Initialize Kafka consumer for high-load score ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, leaderboard, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(leaderboard, wsHub, leaderboard, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop WebSocket hub
	wsHub.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Mirror one last time so nothing achieved since the previous cycle
	// is lost, then stop the worker
	if mirrorWorker != nil {
		mirrorWorker.RunOnce(shutdownCtx)
		if err := mirrorWorker.Stop(); err != nil {
			logger.Error("failed to stop mirror worker", "error", err)
		}
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
