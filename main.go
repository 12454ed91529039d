package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/smartscore-service/internal/config"
	"github.com/SAP-F-2025/smartscore-service/internal/events"
	"github.com/SAP-F-2025/smartscore-service/internal/handlers"
	"github.com/SAP-F-2025/smartscore-service/internal/metrics"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/smartscore-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/smartscore-service/internal/services"
	"github.com/SAP-F-2025/smartscore-service/internal/storage"
	"github.com/SAP-F-2025/smartscore-service/internal/utils"
	"github.com/SAP-F-2025/smartscore-service/internal/validator"
	"github.com/SAP-F-2025/smartscore-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, caching disabled", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// Optional collaborators
	m := metrics.New()
	smConfig := services.ServiceManagerConfig{Metrics: m}

	if cfg.S3.Enabled() {
		store, err := storage.NewS3Store(startCtx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to initialize blob storage: %v", err)
		}
		smConfig.BlobStore = store
	}

	if cfg.Casdoor.Enabled() {
		smConfig.Directory = casdoor.NewUserDirectory(cfg.Casdoor)
	}

	// Event bus: Kafka when brokers are configured, in-process otherwise
	bus, err := events.NewBus(cfg.Kafka, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event bus: %v", err)
	}
	publisher := events.NewWatermillEventPublisher(bus.Publisher, slogLogger)
	smConfig.Publisher = publisher

	// Initialize services
	serviceManager := services.NewServiceManager(db, repoManager.GetRepository(), slogLogger, validator.New(), smConfig)
	if err := serviceManager.Initialize(startCtx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Grading results consumer
	consumer, err := events.NewConsumer(bus.Subscriber, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize consumer: %v", err)
	}
	consumer.Handle("grading_results", events.GradingResultsTopic, serviceManager.Grading().HandleResultMessage)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go func() {
		if err := consumer.Run(consumerCtx); err != nil {
			logger.Error("Consumer stopped", "error", err)
		}
	}()

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, m)
	handlers.NewHandlerManager(serviceManager, logger, m).SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"database", cfg.DatabaseDriver,
			"kafka", len(cfg.Kafka.Brokers) > 0)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	stopConsumer()
	if err := consumer.Close(); err != nil {
		logger.Error("Failed to close consumer", "error", err)
	}

	if err := publisher.Close(); err != nil {
		logger.Error("Failed to close publisher", "error", err)
	}
	if err := bus.Subscriber.Close(); err != nil {
		logger.Error("Failed to close subscriber", "error", err)
	}

	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	// Closes the database and Redis
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close repositories", "error", err)
	}

	logger.Info("Server exited")
}
