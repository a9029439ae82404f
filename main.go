package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cbt-exam/cbt-service/internal/config"
	"github.com/cbt-exam/cbt-service/internal/events"
	"github.com/cbt-exam/cbt-service/internal/handlers"
	"github.com/cbt-exam/cbt-service/internal/repositories"
	"github.com/cbt-exam/cbt-service/internal/repositories/gormstore"
	"github.com/cbt-exam/cbt-service/internal/repositories/memory"
	"github.com/cbt-exam/cbt-service/internal/repositories/redisstore"
	"github.com/cbt-exam/cbt-service/internal/repositories/sqlite"
	"github.com/cbt-exam/cbt-service/internal/services"
	"github.com/cbt-exam/cbt-service/internal/utils"
	"github.com/cbt-exam/cbt-service/internal/validator"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewSlogLogger(cfg.LogLevel)

	// Initialize storage
	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		log.Fatalf("Failed to reach store: %v", err)
	}

	// Initialize audit events. The in-process pubsub always runs so the
	// audit log sees every event; Kafka mirrors them out when configured.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()

	pubsub := events.NewGoChannelPubSub(logger)
	if err := events.StartAuditLogger(auditCtx, pubsub, logger); err != nil {
		log.Fatalf("Failed to start audit logger: %v", err)
	}
	publisher := events.NewPublisher(pubsub, logger)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, logger)
		if err != nil {
			log.Fatalf("Failed to initialize Kafka publisher: %v", err)
		}
		publisher = events.NewFanOutPublisher(logger, pubsub, kafkaPub)
	}

	// Initialize validator
	v := validator.New()

	// Initialize services
	grading := services.NewGradingService(logger)
	examService := services.NewExamService(store, grading, publisher, logger, v)
	transferService := services.NewTransferService(store, grading, publisher, logger, v)
	sessionService := services.NewSessionService(store, grading, publisher, logger, v, 0)

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(examService, transferService, sessionService, cfg.ExportDir, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"store", cfg.StoreBackend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Stop the countdown without submitting; the attempt resumes on restart.
	if err := sessionService.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown session service: %v", err)
	}

	stopAudit()
	if err := publisher.Close(); err != nil {
		log.Printf("Failed to close publisher: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("Failed to close store: %v", err)
	}

	logger.Info("Server exited")
}

// newStore builds the storage backend selected by STORE_BACKEND.
func newStore(cfg *config.Config) (repositories.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		return sqlite.New(cfg.SQLitePath)
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return redisstore.New(redis.NewClient(opts)), nil
	case config.BackendPostgres:
		db, err := gorm.Open(gormpostgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return gormstore.New(db)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
