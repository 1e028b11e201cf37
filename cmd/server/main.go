package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mcq-genie/mcq-service/internal/cache"
	"github.com/mcq-genie/mcq-service/internal/config"
	"github.com/mcq-genie/mcq-service/internal/generator"
	"github.com/mcq-genie/mcq-service/internal/handlers"
	"github.com/mcq-genie/mcq-service/internal/llm"
	"github.com/mcq-genie/mcq-service/internal/models"
	"github.com/mcq-genie/mcq-service/internal/repositories/postgres"
	"github.com/mcq-genie/mcq-service/internal/services"
	"github.com/mcq-genie/mcq-service/internal/utils"
	"github.com/mcq-genie/mcq-service/internal/worker"
	"github.com/mcq-genie/mcq-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var appLogger utils.Logger
	if cfg.IsDevelopment() {
		appLogger = utils.NewDevelopmentLogger()
	} else {
		appLogger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	}
	slogger := utils.ToSlogLogger(appLogger)

	// Database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		slogger.Error("Failed to connect to database", "error", err)
		return
	}
	if err := db.AutoMigrate(
		&models.TestSession{},
		&models.TestResult{},
		&models.ChatSession{},
	); err != nil {
		slogger.Error("Failed to run migrations", "error", err)
		return
	}
	repo := postgres.NewRepository(db)
	defer repo.Close()

	// Cache
	var resultCache cache.Cache = cache.NewNoopCache()
	if cfg.Redis.Enabled {
		redisClient, err := pkg.NewRedisClient(cfg)
		if err != nil {
			slogger.Warn("Redis unavailable, caching disabled", "error", err)
		} else {
			resultCache = cache.NewRedisCache(redisClient, slogger)
		}
	}
	defer resultCache.Close()

	// LLM provider and question generator
	provider, err := llm.NewProvider(cfg.LLM, slogger)
	if err != nil {
		slogger.Error("Failed to create LLM provider", "error", err)
		return
	}
	questionGenerator := generator.New(provider, appLogger)

	// Events
	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		slogger.Error("Failed to create event publisher", "error", err)
		return
	}
	defer publisher.Close()

	// Services
	validator := utils.NewValidator()
	evaluator := services.NewEvaluationService(slogger)
	testService := services.NewTestService(
		repo,
		questionGenerator,
		evaluator,
		publisher,
		resultCache,
		slogger,
		validator,
		services.TestServiceConfig{
			SecondsPerQuestion: cfg.Test.SecondsPerQuestion,
			ResultCacheTTL:     cfg.Test.ResultCacheTTL,
		},
	)
	chatService := services.NewChatService(repo, provider, publisher, slogger, validator)
	exportService := services.NewExportService(repo, slogger)

	// HTTP layer
	handlerManager := handlers.NewHandlerManager(
		testService, chatService, exportService, repo, validator, appLogger)
	router := handlers.NewRouter(handlerManager, appLogger, cfg.CORS.AllowedOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background expiry sweeper
	sweeper := worker.NewExpiryWorker(testService, slogger, cfg.Test.SweepInterval, cfg.Test.SweepBatchSize)
	go sweeper.Run(ctx)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slogger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slogger.Error("Graceful shutdown failed", "error", err)
	}

	slogger.Info("Server stopped")
}
