package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/issueops/backend/internal/analytics"
	"github.com/issueops/backend/internal/api/handlers"
	"github.com/issueops/backend/internal/cache/redis"
	"github.com/issueops/backend/internal/generation"
	"github.com/issueops/backend/internal/knowledge"
	"github.com/issueops/backend/internal/llm"
	"github.com/issueops/backend/internal/metrics"
	"github.com/issueops/backend/internal/middleware/ratelimit"
	"github.com/issueops/backend/internal/middleware/security"
	"github.com/issueops/backend/internal/middleware/validation"
	"github.com/issueops/backend/internal/promotion"
	"github.com/issueops/backend/internal/storage/sqlite"
	"github.com/issueops/backend/internal/worker"
	"github.com/issueops/backend/pkg/config"
	appLogger "github.com/issueops/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting IssueOps API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var statsCache analytics.Cache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, stats caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			statsCache = redisClient
		}
	}

	llmClient := llm.NewClient(
		cfg.LLM.BaseURL,
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.TimeoutSec,
	)

	retriever := knowledge.NewRetriever(sqliteClient)
	generator := generation.NewGenerator(llmClient)
	generationService := generation.NewService(sqliteClient, retriever, generator)
	promoter := promotion.NewPromoter(sqliteClient)
	analyticsService := analytics.NewService(
		sqliteClient,
		statsCache,
		time.Duration(cfg.Redis.StatsTTL)*time.Second,
	)

	queue := worker.NewQueue(worker.Config{
		Workers:     cfg.Worker.Workers,
		QueueSize:   cfg.Worker.QueueSize,
		MaxAttempts: cfg.Worker.MaxAttempts,
	}, taskHandler(generationService))
	queue.Start()
	defer queue.Stop()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	rateLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(rateLimiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	issueHandler := handlers.NewIssueHandler(sqliteClient, queue)
	generationHandler := handlers.NewGenerationHandler(generationService)
	ratingHandler := handlers.NewRatingHandler(sqliteClient, promoter)
	knowledgeHandler := handlers.NewKnowledgeHandler(sqliteClient, retriever)
	statsHandler := handlers.NewStatsHandler(analyticsService, llmClient)
	wsHandler := handlers.NewWebSocketHandler(generationService)

	api := app.Group("/api/v1")

	api.Post("/issues", issueHandler.CreateIssue)
	api.Get("/issues", issueHandler.ListIssues)
	api.Get("/issues/:id", issueHandler.GetIssue)
	api.Patch("/issues/:id/status", issueHandler.UpdateStatus)

	api.Post("/issues/:id/resolution", generationHandler.GenerateResolution)
	api.Post("/issues/:id/sop", generationHandler.GenerateSOP)

	api.Post("/ratings", ratingHandler.SubmitRating)

	api.Get("/knowledge", knowledgeHandler.ListEntries)
	api.Post("/knowledge/search", knowledgeHandler.Search)

	api.Get("/stats", statsHandler.GetStats)
	api.Get("/health", statsHandler.Health)

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

// taskHandler routes background triggers into the generation service. The
// service's duplicate-generation guard makes redelivery safe, so precondition
// failures are treated as success rather than retried.
func taskHandler(service *generation.Service) worker.Handler {
	return func(ctx context.Context, task worker.Task) error {
		var err error
		switch task.Type {
		case worker.TaskGenerateResolution:
			_, err = service.GenerateResolutionForIssue(ctx, task.IssueID)
		case worker.TaskGenerateSOP:
			_, err = service.GenerateSOPForIssue(ctx, task.IssueID)
		default:
			appLogger.Warn("Unknown task type", zap.String("type", string(task.Type)))
			return nil
		}

		switch err {
		case nil:
			return nil
		case generation.ErrDuplicateGeneration,
			generation.ErrIssueNotResolved,
			generation.ErrNoQualifiedResolution:
			appLogger.Debug("Task skipped by precondition",
				zap.String("type", string(task.Type)),
				zap.String("issue_id", task.IssueID),
				zap.Error(err),
			)
			return nil
		}

		return err
	}
}
