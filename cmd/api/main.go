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
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/studyhall/backend/internal/api/handlers"
	"github.com/studyhall/backend/internal/cache/redis"
	"github.com/studyhall/backend/internal/concepts"
	"github.com/studyhall/backend/internal/exercises"
	"github.com/studyhall/backend/internal/extract"
	"github.com/studyhall/backend/internal/graph"
	"github.com/studyhall/backend/internal/graph/neo4j"
	"github.com/studyhall/backend/internal/llm"
	"github.com/studyhall/backend/internal/metrics"
	"github.com/studyhall/backend/internal/middleware/ratelimit"
	"github.com/studyhall/backend/internal/middleware/security"
	"github.com/studyhall/backend/internal/middleware/validation"
	"github.com/studyhall/backend/internal/pipeline"
	"github.com/studyhall/backend/internal/review"
	"github.com/studyhall/backend/internal/search"
	"github.com/studyhall/backend/internal/storage/sqlite"
	"github.com/studyhall/backend/internal/vector"
	"github.com/studyhall/backend/internal/vector/milvus"
	"github.com/studyhall/backend/pkg/config"
	appLogger "github.com/studyhall/backend/pkg/logger"
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

	appLogger.Info("Starting StudyHall API server")

	metrics.Init()

	if err := os.MkdirAll(cfg.Pipeline.UploadDir, 0o755); err != nil {
		appLogger.Fatal("Failed to create upload directory", zap.Error(err))
	}

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	extractor := concepts.NewExtractor(llmClient)
	generator := exercises.NewGenerator(llmClient)
	scheduler := review.NewScheduler(sqliteClient)

	orch := pipeline.NewOrchestrator(
		sqliteClient,
		extract.Extract,
		extractor,
		generator,
		scheduler,
		cfg.Pipeline.TargetTokens,
		cfg.Pipeline.OverlapFraction,
	)

	var graphClient *neo4j.Client
	if cfg.Neo4j.Enabled {
		graphClient, err = neo4j.NewClient(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password)
		if err != nil {
			appLogger.Fatal("Failed to create Neo4j client", zap.Error(err))
		}
		defer graphClient.Close(context.Background())
		orch.WithGraphMirror(graph.NewMirror(graphClient))
	}

	var searchEngine *search.Engine
	if cfg.Milvus.Enabled {
		milvusClient, err := milvus.NewClient(cfg.Milvus.Endpoint, cfg.Milvus.CollectionName, cfg.Milvus.VectorDim)
		if err != nil {
			appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
		}
		defer milvusClient.Close()

		if err := milvusClient.CreateCollection(context.Background()); err != nil {
			appLogger.Fatal("Failed to create collection", zap.Error(err))
		}

		orch.WithChunkIndexer(vector.NewIndexer(llmClient, milvusClient, sqliteClient))
		searchEngine = search.NewEngine(llmClient, milvusClient)
	}

	var cacheClient *redis.Client
	if cfg.Redis.Enabled {
		cacheClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer cacheClient.Close()
		orch.WithCache(cacheClient)
	}

	worker := pipeline.NewWorker(orch, cfg.Pipeline.QueueSize)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	worker.Start(workerCtx)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{Logger: appLogger.GetLogger()})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxUploadSize: cfg.Server.BodyLimit,
		Logger:        appLogger.GetLogger(),
	}))

	documentHandler := handlers.NewDocumentHandler(sqliteClient, orch, worker, cacheClient, cfg.Pipeline.UploadDir)
	conceptHandler := handlers.NewConceptHandler(sqliteClient, graphClient)
	reviewHandler := handlers.NewReviewHandler(sqliteClient, scheduler, cacheClient)
	searchHandler := handlers.NewSearchHandler(searchEngine)
	wsHandler := handlers.NewWebSocketHandler(sqliteClient)

	api := app.Group("/api/v1")

	api.Post("/documents", documentHandler.UploadDocument)
	api.Get("/documents/:id", documentHandler.GetDocument)
	api.Get("/documents/:id/concepts", documentHandler.ListConcepts)

	api.Get("/concepts/:id", conceptHandler.GetConcept)
	api.Get("/concepts/:id/path", conceptHandler.GetPrerequisitePath)

	api.Post("/reviews/answers", reviewHandler.SubmitAnswer)
	api.Get("/reviews/due", reviewHandler.DueReviews)

	api.Post("/search", searchHandler.HandleSearch)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/documents/:id", websocket.New(wsHandler.HandleDocumentStatus))

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
