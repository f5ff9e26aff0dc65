package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hireview/api/internal/client"
	"github.com/hireview/api/internal/config"
	"github.com/hireview/api/internal/handler"
	"github.com/hireview/api/internal/media"
	"github.com/hireview/api/internal/pipeline"
	"github.com/hireview/api/internal/repository"
	"github.com/hireview/api/internal/service"
	"github.com/hireview/api/internal/worker"
)

const fetchTimeout = 5 * time.Minute

func main() {
	// .env is optional; real deployments configure through the environment
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Postgres
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize external clients
	fetcher := client.NewVideoFetcher(fetchTimeout)
	transcriptionClient := client.NewTranscriptionClient(&cfg.Groq, cfg.Pipeline.Language)
	contentScorer := client.NewContentScorer(&cfg.Groq)
	analyzerClient := client.NewAnalyzerClient(&cfg.Analyzer)
	extractor := media.NewExtractor(cfg.Pipeline.FFmpegBinary)

	// Initialize repositories
	analysisRepo := repository.NewAnalysisRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	store := repository.NewStore(analysisRepo, responseRepo)

	// Initialize pipeline runner
	runner := pipeline.NewRunner(
		fetcher,
		extractor,
		transcriptionClient,
		contentScorer,
		analyzerClient,
		analyzerClient,
		store,
		cfg.Pipeline.ScratchDir,
	)

	// Initialize services and handlers
	analysisService := service.NewAnalysisService(redisClient, asynqClient, cfg.Pipeline)
	analysisHandler := handler.NewAnalysisHandler(analysisService, analysisRepo, validate)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"transcription": transcriptionClient.IsConfigured(),
				"scorer":        contentScorer.IsConfigured(),
				"analyzers":     analyzerClient.IsConfigured(),
			},
		})
	})

	// API routes
	api := app.Group("/api")
	analysis := api.Group("/analysis")
	analysis.Post("/enqueue", analysisHandler.Enqueue)
	analysis.Get("/status/:jobId", analysisHandler.Status)
	analysis.Get("/result/:responseId", analysisHandler.Result)

	// Start Asynq worker server
	go startWorkerServer(cfg, analysisService, runner, responseRepo)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	analysisService *service.AnalysisService,
	runner *pipeline.Runner,
	responseRepo repository.ResponseRepository,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Pipeline.Concurrency,
			Queues: map[string]int{
				service.QueueAnalysis: 1,
			},
			RetryDelayFunc: worker.RetryDelay(cfg.Pipeline.BackoffBaseDelay),
			LogLevel:       asynqLogLevel,
		},
	)

	analysisWorker := worker.NewAnalysisWorker(analysisService, runner, responseRepo, worker.LogEvents{})

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeAnalysis, analysisWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
