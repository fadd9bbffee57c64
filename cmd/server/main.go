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
	"github.com/joho/godotenv"

	"icarus-backend/chunker"
	"icarus-backend/config"
	"icarus-backend/handlers"
	"icarus-backend/llm"
	"icarus-backend/lock"
	"icarus-backend/logger"
	"icarus-backend/repository"
	"icarus-backend/service"
	"icarus-backend/storage"
	"icarus-backend/vectorstore"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(cfg.DatabaseURL, appLog)
	if err != nil {
		appLog.Fatal("failed to initialize database", "error", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		appLog.Fatal("failed to migrate database", "error", err)
	}

	fileStorage, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		appLog.Fatal("failed to initialize storage", "error", err)
	}
	appLog.Info("storage initialized", "type", cfg.Storage.Type)

	provider, err := llm.New(ctx, cfg.LLM, appLog)
	if err != nil {
		appLog.Fatal("failed to initialize model provider", "error", err)
	}
	defer provider.Close()
	appLog.Info("model provider initialized", "generator", provider.Generator.Name())

	vectors, closeVectors, err := vectorstore.New(ctx, cfg.Vector, provider.Embedder)
	if err != nil {
		appLog.Fatal("failed to initialize vector store", "backend", cfg.Vector.Backend, "error", err)
	}
	defer closeVectors()

	locker := lock.Locker(lock.NewMemoryLocker())
	if cfg.Lock.RedisAddr != "" {
		redisLocker, err := lock.NewRedisLocker(ctx, cfg.Lock.RedisAddr, cfg.Lock.TTL, appLog)
		if err != nil {
			appLog.Fatal("failed to connect to redis", "addr", cfg.Lock.RedisAddr, "error", err)
		}
		defer redisLocker.Close()
		locker = lock.Chain{locker, redisLocker}
		appLog.Info("distributed assignment lock enabled", "addr", cfg.Lock.RedisAddr)
	}

	// Initialize repositories
	assignmentRepo := repository.NewAssignmentRepo(db, appLog)
	fileRepo := repository.NewFileRepo(db, appLog)
	conceptRepo := repository.NewConceptRepo(db, appLog)
	questionRepo := repository.NewQuestionRepo(db, appLog)
	chatLogRepo := repository.NewChatLogRepo(db, appLog)
	scoreRepo := repository.NewScoreRepo(db, appLog)

	// Initialize services
	ingestService := service.NewIngestService(
		service.IngestWithStore(vectors),
		service.IngestWithSplitter(chunker.NewSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)),
		service.IngestWithLocker(locker),
		service.IngestWithLogger(appLog),
	)
	retriever := service.NewRetriever(vectors, cfg.RAG.TopK, cfg.RAG.DistanceThreshold, appLog)
	tutorService := service.NewTutorService(
		service.TutorWithRetriever(retriever),
		service.TutorWithGenerator(provider.Generator),
		service.TutorWithChatLogs(chatLogRepo),
		service.TutorWithTimeout(cfg.LLM.Timeout),
		service.TutorWithLogger(appLog),
	)
	structureService := service.NewStructureService(
		service.StructureWithDatabase(db),
		service.StructureWithRepositories(assignmentRepo, conceptRepo, questionRepo),
		service.StructureWithStorage(fileStorage),
		service.StructureWithGenerator(provider.Generator),
		service.StructureWithLocker(locker),
		service.StructureWithTimeout(cfg.LLM.Timeout),
		service.StructureWithLogger(appLog),
	)
	scoringService := service.NewScoringService(
		service.ScoringWithDatabase(db),
		service.ScoringWithRepositories(assignmentRepo, conceptRepo, questionRepo, chatLogRepo, scoreRepo),
		service.ScoringWithGenerator(provider.Generator),
		service.ScoringWithLocker(locker),
		service.ScoringWithTimeout(cfg.LLM.Timeout),
		service.ScoringWithLogger(appLog),
	)
	analyticsService := service.NewAnalyticsService(assignmentRepo, scoreRepo, appLog)

	// Initialize handlers
	assignmentHandler := handlers.NewAssignmentHandler(structureService, scoringService, analyticsService, appLog)
	fileHandler := handlers.NewFileHandler(assignmentRepo, fileRepo, fileStorage, ingestService, appLog)
	tutorHandler := handlers.NewTutorHandler(tutorService, appLog)
	ragHandler := handlers.NewRAGHandler(ingestService, retriever, appLog)

	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	handlers.Register(r, assignmentHandler, fileHandler, tutorHandler, ragHandler)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		appLog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("graceful shutdown failed", "error", err)
	}
}
