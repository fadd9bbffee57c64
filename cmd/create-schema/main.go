package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"icarus-backend/config"
	"icarus-backend/logger"
	"icarus-backend/repository"
	"icarus-backend/vectorstore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: No .env file found, using environment variables")
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

	db, err := repository.Open(cfg.DatabaseURL, appLog)
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		appLog.Fatal("failed to migrate relational schema", "error", err)
	}
	log.Println("✓ Relational tables migrated")

	if cfg.Vector.Backend != "pgvector" {
		log.Printf("Vector backend is %q, nothing else to create", cfg.Vector.Backend)
		return
	}

	// the embedder is never called while creating the schema
	_, closeVectors, err := vectorstore.New(context.Background(), cfg.Vector, vectorstore.HashEmbedder{})
	if err != nil {
		appLog.Fatal("failed to create vector schema", "error", err)
	}
	closeVectors()
	log.Printf("✓ vector_chunks table ready (%d dimensions)", cfg.Vector.Dimensions)
}
