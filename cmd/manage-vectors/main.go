package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"icarus-backend/chunker"
	"icarus-backend/config"
	"icarus-backend/llm"
	"icarus-backend/logger"
	"icarus-backend/service"
	"icarus-backend/vectorstore"
)

func usage() {
	fmt.Println("manage-vectors - maintain assignment vector namespaces")
	fmt.Println("usage:")
	fmt.Println("  manage-vectors init <namespace> [--dir ./data/<namespace>]")
	fmt.Println("  manage-vectors update <namespace> [--dir ./data/<namespace>]")
	fmt.Println("  manage-vectors stats <namespace>")
	fmt.Println("  manage-vectors clear <namespace>")
	fmt.Println("  manage-vectors clear-all")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
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

	ctx := context.Background()
	cmd := os.Args[1]
	switch cmd {
	case "init", "update", "stats", "clear", "clear-all":
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(1)
	}

	var namespace, dir string
	if cmd != "clear-all" {
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		namespace = os.Args[2]
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		fs.StringVar(&dir, "dir", filepath.Join("data", namespace), "directory holding the namespace's PDF files")
		_ = fs.Parse(os.Args[3:])
	}

	provider, err := llm.New(ctx, cfg.LLM, appLog)
	if err != nil {
		appLog.Fatal("failed to initialize model provider", "error", err)
	}
	defer provider.Close()

	store, closeStore, err := vectorstore.New(ctx, cfg.Vector, provider.Embedder)
	if err != nil {
		appLog.Fatal("failed to open vector store", "error", err)
	}
	defer closeStore()

	ingest := service.NewIngestService(
		service.IngestWithStore(store),
		service.IngestWithSplitter(chunker.NewSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)),
		service.IngestWithLogger(appLog),
	)

	switch cmd {
	case "init":
		if err := ingest.Clear(ctx, namespace); err != nil {
			appLog.Fatal("failed to reset namespace", "namespace", namespace, "error", err)
		}
		added, err := ingest.IngestDirectory(ctx, namespace, dir)
		if err != nil {
			appLog.Fatal("failed to ingest directory", "dir", dir, "error", err)
		}
		fmt.Printf("[INIT] Added %d chunks.\n", added)
	case "update":
		added, err := ingest.IngestDirectory(ctx, namespace, dir)
		if err != nil {
			appLog.Fatal("failed to ingest directory", "dir", dir, "error", err)
		}
		if added == 0 {
			fmt.Println("[UPDATE] No new chunks.")
		} else {
			fmt.Printf("[UPDATE] Added %d new chunks.\n", added)
		}
	case "stats":
		total, err := ingest.Stats(ctx, namespace)
		if err != nil {
			appLog.Fatal("failed to count chunks", "namespace", namespace, "error", err)
		}
		fmt.Printf("[STATS] Total chunks in DB: %d\n", total)
	case "clear":
		if err := ingest.Clear(ctx, namespace); err != nil {
			appLog.Fatal("failed to clear namespace", "namespace", namespace, "error", err)
		}
		fmt.Printf("[CLEAR] Namespace %s is empty.\n", namespace)
	case "clear-all":
		if err := ingest.ClearAll(ctx); err != nil {
			appLog.Fatal("failed to clear vector store", "error", err)
		}
		fmt.Println("[CLEAR] All namespaces removed.")
	}
}
