// Stafflined turns government RFP documents into structured staffing plans.
//
// The daemon exposes an HTTP API for plan generation, conversational plan
// revision, and document upload. Configuration comes from an optional YAML
// file overridden by environment variables; the model provider credential
// (LLM_API_KEY) is required at startup.
//
// Usage:
//
//	# Start with defaults
//	LLM_API_KEY=... stafflined
//
//	# Configure via environment
//	SERVER_PORT=8080 LLM_PROVIDER=openai LLM_API_KEY=... stafflined
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/stafflinehq/staffline/internal/config"
	"github.com/stafflinehq/staffline/internal/extract"
	"github.com/stafflinehq/staffline/internal/httpapi"
	"github.com/stafflinehq/staffline/internal/llm"
	"github.com/stafflinehq/staffline/internal/logging"
	"github.com/stafflinehq/staffline/internal/pipeline"
	"github.com/stafflinehq/staffline/internal/revise"
	"github.com/stafflinehq/staffline/internal/store"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  stafflined           Start the staffline daemon\n")
			fmt.Fprintf(os.Stderr, "  stafflined version   Show version information\n")
			os.Exit(1)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Fields: map[string]string{"service": "stafflined"},
	})
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // stdout sync errors are harmless

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down gracefully", zap.String("signal", sig.String()))
		cancel()
	}()

	client, err := llm.New(llm.Config{
		Provider:   cfg.LLM.Provider,
		APIKey:     cfg.LLM.APIKey.Value(),
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.Model,
		MaxTokens:  cfg.LLM.MaxTokens,
		Timeout:    cfg.LLM.Timeout.Duration(),
		MaxRetries: cfg.LLM.MaxRetries,
	})
	if err != nil {
		logger.Fatal("model client setup failed", zap.Error(err))
	}

	st, err := store.OpenFileStore(cfg.Store.Path)
	if err != nil {
		logger.Fatal("store setup failed", zap.String("path", cfg.Store.Path), zap.Error(err))
	}

	generator := pipeline.NewGenerator(client, pipeline.Config{
		RepairAttempts: cfg.Pipeline.RepairAttempts,
		HoursPerFTE:    cfg.Pipeline.HoursPerFTE,
	}, logger.Named("pipeline"))
	reviser := revise.NewReviser(client, logger.Named("revise"))
	extractor := extract.NewTextExtractor()

	server, err := httpapi.NewServer(generator, reviser, extractor, st, logger.Named("http"), &httpapi.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
	})
	if err != nil {
		logger.Fatal("server setup failed", zap.Error(err))
	}

	logger.Info("stafflined starting",
		zap.String("version", version),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("store_path", cfg.Store.Path),
	)

	if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("stafflined stopped")
}

func printVersion() {
	fmt.Printf("stafflined %s\n", version)
	fmt.Printf("  commit: %s\n", gitCommit)
	fmt.Printf("  built:  %s\n", buildDate)
}
