package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nmorel/lexidraft/internal/assistant"
	"github.com/nmorel/lexidraft/internal/auth"
	"github.com/nmorel/lexidraft/internal/cabinet"
	"github.com/nmorel/lexidraft/internal/config"
	"github.com/nmorel/lexidraft/internal/server"
	"github.com/nmorel/lexidraft/internal/session"
	"github.com/nmorel/lexidraft/internal/storage"
	"github.com/nmorel/lexidraft/internal/storage/memory"
	"github.com/nmorel/lexidraft/internal/storage/sqldb"
	"github.com/nmorel/lexidraft/internal/telemetry"
	"github.com/nmorel/lexidraft/internal/tokens"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdown, err := telemetry.InitTracer("lexidraft", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Assistant.BaseURL == "" {
		log.Fatal("assistant.base_url is required")
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open draft store: %v", err)
	}
	defer store.Close()

	// Drafting assistant client
	var clientOpts []assistant.ClientOption
	if cfg.Assistant.Model != "" {
		clientOpts = append(clientOpts, assistant.WithModel(cfg.Assistant.Model))
	}
	if cfg.Assistant.Timeout != "" {
		timeout, err := time.ParseDuration(cfg.Assistant.Timeout)
		if err != nil {
			log.Fatalf("Invalid assistant timeout %q: %v", cfg.Assistant.Timeout, err)
		}
		clientOpts = append(clientOpts, assistant.WithTimeout(timeout))
	}
	service := assistant.NewClient(cfg.Assistant.BaseURL, cfg.Assistant.APIKey, clientOpts...)

	// Cabinets and authentication
	registry := cabinet.NewRegistry()
	cabinets, err := registry.LoadCabinets(cfg.Cabinets)
	if err != nil {
		log.Fatalf("Failed to load cabinets: %v", err)
	}
	if len(cabinets) == 0 {
		log.Fatal("No cabinets configured; add at least one cabinet with an API key")
	}
	authenticator := auth.NewAuthenticator(cabinets)

	// Token counting for generated contracts
	counters := tokens.NewRegistry()
	counters.Register(tokens.NewTiktokenCounter())

	sessions, err := session.NewRegistry(store, service,
		session.WithLogger(logger),
		session.WithTokenCounter(counters, cfg.Assistant.Model))
	if err != nil {
		log.Fatalf("Failed to create session registry: %v", err)
	}

	srv := server.New(cfg.Server.Port, logger, authenticator, sessions)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("lexidraft started",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage", cfg.Storage.Type),
		slog.Int("cabinets", len(cabinets)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	case <-sigChan:
	}

	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}

func openStore(cfg *config.Config) (storage.DraftStore, error) {
	switch cfg.Storage.Type {
	case "sqlite":
		path := cfg.Storage.SQLite.Path
		if path == "" {
			path = "./data/lexidraft.db"
		}
		return sqldb.NewSQLite(path)
	case "postgres":
		return sqldb.New(sqldb.Config{
			Driver: "postgres",
			DSN:    cfg.Storage.Database.DSN,
		})
	default:
		return memory.New(), nil
	}
}
