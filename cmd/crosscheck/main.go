// Crosscheck investigation server — accepts multi-entity fraud
// investigations over HTTP, fans per-entity analysis out to domain agents,
// and aggregates cross-entity risk assessments.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fraudsight/crosscheck/pkg/agent"
	"github.com/fraudsight/crosscheck/pkg/api"
	"github.com/fraudsight/crosscheck/pkg/cleanup"
	"github.com/fraudsight/crosscheck/pkg/config"
	"github.com/fraudsight/crosscheck/pkg/orchestrator"
	"github.com/fraudsight/crosscheck/pkg/store"
	"github.com/fraudsight/crosscheck/pkg/timeline"
	"github.com/fraudsight/crosscheck/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	slog.Info("Starting crosscheck",
		"version", version.Full(),
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Configuration
	cfg, err := config.Load(*configDir)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Optional assessment archive. DB_ENABLED=false runs purely in
	// memory; finished investigations then live only for the retention
	// period.
	var archive *store.Store
	if getEnv("DB_ENABLED", "true") == "true" {
		dbConfig, err := store.LoadConfigFromEnv()
		if err != nil {
			slog.Error("Failed to load database config", "error", err)
			os.Exit(1)
		}
		archive, err = store.New(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := archive.Close(); err != nil {
				slog.Error("Error closing database", "error", err)
			}
		}()
		slog.Info("Connected to PostgreSQL archive")
	} else {
		slog.Info("Archive disabled, running in-memory only")
	}

	// 3. Domain agents and the orchestrator
	registry := agent.NewDefaultRegistry()
	recorder := timeline.NewRecorder()

	orch := orchestrator.New(cfg, registry, recorder)
	if archive != nil {
		orch.SetArchiver(archive)
	}
	slog.Info("Orchestrator initialized", "domains", registry.Domains())

	// 4. Retention sweep
	sweep := cleanup.NewService(cfg.Retention, orch.Manager())
	sweep.Start(ctx)

	// 5. HTTP server (non-blocking)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: api.NewServer(orch, archive).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Crosscheck started successfully")

	// 6. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 7. Graceful shutdown: stop accepting requests, then let running
	// investigations finish or cancel them at the deadline.
	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout.Std())
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	orchShutdownCtx, orchCancel := context.WithTimeout(ctx, 30*time.Second)
	defer orchCancel()
	if err := orch.Shutdown(orchShutdownCtx); err != nil {
		slog.Warn("Orchestrator shutdown timeout exceeded", "error", err)
	} else {
		slog.Info("Orchestrator stopped gracefully")
	}

	sweep.Stop()

	slog.Info("Shutdown complete")
}
