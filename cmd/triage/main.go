package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/twinhealth/chat-triage/internal/backend"
	"github.com/twinhealth/chat-triage/internal/classifier"
	"github.com/twinhealth/chat-triage/internal/config"
	"github.com/twinhealth/chat-triage/internal/pipeline"
	"github.com/twinhealth/chat-triage/internal/registration"
	"github.com/twinhealth/chat-triage/internal/server"
	"github.com/twinhealth/chat-triage/internal/storage"
	"github.com/twinhealth/chat-triage/internal/storage/memory"
	"github.com/twinhealth/chat-triage/internal/storage/sqlite"
	"github.com/twinhealth/chat-triage/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	shutdown, err := telemetry.InitTracer("chat-triage", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	registration.RegisterBuiltins()

	var store storage.Store
	switch cfg.Storage.Type {
	case "memory":
		store = memory.New()
	default:
		store, err = sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open storage: %v", err)
		}
	}
	defer store.Close()

	be, err := backend.New(cfg.Backend)
	if err != nil {
		log.Fatalf("Failed to create backend: %v", err)
	}
	logger.Info("backend configured",
		slog.String("type", be.Name()),
		slog.String("model", cfg.Backend.Model))

	cl := classifier.New(be, cfg.Backend.Timeout(), logger)
	p := pipeline.New(store, cl, logger)

	srv := server.New(cfg.Server.Port, logger, p, store)
	httpSrv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: srv.Router,
	}

	go func() {
		logger.Info("server listening", slog.Int("port", cfg.Server.Port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
