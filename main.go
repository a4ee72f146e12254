package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reach_server/config"
	"reach_server/internal/bootstrap"
	"reach_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	// Initialize logger early
	logger.Init(logger.Config{
		Level:   logger.LevelInfo,
		Service: "reach",
	})

	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	mode := flag.String("mode", "all", "Run mode: api, worker, all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Service: "reach-" + *mode,
	})

	switch *mode {
	case "api":
		app, cleanup, err := bootstrap.NewAPI(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize API: %v", err)
		}
		defer cleanup()
		runAPI(cfg, app, nil)
	case "worker":
		worker, cleanup, err := bootstrap.NewWorker(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize worker: %v", err)
		}
		defer cleanup()
		runWorker(worker)
	case "all":
		deps, cleanup, err := bootstrap.NewDependencies(cfg)
		if err != nil {
			logger.Fatal("Failed to initialize dependencies: %v", err)
		}
		defer cleanup()
		worker, err := bootstrap.NewWorkerWithDeps(deps)
		if err != nil {
			logger.Fatal("Failed to initialize worker: %v", err)
		}
		go worker.Start()
		runAPI(cfg, bootstrap.NewAPIWithDeps(deps), worker.Stop)
	default:
		logger.Fatal("Unknown mode: %s", *mode)
	}
}

// runAPI serves until SIGINT/SIGTERM. onShutdown runs after the server stops.
func runAPI(cfg *config.Config, app *fiber.App, onShutdown func()) {
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			logger.Error("Error shutting down: %v", err)
		} else {
			logger.Info("API server shut down gracefully")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
	if onShutdown != nil {
		onShutdown()
	}
}

func runWorker(worker *bootstrap.Worker) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker (timeout: %v)...", shutdownTimeout)

		done := make(chan struct{})
		go func() {
			worker.Stop()
			close(done)
		}()

		select {
		case <-done:
			logger.Info("Worker shut down gracefully")
		case <-time.After(shutdownTimeout):
			logger.Warn("Worker shutdown timed out, forcing exit")
			os.Exit(1)
		}
	}()

	logger.Info("Starting worker...")
	worker.Start()
}
