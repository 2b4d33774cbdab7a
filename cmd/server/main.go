package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"matching_engine/internal/api"
	"matching_engine/internal/config"
	"matching_engine/internal/db"
	"matching_engine/internal/engine"
	"matching_engine/internal/explainer"
	"matching_engine/internal/extractor"
	"matching_engine/internal/gemini"
	"matching_engine/internal/learner"
	"matching_engine/internal/logger"
	"matching_engine/internal/scorer"
	"matching_engine/internal/store"
	"matching_engine/internal/taxonomy"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	godotenv.Load()

	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("matching_engine %s (%s)\n", version, commit)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	cfg := config.Load()
	log := logger.New(&logger.Config{
		Level:  logger.Level(cfg.LogLevel),
		Format: logger.Format(cfg.LogFormat),
	})
	log.SetDefault()

	runServer(cfg)
}

func printUsage() {
	fmt.Println(`Matching Engine - Interview Probability Scoring

Usage:
  matching_engine [command]

Commands:
  (none)    Start the HTTP server
  version   Show version information
  help      Show this help message

Environment Variables:
  DATABASE_URL             PostgreSQL connection string (required)
  GEMINI_API_KEY           Gemini API key (optional, narrative summaries)
  PORT                     Server port (default: 8086)
  WORKER_POOL_SIZE         Concurrent jobs scored per find-matches call (default: 8)
  LEARNER_MIN_SAMPLES      Feedback samples required before retraining (default: 100)
  REGRESSION_TOLERANCE     Max AUC drop tolerated on retrain (default: 0.02)
  RECENCY_HALF_LIFE_DAYS   Training sample weight half-life (default: 90)`)
}

func runServer(cfg *config.Config) {
	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	// Database
	slog.Info("Connecting to database...")
	dbConn, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()
	slog.Info("Database connected")

	// Migrations
	migrator, err := db.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to create migrator", "error", err)
		os.Exit(1)
	}
	if err := migrator.Up(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	migrator.Close()
	slog.Info("Migrations applied")

	st := store.NewStore(dbConn)

	// Learner: restores the last activated model if one exists, otherwise
	// serves the heuristic calibration until enough feedback accumulates.
	lr := learner.New(st, learner.Config{
		MinSamples:          cfg.LearnerMinSamples,
		RegressionTolerance: cfg.RegressionTolerance,
		RecencyHalfLifeDays: cfg.RecencyHalfLifeDays,
	})
	if err := lr.Init(ctx); err != nil {
		slog.Warn("Failed to restore trained model, using heuristic calibration", "error", err)
	}
	slog.Info("Learner initialized", "state", lr.ActiveState())

	tax := taxonomy.Default()
	ext := extractor.New(tax)

	sc, err := scorer.New(tax, scorer.DefaultWeights(), lr, cfg.RecencyWindowYears)
	if err != nil {
		slog.Error("Failed to initialize scorer", "error", err)
		os.Exit(1)
	}

	// Gemini client (optional)
	var geminiClient *gemini.Client
	if cfg.GeminiAPIKey != "" {
		geminiClient, err = gemini.NewClient(ctx, gemini.ClientConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.GeminiTemperature,
		})
		if err != nil {
			slog.Warn("Failed to initialize Gemini, template summaries only", "error", err)
		} else {
			defer geminiClient.Close()
			slog.Info("Gemini client initialized (narrative summaries enabled)")
		}
	} else {
		slog.Info("GEMINI_API_KEY not set, using template summaries")
	}

	exp := explainer.New(scorer.DefaultWeights(), geminiClient)

	engineService := engine.NewService(st, ext, sc, exp, lr, cfg.WorkerPoolSize)
	slog.Info("Engine service initialized", "workers", cfg.WorkerPoolSize)

	router := api.SetupRouter(engineService)

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Starting matching engine", "address", addr, "version", version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server stopped")
}
