package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/api/handlers"
	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/backup"
	"github.com/dvloznov/finance-dashboard/internal/config"
	infraBQ "github.com/dvloznov/finance-dashboard/internal/infra/bigquery"
	"github.com/dvloznov/finance-dashboard/internal/insights"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
	"github.com/dvloznov/finance-dashboard/internal/jobs/inmemory"
	"github.com/dvloznov/finance-dashboard/internal/kv"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/notionsync"
	"github.com/dvloznov/finance-dashboard/internal/profiles"
)

func main() {
	// Parse command-line flags
	var (
		envFile = flag.String("env", ".env", "Path to an optional .env file")
		port    = flag.String("port", "", "HTTP server port (overrides PORT)")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.New("").Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}

	log := logger.New(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	store, err := kv.Open(ctx, cfg.StoreOptions())
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open store")
	}
	defer store.Close()

	repo := profiles.NewRepository(store)
	today := func() civil.Date { return civil.DateOf(time.Now()) }

	// Register job handlers for the integrations that are configured
	router := jobs.NewRouter()
	summaries := insights.NewService(repo, func(ctx context.Context, apiKey string) (insights.Summarizer, error) {
		return insights.NewGeminiSummarizer(ctx, apiKey, cfg.GeminiModel)
	}, cfg.GeminiAPIKey, today)
	router.Handle(jobs.JobTypeGenerateInsight, summaries.HandleJob)

	if cfg.NotionToken != "" && cfg.NotionGoalsDB != "" {
		client := notionsync.NewGoalsClient(cfg.NotionToken)
		router.Handle(jobs.JobTypeNotionSync, notionsync.NewJobHandler(repo, client, cfg.NotionGoalsDB))
	} else {
		log.Warn().Msg("No Notion token or goals database configured - Notion sync disabled")
	}

	if cfg.BQProject != "" {
		warehouse, err := infraBQ.NewRepository(ctx, cfg.BQProject, cfg.BQDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create warehouse repository")
		}
		defer warehouse.Close()
		if err := warehouse.EnsureTables(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare warehouse tables")
		}
		router.Handle(jobs.JobTypeWarehouseExport, infraBQ.NewJobHandler(repo, warehouse, today))
	} else {
		log.Warn().Msg("No BigQuery project configured - warehouse export disabled")
	}

	var backups handlers.Backups
	if cfg.GCSBucket != "" {
		objects, err := backup.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup store")
		}
		defer objects.Close()
		backups = backup.NewService(repo, objects)
	} else {
		log.Warn().Msg("No GCS bucket configured - backups disabled")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore, inmemory.Options{
		Workers:    cfg.JobWorkers,
		MaxRetries: cfg.JobMaxRetries,
		Backoff:    cfg.JobBackoff,
	})

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.JobWorkers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, router.Dispatch); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// Create router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health)
	handlers.NewProfilesHandler(repo, log).Register(mux)
	handlers.NewProjectionsHandler(repo, today, log).Register(mux)
	handlers.NewJobsHandler(repo, jobStore, jobQueue, router, log).Register(mux)
	handlers.NewBundleHandler(repo, backups, log).Register(mux)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: middleware.Chain(mux,
			middleware.Recovery(log),
			middleware.RequestID,
			middleware.Logger(log),
			middleware.CORS,
			middleware.Auth,
		),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreBackend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdown(log, server, jobQueue, cancelWorker)
}

func shutdown(log zerolog.Logger, server *http.Server, queue *inmemory.Queue, cancelWorker context.CancelFunc) {
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop accepting work, then let in-flight jobs finish
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := queue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
