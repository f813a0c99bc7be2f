package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/finance-assistant/internal/aggregate"
	"github.com/dvloznov/finance-assistant/internal/api/handlers"
	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/archive"
	"github.com/dvloznov/finance-assistant/internal/gemini"
	infraBQ "github.com/dvloznov/finance-assistant/internal/infra/bigquery"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/narrative"
	"github.com/dvloznov/finance-assistant/internal/rag"
	"github.com/dvloznov/finance-assistant/internal/vectorstore"
)

func main() {
	// Parse command-line flags
	var (
		port   = flag.String("port", "8080", "HTTP server port")
		bucket = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for narrative snapshots (or set GCS_BUCKET env)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.NewService("api")

	ctx := context.Background()

	// Read-only ledger boundary
	ledger, err := infraBQ.NewLedgerRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger repository")
	}
	defer ledger.Close()

	aggSvc := aggregate.NewService(ledger, log)
	generator := narrative.NewGenerator(aggSvc, log)

	// The Gemini provider is optional: without it the store rejects adds
	// and queries come back empty, but aggregation endpoints keep working.
	var embedder vectorstore.Embedder
	var textGen rag.TextGenerator
	geminiClient, err := gemini.NewClient(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Gemini provider unavailable - narrative index disabled")
	} else {
		embedder = geminiClient
		textGen = geminiClient
	}

	store := vectorstore.NewStore(embedder, log)
	ragHandler := rag.NewHandler(store, aggSvc, textGen, log)

	var archiver *archive.Archiver
	if *bucket != "" {
		archiver = archive.NewArchiver(*bucket)
	} else {
		log.Warn().Msg("No GCS bucket configured - narrative snapshots disabled")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(10, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Regeneration jobs rebuild the year's narratives aside and swap them
	// in; queries keep hitting the old generation until then.
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		regenJob, ok := job.(*jobs.RegenerateJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", regenJob.JobID).
			Int("year", regenJob.Year).
			Msg("Processing regeneration job")

		docs, err := generator.GenerateAll(ctx, regenJob.Year)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", regenJob.JobID).
				Int("year", regenJob.Year).
				Msg("Narrative generation failed")
			return err
		}

		result := store.Regenerate(ctx, docs)
		regenJob.DocumentsAdded = result.Added
		regenJob.DocumentsRejected = result.Rejected

		if archiver != nil && result.Added > 0 {
			uri, err := archiver.Upload(ctx, regenJob.Year, docs)
			if err != nil {
				// The index is already rebuilt; a failed snapshot is not
				// worth failing the job over.
				log.Warn().
					Err(err).
					Str("job_id", regenJob.JobID).
					Msg("Failed to archive narrative snapshot")
			} else {
				regenJob.ArchiveURI = uri
			}
		}

		log.Info().
			Str("job_id", regenJob.JobID).
			Int("year", regenJob.Year).
			Int("added", result.Added).
			Int("rejected", result.Rejected).
			Msg("Regeneration job completed")

		return nil
	}

	go func() {
		log.Info().Msg("Starting regeneration worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Regeneration worker stopped with error")
		}
	}()

	// Initialize handlers
	narrativesHandler := handlers.NewNarrativesHandler(generator, store, jobQueue, log)
	chatHandler := handlers.NewChatHandler(ragHandler, log)
	overviewHandler := handlers.NewOverviewHandler(aggSvc, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/narratives/generate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			narrativesHandler.GenerateAndEmbed(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/narratives/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			narrativesHandler.Stats(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/narratives/clear", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			narrativesHandler.Clear(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/narratives/regenerate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			narrativesHandler.Regenerate(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/narratives/restore", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			narrativesHandler.Restore(w, r, archiver)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatHandler.Chat(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			chatHandler.Status(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/overview", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			overviewHandler.Overview(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(log)(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight rebuilds
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
