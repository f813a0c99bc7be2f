package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/aggregate"
	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/archive"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/narrative"
	"github.com/dvloznov/finance-assistant/internal/rag"
	"github.com/dvloznov/finance-assistant/internal/vectorstore"
)

// NarrativesHandler handles narrative index endpoints: generation,
// embedding, stats, clear and regeneration.
type NarrativesHandler struct {
	generator *narrative.Generator
	store     *vectorstore.Store
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewNarrativesHandler creates a new narratives handler. A nil publisher
// disables async regeneration; the endpoint then rebuilds inline.
func NewNarrativesHandler(generator *narrative.Generator, store *vectorstore.Store, publisher jobs.Publisher, log zerolog.Logger) *NarrativesHandler {
	return &NarrativesHandler{
		generator: generator,
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// GenerateAndEmbed handles POST /api/narratives/generate.
// It derives all narratives for a year from the ledger and embeds them
// into the vector store.
func (h *NarrativesHandler) GenerateAndEmbed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year int `json:"year"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Year == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "year is required")
		return
	}

	ctx := r.Context()

	docs, err := h.generator.GenerateAll(ctx, req.Year)
	if err != nil {
		h.log.Error().Err(err).Int("year", req.Year).Msg("Failed to generate narratives")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to generate narratives")
		return
	}

	result := h.store.AddDocuments(ctx, docs)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"year":      req.Year,
		"generated": len(docs),
		"added":     result.Added,
		"rejected":  result.Rejected,
		"reasons":   result.Reasons,
	})
}

// Stats handles GET /api/narratives/stats.
func (h *NarrativesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.GetStats())
}

// Clear handles POST /api/narratives/clear.
// It drops every indexed narrative; ledger data is untouched.
func (h *NarrativesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.store.Clear()

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "cleared",
		"total_documents": h.store.Size(),
	})
}

// Regenerate handles POST /api/narratives/regenerate.
// With a publisher configured the rebuild runs as a background job and the
// endpoint returns 202 with the job ID. Otherwise it rebuilds inline: the
// store keeps serving the old generation until the new one swaps in.
func (h *NarrativesHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year int `json:"year"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Year == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "year is required")
		return
	}

	ctx := r.Context()

	if h.publisher != nil {
		job := &jobs.RegenerateJob{Year: req.Year}
		if err := h.publisher.PublishRegenerate(ctx, job); err != nil {
			h.log.Error().Err(err).Int("year", req.Year).Msg("Failed to enqueue regeneration job")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue regeneration job")
			return
		}

		h.log.Info().Str("job_id", job.JobID).Int("year", req.Year).Msg("Regeneration job enqueued")

		middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
			"job_id": job.JobID,
			"status": string(job.Status),
		})
		return
	}

	docs, err := h.generator.GenerateAll(ctx, req.Year)
	if err != nil {
		h.log.Error().Err(err).Int("year", req.Year).Msg("Failed to generate narratives")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to regenerate narratives")
		return
	}

	result := h.store.Regenerate(ctx, docs)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"year":      req.Year,
		"generated": len(docs),
		"added":     result.Added,
		"rejected":  result.Rejected,
	})
}

// Restore handles POST /api/narratives/restore.
// It rebuilds the index from an archived snapshot instead of the ledger.
// Embeddings are recomputed; snapshots only carry text and metadata.
func (h *NarrativesHandler) Restore(w http.ResponseWriter, r *http.Request, archiver *archive.Archiver) {
	var req struct {
		URI string `json:"uri"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "uri is required")
		return
	}
	if archiver == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Narrative archive is not configured")
		return
	}

	ctx := r.Context()

	snap, err := archiver.Fetch(ctx, req.URI)
	if err != nil {
		h.log.Error().Err(err).Str("uri", req.URI).Msg("Failed to fetch narrative snapshot")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to fetch narrative snapshot")
		return
	}

	result := h.store.Regenerate(ctx, snap.Documents)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"uri":      req.URI,
		"year":     snap.Year,
		"added":    result.Added,
		"rejected": result.Rejected,
	})
}

// ChatHandler handles the natural-language query endpoint.
type ChatHandler struct {
	rag *rag.Handler
	log zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(ragHandler *rag.Handler, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		rag: ragHandler,
		log: log,
	}
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Year  int    `json:"year,omitempty"`
		Month int    `json:"month,omitempty"`
		TopK  int    `json:"top_k,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "query is required")
		return
	}

	answer := h.rag.AnswerQuery(r.Context(), req.Query, rag.Options{
		Year:  req.Year,
		Month: req.Month,
		TopK:  req.TopK,
	})

	middleware.WriteJSON(w, http.StatusOK, answer)
}

// Status handles GET /api/status.
func (h *ChatHandler) Status(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.rag.GetServiceStatus())
}

// OverviewHandler handles dashboard aggregation endpoints.
type OverviewHandler struct {
	agg *aggregate.Service
	log zerolog.Logger
}

// NewOverviewHandler creates a new overview handler.
func NewOverviewHandler(agg *aggregate.Service, log zerolog.Logger) *OverviewHandler {
	return &OverviewHandler{
		agg: agg,
		log: log,
	}
}

// Overview handles GET /api/overview?year=2026.
func (h *OverviewHandler) Overview(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid year")
			return
		}
		year = parsed
	}

	overview, err := h.agg.FinancialOverview(r.Context(), year)
	if err != nil {
		h.log.Error().Err(err).Int("year", year).Msg("Failed to build financial overview")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build financial overview")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, overview)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if yearStr := query.Get("year"); yearStr != "" {
		if year, err := strconv.Atoi(yearStr); err == nil {
			filter.Year = year
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
