// Package rag orchestrates narrative retrieval, confidence scoring,
// live-aggregation fallback and answer synthesis. Provider failures never
// escape to the caller; they are translated into structured results.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/vectorstore"
	"github.com/rs/zerolog"
)

// TextGenerator is the text-generation provider boundary.
type TextGenerator interface {
	Generate(ctx context.Context, systemContext, userContext string) (string, error)
}

// NarrativeIndex is the slice of the vector store the handler consumes.
type NarrativeIndex interface {
	Query(ctx context.Context, queryText string, topK int, typeFilter domain.DocumentType) []domain.RetrievalResult
	GetStats() vectorstore.Stats
}

// LiveData is the slice of the aggregation engine used for the fallback
// path when retrieval comes back empty but a period was supplied.
type LiveData interface {
	MonthlyTotals(ctx context.Context, year, month int) (domain.MonthlyAggregate, error)
	NetWorth(ctx context.Context, year, month int) (float64, error)
	YearlySummary(ctx context.Context, year int) (domain.YearlySummary, error)
}

// Options tunes a single answer call. Zero Year/Month mean "no period
// hint"; zero TopK means the store default.
type Options struct {
	Year  int
	Month int
	TopK  int
}

// Source is one grounding document reported back with an answer.
type Source struct {
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	Similarity float64 `json:"similarity,omitempty"`
}

// Answer is the structured result of one query. Exactly one of Answer and
// Error carries content when Confidence is none.
type Answer struct {
	Query      string            `json:"query"`
	Answer     string            `json:"answer"`
	Sources    []Source          `json:"sources"`
	Confidence domain.Confidence `json:"confidence"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// ServiceStatus is a side-effect-free readiness report.
type ServiceStatus struct {
	QueryHandlerReady bool           `json:"query_handler_ready"`
	NarrativeRAGReady bool           `json:"narrative_rag_ready"`
	TotalDocuments    int            `json:"total_documents"`
	DocumentsByType   map[string]int `json:"documents_by_type"`
}

// Handler answers natural-language questions about the ledger from
// retrieved narratives, falling back to live aggregation when a period is
// known and the store has nothing relevant.
type Handler struct {
	index     NarrativeIndex
	live      LiveData
	generator TextGenerator // nil means the provider is not configured
	log       zerolog.Logger
}

// NewHandler creates a query handler. A nil generator is allowed and makes
// every call return a none-confidence result.
func NewHandler(index NarrativeIndex, live LiveData, generator TextGenerator, log zerolog.Logger) *Handler {
	return &Handler{
		index:     index,
		live:      live,
		generator: generator,
		log:       log,
	}
}

// AnswerQuery runs one retrieval-and-synthesis pass for the query.
func (h *Handler) AnswerQuery(ctx context.Context, query string, opts Options) Answer {
	answer := Answer{Query: query, Sources: []Source{}, Confidence: domain.ConfidenceNone}

	if h.generator == nil {
		answer.Error = "text generation provider not initialized"
		return answer
	}

	results := h.index.Query(ctx, query, opts.TopK, deriveTypeFilter(opts.Year, opts.Month))

	if len(results) == 0 {
		if opts.Year != 0 {
			return h.answerFromLiveData(ctx, query, opts)
		}
		answer.Answer = noInformationAnswer
		return answer
	}

	contexts := make([]string, len(results))
	for i, r := range results {
		contexts[i] = r.Text
		answer.Sources = append(answer.Sources, Source{
			Text:       r.Text,
			Type:       string(r.Type),
			Similarity: r.Similarity,
		})
	}

	text, err := h.generator.Generate(ctx, systemPrompt,
		fmt.Sprintf(userPromptTemplate, strings.Join(contexts, "\n\n"), query))
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("Answer synthesis failed")
		answer.Sources = []Source{}
		answer.Error = err.Error()
		return answer
	}

	answer.Answer = text
	answer.Confidence = domain.ConfidenceFromSimilarity(results[0].Similarity)
	answer.Metadata = map[string]any{
		"top_similarity": results[0].Similarity,
		"documents_used": len(results),
	}

	return answer
}

// answerFromLiveData synthesizes a deterministic narrative straight from
// the aggregation engine. The source is authoritative, not approximate, so
// the confidence is high.
func (h *Handler) answerFromLiveData(ctx context.Context, query string, opts Options) Answer {
	answer := Answer{Query: query, Sources: []Source{}, Confidence: domain.ConfidenceNone}

	var (
		text string
		err  error
	)
	if opts.Month != 0 {
		text, err = h.liveMonthNarrative(ctx, opts.Year, opts.Month)
	} else {
		text, err = h.liveYearNarrative(ctx, opts.Year)
	}
	if err != nil {
		h.log.Error().Err(err).Int("year", opts.Year).Int("month", opts.Month).Msg("Live aggregation fallback failed")
		answer.Error = err.Error()
		return answer
	}
	if text == "" {
		answer.Answer = noInformationAnswer
		return answer
	}

	h.log.Info().
		Int("year", opts.Year).
		Int("month", opts.Month).
		Msg("Answered from live aggregation fallback")

	answer.Answer = text
	answer.Confidence = domain.ConfidenceHigh
	answer.Sources = []Source{{Text: text, Type: "live_aggregation"}}
	answer.Metadata = map[string]any{"source": "live_aggregation"}

	return answer
}

func (h *Handler) liveMonthNarrative(ctx context.Context, year, month int) (string, error) {
	totals, err := h.live.MonthlyTotals(ctx, year, month)
	if err != nil {
		return "", fmt.Errorf("live monthly totals: %w", err)
	}
	worth, err := h.live.NetWorth(ctx, year, month)
	if err != nil {
		return "", fmt.Errorf("live net worth: %w", err)
	}
	if totals.IsZero() && worth == 0 {
		return "", nil
	}

	text := fmt.Sprintf("In %s %d, total income was €%.2f, total expenses were €%.2f, and net savings were €%.2f.",
		time.Month(month).String(), year, totals.TotalIncome, totals.TotalExpense, totals.NetSavings)
	if worth != 0 {
		text += fmt.Sprintf(" Net worth at the end of the month was €%.2f.", worth)
	}
	return text, nil
}

func (h *Handler) liveYearNarrative(ctx context.Context, year int) (string, error) {
	summary, err := h.live.YearlySummary(ctx, year)
	if err != nil {
		return "", fmt.Errorf("live yearly summary: %w", err)
	}
	if summary.TotalIncome == 0 && summary.TotalExpense == 0 {
		return "", nil
	}

	return fmt.Sprintf("In %d, total income was €%.2f, total expenses were €%.2f, and net savings were €%.2f.",
		year, summary.TotalIncome, summary.TotalExpense, summary.NetSavings), nil
}

// GetServiceStatus reports readiness of the handler and its store.
func (h *Handler) GetServiceStatus() ServiceStatus {
	stats := h.index.GetStats()
	return ServiceStatus{
		QueryHandlerReady: h.generator != nil,
		NarrativeRAGReady: stats.ServiceReady,
		TotalDocuments:    stats.TotalDocuments,
		DocumentsByType:   stats.ByType,
	}
}

// deriveTypeFilter narrows retrieval by period hints: a bare year asks for
// the yearly overview, a full year-month for that month's summary. Without
// hints every document type competes.
func deriveTypeFilter(year, month int) domain.DocumentType {
	switch {
	case year != 0 && month != 0:
		return domain.DocTypeMonthlySummary
	case year != 0:
		return domain.DocTypeYearlyOverview
	default:
		return ""
	}
}
