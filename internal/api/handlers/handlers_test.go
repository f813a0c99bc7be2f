package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/narrative"
	"github.com/dvloznov/finance-assistant/internal/vectorstore"
)

// mockAggregator produces one active month so GenerateAll yields documents.
type mockAggregator struct{}

func (m *mockAggregator) MonthlyTotals(ctx context.Context, year, month int) (domain.MonthlyAggregate, error) {
	agg := domain.MonthlyAggregate{Year: year, Month: month}
	if month == 3 {
		agg.TotalIncome = 5000
		agg.TotalExpense = 3000
		agg.NetSavings = 2000
	}
	return agg, nil
}

func (m *mockAggregator) NetWorth(ctx context.Context, year, month int) (float64, error) {
	return 50000, nil
}

func (m *mockAggregator) CategoryAggregates(ctx context.Context, year, month int) ([]domain.CategoryAggregate, error) {
	if month == 3 {
		return []domain.CategoryAggregate{{Category: "food", Total: -600, Count: 12}}, nil
	}
	return nil, nil
}

func (m *mockAggregator) MonthOverMonthDelta(ctx context.Context, year, month int) (domain.MonthDelta, error) {
	return domain.MonthDelta{PreviousYear: year, PreviousMonth: month - 1}, nil
}

func (m *mockAggregator) DetectAnomalies(ctx context.Context, year, month int, multiplier float64) ([]domain.AnomalyFinding, error) {
	return nil, nil
}

func (m *mockAggregator) YearlySummary(ctx context.Context, year int) (domain.YearlySummary, error) {
	return domain.YearlySummary{
		Year:         year,
		TotalIncome:  5000,
		TotalExpense: 3000,
		NetSavings:   2000,
		MonthlyData:  make([]domain.MonthlyBreakdown, 12),
	}, nil
}

type mockEmbedder struct{}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func newTestNarrativesHandler() *NarrativesHandler {
	log := zerolog.Nop()
	gen := narrative.NewGenerator(&mockAggregator{}, log)
	store := vectorstore.NewStore(&mockEmbedder{}, log)
	return NewNarrativesHandler(gen, store, nil, log)
}

func TestGenerateAndEmbed(t *testing.T) {
	h := newTestNarrativesHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/narratives/generate", strings.NewReader(`{"year": 2026}`))
	rec := httptest.NewRecorder()

	h.GenerateAndEmbed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Year      int `json:"year"`
		Generated int `json:"generated"`
		Added     int `json:"added"`
		Rejected  int `json:"rejected"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.Year != 2026 {
		t.Errorf("year = %d, want 2026", resp.Year)
	}
	if resp.Generated == 0 {
		t.Error("expected documents to be generated")
	}
	if resp.Added != resp.Generated {
		t.Errorf("added = %d, want %d", resp.Added, resp.Generated)
	}
	if resp.Rejected != 0 {
		t.Errorf("rejected = %d, want 0", resp.Rejected)
	}
}

func TestGenerateAndEmbed_MissingYear(t *testing.T) {
	h := newTestNarrativesHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/narratives/generate", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.GenerateAndEmbed(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestClearResetsStats(t *testing.T) {
	h := newTestNarrativesHandler()

	genReq := httptest.NewRequest(http.MethodPost, "/api/narratives/generate", strings.NewReader(`{"year": 2026}`))
	h.GenerateAndEmbed(httptest.NewRecorder(), genReq)

	rec := httptest.NewRecorder()
	h.Clear(rec, httptest.NewRequest(http.MethodPost, "/api/narratives/clear", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d, want %d", rec.Code, http.StatusOK)
	}

	statsRec := httptest.NewRecorder()
	h.Stats(statsRec, httptest.NewRequest(http.MethodGet, "/api/narratives/stats", nil))

	var stats vectorstore.Stats
	if err := json.NewDecoder(statsRec.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.TotalDocuments != 0 {
		t.Errorf("total_documents after clear = %d, want 0", stats.TotalDocuments)
	}
}

func TestRegenerateInline(t *testing.T) {
	h := newTestNarrativesHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/narratives/regenerate", strings.NewReader(`{"year": 2026}`))
	rec := httptest.NewRecorder()

	h.Regenerate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Generated int `json:"generated"`
		Added     int `json:"added"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Added == 0 || resp.Added != resp.Generated {
		t.Errorf("added = %d, generated = %d, want equal and non-zero", resp.Added, resp.Generated)
	}
}
