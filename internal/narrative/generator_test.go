package narrative_test

import (
	"context"
	"strings"
	"testing"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/narrative"
)

// mockAggregator is a mock implementation of the Aggregator interface.
type mockAggregator struct {
	MonthlyTotalsFunc       func(ctx context.Context, year, month int) (domain.MonthlyAggregate, error)
	NetWorthFunc            func(ctx context.Context, year, month int) (float64, error)
	CategoryAggregatesFunc  func(ctx context.Context, year, month int) ([]domain.CategoryAggregate, error)
	MonthOverMonthDeltaFunc func(ctx context.Context, year, month int) (domain.MonthDelta, error)
	DetectAnomaliesFunc     func(ctx context.Context, year, month int, multiplier float64) ([]domain.AnomalyFinding, error)
	YearlySummaryFunc       func(ctx context.Context, year int) (domain.YearlySummary, error)
}

func (m *mockAggregator) MonthlyTotals(ctx context.Context, year, month int) (domain.MonthlyAggregate, error) {
	if m.MonthlyTotalsFunc != nil {
		return m.MonthlyTotalsFunc(ctx, year, month)
	}
	return domain.MonthlyAggregate{Year: year, Month: month}, nil
}

func (m *mockAggregator) NetWorth(ctx context.Context, year, month int) (float64, error) {
	if m.NetWorthFunc != nil {
		return m.NetWorthFunc(ctx, year, month)
	}
	return 0, nil
}

func (m *mockAggregator) CategoryAggregates(ctx context.Context, year, month int) ([]domain.CategoryAggregate, error) {
	if m.CategoryAggregatesFunc != nil {
		return m.CategoryAggregatesFunc(ctx, year, month)
	}
	return nil, nil
}

func (m *mockAggregator) MonthOverMonthDelta(ctx context.Context, year, month int) (domain.MonthDelta, error) {
	if m.MonthOverMonthDeltaFunc != nil {
		return m.MonthOverMonthDeltaFunc(ctx, year, month)
	}
	return domain.MonthDelta{}, nil
}

func (m *mockAggregator) DetectAnomalies(ctx context.Context, year, month int, multiplier float64) ([]domain.AnomalyFinding, error) {
	if m.DetectAnomaliesFunc != nil {
		return m.DetectAnomaliesFunc(ctx, year, month, multiplier)
	}
	return nil, nil
}

func (m *mockAggregator) YearlySummary(ctx context.Context, year int) (domain.YearlySummary, error) {
	if m.YearlySummaryFunc != nil {
		return m.YearlySummaryFunc(ctx, year)
	}
	return domain.YearlySummary{Year: year}, nil
}

func newGenerator(agg narrative.Aggregator) *narrative.Generator {
	return narrative.NewGenerator(agg, logger.New())
}

func TestMonthlySummary(t *testing.T) {
	agg := &mockAggregator{
		MonthlyTotalsFunc: func(ctx context.Context, year, month int) (domain.MonthlyAggregate, error) {
			return domain.MonthlyAggregate{Year: year, Month: month, TotalIncome: 5000, TotalExpense: 3000, NetSavings: 2000}, nil
		},
		NetWorthFunc: func(ctx context.Context, year, month int) (float64, error) {
			return 50000, nil
		},
		MonthOverMonthDeltaFunc: func(ctx context.Context, year, month int) (domain.MonthDelta, error) {
			return domain.MonthDelta{
				IncomeDelta: 500, ExpenseDelta: 300, NetWorthDelta: 2000,
				IncomePctChange: 10, ExpensePctChange: 11, NetWorthPctChange: 4.2,
				PreviousMonth: 2, PreviousYear: 2026,
			}, nil
		},
	}

	doc, err := newGenerator(agg).MonthlySummary(context.Background(), 2026, 3)
	if err != nil {
		t.Fatalf("MonthlySummary failed: %v", err)
	}
	if doc == nil {
		t.Fatal("expected a document, got nil")
	}

	if doc.Type != domain.DocTypeMonthlySummary {
		t.Errorf("Type = %q, want monthly_summary", doc.Type)
	}
	for _, want := range []string{"March 2026", "€5000.00", "€3000.00", "February 2026"} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("text missing %q: %s", want, doc.Text)
		}
	}
	if doc.Metadata.Year != 2026 || doc.Metadata.Month != 3 {
		t.Errorf("metadata = %+v, want year 2026 month 3", doc.Metadata)
	}
}

func TestMonthlySummary_NoData(t *testing.T) {
	doc, err := newGenerator(&mockAggregator{}).MonthlySummary(context.Background(), 2026, 3)
	if err != nil {
		t.Fatalf("MonthlySummary failed: %v", err)
	}
	if doc != nil {
		t.Errorf("expected no document for an empty month, got %+v", doc)
	}
}

func TestCategorySummary(t *testing.T) {
	agg := &mockAggregator{
		CategoryAggregatesFunc: func(ctx context.Context, year, month int) ([]domain.CategoryAggregate, error) {
			return []domain.CategoryAggregate{{Category: "food", Total: -1000, Count: 10}}, nil
		},
	}

	doc, err := newGenerator(agg).CategorySummary(context.Background(), 2026, "food")
	if err != nil {
		t.Fatalf("CategorySummary failed: %v", err)
	}
	if doc == nil {
		t.Fatal("expected a document, got nil")
	}

	if doc.Type != domain.DocTypeCategorySummary {
		t.Errorf("Type = %q, want category_summary", doc.Type)
	}
	if !strings.Contains(doc.Text, "food") || !strings.Contains(doc.Text, "2026") {
		t.Errorf("text missing category or year: %s", doc.Text)
	}
	if !strings.Contains(doc.Text, "€12000.00") {
		t.Errorf("text missing yearly total: %s", doc.Text)
	}
	if doc.Metadata.Category != "food" {
		t.Errorf("metadata category = %q, want food", doc.Metadata.Category)
	}
}

func TestCategorySummary_NoData(t *testing.T) {
	doc, err := newGenerator(&mockAggregator{}).CategorySummary(context.Background(), 2026, "food")
	if err != nil {
		t.Fatalf("CategorySummary failed: %v", err)
	}
	if doc != nil {
		t.Errorf("expected no document for an inactive category, got %+v", doc)
	}
}

func TestAnomalySummary(t *testing.T) {
	agg := &mockAggregator{
		DetectAnomaliesFunc: func(ctx context.Context, year, month int, multiplier float64) ([]domain.AnomalyFinding, error) {
			return []domain.AnomalyFinding{
				{Category: "home", CurrentAmount: -5000, AverageAmount: -2000, DeviationPct: 150, IsHigh: true},
			}, nil
		},
		MonthlyTotalsFunc: func(ctx context.Context, year, month int) (domain.MonthlyAggregate, error) {
			return domain.MonthlyAggregate{TotalIncome: 5000, TotalExpense: 7000, NetSavings: -2000}, nil
		},
	}

	doc, err := newGenerator(agg).AnomalySummary(context.Background(), 2026, 6)
	if err != nil {
		t.Fatalf("AnomalySummary failed: %v", err)
	}
	if doc == nil {
		t.Fatal("expected a document, got nil")
	}

	if doc.Type != domain.DocTypeAnomaly {
		t.Errorf("Type = %q, want anomaly", doc.Type)
	}
	for _, want := range []string{"June 2026", "home", "high", "150.0%", "above"} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("text missing %q: %s", want, doc.Text)
		}
	}
	if doc.Metadata.Year != 2026 || doc.Metadata.Month != 6 {
		t.Errorf("metadata = %+v, want year 2026 month 6", doc.Metadata)
	}
}

func TestAnomalySummary_LowDirection(t *testing.T) {
	agg := &mockAggregator{
		DetectAnomaliesFunc: func(ctx context.Context, year, month int, multiplier float64) ([]domain.AnomalyFinding, error) {
			return []domain.AnomalyFinding{
				{Category: "travel", CurrentAmount: -500, AverageAmount: -2000, DeviationPct: -75, IsHigh: false},
			}, nil
		},
		MonthlyTotalsFunc: func(ctx context.Context, year, month int) (domain.MonthlyAggregate, error) {
			return domain.MonthlyAggregate{TotalIncome: 5000, TotalExpense: 1500, NetSavings: 3500}, nil
		},
	}

	doc, err := newGenerator(agg).AnomalySummary(context.Background(), 2026, 6)
	if err != nil {
		t.Fatalf("AnomalySummary failed: %v", err)
	}
	if doc == nil {
		t.Fatal("expected a document, got nil")
	}

	for _, want := range []string{"travel", "low", "75.0%", "below"} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("text missing %q: %s", want, doc.Text)
		}
	}
	if strings.Contains(doc.Text, "above") {
		t.Errorf("low finding must not read as above average: %s", doc.Text)
	}
}

func TestAnomalySummary_NoAnomalies(t *testing.T) {
	doc, err := newGenerator(&mockAggregator{}).AnomalySummary(context.Background(), 2026, 6)
	if err != nil {
		t.Fatalf("AnomalySummary failed: %v", err)
	}
	if doc != nil {
		t.Errorf("expected no document without anomalies, got %+v", doc)
	}
}

func TestYearlyOverview(t *testing.T) {
	agg := &mockAggregator{
		YearlySummaryFunc: func(ctx context.Context, year int) (domain.YearlySummary, error) {
			return domain.YearlySummary{
				Year: year, TotalIncome: 60000, TotalExpense: 36000, NetSavings: 24000,
				TopExpenseCategories: []domain.CategoryAggregate{{Category: "food", Total: -12000, Count: 100}},
			}, nil
		},
	}

	doc, err := newGenerator(agg).YearlyOverview(context.Background(), 2026)
	if err != nil {
		t.Fatalf("YearlyOverview failed: %v", err)
	}
	if doc == nil {
		t.Fatal("expected a document, got nil")
	}

	if doc.Type != domain.DocTypeYearlyOverview {
		t.Errorf("Type = %q, want yearly_overview", doc.Type)
	}
	for _, want := range []string{"2026", "€60000.00", "food"} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("text missing %q: %s", want, doc.Text)
		}
	}
}

func TestYearlyOverview_NoData(t *testing.T) {
	doc, err := newGenerator(&mockAggregator{}).YearlyOverview(context.Background(), 2026)
	if err != nil {
		t.Fatalf("YearlyOverview failed: %v", err)
	}
	if doc != nil {
		t.Errorf("expected no document for an empty year, got %+v", doc)
	}
}

func TestGenerateAll(t *testing.T) {
	agg := &mockAggregator{
		MonthlyTotalsFunc: func(ctx context.Context, year, month int) (domain.MonthlyAggregate, error) {
			return domain.MonthlyAggregate{Year: year, Month: month, TotalIncome: 5000, TotalExpense: 3000, NetSavings: 2000}, nil
		},
		NetWorthFunc: func(ctx context.Context, year, month int) (float64, error) {
			return 50000, nil
		},
		CategoryAggregatesFunc: func(ctx context.Context, year, month int) ([]domain.CategoryAggregate, error) {
			return []domain.CategoryAggregate{{Category: "food", Total: -1000, Count: 10}}, nil
		},
		YearlySummaryFunc: func(ctx context.Context, year int) (domain.YearlySummary, error) {
			return domain.YearlySummary{Year: year, TotalIncome: 60000, TotalExpense: 36000, NetSavings: 24000}, nil
		},
	}

	documents, err := newGenerator(agg).GenerateAll(context.Background(), 2026)
	if err != nil {
		t.Fatalf("GenerateAll failed: %v", err)
	}

	// 12 monthly summaries + 1 category summary + 1 yearly overview;
	// no anomalies were mocked so no anomaly documents.
	if len(documents) != 14 {
		t.Fatalf("expected 14 documents, got %d", len(documents))
	}

	counts := make(map[domain.DocumentType]int)
	for _, doc := range documents {
		counts[doc.Type]++
		if doc.Text == "" {
			t.Error("generated document with empty text")
		}
	}
	if counts[domain.DocTypeMonthlySummary] != 12 {
		t.Errorf("monthly summaries = %d, want 12", counts[domain.DocTypeMonthlySummary])
	}
	if counts[domain.DocTypeCategorySummary] != 1 {
		t.Errorf("category summaries = %d, want 1", counts[domain.DocTypeCategorySummary])
	}
	if counts[domain.DocTypeYearlyOverview] != 1 {
		t.Errorf("yearly overviews = %d, want 1", counts[domain.DocTypeYearlyOverview])
	}
}

func TestGenerateAll_EmptyYear(t *testing.T) {
	documents, err := newGenerator(&mockAggregator{}).GenerateAll(context.Background(), 2026)
	if err != nil {
		t.Fatalf("GenerateAll failed: %v", err)
	}
	if len(documents) != 0 {
		t.Errorf("expected no documents for an empty year, got %d", len(documents))
	}
}
