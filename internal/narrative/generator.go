// Package narrative turns numeric aggregates into whitelisted
// natural-language documents. Documents describing no activity are never
// emitted: every operation returns a nil document when the underlying
// aggregate is entirely empty.
package narrative

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/rs/zerolog"
)

// Aggregator is the slice of the aggregation engine the generator needs.
type Aggregator interface {
	MonthlyTotals(ctx context.Context, year, month int) (domain.MonthlyAggregate, error)
	NetWorth(ctx context.Context, year, month int) (float64, error)
	CategoryAggregates(ctx context.Context, year, month int) ([]domain.CategoryAggregate, error)
	MonthOverMonthDelta(ctx context.Context, year, month int) (domain.MonthDelta, error)
	DetectAnomalies(ctx context.Context, year, month int, multiplier float64) ([]domain.AnomalyFinding, error)
	YearlySummary(ctx context.Context, year int) (domain.YearlySummary, error)
}

// Generator derives narrative documents from the aggregation engine.
type Generator struct {
	agg Aggregator
	log zerolog.Logger
}

// NewGenerator creates a narrative generator over the given aggregator.
func NewGenerator(agg Aggregator, log zerolog.Logger) *Generator {
	return &Generator{
		agg: agg,
		log: log,
	}
}

// MonthlySummary narrates one month's income, expenses, net savings and
// month-over-month movement. Returns nil when the month had no activity.
func (g *Generator) MonthlySummary(ctx context.Context, year, month int) (*domain.NarrativeDocument, error) {
	totals, err := g.agg.MonthlyTotals(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("MonthlySummary: %w", err)
	}
	if totals.IsZero() {
		return nil, nil
	}

	worth, err := g.agg.NetWorth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("MonthlySummary: %w", err)
	}
	delta, err := g.agg.MonthOverMonthDelta(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("MonthlySummary: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "In %s, total income was %s, total expenses were %s, and net savings were %s.",
		periodName(year, month), euro(totals.TotalIncome), euro(totals.TotalExpense), euro(totals.NetSavings))
	if worth != 0 {
		fmt.Fprintf(&b, " Net worth at month end was %s.", euro(worth))
	}
	fmt.Fprintf(&b, " Compared to %s, income changed by %s (%.1f%%), expenses changed by %s (%.1f%%), and net worth changed by %s (%.1f%%).",
		periodName(delta.PreviousYear, delta.PreviousMonth),
		euro(delta.IncomeDelta), delta.IncomePctChange,
		euro(delta.ExpenseDelta), delta.ExpensePctChange,
		euro(delta.NetWorthDelta), delta.NetWorthPctChange)

	return &domain.NarrativeDocument{
		Text:     b.String(),
		Type:     domain.DocTypeMonthlySummary,
		Metadata: domain.DocumentMetadata{Year: year, Month: month},
	}, nil
}

// CategorySummary narrates one category's yearly total against its monthly
// breakdown. Returns nil when the category had no activity that year.
func (g *Generator) CategorySummary(ctx context.Context, year int, category string) (*domain.NarrativeDocument, error) {
	category = strings.ToLower(strings.TrimSpace(category))

	var (
		yearTotal float64
		yearCount int
		breakdown []string
	)
	for month := 1; month <= 12; month++ {
		aggs, err := g.agg.CategoryAggregates(ctx, year, month)
		if err != nil {
			return nil, fmt.Errorf("CategorySummary: %w", err)
		}
		for _, agg := range aggs {
			if agg.Category != category {
				continue
			}
			yearTotal += agg.Total
			yearCount += agg.Count
			breakdown = append(breakdown, fmt.Sprintf("%s %s", time.Month(month).String(), euro(agg.Total)))
		}
	}
	if yearCount == 0 {
		return nil, nil
	}

	var b strings.Builder
	if yearTotal < 0 {
		fmt.Fprintf(&b, "In %d, spending on %s totaled %s across %d transactions.",
			year, category, euro(math.Abs(yearTotal)), yearCount)
	} else {
		fmt.Fprintf(&b, "In %d, %s contributed %s across %d transactions.",
			year, category, euro(yearTotal), yearCount)
	}
	fmt.Fprintf(&b, " Monthly breakdown: %s.", strings.Join(breakdown, ", "))

	return &domain.NarrativeDocument{
		Text:     b.String(),
		Type:     domain.DocTypeCategorySummary,
		Metadata: domain.DocumentMetadata{Year: year, Category: category},
	}, nil
}

// AnomalySummary narrates the anomalies detected for a month, with
// direction and percentage deviation. Returns nil when none were found.
func (g *Generator) AnomalySummary(ctx context.Context, year, month int) (*domain.NarrativeDocument, error) {
	findings, err := g.agg.DetectAnomalies(ctx, year, month, 0)
	if err != nil {
		return nil, fmt.Errorf("AnomalySummary: %w", err)
	}
	if len(findings) == 0 {
		return nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "In %s, unusual spending was detected.", periodName(year, month))
	for _, f := range findings {
		direction, relation := "low", "below"
		if f.IsHigh {
			direction, relation = "high", "above"
		}
		fmt.Fprintf(&b, " Spending on %s was unusually %s at %s, %.1f%% %s its historical average of %s.",
			f.Category, direction, euro(math.Abs(f.CurrentAmount)), math.Abs(f.DeviationPct), relation, euro(math.Abs(f.AverageAmount)))
	}

	totals, err := g.agg.MonthlyTotals(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("AnomalySummary: %w", err)
	}
	fmt.Fprintf(&b, " Overall that month, income was %s and expenses were %s.",
		euro(totals.TotalIncome), euro(totals.TotalExpense))

	return &domain.NarrativeDocument{
		Text:     b.String(),
		Type:     domain.DocTypeAnomaly,
		Metadata: domain.DocumentMetadata{Year: year, Month: month},
	}, nil
}

// YearlyOverview narrates annual income, expenses, savings and the top
// expense categories. Returns nil when the year had neither income nor
// expenses.
func (g *Generator) YearlyOverview(ctx context.Context, year int) (*domain.NarrativeDocument, error) {
	summary, err := g.agg.YearlySummary(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("YearlyOverview: %w", err)
	}
	if summary.TotalIncome == 0 && summary.TotalExpense == 0 {
		return nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "In %d, total income was %s, total expenses were %s, and net savings were %s.",
		year, euro(summary.TotalIncome), euro(summary.TotalExpense), euro(summary.NetSavings))

	if len(summary.TopExpenseCategories) > 0 {
		top := summary.TopExpenseCategories
		if len(top) > 5 {
			top = top[:5]
		}
		parts := make([]string, 0, len(top))
		for _, agg := range top {
			parts = append(parts, fmt.Sprintf("%s (%s)", agg.Category, euro(math.Abs(agg.Total))))
		}
		fmt.Fprintf(&b, " Top expense categories: %s.", strings.Join(parts, ", "))
	}

	return &domain.NarrativeDocument{
		Text:     b.String(),
		Type:     domain.DocTypeYearlyOverview,
		Metadata: domain.DocumentMetadata{Year: year},
	}, nil
}

// GenerateAll produces every narrative for a year: 12 monthly summaries,
// one category summary per category observed, 12 anomaly summaries and one
// yearly overview. Suppressed documents are silently dropped, so the
// result length is data-dependent.
func (g *Generator) GenerateAll(ctx context.Context, year int) ([]domain.NarrativeDocument, error) {
	var documents []domain.NarrativeDocument

	categories := make(map[string]bool)
	order := make([]string, 0)

	for month := 1; month <= 12; month++ {
		doc, err := g.MonthlySummary(ctx, year, month)
		if err != nil {
			return nil, fmt.Errorf("GenerateAll: month %d: %w", month, err)
		}
		if doc != nil {
			documents = append(documents, *doc)
		}

		aggs, err := g.agg.CategoryAggregates(ctx, year, month)
		if err != nil {
			return nil, fmt.Errorf("GenerateAll: categories for month %d: %w", month, err)
		}
		for _, agg := range aggs {
			if !categories[agg.Category] {
				categories[agg.Category] = true
				order = append(order, agg.Category)
			}
		}
	}

	for _, category := range order {
		doc, err := g.CategorySummary(ctx, year, category)
		if err != nil {
			return nil, fmt.Errorf("GenerateAll: category %q: %w", category, err)
		}
		if doc != nil {
			documents = append(documents, *doc)
		}
	}

	for month := 1; month <= 12; month++ {
		doc, err := g.AnomalySummary(ctx, year, month)
		if err != nil {
			return nil, fmt.Errorf("GenerateAll: anomalies for month %d: %w", month, err)
		}
		if doc != nil {
			documents = append(documents, *doc)
		}
	}

	doc, err := g.YearlyOverview(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("GenerateAll: overview: %w", err)
	}
	if doc != nil {
		documents = append(documents, *doc)
	}

	g.log.Info().
		Int("year", year).
		Int("documents", len(documents)).
		Int("categories", len(order)).
		Msg("Generated narrative documents")

	return documents, nil
}

// periodName formats a period as "March 2026".
func periodName(year, month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("%d", year)
	}
	return fmt.Sprintf("%s %d", time.Month(month).String(), year)
}

// euro formats an amount as "€1234.56".
func euro(amount float64) string {
	return fmt.Sprintf("€%.2f", amount)
}
