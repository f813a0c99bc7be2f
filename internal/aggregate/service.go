package aggregate

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultAnomalyMultiplier is the threshold multiplier used when the caller
// does not supply one: a category is flagged when its current-month
// magnitude exceeds its historical average magnitude times this factor.
const DefaultAnomalyMultiplier = 1.5

// Ledger is the read-only boundary to the finance dataset. The engine never
// writes; missing periods are represented by empty slices, not errors.
type Ledger interface {
	// EntriesForMonth returns all ledger entries dated within the month.
	EntriesForMonth(ctx context.Context, year, month int) ([]domain.LedgerEntry, error)

	// SnapshotsForMonth returns every account's snapshot for the month.
	SnapshotsForMonth(ctx context.Context, year, month int) ([]domain.AccountSnapshot, error)

	// LatestSnapshots returns the most recent snapshot per active account.
	LatestSnapshots(ctx context.Context) ([]domain.AccountSnapshot, error)
}

// Service computes monthly and yearly financial statistics from ledger
// data. All operations are total functions over absent data: periods with
// no activity yield zero-valued structures. Only an unreachable ledger
// surfaces as an error.
type Service struct {
	ledger Ledger
	log    zerolog.Logger
}

// NewService creates an aggregation service over the given ledger.
func NewService(ledger Ledger, log zerolog.Logger) *Service {
	return &Service{
		ledger: ledger,
		log:    log,
	}
}

// MonthlyTotals sums the account snapshots of one month into income,
// expense and net savings. Zeros when no snapshots exist.
func (s *Service) MonthlyTotals(ctx context.Context, year, month int) (domain.MonthlyAggregate, error) {
	agg := domain.MonthlyAggregate{Year: year, Month: month}

	snapshots, err := s.ledger.SnapshotsForMonth(ctx, year, month)
	if err != nil {
		return agg, fmt.Errorf("MonthlyTotals: snapshots for %d-%02d: %w", year, month, err)
	}

	for _, snap := range snapshots {
		agg.TotalIncome += snap.TotalIncome
		agg.TotalExpense += snap.TotalExpense
	}
	agg.NetSavings = agg.TotalIncome - agg.TotalExpense

	return agg, nil
}

// NetWorth sums the ending balances across all account snapshots for the
// period. 0.0 when the period has no snapshots.
func (s *Service) NetWorth(ctx context.Context, year, month int) (float64, error) {
	snapshots, err := s.ledger.SnapshotsForMonth(ctx, year, month)
	if err != nil {
		return 0, fmt.Errorf("NetWorth: snapshots for %d-%02d: %w", year, month, err)
	}

	var total float64
	for _, snap := range snapshots {
		total += snap.EndingBalance
	}
	return total, nil
}

// CategoryAggregates groups the month's ledger entries by category and
// orders the result by descending absolute total. Empty when no entries.
func (s *Service) CategoryAggregates(ctx context.Context, year, month int) ([]domain.CategoryAggregate, error) {
	entries, err := s.ledger.EntriesForMonth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("CategoryAggregates: entries for %d-%02d: %w", year, month, err)
	}

	totals := make(map[string]*domain.CategoryAggregate)
	order := make([]string, 0)
	for _, entry := range entries {
		category := normalizeCategory(entry.Category)
		agg, ok := totals[category]
		if !ok {
			agg = &domain.CategoryAggregate{Category: category}
			totals[category] = agg
			order = append(order, category)
		}
		agg.Total += entry.Amount
		agg.Count++
	}

	result := make([]domain.CategoryAggregate, 0, len(order))
	for _, category := range order {
		result = append(result, *totals[category])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return math.Abs(result[i].Total) > math.Abs(result[j].Total)
	})

	return result, nil
}

// MonthOverMonthDelta compares a month against the preceding calendar
// month, handling year rollover. Percent changes against a zero previous
// value are reported as 0.0 rather than an error.
func (s *Service) MonthOverMonthDelta(ctx context.Context, year, month int) (domain.MonthDelta, error) {
	prevYear, prevMonth := previousMonth(year, month)
	delta := domain.MonthDelta{PreviousYear: prevYear, PreviousMonth: prevMonth}

	current, err := s.MonthlyTotals(ctx, year, month)
	if err != nil {
		return delta, fmt.Errorf("MonthOverMonthDelta: %w", err)
	}
	previous, err := s.MonthlyTotals(ctx, prevYear, prevMonth)
	if err != nil {
		return delta, fmt.Errorf("MonthOverMonthDelta: %w", err)
	}
	currentWorth, err := s.NetWorth(ctx, year, month)
	if err != nil {
		return delta, fmt.Errorf("MonthOverMonthDelta: %w", err)
	}
	previousWorth, err := s.NetWorth(ctx, prevYear, prevMonth)
	if err != nil {
		return delta, fmt.Errorf("MonthOverMonthDelta: %w", err)
	}

	delta.IncomeDelta = current.TotalIncome - previous.TotalIncome
	delta.ExpenseDelta = current.TotalExpense - previous.TotalExpense
	delta.NetWorthDelta = currentWorth - previousWorth
	delta.IncomePctChange = pctChange(current.TotalIncome, previous.TotalIncome)
	delta.ExpensePctChange = pctChange(current.TotalExpense, previous.TotalExpense)
	delta.NetWorthPctChange = pctChange(currentWorth, previousWorth)

	return delta, nil
}

// DetectAnomalies flags expense categories whose current-month magnitude
// exceeds their historical average magnitude by more than the multiplier.
// The baseline is the average over the prior months of the same year in
// which the category was active; categories with no history are skipped.
// A multiplier <= 0 falls back to DefaultAnomalyMultiplier.
func (s *Service) DetectAnomalies(ctx context.Context, year, month int, multiplier float64) ([]domain.AnomalyFinding, error) {
	if multiplier <= 0 {
		multiplier = DefaultAnomalyMultiplier
	}

	current, err := s.CategoryAggregates(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("DetectAnomalies: %w", err)
	}
	if len(current) == 0 {
		return nil, nil
	}

	// Historical totals per category over the prior months of the year.
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for m := 1; m < month; m++ {
		aggs, err := s.CategoryAggregates(ctx, year, m)
		if err != nil {
			return nil, fmt.Errorf("DetectAnomalies: baseline month %d: %w", m, err)
		}
		for _, agg := range aggs {
			if agg.Total >= 0 {
				continue // only expense totals participate
			}
			sums[agg.Category] += agg.Total
			counts[agg.Category]++
		}
	}

	var findings []domain.AnomalyFinding
	for _, agg := range current {
		if agg.Total >= 0 {
			continue
		}
		n := counts[agg.Category]
		if n == 0 {
			// No baseline for this category; cannot judge deviation.
			continue
		}
		average := sums[agg.Category] / float64(n)
		currentMag := math.Abs(agg.Total)
		averageMag := math.Abs(average)
		if averageMag == 0 || currentMag <= averageMag*multiplier {
			continue
		}

		findings = append(findings, domain.AnomalyFinding{
			Category:      agg.Category,
			CurrentAmount: agg.Total,
			AverageAmount: average,
			DeviationPct:  (currentMag - averageMag) / averageMag * 100,
			IsHigh:        currentMag > averageMag,
		})
	}

	if len(findings) > 0 {
		s.log.Info().
			Int("year", year).
			Int("month", month).
			Int("anomalies", len(findings)).
			Float64("multiplier", multiplier).
			Msg("Detected spending anomalies")
	}

	return findings, nil
}

// YearlySummary sums the 12 monthly totals of a year and ranks the year's
// expense categories by magnitude.
func (s *Service) YearlySummary(ctx context.Context, year int) (domain.YearlySummary, error) {
	summary := domain.YearlySummary{
		Year:        year,
		MonthlyData: make([]domain.MonthlyBreakdown, 0, 12),
	}

	categoryTotals := make(map[string]*domain.CategoryAggregate)
	order := make([]string, 0)

	for month := 1; month <= 12; month++ {
		totals, err := s.MonthlyTotals(ctx, year, month)
		if err != nil {
			return summary, fmt.Errorf("YearlySummary: %w", err)
		}
		worth, err := s.NetWorth(ctx, year, month)
		if err != nil {
			return summary, fmt.Errorf("YearlySummary: %w", err)
		}
		aggs, err := s.CategoryAggregates(ctx, year, month)
		if err != nil {
			return summary, fmt.Errorf("YearlySummary: %w", err)
		}

		summary.TotalIncome += totals.TotalIncome
		summary.TotalExpense += totals.TotalExpense
		summary.MonthlyData = append(summary.MonthlyData, domain.MonthlyBreakdown{
			Month:      month,
			Income:     totals.TotalIncome,
			Expense:    totals.TotalExpense,
			NetSavings: totals.NetSavings,
			NetWorth:   worth,
		})

		for _, agg := range aggs {
			total, ok := categoryTotals[agg.Category]
			if !ok {
				total = &domain.CategoryAggregate{Category: agg.Category}
				categoryTotals[agg.Category] = total
				order = append(order, agg.Category)
			}
			total.Total += agg.Total
			total.Count += agg.Count
		}
	}
	summary.NetSavings = summary.TotalIncome - summary.TotalExpense

	for _, category := range order {
		agg := *categoryTotals[category]
		if agg.Total >= 0 {
			continue // top categories rank expenses only
		}
		summary.TopExpenseCategories = append(summary.TopExpenseCategories, agg)
	}
	sort.SliceStable(summary.TopExpenseCategories, func(i, j int) bool {
		return math.Abs(summary.TopExpenseCategories[i].Total) > math.Abs(summary.TopExpenseCategories[j].Total)
	})

	return summary, nil
}

// previousMonth returns the calendar month preceding (year, month).
func previousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// pctChange returns the percent change from previous to current, or 0.0
// when the previous value is zero.
func pctChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / math.Abs(previous) * 100
}
