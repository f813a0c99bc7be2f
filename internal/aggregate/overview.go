package aggregate

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Account type buckets for the dashboard breakdown.
var (
	liquidityTypes  = map[string]bool{"checking": true, "savings": true, "cash": true}
	investmentTypes = map[string]bool{"investment": true, "brokerage": true, "retirement": true}
	otherAssetTypes = map[string]bool{"other": true, "asset": true, "loan": true}
)

// FinancialOverview assembles the dashboard aggregate for one year:
// current net worth from the latest balances, the year's net savings, all
// 12 monthly rows, and account balances bucketed by class.
func (s *Service) FinancialOverview(ctx context.Context, year int) (domain.FinancialOverview, error) {
	overview := domain.FinancialOverview{Year: year}

	for month := 1; month <= 12; month++ {
		totals, err := s.MonthlyTotals(ctx, year, month)
		if err != nil {
			return overview, fmt.Errorf("FinancialOverview: %w", err)
		}
		worth, err := s.NetWorth(ctx, year, month)
		if err != nil {
			return overview, fmt.Errorf("FinancialOverview: %w", err)
		}
		overview.NetSavings += totals.NetSavings
		overview.MonthlyData = append(overview.MonthlyData, domain.MonthlyBreakdown{
			Month:      month,
			Income:     totals.TotalIncome,
			Expense:    totals.TotalExpense,
			NetSavings: totals.NetSavings,
			NetWorth:   worth,
		})
	}

	latest, err := s.ledger.LatestSnapshots(ctx)
	if err != nil {
		return overview, fmt.Errorf("FinancialOverview: latest snapshots: %w", err)
	}

	for _, snap := range latest {
		overview.CurrentNetWorth += snap.EndingBalance
		if snap.EndingBalance <= 0 {
			continue
		}
		accountType := strings.ToLower(snap.AccountType)
		switch {
		case liquidityTypes[accountType]:
			overview.AccountBreakdown.Liquidity += snap.EndingBalance
		case investmentTypes[accountType]:
			overview.AccountBreakdown.Investments += snap.EndingBalance
		case otherAssetTypes[accountType]:
			overview.AccountBreakdown.OtherAssets += snap.EndingBalance
		default:
			s.log.Warn().
				Str("account_id", snap.AccountID).
				Str("account_type", snap.AccountType).
				Msg("Unknown account type, bucketing as otherAssets")
			overview.AccountBreakdown.OtherAssets += snap.EndingBalance
		}
	}

	return overview, nil
}

// normalizeCategory normalizes a ledger category for grouping. Categories
// are stored lowercase; trims whitespace for safety.
func normalizeCategory(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
