package domain

import (
	"time"
)

// LedgerEntry represents one signed ledger transaction as read from the
// finance dataset. This core never writes entries; they are owned by the
// ingestion side and consumed read-only for aggregation.
type LedgerEntry struct {
	EntryID     string
	Date        time.Time // transaction date (YYYY-MM-DD)
	Amount      float64   // positive = income, negative = expense
	Category    string    // normalized lowercase category name
	Description string
	AccountID   string
	Currency    string // e.g. "EUR"
}

// MonthlyAggregate holds the signed-amount totals for one calendar month.
// It is derived on demand and never persisted.
type MonthlyAggregate struct {
	Year         int     `json:"year"`
	Month        int     `json:"month"`
	TotalIncome  float64 `json:"total_income"`  // sum of positive amounts, >= 0
	TotalExpense float64 `json:"total_expense"` // sum of |negative amounts|, >= 0
	NetSavings   float64 `json:"net_savings"`   // income - expense
}

// IsZero reports whether the month had no financial activity at all.
func (m MonthlyAggregate) IsZero() bool {
	return m.TotalIncome == 0 && m.TotalExpense == 0
}

// NetWorthSnapshot is the total ending balance across all accounts for a
// period, read from collaborator-maintained monthly snapshots.
type NetWorthSnapshot struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Total float64 `json:"total"`
}

// AccountSnapshot is one account's monthly snapshot row as maintained by
// the ingestion collaborator: per-account income/expense totals and the
// ending balance for the month.
type AccountSnapshot struct {
	AccountID     string
	AccountType   string // checking, savings, cash, investment, brokerage, retirement, ...
	Year          int
	Month         int
	TotalIncome   float64
	TotalExpense  float64
	EndingBalance float64
}

// CategoryAggregate is the grouped total for one category in a period.
type CategoryAggregate struct {
	Category string  `json:"category"` // case-normalized
	Total    float64 `json:"total"`    // signed: negative for expenses
	Count    int     `json:"count"`
}

// AnomalyFinding flags a category whose current-month magnitude deviates
// from its historical average by more than the configured multiplier.
type AnomalyFinding struct {
	Category      string  `json:"category"`
	CurrentAmount float64 `json:"current_amount"`
	AverageAmount float64 `json:"average_amount"`
	DeviationPct  float64 `json:"deviation_pct"`
	IsHigh        bool    `json:"is_high"`
}

// MonthDelta compares a month against the preceding calendar month.
// Percent changes are 0.0 when the previous value was zero.
type MonthDelta struct {
	IncomeDelta       float64 `json:"income_delta"`
	ExpenseDelta      float64 `json:"expense_delta"`
	NetWorthDelta     float64 `json:"net_worth_delta"`
	IncomePctChange   float64 `json:"income_pct_change"`
	ExpensePctChange  float64 `json:"expense_pct_change"`
	NetWorthPctChange float64 `json:"net_worth_pct_change"`
	PreviousMonth     int     `json:"previous_month"`
	PreviousYear      int     `json:"previous_year"`
}

// YearlySummary aggregates the 12 months of one year.
type YearlySummary struct {
	Year                 int                 `json:"year"`
	TotalIncome          float64             `json:"total_income"`
	TotalExpense         float64             `json:"total_expense"`
	NetSavings           float64             `json:"net_savings"`
	MonthlyData          []MonthlyBreakdown  `json:"monthly_data"` // always 12 entries
	TopExpenseCategories []CategoryAggregate `json:"top_expense_categories"`
}

// MonthlyBreakdown is one row of YearlySummary.MonthlyData.
type MonthlyBreakdown struct {
	Month      int     `json:"month"`
	Income     float64 `json:"income"`
	Expense    float64 `json:"expense"`
	NetSavings float64 `json:"net_savings"`
	NetWorth   float64 `json:"net_worth"`
}

// AccountBreakdown buckets current account balances by account class.
type AccountBreakdown struct {
	Liquidity   float64 `json:"liquidity"`
	Investments float64 `json:"investments"`
	OtherAssets float64 `json:"otherAssets"`
}

// FinancialOverview is the dashboard-facing aggregate for one year.
type FinancialOverview struct {
	Year             int                `json:"year"`
	CurrentNetWorth  float64            `json:"currentNetWorth"`
	NetSavings       float64            `json:"netSavings"`
	MonthlyData      []MonthlyBreakdown `json:"monthlyData"`
	AccountBreakdown AccountBreakdown   `json:"accountBreakdown"`
}
