package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// LedgerEntryRow mirrors one row of finance.transactions, restricted to the
// columns aggregation reads. The table is owned by the ingestion side; this
// package never writes to it.
type LedgerEntryRow struct {
	EntryID string `bigquery:"transaction_id"` // REQUIRED

	EntryDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC, signed
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	CategoryName   bigquery.NullString `bigquery:"category_name"`   // NULLABLE
	RawDescription string              `bigquery:"raw_description"` // REQUIRED STRING

	AccountID string `bigquery:"account_id"` // NULLABLE (empty string → "")
}

// ToDomain converts the row into a domain entry. A nil Amount maps to 0.
func (r *LedgerEntryRow) ToDomain() domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:     r.EntryID,
		Date:        r.EntryDate.In(time.UTC),
		Amount:      ratToFloat(r.Amount),
		Category:    r.CategoryName.StringVal,
		Description: r.RawDescription,
		AccountID:   r.AccountID,
		Currency:    r.Currency,
	}
}

// AccountSnapshotRow mirrors one row of finance.account_snapshots: the
// ingestion side closes each month with per-account income/expense totals
// and the ending balance.
type AccountSnapshotRow struct {
	AccountID   string `bigquery:"account_id"`   // REQUIRED
	AccountType string `bigquery:"account_type"` // NULLABLE

	SnapshotYear  int64 `bigquery:"snapshot_year"`  // REQUIRED
	SnapshotMonth int64 `bigquery:"snapshot_month"` // REQUIRED

	TotalIncome   *big.Rat `bigquery:"total_income"`   // NULLABLE NUMERIC
	TotalExpense  *big.Rat `bigquery:"total_expense"`  // NULLABLE NUMERIC
	EndingBalance *big.Rat `bigquery:"ending_balance"` // NULLABLE NUMERIC
}

// ToDomain converts the row into a domain snapshot.
func (r *AccountSnapshotRow) ToDomain() domain.AccountSnapshot {
	return domain.AccountSnapshot{
		AccountID:     r.AccountID,
		AccountType:   r.AccountType,
		Year:          int(r.SnapshotYear),
		Month:         int(r.SnapshotMonth),
		TotalIncome:   ratToFloat(r.TotalIncome),
		TotalExpense:  ratToFloat(r.TotalExpense),
		EndingBalance: ratToFloat(r.EndingBalance),
	}
}

func ratToFloat(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}
