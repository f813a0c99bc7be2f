package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// LedgerRepository is the read-only BigQuery implementation of the ledger
// boundary consumed by the aggregation engine. It holds a shared BigQuery
// client to avoid creating a new connection for each operation.
type LedgerRepository struct {
	client *bigquery.Client
}

// NewLedgerRepository creates a new LedgerRepository with a shared
// BigQuery client.
func NewLedgerRepository(ctx context.Context) (*LedgerRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewLedgerRepository: creating client: %w", err)
	}
	return &LedgerRepository{
		client: client,
	}, nil
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *LedgerRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// EntriesForMonth returns all ledger entries dated within the month.
func (r *LedgerRepository) EntriesForMonth(ctx context.Context, year, month int) ([]domain.LedgerEntry, error) {
	rows, err := QueryMonthEntriesWithClient(ctx, r.client, year, month)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.ToDomain())
	}
	return entries, nil
}

// SnapshotsForMonth returns every account's snapshot for the month.
func (r *LedgerRepository) SnapshotsForMonth(ctx context.Context, year, month int) ([]domain.AccountSnapshot, error) {
	rows, err := QueryMonthSnapshotsWithClient(ctx, r.client, year, month)
	if err != nil {
		return nil, err
	}

	snapshots := make([]domain.AccountSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, row.ToDomain())
	}
	return snapshots, nil
}

// LatestSnapshots returns the most recent snapshot per account.
func (r *LedgerRepository) LatestSnapshots(ctx context.Context) ([]domain.AccountSnapshot, error) {
	rows, err := QueryLatestSnapshotsWithClient(ctx, r.client)
	if err != nil {
		return nil, err
	}

	snapshots := make([]domain.AccountSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, row.ToDomain())
	}
	return snapshots, nil
}
