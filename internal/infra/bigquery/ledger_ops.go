package bigquery

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

var (
	projectID = envOrDefault("BIGQUERY_PROJECT_ID", "studious-union-470122-v7")
	datasetID = envOrDefault("BIGQUERY_DATASET_ID", "finance")
)

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// QueryMonthEntries returns all ledger entries dated within the given month.
func QueryMonthEntries(ctx context.Context, year, month int) ([]*LedgerEntryRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("QueryMonthEntries: bigquery client: %w", err)
	}
	defer client.Close()

	return QueryMonthEntriesWithClient(ctx, client, year, month)
}

// QueryMonthEntriesWithClient returns all ledger entries dated within the
// given month using the provided BigQuery client. Only entries from
// successful parsing runs are included, so superseded statement re-parses
// never double count.
func QueryMonthEntriesWithClient(ctx context.Context, client *bigquery.Client, year, month int) ([]*LedgerEntryRow, error) {
	start, end := monthBounds(year, month)

	q := client.Query(fmt.Sprintf(`
		SELECT
			t.transaction_id,
			t.transaction_date,
			t.amount,
			t.currency,
			t.category_name,
			t.raw_description,
			t.account_id
		FROM `+"`%s.%s.transactions`"+` t
		INNER JOIN `+"`%s.%s.parsing_runs`"+` pr
		  ON t.parsing_run_id = pr.parsing_run_id
		WHERE t.transaction_date >= @start_date
		  AND t.transaction_date <= @end_date
		  AND pr.status = 'SUCCESS'
		ORDER BY t.transaction_date, t.transaction_id
	`, projectID, datasetID, projectID, datasetID))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryMonthEntriesWithClient: reading query: %w", err)
	}

	var rows []*LedgerEntryRow
	for {
		var row LedgerEntryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryMonthEntriesWithClient: iterating: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}

// QueryMonthSnapshots returns every account's snapshot for the given month.
func QueryMonthSnapshots(ctx context.Context, year, month int) ([]*AccountSnapshotRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("QueryMonthSnapshots: bigquery client: %w", err)
	}
	defer client.Close()

	return QueryMonthSnapshotsWithClient(ctx, client, year, month)
}

// QueryMonthSnapshotsWithClient returns every account's snapshot for the
// given month using the provided BigQuery client. Months the ingestion side
// has not closed yet come back as an empty slice.
func QueryMonthSnapshotsWithClient(ctx context.Context, client *bigquery.Client, year, month int) ([]*AccountSnapshotRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			account_id,
			account_type,
			snapshot_year,
			snapshot_month,
			total_income,
			total_expense,
			ending_balance
		FROM `+"`%s.%s.account_snapshots`"+`
		WHERE snapshot_year = @year
		  AND snapshot_month = @month
		ORDER BY account_id
	`, projectID, datasetID))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "year", Value: int64(year)},
		{Name: "month", Value: int64(month)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryMonthSnapshotsWithClient: reading query: %w", err)
	}

	var rows []*AccountSnapshotRow
	for {
		var row AccountSnapshotRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryMonthSnapshotsWithClient: iterating: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}

// QueryLatestSnapshots returns the most recent snapshot per account.
func QueryLatestSnapshots(ctx context.Context) ([]*AccountSnapshotRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("QueryLatestSnapshots: bigquery client: %w", err)
	}
	defer client.Close()

	return QueryLatestSnapshotsWithClient(ctx, client)
}

// QueryLatestSnapshotsWithClient returns the most recent snapshot per
// account using the provided BigQuery client.
func QueryLatestSnapshotsWithClient(ctx context.Context, client *bigquery.Client) ([]*AccountSnapshotRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			account_id,
			account_type,
			snapshot_year,
			snapshot_month,
			total_income,
			total_expense,
			ending_balance
		FROM `+"`%s.%s.account_snapshots`"+`
		QUALIFY ROW_NUMBER() OVER (
			PARTITION BY account_id
			ORDER BY snapshot_year DESC, snapshot_month DESC
		) = 1
		ORDER BY account_id
	`, projectID, datasetID))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryLatestSnapshotsWithClient: reading query: %w", err)
	}

	var rows []*AccountSnapshotRow
	for {
		var row AccountSnapshotRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryLatestSnapshotsWithClient: iterating: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}

// monthBounds returns the first and last calendar day of a month.
func monthBounds(year, month int) (civil.Date, civil.Date) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return civil.DateOf(first), civil.DateOf(last)
}
