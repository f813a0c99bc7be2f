package main

import (
	"context"
	"flag"
	"time"

	"github.com/dvloznov/finance-assistant/internal/aggregate"
	infraBQ "github.com/dvloznov/finance-assistant/internal/infra/bigquery"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/narrative"
	"github.com/dvloznov/finance-assistant/internal/notionsync"
)

func main() {
	// Initialize structured logger
	log := logger.NewService("sync-notion")

	// Parse CLI flags
	year := flag.Int("year", time.Now().Year(), "Calendar year whose narratives are synced")
	notionToken := flag.String("notion-token", "", "Notion API token (required)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (required)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Int("year", *year).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	ledger, err := infraBQ.NewLedgerRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger repository")
	}
	defer ledger.Close()

	aggSvc := aggregate.NewService(ledger, log)
	generator := narrative.NewGenerator(aggSvc, log)

	docs, err := generator.GenerateAll(ctx, *year)
	if err != nil {
		log.Fatal().Err(err).Msg("Narrative generation failed")
	}

	log.Info().Int("document_count", len(docs)).Msg("Generated narratives")

	notionClient := notionsync.NewNotionClient(*notionToken)

	if err := notionsync.SyncNarratives(ctx, docs, notionClient, *notionDBID, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}

	log.Info().Msg("Notion sync completed")
}
