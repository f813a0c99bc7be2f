package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/aggregate"
	"github.com/dvloznov/finance-assistant/internal/archive"
	"github.com/dvloznov/finance-assistant/internal/gemini"
	infraBQ "github.com/dvloznov/finance-assistant/internal/infra/bigquery"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/narrative"
	"github.com/dvloznov/finance-assistant/internal/rag"
	"github.com/dvloznov/finance-assistant/internal/vectorstore"
)

func main() {
	log := logger.NewService("cli")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(log)
	case "ask":
		runAsk(log)
	case "overview":
		runOverview(log)
	case "archive":
		runArchive(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance Assistant CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate  Generate narratives for a year and print index stats")
	fmt.Println("  ask       Ask a question about a year's finances")
	fmt.Println("  overview  Print the financial overview for a year")
	fmt.Println("  archive   Upload a year's narratives to the GCS archive")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// buildStack wires the ledger, aggregation, generation and retrieval
// components the CLI commands share. The vector store lives only for the
// duration of the process.
func buildStack(ctx context.Context, log zerolog.Logger) (*infraBQ.LedgerRepository, *narrative.Generator, *vectorstore.Store, *rag.Handler, error) {
	ledger, err := infraBQ.NewLedgerRepository(ctx)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("buildStack: ledger repository: %w", err)
	}

	aggSvc := aggregate.NewService(ledger, log)
	generator := narrative.NewGenerator(aggSvc, log)

	var embedder vectorstore.Embedder
	var textGen rag.TextGenerator
	geminiClient, err := gemini.NewClient(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Gemini provider unavailable - retrieval disabled")
	} else {
		embedder = geminiClient
		textGen = geminiClient
	}

	store := vectorstore.NewStore(embedder, log)
	handler := rag.NewHandler(store, aggSvc, textGen, log)

	return ledger, generator, store, handler, nil
}

func runGenerate(log zerolog.Logger) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	year := fs.Int("year", time.Now().Year(), "Calendar year to narrate")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	ledger, generator, store, _, err := buildStack(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer ledger.Close()

	log.Info().Int("year", *year).Msg("Generating narratives")

	docs, err := generator.GenerateAll(ctx, *year)
	if err != nil {
		log.Fatal().Err(err).Msg("Narrative generation failed")
	}

	result := store.AddDocuments(ctx, docs)

	fmt.Printf("Generated %d narratives for %d: %d embedded, %d rejected\n",
		len(docs), *year, result.Added, result.Rejected)
	for _, reason := range result.Reasons {
		fmt.Printf("  rejected: %s\n", reason)
	}

	stats := store.GetStats()
	for docType, count := range stats.ByType {
		fmt.Printf("  %s: %d\n", docType, count)
	}
}

func runAsk(log zerolog.Logger) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	year := fs.Int("year", time.Now().Year(), "Year the question is about (0 for none)")
	month := fs.Int("month", 0, "Month the question is about (0 for none)")
	topK := fs.Int("top-k", 0, "Number of documents to retrieve (0 for default)")
	fs.Parse(os.Args[2:])

	query := fs.Arg(0)
	if query == "" {
		log.Fatal().Msg("Usage: cli ask [options] \"question\"")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	ledger, generator, store, handler, err := buildStack(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer ledger.Close()

	// The in-process store starts empty; index the year before asking.
	if *year != 0 && store.Ready() {
		docs, err := generator.GenerateAll(ctx, *year)
		if err != nil {
			log.Fatal().Err(err).Msg("Narrative generation failed")
		}
		store.AddDocuments(ctx, docs)
	}

	answer := handler.AnswerQuery(ctx, query, rag.Options{
		Year:  *year,
		Month: *month,
		TopK:  *topK,
	})

	fmt.Printf("Q: %s\n\n", answer.Query)
	if answer.Error != "" {
		fmt.Printf("Error: %s\n", answer.Error)
	}
	fmt.Printf("A: %s\n\n", answer.Answer)
	fmt.Printf("Confidence: %s\n", answer.Confidence)
	for _, src := range answer.Sources {
		fmt.Printf("  source [%s] similarity=%.3f\n", src.Type, src.Similarity)
	}
}

func runOverview(log zerolog.Logger) {
	fs := flag.NewFlagSet("overview", flag.ExitOnError)
	year := fs.Int("year", time.Now().Year(), "Calendar year")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	ledger, err := infraBQ.NewLedgerRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger repository")
	}
	defer ledger.Close()

	aggSvc := aggregate.NewService(ledger, log)

	overview, err := aggSvc.FinancialOverview(ctx, *year)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build financial overview")
	}

	out, err := json.MarshalIndent(overview, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode overview")
	}
	fmt.Println(string(out))
}

func runArchive(log zerolog.Logger) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	year := fs.Int("year", time.Now().Year(), "Calendar year to narrate")
	bucket := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for narrative snapshots")
	fs.Parse(os.Args[2:])

	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket or GCS_BUCKET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	ledger, err := infraBQ.NewLedgerRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger repository")
	}
	defer ledger.Close()

	aggSvc := aggregate.NewService(ledger, log)
	generator := narrative.NewGenerator(aggSvc, log)

	docs, err := generator.GenerateAll(ctx, *year)
	if err != nil {
		log.Fatal().Err(err).Msg("Narrative generation failed")
	}

	uri, err := archive.NewArchiver(*bucket).Upload(ctx, *year, docs)
	if err != nil {
		log.Fatal().Err(err).Msg("Snapshot upload failed")
	}

	fmt.Printf("Archived %d narratives to %s\n", len(docs), uri)
}
