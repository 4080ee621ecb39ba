package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"jse_extractor/pkg/core/classify"
	"jse_extractor/pkg/core/config"
	"jse_extractor/pkg/core/extract"
	"jse_extractor/pkg/core/ingest"
	"jse_extractor/pkg/core/llm"
	"jse_extractor/pkg/core/pipeline"
	"jse_extractor/pkg/core/preprocess"
	"jse_extractor/pkg/core/quality"
	"jse_extractor/pkg/core/schema"
	"jse_extractor/pkg/core/store"
	"jse_extractor/pkg/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, assuming environment variables are set.")
	}

	app := &cli.App{
		Name:  "jse-pipeline",
		Usage: "extract structured financials from JSE listed-company statements",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prefix", Usage: "override the source prefix, e.g. CSV/WISYNCO/"},
			&cli.BoolFlag{Name: "quiet", Usage: "log errors only"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	ctx := c.Context

	def, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return err
	}

	results, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer results.Close()

	fetcher, err := openFetcher(ctx, cfg)
	if err != nil {
		return err
	}

	prefix := cfg.S3Prefix
	if c.String("prefix") != "" {
		prefix = c.String("prefix")
	}

	fmt.Printf("Listing statements under %s...\n", prefix)
	docs, err := ingest.LoadDocuments(ctx, fetcher, prefix)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No statement files found. Nothing to do.")
		return nil
	}
	fmt.Printf("Queueing %d statements for extraction...\n", len(docs))

	labeler := &classify.Classifier{}
	if cfg.KeywordsCSV != "" {
		keywords, err := classify.LoadKeywordsFile(cfg.KeywordsCSV)
		if err != nil {
			return err
		}
		labeler.Keywords = keywords
	}

	provider := &llm.GeminiProvider{Model: cfg.Model, APIKey: cfg.GeminiAPIKey}
	engine := extract.NewEngine(provider, extract.Config{
		MaxAttempts:      cfg.MaxAttempts,
		MaxRetries:       cfg.MaxRetries,
		EnableEvaluation: cfg.EnableEvaluation,
	})
	orch := pipeline.NewOrchestratorWithDeps(def, engine, labeler, results,
		pipeline.Config{
			Concurrency:      cfg.Concurrency,
			StatementTimeout: cfg.StatementTimeout,
			PipelineVersion:  cfg.PipelineVersion,
			Preprocess:       preprocess.Options{DetectLanguage: true},
			Quality: quality.Config{
				TypeMismatchPenalty:  quality.DefaultConfig().TypeMismatchPenalty,
				LowConfidencePenalty: quality.DefaultConfig().LowConfidencePenalty,
				ConfidenceThreshold:  cfg.ConfidenceThreshold,
			},
		})
	orch.SetLogger(logger)

	summary, outcomes := orch.Run(ctx, docs)
	printSummary(summary, outcomes)
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.ResultStore, error) {
	switch {
	case cfg.DatabaseURL != "":
		return store.NewPostgresStore(ctx, cfg.DatabaseURL)
	case cfg.SQLitePath != "":
		return store.NewSQLiteStore(cfg.SQLitePath)
	}
	fmt.Println("Warning: no DATABASE_URL or JSE_SQLITE_PATH set, results stay in memory.")
	return store.NewMemoryStore(), nil
}

func openFetcher(ctx context.Context, cfg *config.Config) (ingest.DocumentFetcher, error) {
	if cfg.LocalDir != "" {
		return &ingest.LocalFetcher{Root: cfg.LocalDir}, nil
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("set JSE_S3_BUCKET or JSE_LOCAL_DIR")
	}
	return ingest.NewS3Fetcher(ctx, cfg.S3Bucket, cfg.AWSRegion)
}

func printSummary(summary *pipeline.BatchSummary, outcomes []models.Outcome) {
	fmt.Printf("\nBatch %s finished in %v\n", summary.RunID, summary.Elapsed.Round(0))
	fmt.Printf("  Succeeded:    %d/%d\n", summary.Succeeded, summary.Total)
	if summary.Pending > 0 {
		fmt.Printf("  Not started:  %d (cancelled)\n", summary.Pending)
	}
	if len(summary.DeadLettered) > 0 {
		kinds := make([]string, 0, len(summary.DeadLettered))
		for kind := range summary.DeadLettered {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		fmt.Println("  Dead letters:")
		for _, kind := range kinds {
			fmt.Printf("    %-24s %d\n", kind, summary.DeadLettered[models.ErrorKind(kind)])
		}
	}
	for _, out := range outcomes {
		if out.DeadLetter != nil {
			fmt.Printf("  FAILED %s: %s\n", out.Document.SourceRef, out.DeadLetter.Detail)
		}
	}
}
