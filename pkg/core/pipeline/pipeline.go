// Package pipeline wires the stages together and drives batches: a bounded
// worker pool pulls statement documents through preprocess, extraction,
// validation, scoring, classification and persistence.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"jse_extractor/pkg/core/classify"
	"jse_extractor/pkg/core/extract"
	"jse_extractor/pkg/core/llm"
	"jse_extractor/pkg/core/preprocess"
	"jse_extractor/pkg/core/quality"
	"jse_extractor/pkg/core/schema"
	"jse_extractor/pkg/core/store"
	"jse_extractor/pkg/core/validate"
	"jse_extractor/pkg/models"
)

// Extractor abstracts the extraction engine so tests can swap it out.
type Extractor interface {
	Extract(ctx context.Context, doc models.StatementDocument, input models.PreparedInput, def *schema.Definition) (*models.ExtractionCandidate, error)
}

// Labeler abstracts the group-level classifier.
type Labeler interface {
	Classify(doc models.StatementDocument, prepared models.PreparedInput, candidate *models.ExtractionCandidate) models.GroupLevelLabel
}

// Config tunes one batch run.
type Config struct {
	// Concurrency bounds simultaneous in-flight statements. 0 means 4.
	Concurrency int
	// StatementTimeout bounds one statement end to end. 0 means 5m.
	StatementTimeout time.Duration
	// PipelineVersion is stamped on every stored result.
	PipelineVersion string
	// Preprocess options applied to every document.
	Preprocess preprocess.Options
	// Quality holds the scoring knobs.
	Quality quality.Config
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.StatementTimeout <= 0 {
		c.StatementTimeout = 5 * time.Minute
	}
	if c.PipelineVersion == "" {
		c.PipelineVersion = "dev"
	}
	if c.Quality == (quality.Config{}) {
		c.Quality = quality.DefaultConfig()
	}
	return c
}

// BatchSummary reports what happened to a batch.
type BatchSummary struct {
	RunID        string
	Total        int
	Succeeded    int
	DeadLettered map[models.ErrorKind]int
	// Pending counts documents never started because the batch context was
	// cancelled first.
	Pending int
	Elapsed time.Duration
}

// Orchestrator runs batches of statement documents through the pipeline.
type Orchestrator struct {
	def       *schema.Definition
	extractor Extractor
	labeler   Labeler
	results   store.ResultStore
	cfg       Config
	logger    *slog.Logger
}

// NewOrchestrator builds a production orchestrator on the real extraction
// engine and classifier.
func NewOrchestrator(def *schema.Definition, provider llm.Provider, results store.ResultStore, extractCfg extract.Config, cfg Config) *Orchestrator {
	return NewOrchestratorWithDeps(def, extract.NewEngine(provider, extractCfg), &classify.Classifier{}, results, cfg)
}

// NewOrchestratorWithDeps builds an orchestrator from explicit collaborators.
func NewOrchestratorWithDeps(def *schema.Definition, extractor Extractor, labeler Labeler, results store.ResultStore, cfg Config) *Orchestrator {
	return &Orchestrator{
		def:       def,
		extractor: extractor,
		labeler:   labeler,
		results:   results,
		cfg:       cfg.withDefaults(),
		logger:    slog.Default(),
	}
}

// SetLogger replaces the default logger.
func (o *Orchestrator) SetLogger(l *slog.Logger) {
	o.logger = l
}

// Run processes the batch and returns a summary plus per-document outcomes
// in input order. Cancelling ctx stops new documents from starting;
// in-flight documents finish or hit their own timeout. A failed statement
// becomes a dead-letter outcome, never an error from Run.
func (o *Orchestrator) Run(ctx context.Context, docs []models.StatementDocument) (*BatchSummary, []models.Outcome) {
	start := time.Now()
	summary := &BatchSummary{
		RunID:        uuid.NewString(),
		Total:        len(docs),
		DeadLettered: map[models.ErrorKind]int{},
	}
	o.logger.Info("batch.start", "run_id", summary.RunID, "documents", len(docs), "concurrency", o.cfg.Concurrency)

	outcomes := make([]models.Outcome, len(docs))
	sem := make(chan struct{}, o.cfg.Concurrency)
	var wg sync.WaitGroup

	pending := 0
	for i := range docs {
		// Racing the slot acquisition against cancellation keeps documents
		// queued behind a full pool from starting after the batch is
		// cancelled.
		if ctx.Err() == nil {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			pending = len(docs) - i
			for j := i; j < len(docs); j++ {
				outcomes[j] = models.Outcome{Document: docs[j]}
			}
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = o.processOne(ctx, docs[i])
		}(i)
	}
	wg.Wait()

	summary.Pending = pending
	for _, out := range outcomes {
		switch {
		case out.Result != nil:
			summary.Succeeded++
		case out.DeadLetter != nil:
			summary.DeadLettered[out.DeadLetter.Reason]++
		}
	}
	summary.Elapsed = time.Since(start)
	o.logger.Info("batch.done",
		"run_id", summary.RunID,
		"succeeded", summary.Succeeded,
		"dead_lettered", summary.Total-summary.Succeeded-summary.Pending,
		"pending", summary.Pending,
		"elapsed", summary.Elapsed.Round(time.Millisecond))
	return summary, outcomes
}

// processOne runs a single statement end to end under its own timeout. The
// timeout derives from an uncancellable parent so batch cancellation never
// aborts a statement already in flight.
func (o *Orchestrator) processOne(parent context.Context, doc models.StatementDocument) models.Outcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), o.cfg.StatementTimeout)
	defer cancel()

	start := time.Now()
	result, err := o.runStages(ctx, doc)
	if err != nil {
		kind := models.KindOf(err)
		if kind == "" {
			kind = models.ErrInternal
		}
		o.logger.Warn("statement.dead_letter", "symbol", doc.Symbol, "source_ref", doc.SourceRef, "reason", string(kind), "error", err)
		return models.Outcome{
			Document:   doc,
			DeadLetter: &models.DeadLetter{Reason: kind, Detail: err.Error()},
		}
	}
	o.logger.Info("statement.ok",
		"symbol", doc.Symbol,
		"source_ref", doc.SourceRef,
		"score", result.Quality.Score,
		"group_level", string(result.GroupLevel),
		"elapsed_ms", time.Since(start).Milliseconds())
	return models.Outcome{Document: doc, Result: result}
}

func (o *Orchestrator) runStages(ctx context.Context, doc models.StatementDocument) (*models.ExtractionResult, error) {
	prepared, err := preprocess.Prepare(doc, o.cfg.Preprocess)
	if err != nil {
		return nil, err
	}

	candidate, err := o.extractor.Extract(ctx, doc, prepared, o.def)
	if err != nil {
		return nil, err
	}

	report := validate.Validate(candidate, o.def)
	score := quality.Score(report, candidate, o.cfg.Quality)
	label := o.labeler.Classify(doc, prepared, candidate)

	result := &models.ExtractionResult{
		Symbol:          doc.Symbol,
		Period:          doc.Period,
		SourceRef:       doc.SourceRef,
		Values:          report.Canonical,
		Report:          report,
		Quality:         score,
		GroupLevel:      label,
		ProcessedAt:     time.Now().UTC(),
		PipelineVersion: o.cfg.PipelineVersion,
	}
	if err := o.results.Upsert(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}
