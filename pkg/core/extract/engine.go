// Package extract drives the inference backend: it prompts, parses, retries
// and self-evaluates until it has a structured candidate for one statement.
package extract

import (
	"context"
	"time"

	"jse_extractor/pkg/core/llm"
	"jse_extractor/pkg/core/schema"
	"jse_extractor/pkg/models"
)

// Config tunes the extraction engine.
type Config struct {
	// MaxAttempts bounds full extraction attempts per segment, the initial
	// attempt plus evaluation-driven retries. 0 means 2, matching one
	// initial attempt and one corrected retry.
	MaxAttempts int
	// MaxRetries bounds transient backend retries per call. 0 means 2.
	MaxRetries int
	// InitialBackoff is the first retry delay, doubled per retry. 0 means 1s.
	InitialBackoff time.Duration
	// EnableEvaluation turns on the self-evaluation pass after each
	// extraction attempt.
	EnableEvaluation bool
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	return c
}

// Engine turns prepared statement text into an ExtractionCandidate.
type Engine struct {
	provider llm.Provider
	cfg      Config

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

func NewEngine(provider llm.Provider, cfg Config) *Engine {
	return &Engine{
		provider: provider,
		cfg:      cfg.withDefaults(),
		sleep:    time.Sleep,
	}
}

// Extract runs the extraction loop over every segment and merges the partial
// candidates. Values merge first-wins in segment order; metadata comes from
// the first segment that produced any, which is the one carrying the
// statement header. A parseable response with no values is a valid candidate.
func (e *Engine) Extract(ctx context.Context, doc models.StatementDocument, input models.PreparedInput, def *schema.Definition) (*models.ExtractionCandidate, error) {
	if len(input.Segments) == 0 {
		return nil, models.Errorf(models.ErrInternal, "extract", "no segments for %s", doc.SourceRef)
	}

	merged := &models.ExtractionCandidate{
		Values: map[string]any{},
	}
	for _, seg := range input.Segments {
		part, err := e.extractSegment(ctx, doc, seg.Text, def)
		if err != nil {
			return nil, err
		}
		for k, v := range part.resp.Values {
			if _, seen := merged.Values[k]; !seen {
				merged.Values[k] = v
			}
		}
		if merged.Metadata == (models.CandidateMetadata{}) {
			merged.Metadata = part.resp.Metadata
		}
		if part.resp.Confidence != nil {
			c := *part.resp.Confidence
			if !merged.ConfidenceReported || c < merged.Confidence {
				merged.Confidence = c
			}
			merged.ConfidenceReported = true
		}
		if merged.Rationale == "" {
			merged.Rationale = part.resp.Rationale
		}
		merged.Attempts += part.attempts
		merged.EvaluatorFailed = merged.EvaluatorFailed || part.evaluatorFailed
	}
	return merged, nil
}

type segmentResult struct {
	resp            *rawResponse
	attempts        int
	evaluatorFailed bool
}

func (e *Engine) extractSegment(ctx context.Context, doc models.StatementDocument, segText string, def *schema.Definition) (*segmentResult, error) {
	var (
		prevOutput string
		feedback   *Evaluation
		last       *segmentResult
	)

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		prompt := BuildExtractionPrompt(doc, segText, def, prevOutput, feedback)
		reply, err := e.generate(ctx, extractionSystemPrompt, prompt)
		if err != nil {
			return nil, err
		}

		resp, decoded, perr := parseResponse(reply)
		if perr != nil {
			// One corrective re-prompt before giving up on the reply.
			reply, err = e.generate(ctx, extractionSystemPrompt, BuildCorrectivePrompt(prompt, reply))
			if err != nil {
				return nil, err
			}
			resp, decoded, perr = parseResponse(reply)
			if perr != nil {
				return nil, models.NewError(models.ErrUnparseableResponse, "extract", perr)
			}
		}
		last = &segmentResult{resp: resp, attempts: attempt}

		if !e.cfg.EnableEvaluation {
			return last, nil
		}

		evReply, err := e.generate(ctx, evaluationSystemPrompt, BuildEvaluationPrompt(doc, segText, decoded))
		if err != nil {
			// An evaluator outage never discards a parseable extraction.
			last.evaluatorFailed = true
			return last, nil
		}
		ev, perr := parseEvaluation(evReply)
		if perr != nil {
			last.evaluatorFailed = true
			return last, nil
		}
		if ev.Passed() {
			return last, nil
		}
		prevOutput, feedback = decoded, ev
	}

	// Attempt budget exhausted with the evaluator still unhappy. Keep the
	// last extraction and let scoring flag it.
	last.evaluatorFailed = true
	return last, nil
}

// generate calls the backend with bounded exponential backoff on transient
// failures. Permanent failures surface immediately.
func (e *Engine) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	backoff := e.cfg.InitialBackoff
	var lastErr error
	for try := 0; try <= e.cfg.MaxRetries; try++ {
		if try > 0 {
			e.sleep(backoff)
			backoff *= 2
		}
		if err := ctx.Err(); err != nil {
			return "", models.NewError(models.ErrBackendTransient, "extract", err)
		}
		reply, err := e.provider.Generate(ctx, systemPrompt, userPrompt)
		if err == nil {
			return reply, nil
		}
		if kind := llm.ClassifyBackendError(err); kind == models.ErrBackendPermanent {
			return "", models.NewError(models.ErrBackendPermanent, "extract", err)
		}
		lastErr = err
	}
	return "", models.NewError(models.ErrBackendTransient, "extract", lastErr)
}
