// Package quality turns a validation report into a single score with flags.
// Scoring is deterministic and monotonic: adding a present required field
// never lowers the score.
package quality

import (
	"jse_extractor/pkg/models"
)

// Config holds the scoring knobs.
type Config struct {
	// TypeMismatchPenalty is subtracted per type-mismatched field.
	TypeMismatchPenalty float64
	// LowConfidencePenalty is subtracted once when the backend reported a
	// confidence below ConfidenceThreshold. A candidate with no reported
	// confidence is never penalized.
	LowConfidencePenalty float64
	// ConfidenceThreshold is the confidence below which a candidate is
	// flagged low_confidence.
	ConfidenceThreshold float64
}

// DefaultConfig matches the calibration used in production batches.
func DefaultConfig() Config {
	return Config{
		TypeMismatchPenalty:  0.05,
		LowConfidencePenalty: 0.1,
		ConfidenceThreshold:  0.5,
	}
}

// Score computes completeness as present over required, subtracts the fixed
// penalties and clamps to [0, 1]. Flags record the reasons so downstream
// consumers never re-derive them from the number.
func Score(report models.ValidationReport, candidate *models.ExtractionCandidate, cfg Config) models.QualityScore {
	required := len(report.Present) + len(report.Missing)

	var base float64
	if required > 0 {
		base = float64(len(report.Present)) / float64(required)
	}

	score := base
	score -= cfg.TypeMismatchPenalty * float64(len(report.TypeMismatches))

	var flags []string
	if len(report.Missing) > 0 {
		flags = append(flags, models.FlagIncomplete)
	}
	if len(report.TypeMismatches) > 0 {
		flags = append(flags, models.FlagSchemaViolation)
	}
	if candidate.ConfidenceReported && candidate.Confidence < cfg.ConfidenceThreshold {
		score -= cfg.LowConfidencePenalty
		flags = append(flags, models.FlagLowConfidence)
	}
	if candidate.Empty() {
		flags = append(flags, models.FlagEmpty)
	}
	if candidate.EvaluatorFailed {
		flags = append(flags, models.FlagEvaluatorFailed)
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return models.QualityScore{Score: score, Flags: flags}
}
