package models

import "time"

// ValidationReport partitions the schema's required keys against one
// candidate. Invariant: Present and Missing are disjoint and their union is
// exactly the schema's required key set.
type ValidationReport struct {
	Present        []string `json:"present"`
	Missing        []string `json:"missing"`
	Unexpected     []string `json:"unexpected"`
	TypeMismatches []string `json:"type_mismatches"`

	// Canonical maps schema keys to coerced values for every candidate key
	// that canonicalized and type-checked cleanly (required or optional).
	Canonical map[string]any `json:"canonical"`
}

// Deficiency flag names attached to a QualityScore.
const (
	FlagIncomplete      = "incomplete"
	FlagLowConfidence   = "low_confidence"
	FlagSchemaViolation = "schema_violation"
	FlagEmpty           = "empty_extraction"
	FlagEvaluatorFailed = "evaluator_failed"
)

// QualityScore is a bounded score in [0,1] plus named deficiency flags,
// derived deterministically from a ValidationReport and the candidate.
type QualityScore struct {
	Score float64  `json:"score"`
	Flags []string `json:"flags"`
}

// HasFlag reports whether a named deficiency was raised.
func (q QualityScore) HasFlag(name string) bool {
	for _, f := range q.Flags {
		if f == name {
			return true
		}
	}
	return false
}

// GroupLevelLabel is the reporting-hierarchy classification of a statement.
type GroupLevelLabel string

const (
	ConsolidatedAnnual  GroupLevelLabel = "consolidated_annual"
	StandaloneAnnual    GroupLevelLabel = "standalone_annual"
	ConsolidatedInterim GroupLevelLabel = "consolidated_interim"
	StandaloneInterim   GroupLevelLabel = "standalone_interim"
	GroupLevelUnknown   GroupLevelLabel = "unknown"
)

// ExtractionResult is the final persisted unit for one statement. Identity
// (symbol, period, source ref) is the upsert key; re-processing overwrites.
type ExtractionResult struct {
	Symbol    string `json:"symbol"`
	Period    string `json:"period"`
	SourceRef string `json:"source_ref"`

	Values     map[string]any   `json:"values"` // canonical schema keys only
	Report     ValidationReport `json:"report"`
	Quality    QualityScore     `json:"quality"`
	GroupLevel GroupLevelLabel  `json:"group_level"`

	ProcessedAt     time.Time `json:"processed_at"`
	PipelineVersion string    `json:"pipeline_version"`
}

// Identity mirrors StatementDocument.Identity for the persisted record.
func (r *ExtractionResult) Identity() string {
	return r.Symbol + "|" + r.Period + "|" + r.SourceRef
}

// Outcome is the terminal state of one statement in a batch run: at most one
// of Result or DeadLetter is set. Both nil means the statement never started
// because the batch was cancelled first.
type Outcome struct {
	Document   StatementDocument
	Result     *ExtractionResult
	DeadLetter *DeadLetter
}

// DeadLetter records a per-statement failure. It is retained for inspection,
// never silently dropped, and never aborts the rest of the batch.
type DeadLetter struct {
	Reason ErrorKind `json:"reason"`
	Detail string    `json:"detail"`
}
