package models

// CandidateMetadata holds the statement-level properties the backend predicts
// alongside the line items. These are hints, not ground truth: the classifier
// uses them only after explicit metadata and textual markers fail to resolve.
type CandidateMetadata struct {
	StatementType  string `json:"statement_type,omitempty"`
	Period         string `json:"period,omitempty"` // "Q1" | "Q2" | "Q3" | "FY"
	GroupOrCompany string `json:"group_or_company,omitempty"`
	ReportDate     string `json:"report_date,omitempty"`
}

// ExtractionCandidate is the raw structured output of one extraction run,
// before validation. Keys are whatever the backend produced; values are
// whatever JSON types survived parsing. Created fresh per attempt.
type ExtractionCandidate struct {
	Values   map[string]any
	Metadata CandidateMetadata
	// Confidence is backend-reported, [0,1]. It is meaningful only when
	// ConfidenceReported is set; the confidence field is optional in the
	// response and an absent one is not a low one.
	Confidence         float64
	ConfidenceReported bool
	Rationale          string

	// Attempts is how many full extraction rounds it took to produce this
	// candidate (1 = first try).
	Attempts int

	// EvaluatorFailed is set when the self-evaluation pass judged the final
	// attempt FAIL but the attempt budget was exhausted; the candidate still
	// flows downstream and the quality evaluator flags it.
	EvaluatorFailed bool
}

// Empty reports whether the backend returned a parseable response with no
// line items at all. An empty candidate is valid input for validation.
func (c *ExtractionCandidate) Empty() bool {
	return len(c.Values) == 0
}
