package models

import "strings"

// DocumentFormat identifies the on-disk format of a statement document.
type DocumentFormat string

const (
	FormatCSV      DocumentFormat = "csv"
	FormatHTML     DocumentFormat = "html"
	FormatMarkdown DocumentFormat = "markdown"
	FormatText     DocumentFormat = "text"
	FormatUnknown  DocumentFormat = "unknown"
)

// StatementDocument is one financial filing as handed to the pipeline.
// It is immutable once ingested; every stage reads it, none mutates it.
type StatementDocument struct {
	Symbol     string         // equity ticker on the exchange, e.g. "WISYNCO"
	Period     string         // reporting period label, e.g. "2023-FY", "2024-Q3"
	SourceRef  string         // source locator (S3 key or file path)
	FilingType string         // declared filing-type metadata, e.g. "consolidated annual report"; may be empty
	FilingDate string         // YYYY-MM-DD when known
	Format     DocumentFormat // declared format; FormatUnknown triggers sniffing
	Language   string         // ISO 639-1 code when detected upstream
	Content    []byte
}

// Identity is the upsert key for results derived from this document.
// Reprocessing the same identity overwrites the prior result.
func (d StatementDocument) Identity() string {
	return strings.Join([]string{d.Symbol, d.Period, d.SourceRef}, "|")
}

// Segment is one bounded slice of a prepared document. Order matters:
// segment 0 carries the header rows (entity, period, column labels).
type Segment struct {
	Index int
	Text  string
}

// PreparedInput is the model-ready form of a StatementDocument.
type PreparedInput struct {
	Segments []Segment
	Format   DocumentFormat
	Language string
}

// Text joins all segments back into a single string, in order.
func (p PreparedInput) Text() string {
	var b strings.Builder
	for i, seg := range p.Segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}
