// Package classify assigns each extraction a group-level label describing
// scope (consolidated vs standalone) and duration (annual vs interim).
// Classification is deterministic and never calls the backend: it works from
// declared filing metadata, textual markers and the backend-predicted
// metadata already attached to the candidate.
package classify

import (
	"strings"

	"jse_extractor/pkg/models"
)

// Classifier resolves group-level labels. Keywords maps a symbol to extra
// phrases that mark its consolidated statements, on top of the built-in
// markers. Issuers title their consolidated statements inconsistently, so
// the per-symbol list comes from reviewed batch output.
type Classifier struct {
	Keywords map[string][]string
}

var (
	consolidatedMarkers = []string{"consolidated", "group statement", "the group"}
	standaloneMarkers   = []string{"company statement", "company only", "standalone", "separate financial statements"}
	interimMarkers      = []string{"interim", "quarter ended", "three months", "six months", "nine months", "unaudited"}
	annualMarkers       = []string{"year ended", "annual report", "audited"}
)

// Classify resolves scope and duration independently, each through the same
// priority order: declared filing metadata, then textual markers, then
// backend-predicted metadata. If either dimension stays unresolved the label
// is unknown. Within the marker tier, consolidated outranks standalone and
// interim outranks annual: interim filings quote annual figures in their
// comparative columns, so annual wording alone proves nothing.
func (c *Classifier) Classify(doc models.StatementDocument, prepared models.PreparedInput, candidate *models.ExtractionCandidate) models.GroupLevelLabel {
	header := headerText(doc, prepared)

	scope := c.scopeFromDeclared(doc)
	if scope == "" {
		scope = c.scopeFromText(doc.Symbol, header)
	}
	if scope == "" {
		scope = scopeFromPrediction(candidate)
	}

	duration := durationFromDeclared(doc)
	if duration == "" {
		duration = durationFromText(header)
	}
	if duration == "" {
		duration = durationFromPrediction(candidate)
	}

	switch {
	case scope == "consolidated" && duration == "annual":
		return models.ConsolidatedAnnual
	case scope == "consolidated" && duration == "interim":
		return models.ConsolidatedInterim
	case scope == "standalone" && duration == "annual":
		return models.StandaloneAnnual
	case scope == "standalone" && duration == "interim":
		return models.StandaloneInterim
	}
	return models.GroupLevelUnknown
}

// headerText is the text the markers are matched against: the source ref
// plus the first segment, which carries the statement header.
func headerText(doc models.StatementDocument, prepared models.PreparedInput) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(doc.SourceRef))
	b.WriteByte('\n')
	if len(prepared.Segments) > 0 {
		seg := prepared.Segments[0].Text
		if len(seg) > 2000 {
			seg = seg[:2000]
		}
		b.WriteString(strings.ToLower(seg))
	}
	return b.String()
}

func (c *Classifier) scopeFromDeclared(doc models.StatementDocument) string {
	ft := strings.ToLower(doc.FilingType)
	switch {
	case strings.Contains(ft, "consolidated"), strings.Contains(ft, "group"):
		return "consolidated"
	case strings.Contains(ft, "standalone"), strings.Contains(ft, "company"):
		return "standalone"
	}
	return ""
}

func (c *Classifier) scopeFromText(symbol, header string) string {
	markers := consolidatedMarkers
	if extra, ok := c.Keywords[symbol]; ok {
		markers = append(append([]string{}, markers...), extra...)
	}
	for _, m := range markers {
		if strings.Contains(header, strings.ToLower(m)) {
			return "consolidated"
		}
	}
	for _, m := range standaloneMarkers {
		if strings.Contains(header, m) {
			return "standalone"
		}
	}
	return ""
}

func scopeFromPrediction(candidate *models.ExtractionCandidate) string {
	if candidate == nil {
		return ""
	}
	switch strings.ToLower(candidate.Metadata.GroupOrCompany) {
	case "group":
		return "consolidated"
	case "company":
		return "standalone"
	}
	return ""
}

func durationFromDeclared(doc models.StatementDocument) string {
	ft := strings.ToLower(doc.FilingType)
	switch {
	case strings.Contains(ft, "interim"), strings.Contains(ft, "quarter"), strings.Contains(ft, "unaudited"):
		return "interim"
	case strings.Contains(ft, "annual"), strings.Contains(ft, "audited"):
		return "annual"
	}
	return ""
}

func durationFromText(header string) string {
	for _, m := range interimMarkers {
		if strings.Contains(header, m) {
			return "interim"
		}
	}
	for _, m := range annualMarkers {
		if strings.Contains(header, m) {
			return "annual"
		}
	}
	return ""
}

func durationFromPrediction(candidate *models.ExtractionCandidate) string {
	if candidate == nil {
		return ""
	}
	switch strings.ToUpper(candidate.Metadata.Period) {
	case "FY":
		return "annual"
	case "Q1", "Q2", "Q3":
		return "interim"
	}
	return ""
}
