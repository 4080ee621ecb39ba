package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"jse_extractor/pkg/models"
)

// refDatePattern matches the trailing -Month-DD-YYYY date statement files
// carry in their names, e.g. "...-december-31-2023.csv".
var refDatePattern = regexp.MustCompile(`-([a-zA-Z]+)-(\d{1,2})-(\d{4})\.[a-z]+$`)

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

// ParseDocumentRef derives document metadata from its bucket key. The layout
// is CSV/<SYMBOL>/<statement>-Month-DD-YYYY.<ext>, with audited statements
// filed under an "audited" path element. Fields that cannot be derived stay
// empty; only the source ref itself is guaranteed.
func ParseDocumentRef(ref string) models.StatementDocument {
	doc := models.StatementDocument{
		SourceRef: ref,
		Format:    formatFromExt(ref),
	}

	// The symbol is the path element after the top-level CSV/ directory;
	// audited/unaudited subdirectories may sit between it and the file.
	parts := strings.Split(ref, "/")
	switch {
	case len(parts) >= 3 && strings.EqualFold(parts[0], "csv"):
		doc.Symbol = strings.ToUpper(parts[1])
	case len(parts) >= 2:
		doc.Symbol = strings.ToUpper(parts[len(parts)-2])
	}

	lower := strings.ToLower(ref)
	switch {
	case strings.Contains(lower, "unaudited"):
		doc.FilingType = "unaudited interim statement"
	case strings.Contains(lower, "audited"):
		doc.FilingType = "audited annual statement"
	}

	if date, ok := parseRefDate(ref); ok {
		doc.FilingDate = date
		doc.Period = periodLabel(date, lower)
	}
	return doc
}

// parseRefDate reads the trailing -Month-DD-YYYY date from a ref and
// returns it as YYYY-MM-DD.
func parseRefDate(ref string) (string, bool) {
	m := refDatePattern.FindStringSubmatch(strings.ToLower(ref))
	if m == nil {
		return "", false
	}
	month, ok := monthNumbers[m[1]]
	if !ok {
		return "", false
	}
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// periodLabel builds the reporting-period label from the filing date and
// the duration hints in the key.
func periodLabel(date string, lowerRef string) string {
	year := date[:4]
	switch {
	case strings.Contains(lowerRef, "three_months"):
		return year + "-Q1"
	case strings.Contains(lowerRef, "six_months"):
		return year + "-Q2"
	case strings.Contains(lowerRef, "nine_months"):
		return year + "-Q3"
	}
	return year + "-FY"
}

func formatFromExt(ref string) models.DocumentFormat {
	lower := strings.ToLower(ref)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return models.FormatCSV
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return models.FormatHTML
	case strings.HasSuffix(lower, ".md"):
		return models.FormatMarkdown
	case strings.HasSuffix(lower, ".txt"):
		return models.FormatText
	}
	return models.FormatUnknown
}
