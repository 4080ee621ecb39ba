// Package validate checks an extraction candidate against the schema
// definition. Validation is pure: the same candidate and definition always
// produce the same report, and nothing here touches the network.
package validate

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"jse_extractor/pkg/core/schema"
	"jse_extractor/pkg/models"
)

// Validate canonicalizes the candidate's raw keys, coerces values to their
// declared types and partitions the schema's required keys into present and
// missing. Keys that resolve to no schema field are reported as unexpected.
// When two raw keys canonicalize to the same field the first one wins.
func Validate(c *models.ExtractionCandidate, def *schema.Definition) models.ValidationReport {
	report := models.ValidationReport{
		Canonical: map[string]any{},
	}

	rawKeys := make([]string, 0, len(c.Values))
	for k := range c.Values {
		rawKeys = append(rawKeys, k)
	}
	sort.Strings(rawKeys)

	mismatched := map[string]bool{}
	for _, raw := range rawKeys {
		key, ok := def.Canonicalize(raw)
		if !ok {
			report.Unexpected = append(report.Unexpected, raw)
			continue
		}
		if _, dup := report.Canonical[key]; dup {
			continue
		}
		field, _ := def.Field(key)
		coerced, ok := coerce(c.Values[raw], field.Type)
		if !ok {
			mismatched[key] = true
			continue
		}
		report.Canonical[key] = coerced
	}
	// A key is a type mismatch only when no raw spelling of it coerced; a
	// later synonym that parses cleanly repairs the earlier failure.
	for key := range mismatched {
		if _, ok := report.Canonical[key]; !ok {
			report.TypeMismatches = append(report.TypeMismatches, key)
		}
	}

	for _, key := range def.RequiredKeys() {
		if _, ok := report.Canonical[key]; ok {
			report.Present = append(report.Present, key)
		} else {
			report.Missing = append(report.Missing, key)
		}
	}
	sort.Strings(report.Present)
	sort.Strings(report.Missing)
	sort.Strings(report.Unexpected)
	sort.Strings(report.TypeMismatches)
	return report
}

func coerce(v any, t schema.FieldType) (any, bool) {
	switch t {
	case schema.TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case string:
			return CleanNumeric(n)
		}
		return nil, false
	case schema.TypeDate:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		s = strings.TrimSpace(s)
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return nil, false
		}
		return s, true
	case schema.TypeString:
		s, ok := v.(string)
		return s, ok
	}
	return nil, false
}

var footnoteTag = regexp.MustCompile(`\[[a-zA-Z0-9]+\]$`)

// CleanNumeric converts a reported financial figure to a float. It strips
// thousands separators, currency signs and trailing footnote tags, and reads
// parenthesized figures as negative.
func CleanNumeric(raw string) (float64, bool) {
	s := footnoteTag.ReplaceAllString(strings.TrimSpace(raw), "")
	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative && f > 0 {
		f = -f
	}
	return f, true
}
