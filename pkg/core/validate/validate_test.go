package validate

import (
	"testing"

	"jse_extractor/pkg/core/schema"
	"jse_extractor/pkg/models"
)

func loadSchema(t *testing.T) *schema.Definition {
	t.Helper()
	def, err := schema.Load("")
	if err != nil {
		t.Fatal(err)
	}
	return def
}

func TestValidatePartition(t *testing.T) {
	def := loadSchema(t)
	c := &models.ExtractionCandidate{Values: map[string]any{
		"revenue":    1000.0,
		"net_income": 120.5,
		"goodwill":   50.0,
	}}

	report := Validate(c, def)

	// Present and missing must partition the required key set.
	total := len(report.Present) + len(report.Missing)
	if want := len(def.RequiredKeys()); total != want {
		t.Errorf("present+missing = %d, want %d", total, want)
	}
	seen := map[string]bool{}
	for _, k := range report.Present {
		seen[k] = true
	}
	for _, k := range report.Missing {
		if seen[k] {
			t.Errorf("key %q both present and missing", k)
		}
	}
	if len(report.Present) != 2 {
		t.Errorf("present = %v, want revenue and net_income", report.Present)
	}
	if len(report.Unexpected) != 1 || report.Unexpected[0] != "goodwill" {
		t.Errorf("unexpected = %v, want [goodwill]", report.Unexpected)
	}
}

// A raw label that is a registered synonym counts toward the canonical key.
func TestValidateSynonymResolution(t *testing.T) {
	def := loadSchema(t)
	c := &models.ExtractionCandidate{Values: map[string]any{
		"Gross Profit Margin": 0.42,
		"Turnover":            900.0,
	}}

	report := Validate(c, def)

	if v, ok := report.Canonical["gross_margin"]; !ok || v != 0.42 {
		t.Errorf("gross_margin = %v (%t), want 0.42", v, ok)
	}
	if v, ok := report.Canonical["revenue"]; !ok || v != 900.0 {
		t.Errorf("revenue = %v (%t), want 900", v, ok)
	}
	if len(report.Unexpected) != 0 {
		t.Errorf("unexpected = %v, want none", report.Unexpected)
	}
}

func TestValidateTypeMismatch(t *testing.T) {
	def := loadSchema(t)
	c := &models.ExtractionCandidate{Values: map[string]any{
		"revenue":     "not a number",
		"report_date": "31/12/2023",
		"eps":         1.25,
	}}

	report := Validate(c, def)

	want := []string{"report_date", "revenue"}
	if len(report.TypeMismatches) != len(want) {
		t.Fatalf("type mismatches = %v, want %v", report.TypeMismatches, want)
	}
	for i, k := range want {
		if report.TypeMismatches[i] != k {
			t.Errorf("type mismatches = %v, want %v", report.TypeMismatches, want)
		}
	}
	for _, k := range report.Present {
		if k == "revenue" {
			t.Error("mismatched revenue must not count as present")
		}
	}
}

// When one spelling of a field fails coercion but a synonym parses cleanly,
// the field is present and not a type mismatch.
func TestValidateSynonymRepairsMismatch(t *testing.T) {
	def := loadSchema(t)
	c := &models.ExtractionCandidate{Values: map[string]any{
		"revenue":  "n/a",
		"turnover": "1,000",
	}}

	report := Validate(c, def)

	if v, ok := report.Canonical["revenue"]; !ok || v != 1000.0 {
		t.Errorf("revenue = %v (%t), want 1000", v, ok)
	}
	if len(report.TypeMismatches) != 0 {
		t.Errorf("type mismatches = %v, want none", report.TypeMismatches)
	}
	present := false
	for _, k := range report.Present {
		if k == "revenue" {
			present = true
		}
	}
	if !present {
		t.Errorf("present = %v, want revenue", report.Present)
	}
}

func TestValidateNumericStrings(t *testing.T) {
	def := loadSchema(t)
	c := &models.ExtractionCandidate{Values: map[string]any{
		"revenue":        "9,991,807",
		"net_income":     "(120,500)",
		"report_date":    "2023-12-31",
		"total_assets":   "$1,234.50",
		"dividends_paid": "85,000[a]",
	}}

	report := Validate(c, def)

	checks := map[string]any{
		"revenue":        9991807.0,
		"net_income":     -120500.0,
		"report_date":    "2023-12-31",
		"total_assets":   1234.5,
		"dividends_paid": 85000.0,
	}
	for key, want := range checks {
		if got := report.Canonical[key]; got != want {
			t.Errorf("%s = %v, want %v", key, got, want)
		}
	}
}

func TestValidateDeterministic(t *testing.T) {
	def := loadSchema(t)
	c := &models.ExtractionCandidate{Values: map[string]any{
		"revenue": 1.0, "eps": 2.0, "roe": 3.0, "roa": 4.0, "capex": 5.0,
	}}
	a := Validate(c, def)
	b := Validate(c, def)
	if len(a.Present) != len(b.Present) || len(a.Missing) != len(b.Missing) {
		t.Fatal("two runs disagree")
	}
	for i := range a.Present {
		if a.Present[i] != b.Present[i] {
			t.Fatalf("present order differs: %v vs %v", a.Present, b.Present)
		}
	}
}

func TestCleanNumeric(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"9,991,807", 9991807, true},
		{"(1,234)", -1234, true},
		{"-42.5", -42.5, true},
		{"$1,000.25", 1000.25, true},
		{"85,000[a]", 85000, true},
		{"(0)", 0, true},
		{"0.42", 0.42, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"()", 0, false},
	}
	for _, tc := range cases {
		got, ok := CleanNumeric(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("CleanNumeric(%q) = (%v, %t), want (%v, %t)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
