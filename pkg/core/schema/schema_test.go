package schema

import (
	"os"
	"path/filepath"
	"testing"

	"jse_extractor/pkg/models"
)

func TestLoadEmbeddedDefault(t *testing.T) {
	def, err := Load("")
	if err != nil {
		t.Fatalf("Load default: %v", err)
	}
	if got := len(def.RequiredKeys()); got != 15 {
		t.Errorf("required keys = %d, want 15", got)
	}
	if _, ok := def.Field("revenue"); !ok {
		t.Error("expected revenue field")
	}
	if _, ok := def.Field("report_date"); !ok {
		t.Error("expected report_date field")
	}
}

func TestLoadFailFast(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"no fields", "version: 1\n"},
		{"bad type", "version: 1\nfields:\n  revenue:\n    type: integer\n    group: income_statement\n    required: true\n"},
		{"bad field name", "version: 1\nfields:\n  Revenue Total:\n    type: number\n    group: income_statement\n    required: true\n"},
		{"dangling synonym", "version: 1\nfields:\n  revenue:\n    type: number\n    group: income_statement\n    required: true\nsynonyms:\n  turnover: sales\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "schema.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := models.KindOf(err); kind != models.ErrSchemaInit {
				t.Errorf("error kind = %q, want %q", kind, models.ErrSchemaInit)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := models.KindOf(err); kind != models.ErrSchemaInit {
		t.Errorf("error kind = %q, want %q", kind, models.ErrSchemaInit)
	}
}

func TestCanonicalize(t *testing.T) {
	def, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"revenue", "revenue", true},
		{"Revenue", "revenue", true},
		{"  Turnover  ", "revenue", true},
		{"Gross Profit Margin", "gross_margin", true},
		{"gross_profit_margin", "gross_margin", true},
		{"Earnings per Share:", "eps", true},
		{"Net cash from operating activities", "operating_cash_flow", true},
		{"Return on Equity", "roe", true},
		{"goodwill", "goodwill", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := def.Canonicalize(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Canonicalize(%q) = (%q, %t), want (%q, %t)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

// Canonicalizing an already canonical key must be a no-op, so exports can be
// re-validated without drifting.
func TestCanonicalizeIdempotent(t *testing.T) {
	def, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range def.Keys() {
		got, ok := def.Canonicalize(key)
		if !ok || got != key {
			t.Errorf("Canonicalize(%q) = (%q, %t), want identity", key, got, ok)
		}
	}
}

// Every synonym must resolve to a declared field so no mapping silently
// drops values.
func TestEverySynonymResolves(t *testing.T) {
	def, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	for _, syn := range []string{
		"turnover", "net_sales", "gross_profit_margin", "operating_profit",
		"net_profit", "profit_for_the_year", "earnings_per_share",
		"return_on_equity", "return_on_assets", "shareholders_equity",
		"total_current_assets", "total_current_liabilities",
		"cash_from_operations", "capital_expenditure", "dividends",
		"finance_costs",
	} {
		key, ok := def.Canonicalize(syn)
		if !ok {
			t.Errorf("synonym %q does not resolve", syn)
			continue
		}
		if _, exists := def.Field(key); !exists {
			t.Errorf("synonym %q resolves to unknown field %q", syn, key)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Total Assets", "total_assets"},
		{"  Total   Assets  ", "total_assets"},
		{"Total Assets:", "total_assets"},
		{"EPS (basic)", "eps_basic"},
		{"Profit/(loss) for the year", "profit_loss_for_the_year"},
	}
	for _, tc := range cases {
		if got := NormalizeKey(tc.raw); got != tc.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
