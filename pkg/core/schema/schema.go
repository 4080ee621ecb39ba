// Package schema holds the canonical line-item contract every extraction is
// validated against. The definition is loaded once at process start and is
// read-only afterwards, so concurrent pipeline runs share one instance.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"jse_extractor/pkg/models"
)

//go:embed schema.yaml
var defaultDefinition []byte

// FieldType is the expected value type for a canonical key.
type FieldType string

const (
	TypeNumber FieldType = "number"
	TypeString FieldType = "string"
	TypeDate   FieldType = "date"
)

// Field describes one canonical key.
type Field struct {
	Type     FieldType
	Group    string
	Required bool
}

// Definition is the immutable schema: canonical keys, their types and
// groupings, and the synonym table that folds raw keys onto them.
type Definition struct {
	fields   map[string]Field
	synonyms map[string]string
	required []string // sorted
}

type fileField struct {
	Type     string `yaml:"type"`
	Group    string `yaml:"group"`
	Required bool   `yaml:"required"`
}

type fileDefinition struct {
	Version  int                  `yaml:"version"`
	Fields   map[string]fileField `yaml:"fields"`
	Synonyms map[string]string    `yaml:"synonyms"`
}

// Load builds a Definition from the YAML file at path, or from the embedded
// default when path is empty. Any defect in the source fails the load
// entirely; there is no partial schema.
func Load(path string) (*Definition, error) {
	raw := defaultDefinition
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, models.NewError(models.ErrSchemaInit, "schema", err)
		}
		raw = b
	}
	return parse(raw)
}

func parse(raw []byte) (*Definition, error) {
	var fd fileDefinition
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, models.NewError(models.ErrSchemaInit, "schema", err)
	}
	if len(fd.Fields) == 0 {
		return nil, models.Errorf(models.ErrSchemaInit, "schema", "definition has no fields")
	}

	def := &Definition{
		fields:   make(map[string]Field, len(fd.Fields)),
		synonyms: make(map[string]string, len(fd.Synonyms)),
	}
	for key, f := range fd.Fields {
		norm := NormalizeKey(key)
		if norm != key {
			return nil, models.Errorf(models.ErrSchemaInit, "schema", "field %q is not in canonical form (want %q)", key, norm)
		}
		switch FieldType(f.Type) {
		case TypeNumber, TypeString, TypeDate:
		default:
			return nil, models.Errorf(models.ErrSchemaInit, "schema", "field %q has unknown type %q", key, f.Type)
		}
		def.fields[key] = Field{Type: FieldType(f.Type), Group: f.Group, Required: f.Required}
		if f.Required {
			def.required = append(def.required, key)
		}
	}
	for raw, target := range fd.Synonyms {
		if _, ok := def.fields[target]; !ok {
			return nil, models.Errorf(models.ErrSchemaInit, "schema", "synonym %q maps to unknown field %q", raw, target)
		}
		def.synonyms[NormalizeKey(raw)] = target
	}
	sort.Strings(def.required)
	return def, nil
}

// RequiredKeys returns the sorted required key set. The returned slice is a
// copy; callers may not mutate the definition through it.
func (d *Definition) RequiredKeys() []string {
	out := make([]string, len(d.required))
	copy(out, d.required)
	return out
}

// Field looks up a canonical key.
func (d *Definition) Field(key string) (Field, bool) {
	f, ok := d.fields[key]
	return f, ok
}

// Keys returns all canonical keys, sorted.
func (d *Definition) Keys() []string {
	out := make([]string, 0, len(d.fields))
	for k := range d.fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Canonicalize folds a raw key produced by the backend onto its canonical
// schema key. It is pure and idempotent: a canonical key maps to itself.
// The second return is false when the key resolves to nothing in the schema.
func (d *Definition) Canonicalize(raw string) (string, bool) {
	key := NormalizeKey(raw)
	if target, ok := d.synonyms[key]; ok {
		return target, true
	}
	if _, ok := d.fields[key]; ok {
		return key, true
	}
	return key, false
}

// NormalizeKey lowercases, trims, and squashes separators so that labels
// like "Gross Profit Margin:" and "gross-profit-margin" compare equal.
func NormalizeKey(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, ":")
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// String summarizes the definition for logs.
func (d *Definition) String() string {
	return fmt.Sprintf("schema{fields=%d required=%d synonyms=%d}", len(d.fields), len(d.required), len(d.synonyms))
}
