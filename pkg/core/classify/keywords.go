package classify

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadKeywords parses a statement-mapping CSV into a symbol-to-keywords map
// for the classifier. The file has a header row with at least "Symbol" and
// "Associated Title Key Words" columns; the keywords column may hold the
// literal string "None" for symbols whose statements need no extra markers.
func LoadKeywords(r io.Reader) (map[string][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading mapping header: %w", err)
	}
	symbolCol, keywordsCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Symbol":
			symbolCol = i
		case "Associated Title Key Words":
			keywordsCol = i
		}
	}
	if symbolCol < 0 || keywordsCol < 0 {
		return nil, fmt.Errorf("mapping csv missing Symbol or Associated Title Key Words column")
	}

	keywords := make(map[string][]string)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading mapping row: %w", err)
		}
		if symbolCol >= len(row) || keywordsCol >= len(row) {
			continue
		}
		symbol := strings.TrimSpace(row[symbolCol])
		if symbol == "" {
			continue
		}
		raw := strings.TrimSpace(row[keywordsCol])
		if raw == "" || raw == "None" {
			continue
		}
		for _, kw := range strings.Split(raw, ";") {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			keywords[symbol] = append(keywords[symbol], kw)
		}
	}
	return keywords, nil
}

// LoadKeywordsFile reads a statement-mapping CSV from disk.
func LoadKeywordsFile(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mapping csv %s: %w", path, err)
	}
	defer f.Close()
	return LoadKeywords(f)
}
