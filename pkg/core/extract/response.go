package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"jse_extractor/pkg/core/utils"
	"jse_extractor/pkg/models"
)

// rawResponse mirrors the JSON object the extraction prompt asks for.
type rawResponse struct {
	Metadata models.CandidateMetadata `json:"metadata"`
	Values   map[string]any           `json:"values"`
	// Confidence is optional in the response; nil means the backend did
	// not report one.
	Confidence *float64 `json:"confidence"`
	Rationale  string   `json:"rationale"`
}

// Evaluation mirrors the JSON object the evaluation prompt asks for.
type Evaluation struct {
	Judgment             string `json:"evaluation_judgment"`
	Reasoning            string `json:"evaluation_reasoning"`
	MissingPeriods       bool   `json:"missing_periods_found"`
	MissingGroupedTotals bool   `json:"missing_grouped_totals_found"`
}

func (e Evaluation) Passed() bool {
	return strings.EqualFold(e.Judgment, "PASS")
}

const responseSchemaJSON = `{
	"type": "object",
	"properties": {
		"metadata": {
			"type": "object",
			"properties": {
				"statement_type":   {"type": "string"},
				"period":           {"type": "string"},
				"group_or_company": {"type": "string"},
				"report_date":      {"type": "string"}
			}
		},
		"values":     {"type": "object"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"rationale":  {"type": "string"}
	},
	"required": ["metadata", "values"]
}`

var (
	responseSchemaOnce sync.Once
	responseSchema     *jsonschema.Schema
	responseSchemaErr  error
)

func compiledResponseSchema() (*jsonschema.Schema, error) {
	responseSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("response.json", bytes.NewReader([]byte(responseSchemaJSON))); err != nil {
			responseSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		responseSchema, responseSchemaErr = compiler.Compile("response.json")
	})
	return responseSchema, responseSchemaErr
}

// parseResponse decodes a model reply into a rawResponse. It tolerates code
// fences and mildly broken JSON, then checks the decoded document against
// the expected shape. The cleaned JSON text is returned for retry prompts.
func parseResponse(reply string) (*rawResponse, string, error) {
	cleaned := utils.ExtractJSONObject(utils.StripCodeFence(reply))

	var resp rawResponse
	decoded, err := utils.SmartUnmarshal(cleaned, &resp)
	if err != nil {
		return nil, "", err
	}

	sch, err := compiledResponseSchema()
	if err != nil {
		return nil, "", err
	}
	var doc any
	if err := json.Unmarshal([]byte(decoded), &doc); err != nil {
		return nil, "", err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, "", fmt.Errorf("response shape: %w", err)
	}
	return &resp, decoded, nil
}

func parseEvaluation(reply string) (*Evaluation, error) {
	cleaned := utils.ExtractJSONObject(utils.StripCodeFence(reply))
	var ev Evaluation
	if _, err := utils.SmartUnmarshal(cleaned, &ev); err != nil {
		return nil, err
	}
	if ev.Judgment == "" {
		return nil, fmt.Errorf("evaluation missing judgment")
	}
	return &ev, nil
}
