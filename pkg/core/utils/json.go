// Package utils holds the lenient-parsing helpers used to turn raw LLM text
// into JSON the rest of the pipeline can trust.
package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// StripCodeFence removes a wrapping markdown code block (```json ... ```)
// and surrounding whitespace from model output.
func StripCodeFence(input string) string {
	s := strings.TrimSpace(input)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// ExtractJSONObject slices out the outermost {...} from text that may carry
// conversational filler around the payload. Returns the input unchanged when
// no braces are found.
func ExtractJSONObject(input string) string {
	start := strings.Index(input, "{")
	end := strings.LastIndex(input, "}")
	if start >= 0 && end > start {
		return input[start : end+1]
	}
	return input
}

// SmartUnmarshal tries progressively more forgiving strategies to decode
// model output into target:
//
//  1. strict encoding/json
//  2. json-repair (unquoted keys, trailing commas, unclosed brackets)
//  3. hjson (comments, optional commas, unquoted strings)
//
// The returned string is the JSON that actually decoded, for logging and
// re-prompt context.
func SmartUnmarshal(input string, target any) (string, error) {
	cleaned := ExtractJSONObject(StripCodeFence(input))

	if err := json.Unmarshal([]byte(cleaned), target); err == nil {
		return cleaned, nil
	}

	if repaired, err := jsonrepair.RepairJSON(cleaned); err == nil {
		if err := json.Unmarshal([]byte(repaired), target); err == nil {
			return repaired, nil
		}
	}

	var loose any
	if err := hjson.Unmarshal([]byte(cleaned), &loose); err == nil {
		if b, err := json.Marshal(loose); err == nil {
			if err := json.Unmarshal(b, target); err == nil {
				return string(b), nil
			}
		}
	}

	return "", fmt.Errorf("no parsing strategy produced valid JSON (input %d bytes)", len(input))
}
