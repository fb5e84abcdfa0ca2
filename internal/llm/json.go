package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSONArray pulls the first JSON array out of a model response.
// Models frequently wrap JSON in prose or code fences; we take the span
// between the first '[' and the last ']' and validate it parses.
func ExtractJSONArray(raw string) (string, bool) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}

	candidate := raw[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	return candidate, true
}

// DecodeStringArray extracts and decodes a JSON array of strings.
func DecodeStringArray(raw string) ([]string, bool) {
	candidate, ok := ExtractJSONArray(raw)
	if !ok {
		return nil, false
	}

	var out []string
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return nil, false
	}
	return out, true
}
