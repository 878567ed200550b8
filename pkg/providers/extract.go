package providers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls a JSON document out of model output that may be
// wrapped in markdown or prose. Order of attempts: the text as-is, a
// fenced code block, then the first top-level {...} or [...] span.
func ExtractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("response is empty")
	}
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	if fenced, ok := extractFenced(trimmed); ok {
		return fenced, nil
	}

	start := strings.IndexAny(trimmed, "{[")
	if start == -1 {
		return "", fmt.Errorf("no JSON object or array found in response")
	}
	var end int
	if trimmed[start] == '{' {
		end = strings.LastIndex(trimmed, "}")
	} else {
		end = strings.LastIndex(trimmed, "]")
	}
	if end <= start {
		return "", fmt.Errorf("no matching closing brace found in response")
	}
	span := strings.TrimSpace(trimmed[start : end+1])
	if !json.Valid([]byte(span)) {
		return "", fmt.Errorf("extracted span is not valid JSON")
	}
	return span, nil
}

// ParseLoose extracts and decodes JSON from model output.
func ParseLoose(text string) (any, error) {
	jsonStr, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
		return nil, fmt.Errorf("extracted text is not valid JSON: %w", err)
	}
	return v, nil
}

func extractFenced(text string) (string, bool) {
	for _, marker := range []string{"```json", "```"} {
		idx := strings.Index(text, marker)
		if idx == -1 {
			continue
		}
		rest := text[idx+len(marker):]
		end := strings.Index(rest, "```")
		if end <= 0 {
			continue
		}
		candidate := strings.TrimSpace(rest[:end])
		if candidate != "" && json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}
