package llm

import (
	"encoding/json"
	"log"
	"strings"
)

// RecoverJSONObject pulls a single JSON object out of raw oracle text. The
// oracle routinely wraps JSON in markdown fences or prose, or truncates it
// mid-object at the token budget, so parsing is layered: direct parse, then
// first balanced {...} span, then tail truncation at each closing brace.
// Returns an empty (non-nil) map when nothing can be recovered; never panics.
func RecoverJSONObject(raw string) map[string]interface{} {
	text := stripFences(raw)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return parsed
	}

	if span := balancedObjectSpan(text); span != "" {
		parsed = nil
		if err := json.Unmarshal([]byte(span), &parsed); err == nil {
			log.Println("WARNING: recovered oracle JSON after brace scan")
			return parsed
		}
	}

	trimmed := strings.TrimSpace(text)
	for idx := len(trimmed) - 1; idx >= 0; idx-- {
		if trimmed[idx] != '}' {
			continue
		}
		parsed = nil
		if err := json.Unmarshal([]byte(trimmed[:idx+1]), &parsed); err == nil {
			log.Println("WARNING: recovered oracle JSON after truncating tail")
			return parsed
		}
	}

	log.Printf("WARNING: failed to decode oracle JSON output: %.200s", raw)
	return map[string]interface{}{}
}

// balancedObjectSpan returns the substring covering the first balanced
// top-level {...}, tracking quoted strings and backslash escapes so braces
// inside string values do not affect the depth count.
func balancedObjectSpan(raw string) string {
	start := -1
	depth := 0
	inString := false
	escape := false
	for idx, ch := range raw {
		if escape {
			escape = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escape = true
			}
		case '"':
			inString = !inString
		case '{':
			if inString {
				continue
			}
			if depth == 0 {
				start = idx
			}
			depth++
		case '}':
			if inString || depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return raw[start : idx+len("}")]
			}
		}
	}
	return ""
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
