package sections

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizationError reports that no valid JSON object could be extracted
// from a model response. RawText carries the original response for diagnosis;
// callers persist it with the failed section rather than dropping it.
type NormalizationError struct {
	Reason  string
	RawText string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize response: %s", e.Reason)
}

// Normalize extracts a JSON object from raw model text. Models wrap answers
// in markdown fences, surround them with prose, or nest them under the
// section's own name; normalization undoes all three. The steps run in
// order:
//  1. take the interior of a ```json fenced block if one exists,
//  2. otherwise take the span from the first '{' to the last '}',
//  3. parse as JSON,
//  4. unwrap {"<sectionID>": {...}} when the object has exactly that one key.
func Normalize(raw string, expected ID) (json.RawMessage, error) {
	candidate, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, &NormalizationError{Reason: fmt.Sprintf("parse JSON: %v", err), RawText: raw}
	}

	unwrapped := unwrapSectionKey(parsed, expected)
	out, err := json.Marshal(unwrapped)
	if err != nil {
		return nil, &NormalizationError{Reason: fmt.Sprintf("reserialize: %v", err), RawText: raw}
	}
	return out, nil
}

func extractJSON(raw string) (string, error) {
	if fenced, ok := extractFencedBlock(raw); ok {
		return fenced, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 {
		return "", &NormalizationError{Reason: "no JSON object found", RawText: raw}
	}
	// A last '}' before the first '{' means the text is malformed; a
	// best-effort parse would only hide it.
	if end < start {
		return "", &NormalizationError{Reason: "malformed JSON span", RawText: raw}
	}
	return raw[start : end+1], nil
}

func extractFencedBlock(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	open := strings.Index(lower, "```json")
	if open == -1 {
		return "", false
	}
	rest := raw[open+len("```json"):]
	close := strings.Index(rest, "```")
	if close == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:close]), true
}

// unwrapSectionKey undoes the {"<sectionID>": {...}} wrapper some models add.
// It only fires when the object has exactly one key and that key equals the
// expected section ID, and the wrapped value is itself an object.
func unwrapSectionKey(parsed map[string]json.RawMessage, expected ID) map[string]json.RawMessage {
	if len(parsed) != 1 {
		return parsed
	}
	inner, ok := parsed[string(expected)]
	if !ok {
		return parsed
	}
	var unwrapped map[string]json.RawMessage
	if err := json.Unmarshal(inner, &unwrapped); err != nil {
		return parsed
	}
	return unwrapped
}
