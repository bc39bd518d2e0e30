package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// Matches ```json\n{...}\n```, ```{...}```, ``` json{...}``` anywhere in the text
	codeFenceRegex = regexp.MustCompile(`(?s)` + "`" + `{3}(?:json|javascript|js)?\s*\n?(.*?)\n?` + "`" + `{3}`)

	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	unquotedKeyRegex   = regexp.MustCompile(`([{,]\s*)([a-zA-Z_$][a-zA-Z0-9_$]*)\s*:`)

	objectRegex = regexp.MustCompile(`(?s)\{.*\}`)
	arrayRegex  = regexp.MustCompile(`(?s)\[.*\]`)
)

// parseJSON decodes a model response into T. Models wrap JSON in code
// fences, leave trailing commas and surround it with prose, so each of those
// is stripped in turn before giving up.
func parseJSON[T any](text string) (T, error) {
	var out T
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return out, fmt.Errorf("empty response")
	}

	attempts := []string{trimmed}
	if m := codeFenceRegex.FindStringSubmatch(trimmed); m != nil {
		attempts = append(attempts, strings.TrimSpace(m[1]))
	}
	last := attempts[len(attempts)-1]
	cleaned := unquotedKeyRegex.ReplaceAllString(trailingCommaRegex.ReplaceAllString(last, "$1"), `$1"$2":`)
	attempts = append(attempts, cleaned)
	if extracted := extractJSON(cleaned); extracted != "" {
		attempts = append(attempts, extracted)
	}

	var firstErr error
	for _, candidate := range attempts {
		var v T
		err := json.Unmarshal([]byte(candidate), &v)
		if err == nil {
			return v, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return out, fmt.Errorf("response is not valid JSON (%v): %s", firstErr, truncate(trimmed, 100))
}

// extractJSON picks the object or array out of mixed content, preferring
// whichever the text opens with
func extractJSON(text string) string {
	if strings.HasPrefix(text, "[") {
		if m := arrayRegex.FindString(text); m != "" {
			return m
		}
	}
	if m := objectRegex.FindString(text); m != "" {
		return m
	}
	return arrayRegex.FindString(text)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
