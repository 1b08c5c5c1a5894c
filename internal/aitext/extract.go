// Package aitext recovers structured JSON payloads from free-form model output.
//
// Models asked for "STRICT JSON" still wrap answers in code fences, prefix them with a
// "json" label or surround them with prose. Extraction narrows the text step by step
// and then parses strictly; failure to parse is reported as "no value", never as an error.
package aitext

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	quoteReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
	fencePattern     = regexp.MustCompile("```[a-zA-Z]*\\n([\\s\\S]*?)```")
	jsonLabelPattern = regexp.MustCompile(`(?i)^json\s*`)
	objectPattern    = regexp.MustCompile(`\{[\s\S]*\}`)
)

// Narrow applies the normalization steps and returns the candidate JSON text.
func Narrow(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}

	s = quoteReplacer.Replace(s)

	if m := fencePattern.FindStringSubmatch(s); m != nil && m[1] != "" {
		s = strings.TrimSpace(m[1])
	}

	s = strings.TrimSpace(jsonLabelPattern.ReplaceAllString(s, ""))

	// Greedy: first '{' to last '}'
	if obj := objectPattern.FindString(s); obj != "" {
		s = obj
	}
	return s
}

// Extract returns the first JSON object found in text, or ok=false.
func Extract(text string) (payload map[string]any, ok bool) {
	var v map[string]any
	if !ExtractInto(text, &v) || v == nil {
		return nil, false
	}
	return v, true
}

// ExtractInto decodes the narrowed text into v and reports whether decoding succeeded.
func ExtractInto(text string, v any) bool {
	s := Narrow(text)
	if s == "" {
		return false
	}
	return json.Unmarshal([]byte(s), v) == nil
}
