package analyze

import (
	"encoding/json"
	"regexp"
	"strings"
)

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// recoverReport parses a model payload into a Report, degrading gracefully:
// markdown fences are stripped, prose around the outermost braces is
// sliced away, one trailing-comma normalization pass is retried, and any
// missing or wrong-typed field is defaulted individually rather than
// discarding the rest of the payload.
func recoverReport(raw string) (Report, bool) {
	s := stripFences(strings.TrimSpace(raw))

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return Report{}, false
	}
	s = s[start : end+1]

	var payload map[string]any
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		normalized := trailingComma.ReplaceAllString(s, "$1")
		if err := json.Unmarshal([]byte(normalized), &payload); err != nil {
			return Report{}, false
		}
	}

	report := Report{
		Score:        asInt(payload["score"]),
		Summary:      asString(payload["summary"]),
		Strengths:    asStringList(payload["strengths"]),
		Improvements: asStringList(payload["improvements"]),
	}
	if metrics, ok := payload["metrics"].(map[string]any); ok {
		report.Metrics = SubMetrics{
			Technical:     asInt(metrics["technical"]),
			Communication: asInt(metrics["communication"]),
			Structure:     asInt(metrics["structure"]),
			Clarity:       asInt(metrics["clarity"]),
			Confidence:    asInt(metrics["confidence"]),
		}
	}
	return report, true
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		var f float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(n)), &f); err == nil {
			return int(f)
		}
	}
	return 0
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{listPlaceholder}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{listPlaceholder}
	}
	return out
}
