package extraction

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/fault"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
)

// Language models wrap JSON in commentary and fences and emit almost-JSON:
// trailing commas, unquoted keys, bare date literals. RepairJSON tolerates all
// of that, then parses strictly.

var (
	// trailing commas before a closing brace or bracket
	reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)
	// bare identifier keys: { foo: 1 } -> { "foo": 1 }
	reBareKey = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	// bare date literals: : 2025-01-02, -> : "2025-01-02",
	reBareDate = regexp.MustCompile(`:\s*(\d{4}-\d{2}(?:-\d{2})?)\s*([,}\]])`)
	// bare simple string values: : open, -> : "open",
	reBareValue = regexp.MustCompile(`:\s*([A-Za-z][A-Za-z0-9 _\-]*?)\s*([,}])`)
)

// previewLen limits how much malformed output reaches the log.
const previewLen = 300

// RepairJSON parses model output that may contain commentary, markdown
// fences, and tolerable JSON defects into a raw bureaus payload.
func RepairJSON(content string, logger *zap.Logger) (*report.RawPayload, error) {
	cleaned := stripFences(content)

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start < 0 || end <= start {
		return nil, fault.New(fault.JSONParse, "no JSON object in model output")
	}
	cleaned = cleaned[start : end+1]

	var payload report.RawPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil {
		return &payload, nil
	}

	repaired := reTrailingComma.ReplaceAllString(cleaned, "$1")
	repaired = reBareKey.ReplaceAllString(repaired, `$1"$2":`)
	repaired = reBareDate.ReplaceAllString(repaired, `: "$1"$2`)
	repaired = repairBareValues(repaired)

	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		preview := repaired
		if len(preview) > previewLen {
			preview = preview[:previewLen]
		}
		if logger != nil {
			logger.Warn("model output is not valid JSON after repair", zap.String("preview", preview))
		}
		return nil, fault.Wrap(fault.JSONParse, err)
	}
	return &payload, nil
}

// stripFences removes markdown code fences around the payload.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// repairBareValues quotes simple bare word values in `: value,` positions
// while leaving numbers, booleans, and null intact.
func repairBareValues(s string) string {
	return reBareValue.ReplaceAllStringFunc(s, func(m string) string {
		sub := reBareValue.FindStringSubmatch(m)
		val, tail := sub[1], sub[2]
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "false", "null":
			return m
		}
		return `: "` + strings.TrimSpace(val) + `"` + tail
	})
}
