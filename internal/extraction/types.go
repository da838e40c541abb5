// Package extraction converts one credit-report PDF into a raw bureaus
// payload. Three strategies are attempted in order under auto mode: the PDF's
// embedded text layer, OCR, and finally direct vision parsing. Failures never
// escape this package; exhaustion yields a fallback Result with a user-safe
// reason.
package extraction

import (
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
)

// Mode selects the extraction strategy ladder.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeOCR    Mode = "ocr"
	ModeVision Mode = "vision"
)

// Strategy names the path that produced a result.
type Strategy string

const (
	StrategyTextLayer Strategy = "text_layer"
	StrategyOCR       Strategy = "ocr"
	StrategyVision    Strategy = "vision"
)

// File is one uploaded document.
type File struct {
	Name string
	Data []byte
}

// Result is the outcome of extracting one file. OK is false on fallback; the
// Reason is safe to surface to the client.
type Result struct {
	OK       bool               `json:"ok"`
	Payload  *report.RawPayload `json:"bureaus,omitempty"`
	Text     string             `json:"-"` // extracted document text when a text path succeeded
	Strategy Strategy           `json:"strategy,omitempty"`
	Reason   string             `json:"reason,omitempty"`
}

// Fallback builds the never-throws failure result.
func Fallback(reason string) Result {
	return Result{OK: false, Reason: reason}
}

// Model size tiers, in bytes. Large scans need the high-capability model for
// layout fidelity; mid-size files run on the fast model; small files are
// usually dense text and also go to the high-capability model.
const (
	fastModelMinBytes = 3 << 20 // 3 MiB
	fastModelMaxBytes = 6 << 20 // 6 MiB
)

// Default model identifiers; PARSE_MODEL overrides both.
const (
	defaultHighModel = "claude-3-5-sonnet-20241022"
	defaultFastModel = "claude-3-5-haiku-20241022"
)

// modelFor picks the model tier for a file size.
func modelFor(override string, size int) string {
	if override != "" {
		return override
	}
	if size >= fastModelMinBytes && size <= fastModelMaxBytes {
		return defaultFastModel
	}
	return defaultHighModel
}
