package extraction

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Text-layer validity thresholds. Embedded text shorter than minTextChars is
// almost always a scan with a junk layer; OCR output is accepted at the lower
// minOCRChars bound.
const (
	minTextChars = 3000
	minOCRChars  = 1000
)

// ExtractTextLayer pulls the embedded text layer from a PDF buffer. The
// returned text is not validated; callers run LooksLikeCreditReport on it.
func ExtractTextLayer(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf open failed: %w", err)
	}

	var b strings.Builder
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Strong indicator patterns for report-likeness.
var (
	reScoreNumber  = regexp.MustCompile(`\b[3-8]\d{2}\b`)
	reDatePattern  = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b|\b\d{4}-\d{2}(-\d{2})?\b`)
	reDollarAmount = regexp.MustCompile(`\$[\d,]+`)
)

var accountTerms = []string{"account", "tradeline", "creditor", "balance", "payment"}

var scoreTerms = []string{"credit score", "fico", "vantagescore", "vantage score", "score"}

var inquiryTerms = []string{"inquiry", "inquiries"}

// LooksLikeCreditReport validates that extracted text plausibly came from a
// credit report rather than an arbitrary document. Required: enough text, a
// bureau name, and account-related terms. On top of that, at least two strong
// indicators among score terms, a three-digit score number, inquiry terms,
// date patterns, and dollar amounts.
func LooksLikeCreditReport(text string) bool {
	if len(text) < minTextChars {
		return false
	}
	lower := strings.ToLower(text)

	hasBureau := strings.Contains(lower, "experian") ||
		strings.Contains(lower, "equifax") ||
		strings.Contains(lower, "transunion")
	if !hasBureau {
		return false
	}

	if !containsAny(lower, accountTerms) {
		return false
	}

	strong := 0
	if containsAny(lower, scoreTerms) {
		strong++
	}
	if reScoreNumber.MatchString(text) {
		strong++
	}
	if containsAny(lower, inquiryTerms) {
		strong++
	}
	if reDatePattern.MatchString(text) {
		strong++
	}
	if reDollarAmount.MatchString(text) {
		strong++
	}
	return strong >= 2
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
