package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/fault"
)

// annualMarker identifies annual-disclosure reports, which legitimately carry
// no score.
const annualMarker = "annualcreditreport"

// ParseFunc turns one document's text into a raw bureaus payload. In
// production this is an LLM call; tests substitute deterministic fakes.
type ParseFunc func(ctx context.Context, text string) (*RawPayload, error)

// Classify determines the source type of one document's extracted text.
// A document mentioning all three bureaus is a tri-merge; one mentioning
// AnnualCreditReport is an annual disclosure; everything else is treated as a
// single-bureau report.
func Classify(text string) SourceType {
	lower := strings.ToLower(text)
	all := true
	for _, b := range AllBureaus() {
		if !strings.Contains(lower, string(b)) {
			all = false
			break
		}
	}
	if all {
		return SourceTriMerge
	}
	if strings.Contains(lower, annualMarker) {
		return SourceAnnualDisclosure
	}
	return SourceSingleBureau
}

// DocumentID is the content hash shared by all records sliced from one
// merged document.
func DocumentID(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// bureauSlice is one bureau's section of a tri-merge document.
type bureauSlice struct {
	bureau Bureau
	start  int
	text   string
}

// sliceTriMerge splits a tri-merge document at each bureau's first mention,
// sorted by position. Sections run to the start of the next bureau section.
func sliceTriMerge(text string) []bureauSlice {
	lower := strings.ToLower(text)
	var slices []bureauSlice
	for _, b := range AllBureaus() {
		if idx := strings.Index(lower, string(b)); idx >= 0 {
			slices = append(slices, bureauSlice{bureau: b, start: idx})
		}
	}
	sort.Slice(slices, func(i, j int) bool { return slices[i].start < slices[j].start })
	for i := range slices {
		end := len(text)
		if i+1 < len(slices) {
			end = slices[i+1].start
		}
		slices[i].text = text[slices[i].start:end]
	}
	return slices
}

// IngestText classifies one document's text and produces its bureau records.
//
// Tri-merge documents are sliced per bureau and each slice parsed
// independently; every resulting record shares the merged document hash. When
// fewer than two slices parse, the document falls back to single-bureau
// handling with a tri_merge_detection_failed warning. Annual disclosures with
// no recoverable score keep ScoreDetails.Available=false rather than failing.
func IngestText(ctx context.Context, text string, parse ParseFunc) ([]BureauRecord, []string, error) {
	switch Classify(text) {
	case SourceTriMerge:
		records, ok := ingestTriMerge(ctx, text, parse)
		if ok {
			return records, nil, nil
		}
		warnings := []string{string(fault.TriMergeDetectFailed)}
		records, err := ingestWhole(ctx, text, parse, SourceSingleBureau)
		if err != nil {
			return nil, warnings, err
		}
		for i := range records {
			records[i].ParsingWarnings = append(records[i].ParsingWarnings, string(fault.TriMergeDetectFailed))
		}
		return records, warnings, nil

	case SourceAnnualDisclosure:
		records, err := ingestWhole(ctx, text, parse, SourceAnnualDisclosure)
		if err != nil {
			return nil, nil, err
		}
		for i := range records {
			if records[i].Score == nil {
				records[i].ScoreDetails = ScoreDetails{Value: nil, Available: false}
			}
		}
		return records, nil, nil

	default:
		records, err := ingestWhole(ctx, text, parse, SourceSingleBureau)
		return records, nil, err
	}
}

// ingestTriMerge parses each bureau slice of a merged document. ok is false
// when fewer than two slices materialize.
func ingestTriMerge(ctx context.Context, text string, parse ParseFunc) ([]BureauRecord, bool) {
	slices := sliceTriMerge(text)
	if len(slices) < 2 {
		return nil, false
	}

	docID := DocumentID(text)
	var records []BureauRecord
	for _, s := range slices {
		payload, err := parse(ctx, s.text)
		if err != nil {
			continue
		}
		raw := payload.Get(s.bureau)
		if raw == nil {
			// The model sometimes files a slice under the wrong key; take the
			// only available bureau in that case.
			raw = soleAvailable(payload)
		}
		rec := Normalize(s.bureau, raw)
		if !rec.Available {
			continue
		}
		rec.Bureau = s.bureau
		rec.SourceType = SourceTriMerge
		rec.DerivedFromMerged = true
		rec.MergedDocumentID = docID
		records = append(records, rec)
	}

	if len(records) < 2 {
		return nil, false
	}
	return records, true
}

// ingestWhole parses the full document text and emits a record per available
// bureau.
func ingestWhole(ctx context.Context, text string, parse ParseFunc, src SourceType) ([]BureauRecord, error) {
	payload, err := parse(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}

	var records []BureauRecord
	for _, b := range AllBureaus() {
		raw := payload.Get(b)
		if raw == nil {
			continue
		}
		rec := Normalize(b, raw)
		if !rec.Available {
			continue
		}
		rec.SourceType = src
		records = append(records, rec)
	}
	return records, nil
}

// soleAvailable returns the single present bureau object, or nil when the
// payload names zero or several.
func soleAvailable(p *RawPayload) *RawBureau {
	var found *RawBureau
	for _, b := range AllBureaus() {
		if raw := p.Get(b); raw != nil {
			if found != nil {
				return nil
			}
			found = raw
		}
	}
	return found
}
