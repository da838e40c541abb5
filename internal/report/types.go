// Package report defines the canonical per-bureau credit data model and the
// ingestion rules that produce it: shape coercion of raw extractor output,
// score sanitization, tri-merge/annual-disclosure classification, and bureau
// slot enforcement. Downstream packages (underwriting, suggestions, letters)
// see only the canonical types in this package.
package report

import (
	"strings"
	"time"
)

// Bureau is one of the three consumer credit bureaus.
type Bureau string

const (
	Experian   Bureau = "experian"
	Equifax    Bureau = "equifax"
	TransUnion Bureau = "transunion"
)

// AllBureaus returns the bureaus in canonical precedence order.
// The order doubles as the underwriting tie-break: Experian > Equifax > TransUnion.
func AllBureaus() []Bureau {
	return []Bureau{Experian, Equifax, TransUnion}
}

// Short returns the two-letter code used in letter filenames and CRM keys.
func (b Bureau) Short() string {
	switch b {
	case Experian:
		return "ex"
	case Equifax:
		return "eq"
	case TransUnion:
		return "tu"
	}
	return ""
}

// SourceType classifies the document a bureau record came from.
type SourceType string

const (
	SourceSingleBureau     SourceType = "single_bureau"
	SourceTriMerge         SourceType = "tri_merge"
	SourceAnnualDisclosure SourceType = "annual_disclosure"
)

// Category buckets a tradeline by account type.
type Category string

const (
	CategoryRevolving   Category = "revolving"
	CategoryInstallment Category = "installment"
	CategoryAuto        Category = "auto"
	CategoryMortgage    Category = "mortgage"
	CategoryOther       Category = "other"
)

// seasonedMonths is the minimum account age for a tradeline to count toward
// funding limits.
const seasonedMonths = 24

// Tradeline is one credit account observed on one bureau.
type Tradeline struct {
	Creditor       string   `json:"creditor"`
	Category       Category `json:"category"`
	Status         string   `json:"status"`
	Balance        int      `json:"balance"`
	Limit          *int     `json:"limit,omitempty"`
	Opened         string   `json:"opened,omitempty"` // YYYY-MM, or empty when unknown
	Closed         string   `json:"closed,omitempty"`
	AuthorizedUser bool     `json:"authorized_user"`
}

// Utilization returns balance/limit when a positive limit is present.
func (t Tradeline) Utilization() (float64, bool) {
	if t.Limit == nil || *t.Limit <= 0 {
		return 0, false
	}
	return float64(t.Balance) / float64(*t.Limit), true
}

// Seasoned reports whether the account was opened at least 24 months before now.
// Unknown open dates are never seasoned.
func (t Tradeline) Seasoned(now time.Time) bool {
	opened, ok := parseYearMonth(t.Opened)
	if !ok {
		return false
	}
	return !opened.After(now.AddDate(0, -seasonedMonths, 0))
}

// derogatoryMarkers classify a status string as negative by substring.
var derogatoryMarkers = []string{
	"chargeoff", "charge-off", "charge off",
	"collection", "derogatory", "repossession", "foreclosure",
}

// lateMarkers are the day counts that make a "late" status derogatory.
var lateMarkers = []string{"30", "60", "90", "120", "150", "180"}

// Derogatory reports whether the tradeline status matches the negative-status set.
func (t Tradeline) Derogatory() bool {
	s := strings.ToLower(t.Status)
	for _, m := range derogatoryMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	if strings.Contains(s, "late") {
		for _, d := range lateMarkers {
			if strings.Contains(s, d) {
				return true
			}
		}
	}
	return false
}

// OpenRevolving reports whether this is an open revolving account.
func (t Tradeline) OpenRevolving() bool {
	return t.Category == CategoryRevolving && strings.Contains(strings.ToLower(t.Status), "open")
}

// ScoreDetails carries the raw score observation alongside an availability flag;
// annual disclosures legitimately omit scores.
type ScoreDetails struct {
	Value     *int `json:"value"`
	Available bool `json:"available"`
}

// BureauRecord is the per-bureau aggregate produced by ingestion.
//
// Invariants:
//   - Score is nil or within [300,850] after normalization.
//   - When Available is false, all numeric fields are nil/zero and slices empty.
//   - When SourceType is tri_merge, MergedDocumentID is the SHA-256 of the
//     merged document text.
type BureauRecord struct {
	Bureau            Bureau       `json:"bureau"`
	Available         bool         `json:"available"`
	Score             *int         `json:"score"`
	UtilizationPct    *int         `json:"utilization_pct"`
	Inquiries         int          `json:"inquiries"`
	Negatives         int          `json:"negatives"`
	LateEvents        int          `json:"late_events"`
	Names             []string     `json:"names"`
	Addresses         []string     `json:"addresses"`
	Employers         []string     `json:"employers"`
	Tradelines        []Tradeline  `json:"tradelines"`
	ReportDate        string       `json:"report_date"`
	SourceType        SourceType   `json:"source_type"`
	DerivedFromMerged bool         `json:"derived_from_merged"`
	MergedDocumentID  string       `json:"merged_document_id,omitempty"`
	ParsingWarnings   []string     `json:"parsing_warnings,omitempty"`
	ScoreDetails      ScoreDetails `json:"score_details"`
}

// ReportTime parses the record's report date. ok is false when the date is
// absent or unparsable.
func (r BureauRecord) ReportTime() (time.Time, bool) {
	return ParseReportDate(r.ReportDate)
}

// Rejection records why an incoming bureau record was not merged.
type Rejection struct {
	Bureau Bureau `json:"bureau"`
	Reason string `json:"reason"`
}

// Profile is the merged set of up to three distinct bureau records.
type Profile struct {
	Records    []BureauRecord `json:"bureaus"`
	Rejections []Rejection    `json:"rejections,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// Get returns the record for a bureau, or nil when the slot is empty.
func (p *Profile) Get(b Bureau) *BureauRecord {
	for i := range p.Records {
		if p.Records[i].Bureau == b {
			return &p.Records[i]
		}
	}
	return nil
}

// Available returns the available records in canonical bureau order.
func (p *Profile) Available() []BureauRecord {
	out := make([]BureauRecord, 0, len(p.Records))
	for _, r := range p.Records {
		if r.Available {
			out = append(out, r)
		}
	}
	return out
}

// MostRecentDate returns the newest parsable report date across records.
func (p *Profile) MostRecentDate() (time.Time, bool) {
	var best time.Time
	found := false
	for _, r := range p.Records {
		if t, ok := r.ReportTime(); ok && (!found || t.After(best)) {
			best = t
			found = true
		}
	}
	return best, found
}

// AllNames returns the union of bureau name observations.
func (p *Profile) AllNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range p.Records {
		for _, n := range r.Names {
			if n = strings.TrimSpace(n); n != "" && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}
