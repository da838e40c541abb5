package report

import (
	"math"
	"strconv"
	"strings"
)

// RawPayload is the dynamic shape the extractor returns: a bureaus object with
// loosely typed values. Everything is coerced at this boundary; nothing
// downstream sees a Raw type.
type RawPayload struct {
	Bureaus map[string]*RawBureau `json:"bureaus"`
}

// Get returns the raw object for a bureau key, or nil.
func (p *RawPayload) Get(b Bureau) *RawBureau {
	if p == nil || p.Bureaus == nil {
		return nil
	}
	return p.Bureaus[string(b)]
}

// RawBureau is one bureau as emitted by the language model. Numeric fields may
// arrive as numbers, numeric strings, or garbage; missing fields default.
type RawBureau struct {
	Available       *bool          `json:"available"`
	Score           any            `json:"score"`
	Utilization     any            `json:"utilization"`
	Inquiries       any            `json:"inquiries"`
	Negatives       any            `json:"negative_accounts"`
	LateEvents      any            `json:"late_payment_events"`
	Names           []string       `json:"names"`
	Addresses       []string       `json:"addresses"`
	Employers       []string       `json:"employers"`
	Tradelines      []RawTradeline `json:"tradelines"`
	ReportDate      string         `json:"report_date"`
	ParsingWarnings []string       `json:"parsing_warnings"`
}

// RawTradeline is one account as emitted by the language model.
type RawTradeline struct {
	Creditor       string `json:"creditor"`
	Category       string `json:"category"`
	Status         string `json:"status"`
	Balance        any    `json:"balance"`
	Limit          any    `json:"limit"`
	Opened         string `json:"opened"`
	Closed         string `json:"closed"`
	AuthorizedUser any    `json:"authorized_user"`
}

// asInt coerces a dynamic value to an integer. Strings are stripped of
// currency and grouping characters first. Returns nil when no number is
// recoverable.
func asInt(v any) *int {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		i := int(math.Round(n))
		return &i
	case int:
		return &n
	case string:
		s := strings.TrimSpace(n)
		s = strings.Map(func(r rune) rune {
			switch r {
			case '$', ',', '%', ' ':
				return -1
			}
			return r
		}, s)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			i := int(math.Round(f))
			return &i
		}
		return nil
	case bool:
		return nil
	default:
		return nil
	}
}

// asBool coerces a dynamic value to a boolean.
func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		return s == "true" || s == "yes" || s == "y" || s == "1"
	case float64:
		return b != 0
	default:
		return false
	}
}

// nonNegative clamps nil-able integers to ≥ 0.
func nonNegative(v *int) *int {
	if v == nil {
		return nil
	}
	if *v < 0 {
		zero := 0
		return &zero
	}
	return v
}

// intOrZero dereferences with a zero default.
func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
