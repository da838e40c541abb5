package report

import "strings"

// Score band accepted after sanitization.
const (
	ScoreMin = 300
	ScoreMax = 850
)

// SanitizeScore repairs common extraction artifacts in a credit score:
// values over 9000 carry a spurious trailing digit and are divided by 10,
// values still over 850 clamp to 850, and values under 300 are unusable.
func SanitizeScore(v *int) *int {
	if v == nil {
		return nil
	}
	s := *v
	if s > 9000 {
		s = s / 10
	}
	if s > ScoreMax {
		s = ScoreMax
	}
	if s < ScoreMin {
		return nil
	}
	return &s
}

// Unavailable returns the canonical empty record for a bureau: numerics nil,
// slices empty, Available false.
func Unavailable(b Bureau) BureauRecord {
	return BureauRecord{
		Bureau:     b,
		Available:  false,
		Names:      []string{},
		Addresses:  []string{},
		Employers:  []string{},
		Tradelines: []Tradeline{},
		SourceType: SourceSingleBureau,
	}
}

// Normalize coerces one raw bureau object into the canonical record shape.
// A nil raw object, or one explicitly marked unavailable, yields an
// unavailable record.
func Normalize(b Bureau, raw *RawBureau) BureauRecord {
	if raw == nil || (raw.Available != nil && !*raw.Available) {
		return Unavailable(b)
	}

	rec := BureauRecord{
		Bureau:          b,
		Available:       true,
		Names:           emptyIfNil(raw.Names),
		Addresses:       emptyIfNil(raw.Addresses),
		Employers:       emptyIfNil(raw.Employers),
		ReportDate:      strings.TrimSpace(raw.ReportDate),
		SourceType:      SourceSingleBureau,
		ParsingWarnings: raw.ParsingWarnings,
	}

	rawScore := asInt(raw.Score)
	rec.Score = SanitizeScore(rawScore)
	rec.ScoreDetails = ScoreDetails{Value: rec.Score, Available: rec.Score != nil}

	if u := nonNegative(asInt(raw.Utilization)); u != nil {
		pct := *u
		if pct > 100 {
			pct = 100
		}
		rec.UtilizationPct = &pct
	}

	rec.Inquiries = intOrZero(nonNegative(asInt(raw.Inquiries)))
	rec.Negatives = intOrZero(nonNegative(asInt(raw.Negatives)))
	rec.LateEvents = intOrZero(nonNegative(asInt(raw.LateEvents)))

	rec.Tradelines = make([]Tradeline, 0, len(raw.Tradelines))
	for _, rt := range raw.Tradelines {
		rec.Tradelines = append(rec.Tradelines, normalizeTradeline(rt))
	}

	return rec
}

func normalizeTradeline(rt RawTradeline) Tradeline {
	t := Tradeline{
		Creditor:       strings.TrimSpace(rt.Creditor),
		Category:       normalizeCategory(rt.Category),
		Status:         strings.TrimSpace(rt.Status),
		Balance:        intOrZero(nonNegative(asInt(rt.Balance))),
		Limit:          nonNegative(asInt(rt.Limit)),
		Opened:         strings.TrimSpace(rt.Opened),
		Closed:         strings.TrimSpace(rt.Closed),
		AuthorizedUser: asBool(rt.AuthorizedUser),
	}
	return t
}

func normalizeCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryRevolving:
		return CategoryRevolving
	case CategoryInstallment:
		return CategoryInstallment
	case CategoryAuto:
		return CategoryAuto
	case CategoryMortgage:
		return CategoryMortgage
	default:
		return CategoryOther
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
