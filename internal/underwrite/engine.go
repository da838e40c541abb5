package underwrite

import (
	"math"
	"time"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
)

// Evaluate runs the funding decision for a merged profile.
// businessAgeMonths is nil when the applicant did not state one.
func Evaluate(p report.Profile, businessAgeMonths *int, now time.Time) Result {
	summaries := make([]BureauSummary, 0, len(p.Records))
	for _, rec := range p.Records {
		summaries = append(summaries, summarize(rec, now))
	}

	primary := primaryBureau(p, summaries)

	fundableCount := 0
	sumCard, sumLoan := 0, 0
	inq := InquiryCounts{}
	for _, s := range summaries {
		if s.Available && s.Fundable {
			fundableCount++
		}
		sumCard += s.CardFunding
		sumLoan += s.LoanFunding
		switch s.Bureau {
		case report.Experian:
			inq.Experian = s.Inquiries
		case report.Equifax:
			inq.Equifax = s.Inquiries
		case report.TransUnion:
			inq.TransUnion = s.Inquiries
		}
	}
	inq.Total = inq.Experian + inq.Equifax + inq.TransUnion

	// Full funding requires agreement from two bureaus; a single fundable
	// bureau scales totals to a third. The same scale applies when none are
	// fundable, which keeps residual per-bureau amounts visible at a discount.
	scale := 1.0
	if fundableCount < 2 {
		scale = 1.0 / 3.0
	}

	personal := Personal{
		CardFunding: roundDollars(scale * float64(sumCard)),
		LoanFunding: roundDollars(scale * float64(sumLoan)),
	}
	personal.Total = personal.CardFunding + personal.LoanFunding
	personal.DualStack = personal.CardFunding > 0 && personal.LoanFunding > 0

	business := businessFunding(businessAgeMonths, primary)

	result := Result{
		PrimaryBureau:        primary.Bureau,
		Bureaus:              summaries,
		Personal:             personal,
		Business:             business,
		TotalCombinedFunding: personal.Total + business.Amount,
		Metrics: Metrics{
			Score:             primary.Score,
			UtilizationPct:    primary.UtilizationPct,
			NegativeAccounts:  primary.Negatives,
			LatePaymentEvents: primary.LateEvents,
			Inquiries:         inq,
		},
	}

	result.Fundable = bureauFundable(primary.Score, primary.UtilizationPct, primary.Negatives)
	result.Flags = flags(primary, inq.Total)
	result.BannerFunding = bannerFunding(primary)

	return result
}

// summarize computes the per-bureau funding decomposition.
func summarize(rec report.BureauRecord, now time.Time) BureauSummary {
	s := BureauSummary{
		Bureau:         rec.Bureau,
		Available:      rec.Available,
		Score:          rec.Score,
		UtilizationPct: rec.UtilizationPct,
		Inquiries:      rec.Inquiries,
		Negatives:      rec.Negatives,
		LateEvents:     rec.LateEvents,
	}
	if !rec.Available {
		return s
	}

	nonDerog := 0
	for _, t := range rec.Tradelines {
		derog := t.Derogatory()
		if !derog {
			nonDerog++
		}

		seasoned := t.Seasoned(now)
		if t.OpenRevolving() && seasoned {
			if t.Limit != nil && *t.Limit > s.HighestRevolvingLimit {
				s.HighestRevolvingLimit = *t.Limit
			}
		}

		if seasoned && !derog {
			switch t.Category {
			case report.CategoryInstallment, report.CategoryAuto, report.CategoryMortgage:
				amount := t.Balance
				if t.Limit != nil && *t.Limit > 0 {
					amount = *t.Limit
				}
				if amount > s.HighestInstallmentAmount {
					s.HighestInstallmentAmount = amount
				}
			}
		}
	}

	if s.HighestRevolvingLimit >= CardLimitFloor {
		s.CardFunding = roundDollars(CardMultiplier * float64(s.HighestRevolvingLimit))
	}
	if s.HighestInstallmentAmount >= LoanAmountFloor && s.LateEvents == 0 {
		s.LoanFunding = roundDollars(LoanMultiplier * float64(s.HighestInstallmentAmount))
	}

	s.Fundable = bureauFundable(s.Score, s.UtilizationPct, s.Negatives)
	s.ThinFile = nonDerog < ThinFileTradelineMin
	s.FileAllNegative = nonDerog == 0 && s.Negatives > 0

	return s
}

// bureauFundable is the shared fundability predicate: score at least 700,
// utilization unknown or at most 30, and zero negatives.
func bureauFundable(score *int, util *int, negatives int) bool {
	if score == nil || *score < FundableScoreMin {
		return false
	}
	if util != nil && *util > FundableUtilMax {
		return false
	}
	return negatives == 0
}

// primaryBureau picks the available bureau with the highest score. Equal
// scores break Experian > Equifax > TransUnion, which is the order records
// already hold in the profile. With no available bureau the first slot wins;
// an empty profile defaults to an unavailable Experian record.
func primaryBureau(p report.Profile, summaries []BureauSummary) BureauSummary {
	best := -1
	for i, s := range summaries {
		if !s.Available {
			continue
		}
		score := -1
		if s.Score != nil {
			score = *s.Score
		}
		bestScore := -1
		if best >= 0 && summaries[best].Score != nil {
			bestScore = *summaries[best].Score
		}
		if best < 0 || score > bestScore {
			best = i
		}
	}
	if best >= 0 {
		return summaries[best]
	}
	if len(summaries) > 0 {
		return summaries[0]
	}
	return BureauSummary{Bureau: report.Experian}
}

// businessFunding applies the age-tier multiplier to the primary bureau's
// card funding.
func businessFunding(ageMonths *int, primary BureauSummary) Business {
	b := Business{AgeMonths: ageMonths}
	if ageMonths == nil || primary.CardFunding == 0 {
		return b
	}
	switch age := *ageMonths; {
	case age < 12:
		b.Multiplier = 0.5
	case age < 24:
		b.Multiplier = 1.0
	default:
		b.Multiplier = 2.0
	}
	b.Amount = roundDollars(b.Multiplier * float64(primary.CardFunding))
	return b
}

// bannerFunding is the headline amount: the primary bureau's card funding,
// never below the floor.
func bannerFunding(primary BureauSummary) int {
	if primary.CardFunding > BannerFundingFloor {
		return primary.CardFunding
	}
	return BannerFundingFloor
}

// flags derives the optimization signals, mostly from the primary bureau.
func flags(primary BureauSummary, totalInquiries int) Flags {
	f := Flags{
		NeedsInquiryCleanup:  totalInquiries > 0,
		NeedsNegativeCleanup: primary.Negatives > 0,
		ThinFile:             primary.ThinFile,
		FileAllNegative:      primary.FileAllNegative,
	}
	if primary.UtilizationPct != nil && *primary.UtilizationPct > FundableUtilMax {
		f.NeedsUtilReduction = true
	}
	if primary.HighestRevolvingLimit < CardLimitFloor {
		f.NeedsNewPrimaryRevolving = true
	}
	f.NeedsFileBuildout = f.ThinFile || f.FileAllNegative
	return f
}

// roundDollars rounds a funding amount to whole dollars.
func roundDollars(v float64) int {
	return int(math.Round(v))
}
