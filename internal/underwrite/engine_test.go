package underwrite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
)

var testNow = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func intp(v int) *int { return &v }

func seasonedRevolving(limit int) report.Tradeline {
	return report.Tradeline{
		Creditor: "Card Issuer",
		Category: report.CategoryRevolving,
		Status:   "Open",
		Balance:  limit / 10,
		Limit:    intp(limit),
		Opened:   "2020-01",
	}
}

func seasonedInstallment(amount int) report.Tradeline {
	return report.Tradeline{
		Creditor: "Auto Lender",
		Category: report.CategoryAuto,
		Status:   "Open",
		Balance:  amount,
		Opened:   "2019-06",
	}
}

func cleanRecord(b report.Bureau, score int, tradelines ...report.Tradeline) report.BureauRecord {
	return report.BureauRecord{
		Bureau:         b,
		Available:      true,
		Score:          intp(score),
		UtilizationPct: intp(10),
		Tradelines:     tradelines,
	}
}

func TestEvaluate_SingleFundableBureauScalesToThird(t *testing.T) {
	p := report.Profile{Records: []report.BureauRecord{
		cleanRecord(report.Experian, 750,
			seasonedRevolving(10_000),
			seasonedInstallment(20_000),
			seasonedRevolving(4_000),
		),
	}}

	r := Evaluate(p, nil, testNow)

	require.Len(t, r.Bureaus, 1)
	s := r.Bureaus[0]
	assert.Equal(t, 10_000, s.HighestRevolvingLimit)
	assert.Equal(t, 20_000, s.HighestInstallmentAmount)
	assert.Equal(t, 55_000, s.CardFunding, "5.5x the highest seasoned revolving limit")
	assert.Equal(t, 60_000, s.LoanFunding, "3x the highest seasoned installment amount")
	assert.True(t, s.Fundable)

	// Only one fundable bureau: totals scale to a third.
	assert.Equal(t, 18_333, r.Personal.CardFunding)
	assert.Equal(t, 20_000, r.Personal.LoanFunding)
	assert.Equal(t, 38_333, r.Personal.Total)
	assert.True(t, r.Personal.DualStack)
	assert.True(t, r.Fundable)
	assert.Equal(t, 55_000, r.BannerFunding, "banner carries the unscaled primary card funding")
}

func TestEvaluate_TwoFundableBureausFullScale(t *testing.T) {
	p := report.Profile{Records: []report.BureauRecord{
		cleanRecord(report.Experian, 750, seasonedRevolving(10_000)),
		cleanRecord(report.Equifax, 760, seasonedRevolving(8_000)),
	}}

	r := Evaluate(p, nil, testNow)
	assert.Equal(t, 55_000+44_000, r.Personal.CardFunding)
	assert.Equal(t, 0, r.Personal.LoanFunding)
	assert.False(t, r.Personal.DualStack)
	assert.Equal(t, report.Equifax, r.PrimaryBureau, "highest score wins")
}

func TestEvaluate_FundingFloors(t *testing.T) {
	p := report.Profile{Records: []report.BureauRecord{
		cleanRecord(report.Experian, 750,
			seasonedRevolving(4_999),
			seasonedInstallment(9_999),
		),
	}}

	r := Evaluate(p, nil, testNow)
	s := r.Bureaus[0]
	assert.Equal(t, 0, s.CardFunding, "below the revolving-limit floor")
	assert.Equal(t, 0, s.LoanFunding, "below the installment floor")
	assert.Equal(t, BannerFundingFloor, r.BannerFunding)
	assert.True(t, r.Flags.NeedsNewPrimaryRevolving)
}

func TestEvaluate_UnseasonedAccountsIgnored(t *testing.T) {
	young := seasonedRevolving(50_000)
	young.Opened = "2026-01"
	p := report.Profile{Records: []report.BureauRecord{
		cleanRecord(report.Experian, 750, young),
	}}

	r := Evaluate(p, nil, testNow)
	assert.Equal(t, 0, r.Bureaus[0].HighestRevolvingLimit)
	assert.Equal(t, 0, r.Bureaus[0].CardFunding)
}

func TestEvaluate_LatePaymentsBlockLoanFunding(t *testing.T) {
	rec := cleanRecord(report.Experian, 750, seasonedInstallment(20_000))
	rec.LateEvents = 1
	p := report.Profile{Records: []report.BureauRecord{rec}}

	r := Evaluate(p, nil, testNow)
	assert.Equal(t, 0, r.Bureaus[0].LoanFunding)
}

func TestEvaluate_FundablePredicate(t *testing.T) {
	tests := []struct {
		name      string
		score     *int
		util      *int
		negatives int
		want      bool
	}{
		{name: "clean 700", score: intp(700), util: intp(30), negatives: 0, want: true},
		{name: "nil utilization passes", score: intp(720), util: nil, negatives: 0, want: true},
		{name: "score below 700", score: intp(699), util: intp(10), negatives: 0, want: false},
		{name: "nil score", score: nil, util: intp(10), negatives: 0, want: false},
		{name: "utilization over 30", score: intp(780), util: intp(31), negatives: 0, want: false},
		{name: "any negative", score: intp(780), util: intp(10), negatives: 1, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bureauFundable(tt.score, tt.util, tt.negatives))
		})
	}
}

func TestEvaluate_PrimaryBureauTieBreak(t *testing.T) {
	p := report.Profile{Records: []report.BureauRecord{
		cleanRecord(report.Experian, 750),
		cleanRecord(report.Equifax, 750),
		cleanRecord(report.TransUnion, 750),
	}}
	r := Evaluate(p, nil, testNow)
	assert.Equal(t, report.Experian, r.PrimaryBureau)
}

func TestEvaluate_BusinessFundingTiers(t *testing.T) {
	base := report.Profile{Records: []report.BureauRecord{
		cleanRecord(report.Experian, 750, seasonedRevolving(10_000)),
	}}

	tests := []struct {
		name       string
		age        *int
		multiplier float64
		amount     int
	}{
		{name: "not stated", age: nil, multiplier: 0, amount: 0},
		{name: "under a year", age: intp(6), multiplier: 0.5, amount: 27_500},
		{name: "one to two years", age: intp(18), multiplier: 1.0, amount: 55_000},
		{name: "two years and up", age: intp(36), multiplier: 2.0, amount: 110_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Evaluate(base, tt.age, testNow)
			assert.Equal(t, tt.multiplier, r.Business.Multiplier)
			assert.Equal(t, tt.amount, r.Business.Amount)
		})
	}
}

func TestEvaluate_ThinFileAndAllNegativeFlags(t *testing.T) {
	derog := report.Tradeline{Creditor: "Collector", Category: report.CategoryOther, Status: "Collection"}
	rec := report.BureauRecord{
		Bureau:     report.Experian,
		Available:  true,
		Score:      intp(560),
		Negatives:  2,
		Tradelines: []report.Tradeline{derog, derog},
	}
	r := Evaluate(report.Profile{Records: []report.BureauRecord{rec}}, nil, testNow)

	assert.False(t, r.Fundable)
	assert.True(t, r.Flags.ThinFile)
	assert.True(t, r.Flags.FileAllNegative)
	assert.True(t, r.Flags.NeedsFileBuildout)
	assert.True(t, r.Flags.NeedsNegativeCleanup)
}

func TestEvaluate_InquiryCounts(t *testing.T) {
	ex := cleanRecord(report.Experian, 750)
	ex.Inquiries = 2
	tu := cleanRecord(report.TransUnion, 710)
	tu.Inquiries = 3
	r := Evaluate(report.Profile{Records: []report.BureauRecord{ex, tu}}, nil, testNow)

	assert.Equal(t, 2, r.Metrics.Inquiries.Experian)
	assert.Equal(t, 0, r.Metrics.Inquiries.Equifax)
	assert.Equal(t, 3, r.Metrics.Inquiries.TransUnion)
	assert.Equal(t, 5, r.Metrics.Inquiries.Total)
	assert.True(t, r.Flags.NeedsInquiryCleanup)
}

func TestEvaluate_EmptyProfile(t *testing.T) {
	r := Evaluate(report.Profile{}, nil, testNow)
	assert.False(t, r.Fundable)
	assert.Equal(t, report.Experian, r.PrimaryBureau)
	assert.Equal(t, BannerFundingFloor, r.BannerFunding)
}

func TestFallbackResult(t *testing.T) {
	r := FallbackResult()
	assert.False(t, r.Fundable)
	assert.Equal(t, BannerFundingFloor, r.BannerFunding)
	assert.Zero(t, r.TotalCombinedFunding)
}
