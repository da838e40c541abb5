// Package underwrite implements the deterministic funding decision over a
// merged bureau profile. No external calls: every output is a pure function
// of the profile and the stated business age.
package underwrite

import (
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
)

// Funding thresholds and multipliers, in whole dollars.
const (
	CardLimitFloor       = 5_000  // minimum seasoned revolving limit to qualify
	LoanAmountFloor      = 10_000 // minimum seasoned installment amount to qualify
	CardMultiplier       = 5.5
	LoanMultiplier       = 3.0
	BannerFundingFloor   = 15_000
	FundableScoreMin     = 700
	FundableUtilMax      = 30
	ThinFileTradelineMin = 3
)

// BureauSummary is the per-bureau funding decomposition.
type BureauSummary struct {
	Bureau                   report.Bureau `json:"bureau"`
	Available                bool          `json:"available"`
	Score                    *int          `json:"score"`
	UtilizationPct           *int          `json:"utilization_pct"`
	Inquiries                int           `json:"inquiries"`
	Negatives                int           `json:"negative_accounts"`
	LateEvents               int           `json:"late_payment_events"`
	HighestRevolvingLimit    int           `json:"highest_revolving_limit"`
	HighestInstallmentAmount int           `json:"highest_installment_amount"`
	CardFunding              int           `json:"card_funding"`
	LoanFunding              int           `json:"loan_funding"`
	Fundable                 bool          `json:"fundable"`
	ThinFile                 bool          `json:"thin_file"`
	FileAllNegative          bool          `json:"file_all_negative"`
}

// InquiryCounts breaks hard inquiries out per bureau.
type InquiryCounts struct {
	Experian   int `json:"ex"`
	Equifax    int `json:"eq"`
	TransUnion int `json:"tu"`
	Total      int `json:"total"`
}

// Metrics are the headline numbers from the primary bureau.
type Metrics struct {
	Score             *int          `json:"score"`
	UtilizationPct    *int          `json:"utilization_pct"`
	NegativeAccounts  int           `json:"negative_accounts"`
	LatePaymentEvents int           `json:"late_payment_events"`
	Inquiries         InquiryCounts `json:"inquiries"`
}

// Personal is the personal funding breakdown.
type Personal struct {
	CardFunding int  `json:"card_funding"`
	LoanFunding int  `json:"loan_funding"`
	Total       int  `json:"total"`
	DualStack   bool `json:"dual_stack"`
}

// Business is the business funding breakdown.
type Business struct {
	AgeMonths  *int    `json:"age_months"`
	Multiplier float64 `json:"multiplier"`
	Amount     int     `json:"amount"`
}

// Flags are the optimization signals derived from the primary bureau.
type Flags struct {
	NeedsUtilReduction       bool `json:"needs_util_reduction"`
	NeedsNewPrimaryRevolving bool `json:"needs_new_primary_revolving"`
	NeedsInquiryCleanup      bool `json:"needs_inquiry_cleanup"`
	NeedsNegativeCleanup     bool `json:"needs_negative_cleanup"`
	NeedsFileBuildout        bool `json:"needs_file_buildout"`
	ThinFile                 bool `json:"thin_file"`
	FileAllNegative          bool `json:"file_all_negative"`
}

// Result is the full underwriting decision.
type Result struct {
	Fundable             bool            `json:"fundable"`
	PrimaryBureau        report.Bureau   `json:"primary_bureau"`
	Metrics              Metrics         `json:"metrics"`
	Bureaus              []BureauSummary `json:"bureaus"`
	Personal             Personal        `json:"personal"`
	Business             Business        `json:"business"`
	TotalCombinedFunding int             `json:"total_combined_funding"`
	Flags                Flags           `json:"flags"`
	BannerFunding        int             `json:"banner_funding"`
}

// FallbackResult is returned when evaluation panics: not fundable, banner at
// the floor, no funding.
func FallbackResult() Result {
	return Result{
		Fundable:      false,
		PrimaryBureau: report.Experian,
		BannerFunding: BannerFundingFloor,
	}
}
