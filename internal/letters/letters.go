// Package letters produces the dispute/optimization letter set as PDF
// documents. The set is path-dependent: the repair path yields 12 letters
// (three dispute rounds plus a personal-info letter per bureau), the fundable
// path 6 (an inquiry letter plus a personal-info letter per bureau).
// Filenames and CRM field keys follow a fixed taxonomy.
package letters

import (
	"fmt"
	"time"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
)

// Path selects the letter set.
type Path string

const (
	PathRepair   Path = "repair"
	PathFundable Path = "fundable"
)

// Expected letter counts per path.
const (
	RepairLetterCount   = 12
	FundableLetterCount = 6
)

const disputeRounds = 3

// Identity carries the applicant fields printed on each letter.
type Identity struct {
	FirstName string
	LastName  string
	Address   string
}

// Letter is one generated document with its storage filename and the CRM
// custom-field key its uploaded URL maps to.
type Letter struct {
	Filename string
	FieldKey string
	Content  []byte
}

// bureauAddresses are the dispute mailing addresses printed on letters.
var bureauAddresses = map[report.Bureau]string{
	report.Experian:   "Experian\nP.O. Box 4500\nAllen, TX 75013",
	report.Equifax:    "Equifax Information Services LLC\nP.O. Box 740256\nAtlanta, GA 30374",
	report.TransUnion: "TransUnion Consumer Solutions\nP.O. Box 2000\nChester, PA 19016",
}

// Generate produces the full letter set for a path.
func Generate(path Path, p report.Profile, id Identity, now time.Time) ([]Letter, error) {
	var out []Letter
	for _, b := range report.AllBureaus() {
		rec := p.Get(b)

		switch path {
		case PathRepair:
			for round := 1; round <= disputeRounds; round++ {
				body := disputeBody(b, rec, id, round, now)
				content, err := renderPDF(body)
				if err != nil {
					return nil, fmt.Errorf("render %s round %d: %w", b, round, err)
				}
				name := fmt.Sprintf("%s_round%d.pdf", b.Short(), round)
				out = append(out, Letter{Filename: name, FieldKey: FieldKey(path, name), Content: content})
			}
		case PathFundable:
			body := inquiryBody(b, rec, id, now)
			content, err := renderPDF(body)
			if err != nil {
				return nil, fmt.Errorf("render %s inquiry: %w", b, err)
			}
			name := fmt.Sprintf("inquiry_%s.pdf", b.Short())
			out = append(out, Letter{Filename: name, FieldKey: FieldKey(path, name), Content: content})
		default:
			return nil, fmt.Errorf("unknown letter path %q", path)
		}

		body := personalInfoBody(b, id, now)
		content, err := renderPDF(body)
		if err != nil {
			return nil, fmt.Errorf("render %s personal info: %w", b, err)
		}
		name := fmt.Sprintf("personal_info_%s.pdf", b.Short())
		out = append(out, Letter{Filename: name, FieldKey: FieldKey(path, name), Content: content})
	}
	return out, nil
}

// FieldKey maps a letter filename to its CRM custom-field key.
//
//	repair:   ex_round1.pdf          -> repair_letter_round_1_ex
//	          personal_info_ex.pdf   -> repair_letter_personal_info_ex
//	fundable: inquiry_ex.pdf         -> funding_letter_inquiry_ex
//	          personal_info_ex.pdf   -> funding_letter_personal_info_ex
func FieldKey(path Path, filename string) string {
	for _, b := range report.AllBureaus() {
		short := b.Short()
		for round := 1; round <= disputeRounds; round++ {
			if filename == fmt.Sprintf("%s_round%d.pdf", short, round) {
				return fmt.Sprintf("repair_letter_round_%d_%s", round, short)
			}
		}
		if filename == fmt.Sprintf("inquiry_%s.pdf", short) {
			return fmt.Sprintf("funding_letter_inquiry_%s", short)
		}
		if filename == fmt.Sprintf("personal_info_%s.pdf", short) {
			if path == PathRepair {
				return fmt.Sprintf("repair_letter_personal_info_%s", short)
			}
			return fmt.Sprintf("funding_letter_personal_info_%s", short)
		}
	}
	return ""
}

// ExpectedCount returns the letter cardinality for a path.
func ExpectedCount(path Path) int {
	if path == PathRepair {
		return RepairLetterCount
	}
	return FundableLetterCount
}
