package letters

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
)

const dateLayout = "January 2, 2006"

// letterhead renders the common sender/recipient block.
func letterhead(b report.Bureau, id Identity, now time.Time) string {
	var s strings.Builder
	fmt.Fprintf(&s, "%s %s\n", id.FirstName, id.LastName)
	if id.Address != "" {
		s.WriteString(id.Address)
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(now.Format(dateLayout))
	s.WriteString("\n\n")
	s.WriteString(bureauAddresses[b])
	s.WriteString("\n\n")
	return s.String()
}

// disputeBody is the round-specific dispute letter. Round 1 is the initial
// dispute, round 2 demands the method of verification, round 3 escalates.
func disputeBody(b report.Bureau, rec *report.BureauRecord, id Identity, round int, now time.Time) string {
	var s strings.Builder
	s.WriteString(letterhead(b, id, now))
	s.WriteString("Re: Formal dispute of inaccurate information\n\n")
	s.WriteString("To whom it may concern:\n\n")

	switch round {
	case 1:
		s.WriteString("Under the Fair Credit Reporting Act, 15 U.S.C. § 1681i, I dispute the accuracy of the following items on my credit file and request a reinvestigation:\n\n")
	case 2:
		s.WriteString("This is my second request regarding items previously disputed on my credit file. Per 15 U.S.C. § 1681i(a)(7), I request the method of verification used for each item below:\n\n")
	default:
		s.WriteString("Despite two prior requests, the following items remain on my credit file without adequate verification. Continued reporting of unverified information is a violation of the FCRA, and I am prepared to escalate this matter to the Consumer Financial Protection Bureau:\n\n")
	}

	wrote := false
	if rec != nil {
		for _, t := range rec.Tradelines {
			if !t.Derogatory() {
				continue
			}
			creditor := t.Creditor
			if creditor == "" {
				creditor = "Unnamed account"
			}
			fmt.Fprintf(&s, "  - %s — reported status: %s\n", creditor, t.Status)
			wrote = true
		}
	}
	if !wrote {
		s.WriteString("  - All derogatory accounts, collections, and late payment notations on my file\n")
	}

	s.WriteString("\nPlease complete your reinvestigation within 30 days and send me an updated copy of my report.\n\nSincerely,\n\n")
	fmt.Fprintf(&s, "%s %s\n", id.FirstName, id.LastName)
	return s.String()
}

// inquiryBody disputes unauthorized hard inquiries.
func inquiryBody(b report.Bureau, rec *report.BureauRecord, id Identity, now time.Time) string {
	var s strings.Builder
	s.WriteString(letterhead(b, id, now))
	s.WriteString("Re: Removal of unauthorized inquiries\n\n")
	s.WriteString("To whom it may concern:\n\n")
	s.WriteString("A review of my credit file shows hard inquiries that I did not authorize. Under 15 U.S.C. § 1681b, a consumer report may only be furnished with a permissible purpose. I request that you remove all inquiries you cannot verify were authorized by me")
	if rec != nil && rec.Inquiries > 0 {
		fmt.Fprintf(&s, " (your file currently shows %d)", rec.Inquiries)
	}
	s.WriteString(".\n\nPlease confirm the removals in writing within 30 days.\n\nSincerely,\n\n")
	fmt.Fprintf(&s, "%s %s\n", id.FirstName, id.LastName)
	return s.String()
}

// personalInfoBody requests removal of outdated identity data.
func personalInfoBody(b report.Bureau, id Identity, now time.Time) string {
	var s strings.Builder
	s.WriteString(letterhead(b, id, now))
	s.WriteString("Re: Removal of outdated personal information\n\n")
	s.WriteString("To whom it may concern:\n\n")
	fmt.Fprintf(&s, "Please update my credit file to reflect only my current legal name, %s %s, and my current address. Remove all other name variations, previous addresses, and outdated employer records from my file.\n\n", id.FirstName, id.LastName)
	s.WriteString("These stale records create confusion and can enable mixed files. Please confirm the updates in writing.\n\nSincerely,\n\n")
	fmt.Fprintf(&s, "%s %s\n", id.FirstName, id.LastName)
	return s.String()
}

// renderPDF lays the letter body out on US Letter pages. Bodies are UTF-8
// (statute symbols, accented names) while the core fonts are cp1252, so the
// text goes through fpdf's unicode translator.
func renderPDF(body string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "Letter", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetMargins(20, 20, 20)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 11)
	doc.MultiCell(0, 5.5, tr(body), "", "L", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output failed: %w", err)
	}
	return buf.Bytes(), nil
}
