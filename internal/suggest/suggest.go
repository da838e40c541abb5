// Package suggest turns an underwriting result into human-readable
// optimization and repair advice. Output is deterministic: rules fire
// independently in a fixed order and duplicate lines are dropped.
package suggest

import (
	"fmt"
	"strings"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/underwrite"
)

// Suggestions is the advice set for one applicant.
type Suggestions struct {
	WebSummary   string   `json:"web_summary"`
	EmailSummary string   `json:"email_summary"`
	Actions      []string `json:"actions"`
	AUActions    []string `json:"au_actions"`
}

// Empty is the fallback when suggestion building fails.
func Empty() Suggestions {
	return Suggestions{Actions: []string{}, AUActions: []string{}}
}

// Build produces the suggestion set for a profile and its underwriting result.
func Build(p report.Profile, r underwrite.Result) Suggestions {
	var lines dedupingList

	// Utilization tier.
	switch util := r.Metrics.UtilizationPct; {
	case util != nil && *util > underwrite.FundableUtilMax:
		lines.add(fmt.Sprintf("Pay your revolving balances down below %d%% utilization; you are currently at %d%%.",
			underwrite.FundableUtilMax, *util))
	case util != nil:
		lines.add(fmt.Sprintf("Keep your utilization at or below %d%%; you are in a strong position at %d%%.",
			underwrite.FundableUtilMax, *util))
	default:
		lines.add("Keep revolving balances low relative to your limits; utilization drives a large share of your score.")
	}

	if n := r.Metrics.NegativeAccounts; n > 0 {
		lines.add(fmt.Sprintf("Dispute or resolve your %d negative account%s; each one suppresses your score.", n, plural(n)))
	}
	if n := r.Metrics.Inquiries.Total; n > 0 {
		lines.add(fmt.Sprintf("Request removal of your %d hard inquir%s; unauthorized inquiries can often be disputed.", n, pluralY(n)))
	}
	if n := r.Metrics.LatePaymentEvents; n > 0 {
		lines.add(fmt.Sprintf("Ask your creditors for goodwill deletion of your %d late payment event%s.", n, plural(n)))
	}

	auActions := buildAUActions(p)

	if r.Flags.NeedsFileBuildout {
		lines.add("Add two to three primary tradelines to build out your file; a thin file limits every funding path.")
	}

	// Clean file: push limits up instead of repairing.
	utilOK := r.Metrics.UtilizationPct == nil || *r.Metrics.UtilizationPct <= underwrite.FundableUtilMax
	if r.Metrics.NegativeAccounts == 0 && r.Metrics.Inquiries.Total == 0 && utilOK {
		lines.add("Request credit limit increases on your open revolving accounts; higher limits raise your funding ceiling.")
	}

	actions := lines.items()
	return Suggestions{
		WebSummary:   webSummary(r),
		EmailSummary: emailSummary(r, actions),
		Actions:      actions,
		AUActions:    auActions,
	}
}

// buildAUActions emits one action per authorized-user tradeline that is
// hurting the file: utilization over the threshold or a derogatory status.
func buildAUActions(p report.Profile) []string {
	var out dedupingList
	for _, rec := range p.Records {
		for _, t := range rec.Tradelines {
			if !t.AuthorizedUser {
				continue
			}
			util, ok := t.Utilization()
			highUtil := ok && util*100 > float64(underwrite.FundableUtilMax)
			if highUtil || t.Derogatory() {
				creditor := t.Creditor
				if creditor == "" {
					creditor = "this account"
				}
				out.add(fmt.Sprintf("Ask to be removed as an authorized user on %s; it is dragging your profile down.", creditor))
			}
		}
	}
	return out.items()
}

func webSummary(r underwrite.Result) string {
	if r.Fundable {
		return fmt.Sprintf("You pre-qualify for up to $%s in combined funding.", comma(r.TotalCombinedFunding))
	}
	return "Your profile needs optimization before funding; we prepared a repair plan for you."
}

func emailSummary(r underwrite.Result, actions []string) string {
	var b strings.Builder
	b.WriteString(webSummary(r))
	b.WriteString("\n")
	if r.Metrics.Score != nil {
		fmt.Fprintf(&b, "Primary bureau (%s) score: %d\n", r.PrimaryBureau, *r.Metrics.Score)
	}
	for _, a := range actions {
		b.WriteString("- ")
		b.WriteString(a)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// dedupingList preserves insertion order while dropping repeats.
type dedupingList struct {
	seen map[string]bool
	list []string
}

func (d *dedupingList) add(s string) {
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[s] {
		return
	}
	d.seen[s] = true
	d.list = append(d.list, s)
}

func (d *dedupingList) items() []string {
	if d.list == nil {
		return []string{}
	}
	return d.list
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// comma formats a dollar amount with thousands separators.
func comma(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
