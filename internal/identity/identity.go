// Package identity gates the pipeline on name match and report freshness.
// The name rule is a token-set heuristic over casefolded, diacritic-stripped
// names; freshness rejects reports older than 30 days.
package identity

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/fault"
)

// MaxReportAgeDays is the freshness window.
const MaxReportAgeDays = 30

// minSharedTokens and minTokenLen parameterize the partial-match rule.
const (
	minSharedTokens = 2
	minTokenLen     = 2
)

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName lowercases, strips diacritics, and deletes apostrophes and
// periods so "O'Brien" and "obrien" compare equal. Spaces and hyphens
// stay as token separators.
func foldName(s string) string {
	out, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	var b strings.Builder
	for _, r := range out {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// tokens splits a folded name into its non-empty tokens.
func tokens(s string) []string {
	return strings.Fields(foldName(s))
}

// tokenSet builds a set from tokens.
func tokenSet(tok []string) map[string]bool {
	set := make(map[string]bool, len(tok))
	for _, t := range tok {
		set[t] = true
	}
	return set
}

// MatchName compares the submitted name against the union of bureau name
// observations. A match is either token-set equality with some observed name,
// or at least two shared tokens of length ≥2 including one surname token.
func MatchName(first, last string, observed []string) bool {
	submitted := append(tokens(first), tokens(last)...)
	if len(submitted) == 0 {
		return false
	}
	submittedSet := tokenSet(submitted)
	surnames := tokenSet(tokens(last))

	for _, name := range observed {
		obs := tokens(name)
		if len(obs) == 0 {
			continue
		}
		obsSet := tokenSet(obs)

		if setsEqual(submittedSet, obsSet) {
			return true
		}

		shared := 0
		surnameShared := false
		for t := range submittedSet {
			if len(t) >= minTokenLen && obsSet[t] {
				shared++
				if surnames[t] {
					surnameShared = true
				}
			}
		}
		if shared >= minSharedTokens && surnameShared {
			return true
		}
	}
	return false
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for t := range a {
		if !b[t] {
			return false
		}
	}
	return true
}

// CheckFreshness rejects when any report date is older than the freshness
// window. Unparsable dates pass with a warning rather than blocking the user.
func CheckFreshness(dates []time.Time, now time.Time) *fault.Error {
	cutoff := now.AddDate(0, 0, -MaxReportAgeDays)
	for _, d := range dates {
		if d.Before(cutoff) {
			age := int(now.Sub(d).Hours() / 24)
			return fault.New(fault.ReportTooOld, "report is %d days old (max %d)", age, MaxReportAgeDays)
		}
	}
	return nil
}
