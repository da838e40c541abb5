package report

import "github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/fault"

// Rejection reasons emitted by slot enforcement.
const (
	ReasonStaleReport       = string(fault.StaleReport)
	ReasonMaxBureausReached = string(fault.MaxBureausReached)
)

// maxSlots caps the profile at one record per bureau.
const maxSlots = 3

// SlotSet merges incoming bureau records under the slot rule: one record per
// bureau, replacement only by a strictly newer report date. Merging is
// idempotent under reordering because the outcome depends only on content and
// report dates.
type SlotSet struct {
	records    map[Bureau]BureauRecord
	rejections []Rejection
	warnings   []string
}

// NewSlotSet creates an empty slot set.
func NewSlotSet() *SlotSet {
	return &SlotSet{records: make(map[Bureau]BureauRecord, maxSlots)}
}

// Enforce applies the slot rule to one incoming record. A record for an empty
// slot is inserted; an occupied slot is replaced only when the incoming report
// date is strictly newer, otherwise a stale_report rejection is recorded.
// Records beyond three distinct bureaus are rejected with max_bureaus_reached.
func (s *SlotSet) Enforce(in BureauRecord) {
	existing, occupied := s.records[in.Bureau]
	if !occupied {
		if len(s.records) >= maxSlots {
			s.rejections = append(s.rejections, Rejection{Bureau: in.Bureau, Reason: ReasonMaxBureausReached})
			return
		}
		s.records[in.Bureau] = in
		return
	}

	inTime, inOK := in.ReportTime()
	exTime, exOK := existing.ReportTime()

	// Strictly newer wins. An unparsable incoming date never replaces; an
	// unparsable existing date is treated as the zero time so a dated incoming
	// report can supersede it.
	newer := false
	switch {
	case inOK && exOK:
		newer = inTime.After(exTime)
	case inOK && !exOK:
		newer = true
	}

	if newer {
		s.records[in.Bureau] = in
		return
	}
	s.rejections = append(s.rejections, Rejection{Bureau: in.Bureau, Reason: ReasonStaleReport})
}

// AddWarning records a document-level ingestion warning.
func (s *SlotSet) AddWarning(w string) {
	if w != "" {
		s.warnings = append(s.warnings, w)
	}
}

// Profile returns the merged profile with records in canonical bureau order.
func (s *SlotSet) Profile() Profile {
	p := Profile{
		Rejections: s.rejections,
		Warnings:   s.warnings,
	}
	for _, b := range AllBureaus() {
		if rec, ok := s.records[b]; ok {
			p.Records = append(p.Records, rec)
		}
	}
	return p
}
