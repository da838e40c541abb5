package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datedRecord(b Bureau, date string) BureauRecord {
	return BureauRecord{Bureau: b, Available: true, ReportDate: date}
}

func TestSlotSet_InsertAndOrder(t *testing.T) {
	s := NewSlotSet()
	s.Enforce(datedRecord(TransUnion, "2026-08-01"))
	s.Enforce(datedRecord(Experian, "2026-08-01"))
	s.Enforce(datedRecord(Equifax, "2026-08-01"))

	p := s.Profile()
	require.Len(t, p.Records, 3)
	assert.Equal(t, Experian, p.Records[0].Bureau)
	assert.Equal(t, Equifax, p.Records[1].Bureau)
	assert.Equal(t, TransUnion, p.Records[2].Bureau)
	assert.Empty(t, p.Rejections)
}

func TestSlotSet_StrictlyNewerReplaces(t *testing.T) {
	s := NewSlotSet()
	old := datedRecord(Experian, "2026-07-01")
	old.Inquiries = 1
	s.Enforce(old)

	newer := datedRecord(Experian, "2026-08-01")
	newer.Inquiries = 5
	s.Enforce(newer)

	p := s.Profile()
	require.Len(t, p.Records, 1)
	assert.Equal(t, 5, p.Records[0].Inquiries)
	assert.Empty(t, p.Rejections)
}

func TestSlotSet_StaleAndEqualRejected(t *testing.T) {
	tests := []struct {
		name         string
		existingDate string
		incomingDate string
	}{
		{name: "older incoming", existingDate: "2026-08-01", incomingDate: "2026-07-01"},
		{name: "equal date is not strictly newer", existingDate: "2026-08-01", incomingDate: "2026-08-01"},
		{name: "unparsable incoming never replaces", existingDate: "2026-08-01", incomingDate: "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSlotSet()
			s.Enforce(datedRecord(Equifax, tt.existingDate))
			s.Enforce(datedRecord(Equifax, tt.incomingDate))

			p := s.Profile()
			require.Len(t, p.Records, 1)
			assert.Equal(t, tt.existingDate, p.Records[0].ReportDate)
			require.Len(t, p.Rejections, 1)
			assert.Equal(t, ReasonStaleReport, p.Rejections[0].Reason)
			assert.Equal(t, Equifax, p.Rejections[0].Bureau)
		})
	}
}

func TestSlotSet_DatedSupersedesUnparsable(t *testing.T) {
	s := NewSlotSet()
	s.Enforce(datedRecord(TransUnion, "not a date"))
	s.Enforce(datedRecord(TransUnion, "2026-08-01"))

	p := s.Profile()
	require.Len(t, p.Records, 1)
	assert.Equal(t, "2026-08-01", p.Records[0].ReportDate)
	assert.Empty(t, p.Rejections)
}

func TestSlotSet_OrderIndependent(t *testing.T) {
	a := NewSlotSet()
	a.Enforce(datedRecord(Experian, "2026-07-01"))
	a.Enforce(datedRecord(Experian, "2026-08-01"))

	b := NewSlotSet()
	b.Enforce(datedRecord(Experian, "2026-08-01"))
	b.Enforce(datedRecord(Experian, "2026-07-01"))

	assert.Equal(t, a.Profile().Records, b.Profile().Records)
}

func TestSlotSet_Warnings(t *testing.T) {
	s := NewSlotSet()
	s.AddWarning("tri_merge_detection_failed")
	s.AddWarning("")
	p := s.Profile()
	assert.Equal(t, []string{"tri_merge_detection_failed"}, p.Warnings)
}
