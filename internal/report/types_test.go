package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeline_Derogatory(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"Open", false},
		{"Charge-Off", true},
		{"charged off to collection", true},
		{"Collection", true},
		{"Repossession", true},
		{"Foreclosure", true},
		{"Derogatory", true},
		{"Late 30 days", true},
		{"late 120", true},
		{"Paid, was late", false},
		{"Closed", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			tl := Tradeline{Status: tt.status}
			assert.Equal(t, tt.want, tl.Derogatory())
		})
	}
}

func TestTradeline_Seasoned(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	assert.True(t, Tradeline{Opened: "2024-08"}.Seasoned(now), "exactly 24 months")
	assert.True(t, Tradeline{Opened: "2020-01"}.Seasoned(now))
	assert.False(t, Tradeline{Opened: "2024-09"}.Seasoned(now), "23 months")
	assert.False(t, Tradeline{Opened: ""}.Seasoned(now), "unknown open date never seasons")
	assert.False(t, Tradeline{Opened: "recently"}.Seasoned(now))
}

func TestTradeline_Utilization(t *testing.T) {
	limit := 10000
	util, ok := Tradeline{Balance: 2500, Limit: &limit}.Utilization()
	require.True(t, ok)
	assert.InDelta(t, 0.25, util, 1e-9)

	_, ok = Tradeline{Balance: 2500}.Utilization()
	assert.False(t, ok)

	zero := 0
	_, ok = Tradeline{Balance: 2500, Limit: &zero}.Utilization()
	assert.False(t, ok)
}

func TestProfile_Helpers(t *testing.T) {
	p := Profile{Records: []BureauRecord{
		{Bureau: Experian, Available: true, ReportDate: "2026-07-01", Names: []string{"JOHN SAMPLE", " "}},
		{Bureau: Equifax, Available: false},
		{Bureau: TransUnion, Available: true, ReportDate: "2026-08-15", Names: []string{"JOHN SAMPLE", "J SAMPLE"}},
	}}

	require.NotNil(t, p.Get(Equifax))
	assert.Nil(t, (&Profile{}).Get(Equifax))

	avail := p.Available()
	require.Len(t, avail, 2)
	assert.Equal(t, Experian, avail[0].Bureau)

	latest, ok := p.MostRecentDate()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), latest)

	assert.Equal(t, []string{"JOHN SAMPLE", "J SAMPLE"}, p.AllNames())
}

func TestParseReportDate(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"2026-08-15", true, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"2026-08", true, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		{"08/15/2026", true, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"August 15, 2026", true, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"Aug 2026", true, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		{"", false, time.Time{}},
		{"yesterday", false, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseReportDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
