package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestSanitizeScore(t *testing.T) {
	tests := []struct {
		name string
		in   *int
		want *int
	}{
		{name: "nil stays nil", in: nil, want: nil},
		{name: "normal score passes", in: intp(720), want: intp(720)},
		{name: "lower bound", in: intp(300), want: intp(300)},
		{name: "upper bound", in: intp(850), want: intp(850)},
		{name: "inflated mid-range value clamps", in: intp(7230), want: intp(850)},
		{name: "over 9000 divided then clamped", in: intp(9999), want: intp(850)},
		{name: "trailing digit artifact divided then clamped", in: intp(72300), want: intp(850)},
		{name: "above max clamps", in: intp(900), want: intp(850)},
		{name: "below min unusable", in: intp(299), want: nil},
		{name: "zero unusable", in: intp(0), want: nil},
		{name: "between max and repair threshold clamps", in: intp(8510), want: intp(850)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeScore(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestNormalize_NilAndUnavailable(t *testing.T) {
	rec := Normalize(Equifax, nil)
	assert.False(t, rec.Available)
	assert.Equal(t, Equifax, rec.Bureau)
	assert.Nil(t, rec.Score)
	assert.Empty(t, rec.Tradelines)

	off := false
	rec = Normalize(Experian, &RawBureau{Available: &off, Score: float64(750)})
	assert.False(t, rec.Available)
	assert.Nil(t, rec.Score)
}

func TestNormalize_CoercesLooseValues(t *testing.T) {
	rec := Normalize(Experian, &RawBureau{
		Score:       "723",
		Utilization: "45%",
		Inquiries:   float64(3),
		Negatives:   "-2",
		LateEvents:  nil,
		Names:       []string{"JOHN Q SAMPLE"},
		ReportDate:  " 2026-08-15 ",
		Tradelines: []RawTradeline{
			{Creditor: " Chase ", Category: "Revolving", Status: "Open", Balance: "$1,200", Limit: float64(10000), AuthorizedUser: "yes"},
			{Creditor: "Mystery", Category: "credit card", Status: "open", Balance: true},
		},
	})

	require.True(t, rec.Available)
	require.NotNil(t, rec.Score)
	assert.Equal(t, 723, *rec.Score)
	require.NotNil(t, rec.UtilizationPct)
	assert.Equal(t, 45, *rec.UtilizationPct)
	assert.Equal(t, 3, rec.Inquiries)
	assert.Equal(t, 0, rec.Negatives, "negative counts clamp to zero")
	assert.Equal(t, 0, rec.LateEvents)
	assert.Equal(t, "2026-08-15", rec.ReportDate)

	require.Len(t, rec.Tradelines, 2)
	tl := rec.Tradelines[0]
	assert.Equal(t, "Chase", tl.Creditor)
	assert.Equal(t, CategoryRevolving, tl.Category)
	assert.Equal(t, 1200, tl.Balance)
	require.NotNil(t, tl.Limit)
	assert.Equal(t, 10000, *tl.Limit)
	assert.True(t, tl.AuthorizedUser)

	assert.Equal(t, CategoryOther, rec.Tradelines[1].Category)
	assert.Equal(t, 0, rec.Tradelines[1].Balance)
}

func TestNormalize_UtilizationClamp(t *testing.T) {
	rec := Normalize(TransUnion, &RawBureau{Utilization: float64(230)})
	require.NotNil(t, rec.UtilizationPct)
	assert.Equal(t, 100, *rec.UtilizationPct)

	rec = Normalize(TransUnion, &RawBureau{Utilization: float64(-10)})
	require.NotNil(t, rec.UtilizationPct)
	assert.Equal(t, 0, *rec.UtilizationPct)
}

func TestNormalize_ScoreDetails(t *testing.T) {
	rec := Normalize(Experian, &RawBureau{Score: float64(810)})
	assert.True(t, rec.ScoreDetails.Available)
	require.NotNil(t, rec.ScoreDetails.Value)
	assert.Equal(t, 810, *rec.ScoreDetails.Value)

	rec = Normalize(Experian, &RawBureau{Score: float64(120)})
	assert.True(t, rec.Available)
	assert.False(t, rec.ScoreDetails.Available)
	assert.Nil(t, rec.ScoreDetails.Value)
}
