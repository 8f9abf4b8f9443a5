package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	cases := map[string]Timeframe{
		"30d":  Timeframe30Days,
		"12MO": Timeframe12Months,
		" 3y ": Timeframe3Years,
		"":     "",
	}
	for in, want := range cases {
		got, err := ParseTimeframe(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTimeframe("5w")
	assert.Error(t, err)
}

func TestTimeframeLabel(t *testing.T) {
	assert.Equal(t, "Last 30 days", Timeframe30Days.Label())
	assert.Equal(t, "Last 3 years", Timeframe3Years.Label())
	assert.Equal(t, "Any time", Timeframe("").Label())
	assert.False(t, Timeframe("weekly").Valid())
}

func TestReportFilter(t *testing.T) {
	report := &Report{Items: []ReportItem{
		{Title: "MDR transition extended", Impact: ImpactHigh, Category: CategoryRegulation, Tags: []string{"EU"}},
		{Title: "FDA warning letter", Impact: ImpactMedium, Category: CategoryEnforcement},
		{Title: "ISO 14971 amendment", Impact: ImpactLow, Category: CategoryStandard, Summary: "risk management"},
	}}

	all := report.Filter(ItemFilter{})
	assert.Len(t, all, 3)

	high := report.Filter(ItemFilter{Impacts: []Impact{ImpactHigh}})
	require.Len(t, high, 1)
	assert.Equal(t, "MDR transition extended", high[0].Title)

	byCat := report.Filter(ItemFilter{Categories: []Category{CategoryEnforcement, CategoryStandard}})
	assert.Len(t, byCat, 2)

	byText := report.Filter(ItemFilter{Text: "RISK"})
	require.Len(t, byText, 1)
	assert.Equal(t, CategoryStandard, byText[0].Category)

	byTag := report.Filter(ItemFilter{Text: "eu"})
	assert.Len(t, byTag, 1)

	var nilReport *Report
	assert.Nil(t, nilReport.Filter(ItemFilter{}))
}
