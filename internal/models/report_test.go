package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringListScan(t *testing.T) {
	var l StringList
	require.NoError(t, l.Scan([]byte(`["growth","margins"]`)))
	assert.Equal(t, StringList{"growth", "margins"}, l)

	require.NoError(t, l.Scan(""))
	assert.Empty(t, l)

	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)

	assert.Error(t, l.Scan(42))
}

func TestStringListValueOfNil(t *testing.T) {
	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestMetricsSetColumns(t *testing.T) {
	pe := 8.5
	roe := 12.0
	m := CompanyMetrics{PERatio: &pe, ROE: &roe}
	assert.Equal(t, []string{"pe_ratio", "roe"}, m.SetColumns())

	assert.Empty(t, (&CompanyMetrics{}).SetColumns())
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "APN", NormalizeTicker(" apn "))
}

func TestReportTypeValid(t *testing.T) {
	assert.True(t, ReportAnnual.Valid())
	assert.False(t, ReportType("WEEKLY").Valid())
}

func TestSectorValid(t *testing.T) {
	assert.True(t, SectorFinancials.Valid())
	assert.False(t, Sector("financials").Valid())
}
