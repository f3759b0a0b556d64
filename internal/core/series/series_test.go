package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(year, month int, region string, v float64) Observation {
	return Observation{Key: Key{Year: year, Month: month, Region: region}, Measure: "VOLUME", Value: Known(v)}
}

func missing(year, month int, region string) Observation {
	return Observation{Key: Key{Year: year, Month: month, Region: region}, Measure: "VOLUME", Value: MissingValue}
}

func TestPeriodAdd(t *testing.T) {
	assert.Equal(t, Period{Year: 2025, Month: 1}, Period{Year: 2024, Month: 12}.Next())
	assert.Equal(t, Period{Year: 2025, Month: 5}, Period{Year: 2024, Month: 12}.Add(5))
	assert.Equal(t, Period{Year: 2023, Month: 12}, Period{Year: 2024, Month: 1}.Add(-1))
	assert.True(t, Period{Year: 2024, Month: 12}.Before(Period{Year: 2025, Month: 1}))
	assert.Equal(t, "2024-03", Period{Year: 2024, Month: 3}.String())
}

func TestNewSortsChronologically(t *testing.T) {
	s := New("volume", "v1", []Observation{
		obs(2025, 1, "META", 3),
		obs(2024, 12, "META", 2),
		obs(2024, 2, "ANTIOQUIA", 1),
	}, 0)

	got := s.Observations()
	require.Len(t, got, 3)
	assert.Equal(t, 2024, got[0].Key.Year)
	assert.Equal(t, 2, got[0].Key.Month)
	assert.Equal(t, 2025, got[2].Key.Year)

	got[0].Value = MissingValue
	assert.False(t, s.Observations()[0].Value.Missing, "observations are copied")
}

func TestPeriodIndexCollapsesGaps(t *testing.T) {
	s := New("volume", "v1", []Observation{
		obs(2024, 1, "META", 1),
		obs(2024, 1, "ANTIOQUIA", 1),
		obs(2024, 5, "META", 2),
		obs(2025, 2, "META", 3),
	}, 0)

	idx := NewPeriodIndex(s)
	assert.Equal(t, 3, idx.Len())

	o, ok := idx.Ordinal(Period{Year: 2024, Month: 5})
	require.True(t, ok)
	assert.Equal(t, 1, o)

	_, ok = idx.Ordinal(Period{Year: 2024, Month: 2})
	assert.False(t, ok)

	last, ok := idx.Last()
	require.True(t, ok)
	assert.Equal(t, Period{Year: 2025, Month: 2}, last)
}

func TestNationalUsesExistingColumn(t *testing.T) {
	s := New("volume", "v1", []Observation{
		obs(2024, 1, "META", 10),
		obs(2024, 1, NationalRegion, 99),
	}, 0)

	national := s.National(Sum).Observations()
	require.Len(t, national, 1)
	assert.Equal(t, 99.0, national[0].Value.Number)
}

func TestNationalAggregatesRegions(t *testing.T) {
	s := New("price", "v1", []Observation{
		obs(2024, 1, "META", 1000),
		obs(2024, 1, "ANTIOQUIA", 2000),
		missing(2024, 1, "CESAR"),
		missing(2024, 2, "META"),
	}, 0)

	mean := s.National(Mean).Observations()
	require.Len(t, mean, 2)
	assert.Equal(t, 1500.0, mean[0].Value.Number)
	assert.Equal(t, NationalRegion, mean[0].Key.Region)
	assert.True(t, mean[1].Value.Missing)

	sum := s.National(Sum).Observations()
	assert.Equal(t, 3000.0, sum[0].Value.Number)
}

func TestLatestYearSkipsMissing(t *testing.T) {
	s := New("volume", "v1", []Observation{
		obs(2023, 12, "META", 1),
		missing(2024, 1, "META"),
	}, 0)

	y, ok := s.LatestYear()
	require.True(t, ok)
	assert.Equal(t, 2023, y)
	assert.Equal(t, []int{2023, 2024}, s.Years())
}
