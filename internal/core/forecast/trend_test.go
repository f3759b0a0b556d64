package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairy-advisor/internal/core/series"
	"dairy-advisor/internal/pkg/common"
)

func monthly(region string, start series.Period, values ...float64) []series.Observation {
	out := make([]series.Observation, len(values))
	for i, v := range values {
		p := start.Add(i)
		out[i] = series.Observation{
			Key:     series.Key{Year: p.Year, Month: p.Month, Region: region},
			Measure: "VOLUME",
			Value:   series.Known(v),
		}
	}
	return out
}

func TestForecastCarriesYear(t *testing.T) {
	s := series.New("volume", "v1", monthly("META", series.Period{Year: 2024, Month: 10}, 10, 20, 30), 0)

	res, err := Forecast(s, 6)
	require.NoError(t, err)

	require.Len(t, res.Periods, 6)
	assert.Equal(t, series.Period{Year: 2024, Month: 12}, res.Last)
	assert.Equal(t, series.Period{Year: 2025, Month: 1}, res.Periods[0].Period)
	assert.Equal(t, series.Period{Year: 2025, Month: 6}, res.Periods[5].Period)

	assert.InDelta(t, 10, res.Slope, 1e-9)
	assert.InDelta(t, 10, res.Intercept, 1e-9)
	assert.InDelta(t, 40, res.Periods[0].Value, 1e-9)
	assert.InDelta(t, 90, res.Periods[5].Value, 1e-9)
	assert.Equal(t, 3, res.Observations)
	assert.Equal(t, "volume/META", res.Series)

	for i := 1; i < len(res.Periods); i++ {
		assert.True(t, res.Periods[i-1].Period.Before(res.Periods[i].Period))
	}
}

func TestForecastDefaultHorizon(t *testing.T) {
	s := series.New("price", "v1", monthly("META", series.Period{Year: 2024, Month: 1}, 1000, 1010), 0)

	res, err := Forecast(s, 0)
	require.NoError(t, err)
	assert.Len(t, res.Periods, DefaultHorizon)
}

func TestForecastRejectsHugeHorizon(t *testing.T) {
	s := series.New("price", "v1", monthly("META", series.Period{Year: 2024, Month: 1}, 1000, 1010), 0)

	for _, horizon := range []int{MaxHorizon + 1, 999999999, 1 << 50} {
		res, err := Forecast(s, horizon)
		assert.Nil(t, res)
		var invalid *common.InvalidInputError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "horizon", invalid.Field)
	}

	res, err := Forecast(s, MaxHorizon)
	require.NoError(t, err)
	assert.Len(t, res.Periods, MaxHorizon)
}

func TestForecastIgnoresMissingButKeepsOrdinals(t *testing.T) {
	obs := monthly("META", series.Period{Year: 2024, Month: 1}, 10, 0, 30)
	obs[1].Value = series.MissingValue
	s := series.New("volume", "v1", obs, 0)

	res, err := Forecast(s, 1)
	require.NoError(t, err)

	// 點 (0,10) 與 (2,30)，斜率 10
	assert.Equal(t, 2, res.Observations)
	assert.InDelta(t, 10, res.Slope, 1e-9)
	assert.InDelta(t, 40, res.Periods[0].Value, 1e-9)
	assert.Equal(t, series.Period{Year: 2024, Month: 4}, res.Periods[0].Period)
}

func TestForecastInsufficientData(t *testing.T) {
	obs := monthly("META", series.Period{Year: 2024, Month: 1}, 10, 0)
	obs[1].Value = series.MissingValue
	s := series.New("volume", "v1", obs, 0)

	_, err := Forecast(s, 6)
	require.Error(t, err)

	var insufficient *common.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Points)
	assert.True(t, common.IsInsufficientData(err))

	_, err = Forecast(series.New("volume", "v1", nil, 0), 6)
	assert.True(t, common.IsInsufficientData(err))
}

func TestResultAt(t *testing.T) {
	s := series.New("volume", "v1", monthly("", series.Period{Year: 2024, Month: 11}, 5, 6), 0)

	res, err := Forecast(s, 6)
	require.NoError(t, err)

	p, ok := res.At(3)
	require.True(t, ok)
	assert.Equal(t, series.Period{Year: 2025, Month: 3}, p.Period)

	_, ok = res.At(11)
	assert.False(t, ok)
	assert.Equal(t, series.Period{Year: 2025, Month: 1}, res.First().Period)
}
