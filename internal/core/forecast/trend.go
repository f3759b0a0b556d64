package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"dairy-advisor/internal/core/series"
	"dairy-advisor/internal/pkg/common"
)

// DefaultHorizon 預設預測月數
const DefaultHorizon = 6

// MaxHorizon 單次預測允許的最大月數
const MaxHorizon = 600

// Point 單一預測期間
type Point struct {
	series.Period
	Value float64 `json:"value"`
}

// Result 線性趨勢預測結果
type Result struct {
	Series       string        `json:"series"`
	Periods      []Point       `json:"periods"`
	Slope        float64       `json:"slope"`
	Intercept    float64       `json:"intercept"`
	Observations int           `json:"observations"`
	Last         series.Period `json:"last"`
}

// At 回傳第一個月份等於 month 的預測期間
func (r *Result) At(month int) (Point, bool) {
	for _, p := range r.Periods {
		if p.Month == month {
			return p, true
		}
	}
	return Point{}, false
}

// First 第一個預測期間
func (r *Result) First() Point {
	return r.Periods[0]
}

// Forecast 以期間序號對數值做最小平方線性迴歸，往後外推 horizon 個月。
// 同一期間有多個觀測時取平均；少於兩個有數值的期間回傳 InsufficientDataError。
// horizon 超過 MaxHorizon 時回傳 InvalidInputError，不配置任何期間。
func Forecast(s *series.CleanedSeries, horizon int) (*Result, error) {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if horizon > MaxHorizon {
		return nil, &common.InvalidInputError{
			Field:  "horizon",
			Reason: fmt.Sprintf("must be at most %d months", MaxHorizon),
		}
	}

	idx := series.NewPeriodIndex(s)
	sums := make([]float64, idx.Len())
	counts := make([]int, idx.Len())
	s.Each(func(o series.Observation) {
		if o.Value.Missing {
			return
		}
		ord, _ := idx.Ordinal(o.Key.Period())
		sums[ord] += o.Value.Number
		counts[ord]++
	})

	var xs, ys []float64
	for ord := range sums {
		if counts[ord] == 0 {
			continue
		}
		xs = append(xs, float64(ord))
		ys = append(ys, sums[ord]/float64(counts[ord]))
	}

	name := Label(s)
	if len(xs) < 2 {
		return nil, &common.InsufficientDataError{Series: name, Points: len(xs)}
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	last, _ := idx.Last()
	n := idx.Len()
	points := make([]Point, horizon)
	for i := 0; i < horizon; i++ {
		points[i] = Point{
			Period: last.Add(i + 1),
			Value:  intercept + slope*float64(n+i),
		}
	}

	return &Result{
		Series:       name,
		Periods:      points,
		Slope:        slope,
		Intercept:    intercept,
		Observations: len(xs),
		Last:         last,
	}, nil
}

// Label 序列的顯示名稱，例如 "price/ANTIOQUIA"
func Label(s *series.CleanedSeries) string {
	name := s.Dataset()
	regions := s.Regions()
	switch {
	case len(regions) == 1:
		name += "/" + regions[0]
	case len(regions) == 0 && s.HasRegion(series.NationalRegion):
		name += "/" + series.NationalRegion
	}
	return name
}
