package advisor

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"dairy-advisor/internal/core/breed"
	"dairy-advisor/internal/core/dataset"
	"dairy-advisor/internal/core/forecast"
	"dairy-advisor/internal/core/ranking"
	"dairy-advisor/internal/core/series"
	"dairy-advisor/internal/pkg/common"
)

// 每月天數
const daysPerMonth = 30

// 推薦模式
const (
	ModeCurrent    = "current"
	ModeHistorical = "historical"
)

// 數值來源
const (
	SourceRegion   = "region"
	SourceNational = "national"
)

// RecommendRequest 推薦請求
type RecommendRequest struct {
	Breed      string `json:"breed"`
	HerdSize   int    `json:"herd_size"`
	TargetYear *int   `json:"target_year,omitempty"`
}

// MonthlyValue 年度序列中的單月數值，沒有資料時為 0
type MonthlyValue struct {
	Month   int     `json:"month"`
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	HasData bool    `json:"has_data"`
}

// Candidate 候選地區
type Candidate struct {
	Region                string          `json:"region"`
	Tier                  int             `json:"tier"`
	YieldPerCow           float64         `json:"yield_per_cow"`
	DailyVolumeEstimate   float64         `json:"daily_volume_estimate"`
	MonthlyVolumeEstimate float64         `json:"monthly_volume_estimate"`
	HerdCount             float64         `json:"herd_count"`
	LatestKnownPrice      *float64        `json:"latest_known_price"`
	ForecastPrice         float64         `json:"forecast_price"`
	ForecastVolume        float64         `json:"forecast_volume"`
	ForecastPeriod        series.Period   `json:"forecast_period"`
	PriceSource           string          `json:"price_source"`
	VolumeSource          string          `json:"volume_source"`
	NonForecastBased      bool            `json:"non_forecast_based"`
	BestMonths            []ranking.Entry `json:"best_months"`
	AnnualSeries          []MonthlyValue  `json:"annual_series"`
}

// FarmTotals 依品種最小、最大、平均產量估算的牧場總產量
type FarmTotals struct {
	MinDaily   float64 `json:"min_daily"`
	MaxDaily   float64 `json:"max_daily"`
	AvgDaily   float64 `json:"avg_daily"`
	MinMonthly float64 `json:"min_monthly"`
	MaxMonthly float64 `json:"max_monthly"`
	AvgMonthly float64 `json:"avg_monthly"`
}

// Recommendation 投資推薦
type Recommendation struct {
	ID                     string          `json:"id"`
	GeneratedAt            time.Time       `json:"generated_at"`
	Breed                  breed.Profile   `json:"breed"`
	HerdSize               int             `json:"herd_size"`
	TargetYear             int             `json:"target_year"`
	Mode                   string          `json:"mode"`
	CandidateRegions       []Candidate     `json:"candidate_regions"`
	BestMonth              int             `json:"best_month"`
	BestMonthName          string          `json:"best_month_name"`
	BestMonths             []ranking.Entry `json:"best_months"`
	ForecastVolume         float64         `json:"forecast_volume"`
	ForecastPrice          float64         `json:"forecast_price"`
	ForecastPeriod         series.Period   `json:"forecast_period"`
	NonForecastBased       bool            `json:"non_forecast_based"`
	ProfitabilityEstimate  *float64        `json:"profitability_estimate"`
	ProfitabilityAvailable bool            `json:"profitability_available"`
	FarmTotals             FarmTotals      `json:"farm_totals"`
	Narrative              string          `json:"narrative"`
}

// projection 預測值或退回的最後已知值
type projection struct {
	value      float64
	period     series.Period
	forecasted bool
}

// Recommend 產生投資推薦
func (e *Engine) Recommend(ctx context.Context, req RecommendRequest) (*Recommendation, error) {
	if req.HerdSize <= 0 {
		return nil, &common.InvalidInputError{Field: "herd_size", Reason: "must be greater than zero"}
	}
	if req.TargetYear != nil && *req.TargetYear <= 0 {
		return nil, &common.InvalidInputError{Field: "target_year", Reason: "must be a positive year"}
	}
	profile, ok := e.catalog.Lookup(req.Breed)
	if !ok {
		return nil, &common.UnknownBreedError{Breed: req.Breed}
	}

	volume, err := e.source.Series(ctx, dataset.DatasetVolume)
	if err != nil {
		return nil, err
	}
	price, err := e.source.Series(ctx, dataset.DatasetPrice)
	if err != nil {
		return nil, err
	}
	census, err := e.source.Series(ctx, dataset.DatasetCensus)
	if err != nil {
		return nil, err
	}

	nationalVolume := volume.National(series.Sum)
	nationalPrice := price.National(series.Mean)

	// 最佳月份
	bestMonths := ranking.RankByAggregate(nationalVolume, ranking.GroupByMonth, e.opts.TopMonths)
	if len(bestMonths) == 0 {
		return nil, &common.InsufficientDataError{Series: forecast.Label(nationalVolume), Points: 0}
	}
	bestMonth := bestMonths[0].Month

	// 年份與模式
	latestYear, _ := volume.LatestYear()
	targetYear := latestYear
	if req.TargetYear != nil {
		targetYear = *req.TargetYear
	}
	mode := ModeCurrent
	if targetYear != latestYear {
		mode = ModeHistorical
	}

	rec := &Recommendation{
		ID:            common.GenerateUUID(),
		GeneratedAt:   time.Now().UTC(),
		Breed:         profile,
		HerdSize:      req.HerdSize,
		TargetYear:    targetYear,
		Mode:          mode,
		BestMonth:     bestMonth,
		BestMonthName: series.MonthName(bestMonth),
		BestMonths:    bestMonths,
		FarmTotals:    farmTotals(profile, req.HerdSize),
	}

	// 全國預測
	headVolume, err := e.estimate(nationalVolume, bestMonth)
	if err != nil {
		return nil, err
	}
	headPrice, err := e.estimate(nationalPrice, bestMonth)
	if err != nil {
		return nil, err
	}
	rec.ForecastVolume = headVolume.value
	rec.ForecastPrice = headPrice.value
	rec.ForecastPeriod = headVolume.period
	rec.NonForecastBased = !headVolume.forecasted || !headPrice.forecasted

	if headVolume.value != 0 {
		ratio := headPrice.value / headVolume.value
		rec.ProfitabilityEstimate = &ratio
		rec.ProfitabilityAvailable = true
	}

	// 候選地區
	candidates := e.candidates(profile, req.HerdSize, census)
	for i := range candidates {
		e.fillCandidate(&candidates[i], volume, price, nationalVolume, nationalPrice, bestMonth, targetYear)
	}
	rec.CandidateRegions = candidates

	rec.Narrative = narrative(rec)

	common.LogInfo("推薦已產生",
		zap.String("id", rec.ID),
		zap.String("breed", profile.Name),
		zap.Int("herd_size", req.HerdSize),
		zap.Int("target_year", targetYear),
		zap.Int("candidates", len(candidates)),
		zap.Bool("non_forecast_based", rec.NonForecastBased),
	)

	return rec, nil
}

// candidates 依每日產量排序的前 N 個適配地區，同值時普查牛隻數較多者優先，再依名稱
func (e *Engine) candidates(profile breed.Profile, herd int, census *series.CleanedSeries) []Candidate {
	herdCounts := make(map[string]float64)
	census.ForMeasure(dataset.MeasureTotalBovines).Each(func(o series.Observation) {
		if !o.Value.Missing {
			herdCounts[o.Key.Region] = o.Value.Number
		}
	})

	var out []Candidate
	for _, ra := range e.affinity.RegionsFor(profile.Name) {
		yield := profile.AvgYield * ra.YieldFactor
		daily := yield * float64(herd)
		out = append(out, Candidate{
			Region:                ra.Region,
			Tier:                  ra.Tier,
			YieldPerCow:           yield,
			DailyVolumeEstimate:   daily,
			MonthlyVolumeEstimate: daily * daysPerMonth,
			HerdCount:             herdCounts[ra.Region],
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DailyVolumeEstimate != b.DailyVolumeEstimate {
			return a.DailyVolumeEstimate > b.DailyVolumeEstimate
		}
		if a.HerdCount != b.HerdCount {
			return a.HerdCount > b.HerdCount
		}
		return a.Region < b.Region
	})

	if len(out) > e.opts.TopRegions {
		out = out[:e.opts.TopRegions]
	}
	return out
}

// fillCandidate 填入地區的價格、集乳量預測與年度序列
func (e *Engine) fillCandidate(c *Candidate, volume, price, nationalVolume, nationalPrice *series.CleanedSeries, bestMonth, targetYear int) {
	regionPrice, priceSource := pick(price, nationalPrice, c.Region)
	regionVolume, volumeSource := pick(volume, nationalVolume, c.Region)
	c.PriceSource, c.VolumeSource = priceSource, volumeSource

	if last, ok := regionPrice.LastKnown(); ok {
		c.LatestKnownPrice = common.Float64Ptr(last.Value.Number)
	} else if last, ok := nationalPrice.LastKnown(); ok {
		c.LatestKnownPrice = common.Float64Ptr(last.Value.Number)
		c.PriceSource = SourceNational
	}

	p, err := e.estimate(regionPrice, bestMonth)
	if err != nil && priceSource == SourceRegion {
		c.PriceSource = SourceNational
		p, err = e.estimate(nationalPrice, bestMonth)
	}
	if err == nil {
		c.ForecastPrice = p.value
	}
	forecasted := err == nil && p.forecasted

	v, err := e.estimate(regionVolume, bestMonth)
	if err != nil && volumeSource == SourceRegion {
		c.VolumeSource = SourceNational
		v, err = e.estimate(nationalVolume, bestMonth)
	}
	if err == nil {
		c.ForecastVolume = v.value
		c.ForecastPeriod = v.period
	}
	forecasted = forecasted && err == nil && v.forecasted

	c.NonForecastBased = !forecasted
	c.BestMonths = []ranking.Entry{}
	if volumeSource == SourceRegion {
		c.BestMonths = ranking.RankByAggregate(regionVolume, ranking.GroupByMonth, e.opts.TopMonths)
	}
	c.AnnualSeries = annualSeries(volume, c.Region, targetYear)
}

// pick 地區有欄位時使用地區序列，否則使用全國序列
func pick(all, nationalSeries *series.CleanedSeries, region string) (*series.CleanedSeries, string) {
	if all.HasRegion(region) {
		return all.ForRegion(region), SourceRegion
	}
	return nationalSeries, SourceNational
}

// estimate 取第一個月份等於 month 的預測期間，否則取第一個預測期間；
// 資料不足時退回最後已知值
func (e *Engine) estimate(s *series.CleanedSeries, month int) (projection, error) {
	res, err := forecast.Forecast(s, e.opts.Horizon)
	if err == nil {
		p, ok := res.At(month)
		if !ok {
			p = res.First()
		}
		return projection{value: p.Value, period: p.Period, forecasted: true}, nil
	}
	if !common.IsInsufficientData(err) {
		return projection{}, err
	}

	last, ok := s.LastKnown()
	if !ok {
		return projection{}, err
	}
	common.LogDebug("資料不足，使用最後已知值",
		zap.String("series", forecast.Label(s)),
		zap.Float64("value", last.Value.Number),
	)
	return projection{value: last.Value.Number, period: last.Key.Period()}, nil
}

// annualSeries 地區在目標年份的 12 個月集乳量
func annualSeries(volume *series.CleanedSeries, region string, year int) []MonthlyValue {
	out := make([]MonthlyValue, 12)
	for m := 1; m <= 12; m++ {
		out[m-1] = MonthlyValue{Month: m, Name: series.MonthName(m)}
	}
	volume.ForRegion(region).ForYear(year).Each(func(o series.Observation) {
		if o.Value.Missing {
			return
		}
		mv := &out[o.Key.Month-1]
		mv.Value += o.Value.Number
		mv.HasData = true
	})
	return out
}

func farmTotals(p breed.Profile, herd int) FarmTotals {
	h := float64(herd)
	return FarmTotals{
		MinDaily:   p.MinYield * h,
		MaxDaily:   p.MaxYield * h,
		AvgDaily:   p.AvgYield * h,
		MinMonthly: p.MinYield * h * daysPerMonth,
		MaxMonthly: p.MaxYield * h * daysPerMonth,
		AvgMonthly: p.AvgYield * h * daysPerMonth,
	}
}
