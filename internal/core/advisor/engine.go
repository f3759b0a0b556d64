package advisor

import (
	"context"
	"fmt"
	"strings"

	"dairy-advisor/internal/core/breed"
	"dairy-advisor/internal/core/dataset"
	"dairy-advisor/internal/core/forecast"
	"dairy-advisor/internal/core/ranking"
	"dairy-advisor/internal/core/series"
	"dairy-advisor/internal/pkg/common"
)

// Options 引擎參數
type Options struct {
	Horizon    int
	MaxHorizon int
	TopRegions int
	TopMonths  int
}

// DefaultOptions 預設參數
var DefaultOptions = Options{
	Horizon:    forecast.DefaultHorizon,
	MaxHorizon: 60,
	TopRegions: 3,
	TopMonths:  3,
}

// Engine 推薦引擎，不持有可變狀態，每次呼叫都從完整資料重新計算
type Engine struct {
	source   SeriesSource
	catalog  *breed.Catalog
	affinity *breed.Affinity
	opts     Options
}

// NewEngine 創建推薦引擎
func NewEngine(source SeriesSource, catalog *breed.Catalog, affinity *breed.Affinity, opts Options) *Engine {
	if opts.Horizon <= 0 {
		opts.Horizon = DefaultOptions.Horizon
	}
	if opts.MaxHorizon <= 0 {
		opts.MaxHorizon = DefaultOptions.MaxHorizon
	}
	opts.MaxHorizon = min(opts.MaxHorizon, forecast.MaxHorizon)
	opts.Horizon = min(opts.Horizon, opts.MaxHorizon)
	if opts.TopRegions <= 0 {
		opts.TopRegions = DefaultOptions.TopRegions
	}
	if opts.TopMonths <= 0 {
		opts.TopMonths = DefaultOptions.TopMonths
	}
	if catalog == nil {
		catalog = breed.DefaultCatalog()
	}
	if affinity == nil {
		affinity = breed.DefaultAffinity()
	}
	return &Engine{source: source, catalog: catalog, affinity: affinity, opts: opts}
}

// Options 目前的參數
func (e *Engine) Options() Options {
	return e.opts
}

// Ready 檢查所有資料集都能讀取與清理
func (e *Engine) Ready(ctx context.Context) error {
	for _, id := range []string{dataset.DatasetVolume, dataset.DatasetPrice, dataset.DatasetCensus} {
		if _, err := e.source.Series(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Breeds 品種目錄
func (e *Engine) Breeds() []breed.Profile {
	return e.catalog.Profiles()
}

// Breed 查詢單一品種
func (e *Engine) Breed(name string) (breed.Profile, error) {
	p, ok := e.catalog.Lookup(name)
	if !ok {
		return breed.Profile{}, &common.UnknownBreedError{Breed: name}
	}
	return p, nil
}

// ForecastSeries 對資料集的某個地區（空白或 NACIONAL 表示全國）做趨勢預測，
// horizon 超過 MaxHorizon 時回傳 InvalidInputError
func (e *Engine) ForecastSeries(ctx context.Context, datasetID, region string, horizon int) (*forecast.Result, error) {
	if horizon <= 0 {
		horizon = e.opts.Horizon
	}
	if horizon > e.opts.MaxHorizon {
		return nil, &common.InvalidInputError{
			Field:  "horizon",
			Reason: fmt.Sprintf("must be at most %d months", e.opts.MaxHorizon),
		}
	}

	s, err := e.timeSeries(ctx, datasetID, region)
	if err != nil {
		return nil, err
	}
	return forecast.Forecast(s, horizon)
}

// TopRegionsByVolume 依平均集乳量排名地區，year 為 nil 時使用全部年份
func (e *Engine) TopRegionsByVolume(ctx context.Context, year *int, topN int) ([]ranking.Entry, error) {
	if topN <= 0 {
		topN = e.opts.TopRegions
	}

	volume, err := e.source.Series(ctx, dataset.DatasetVolume)
	if err != nil {
		return nil, err
	}
	if year != nil {
		volume = volume.ForYear(*year)
	}
	return ranking.RankByAggregate(volume, ranking.GroupByRegion, topN), nil
}

// BestMonths 依月份平均值排名，region 空白時使用全國序列
func (e *Engine) BestMonths(ctx context.Context, datasetID, region string, topN int) ([]ranking.Entry, error) {
	if topN <= 0 {
		topN = e.opts.TopMonths
	}

	s, err := e.timeSeries(ctx, datasetID, region)
	if err != nil {
		return nil, err
	}
	return ranking.RankByAggregate(s, ranking.GroupByMonth, topN), nil
}

// timeSeries 取得可預測資料集中單一地區或全國的序列
func (e *Engine) timeSeries(ctx context.Context, datasetID, region string) (*series.CleanedSeries, error) {
	datasetID = strings.ToLower(strings.TrimSpace(datasetID))
	if datasetID != dataset.DatasetVolume && datasetID != dataset.DatasetPrice {
		return nil, &common.InvalidInputError{Field: "dataset", Reason: "must be volume or price"}
	}

	s, err := e.source.Series(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	key := series.CanonicalRegion(region)
	if key == "" || key == series.NationalRegion {
		return national(s), nil
	}
	if !s.HasRegion(key) {
		return nil, &common.InvalidInputError{Field: "region", Reason: "no " + datasetID + " data for " + key}
	}
	return s.ForRegion(key), nil
}

// national 集乳量加總，價格取平均
func national(s *series.CleanedSeries) *series.CleanedSeries {
	if s.Dataset() == dataset.DatasetPrice {
		return s.National(series.Mean)
	}
	return s.National(series.Sum)
}
