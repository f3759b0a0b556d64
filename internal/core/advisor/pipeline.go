package advisor

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"dairy-advisor/internal/core/cache"
	"dairy-advisor/internal/core/dataset"
	"dairy-advisor/internal/core/series"
	"dairy-advisor/internal/infrastructure/config"
	"dairy-advisor/internal/pkg/common"
)

// SeriesSource 提供清理後序列的來源
type SeriesSource interface {
	Series(ctx context.Context, datasetID string) (*series.CleanedSeries, error)
}

// DatasetSpec 單一資料集的讀取設定
type DatasetSpec struct {
	ID     string
	Path   string
	URL    string
	Schema dataset.Schema
}

// Pipeline 以相同的編碼、分隔符號與對應表流程讀取所有資料集，並快取清理結果
type Pipeline struct {
	encodings []string
	delimiter rune
	specs     map[string]DatasetSpec
	memory    *cache.Manager
	remote    *cache.Service
}

// NewPipeline 依設定建立資料管線，memory 與 remote 可為 nil
func NewPipeline(cfg *config.DatasetsConfig, memory *cache.Manager, remote *cache.Service) *Pipeline {
	delimiter := dataset.DefaultDelimiter
	if runes := []rune(cfg.Delimiter); len(runes) == 1 {
		delimiter = runes[0]
	}

	specs := []DatasetSpec{
		{ID: dataset.DatasetVolume, Path: cfg.Path(cfg.Volume.File), URL: cfg.Volume.URL, Schema: dataset.VolumeSchema},
		{ID: dataset.DatasetPrice, Path: cfg.Path(cfg.Price.File), URL: cfg.Price.URL, Schema: dataset.PriceSchema},
		{ID: dataset.DatasetCensus, Path: cfg.Path(cfg.Census.File), URL: cfg.Census.URL, Schema: dataset.CensusSchema(cfg.Census.Year)},
	}

	p := &Pipeline{
		encodings: cfg.Encodings,
		delimiter: delimiter,
		specs:     make(map[string]DatasetSpec, len(specs)),
		memory:    memory,
		remote:    remote,
	}
	for _, s := range specs {
		p.specs[s.ID] = s
	}
	return p
}

// Specs 依識別碼排序的資料集設定
func (p *Pipeline) Specs() []DatasetSpec {
	out := make([]DatasetSpec, 0, len(p.specs))
	for _, s := range p.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Series 讀取資料集；檔案修改時間與大小未變時使用快取
func (p *Pipeline) Series(ctx context.Context, datasetID string) (*series.CleanedSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spec, ok := p.specs[datasetID]
	if !ok {
		return nil, &common.InvalidInputError{Field: "dataset", Reason: "unknown dataset " + datasetID}
	}

	stamp, err := cache.StatFile(spec.Path)
	if err != nil {
		p.memory.Invalidate(spec.Path)
		return nil, &common.SourceUnreadableError{Path: spec.Path, Err: err}
	}

	if cached, ok := p.memory.Get(spec.Path, stamp); ok {
		return cached, nil
	}

	if p.remote.Enabled() {
		cached, err := p.remote.Get(ctx, spec.Path, stamp)
		switch {
		case err == nil:
			p.store(spec.Path, stamp, cached)
			return cached, nil
		case !errors.Is(err, common.ErrCacheMiss):
			common.LogWarn("Redis 快取讀取失敗",
				zap.String("dataset", datasetID),
				zap.Error(err),
			)
		}
	}

	start := time.Now()
	table, err := dataset.Load(spec.Path, p.encodings, p.delimiter)
	if err != nil {
		return nil, err
	}
	cleaned, err := series.Clean(table, spec.Schema)
	if err != nil {
		return nil, err
	}
	common.LogDatasetLoad(datasetID, spec.Path, table.Encoding, len(table.Rows), cleaned.Dropped(), time.Since(start))

	p.store(spec.Path, stamp, cleaned)
	if err := p.remote.Set(ctx, spec.Path, stamp, cleaned); err != nil {
		common.LogWarn("Redis 快取寫入失敗",
			zap.String("dataset", datasetID),
			zap.Error(err),
		)
	}

	return cleaned, nil
}

func (p *Pipeline) store(path string, stamp cache.Stamp, value *series.CleanedSeries) {
	if err := p.memory.Set(path, stamp, value); err != nil {
		common.LogWarn("快取寫入失敗",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}
