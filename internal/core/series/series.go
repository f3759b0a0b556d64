package series

import (
	"fmt"
	"sort"
)

// NationalRegion 全國彙總欄位的正規化名稱
const NationalRegion = "NACIONAL"

// Period 年月期間
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Before 判斷是否早於另一期間
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Add 往後推 n 個月，跨年時進位
func (p Period) Add(months int) Period {
	total := p.Year*12 + (p.Month - 1) + months
	return Period{Year: total / 12, Month: total%12 + 1}
}

// Next 下一個月
func (p Period) Next() Period {
	return p.Add(1)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Key 觀測值的鍵，Region 為空表示沒有地區維度
type Key struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Region string `json:"region,omitempty"`
}

// Period 回傳鍵的年月
func (k Key) Period() Period {
	return Period{Year: k.Year, Month: k.Month}
}

// Value 數值或缺值
type Value struct {
	Number  float64 `json:"number"`
	Missing bool    `json:"missing"`
}

// Known 建立已知數值
func Known(v float64) Value {
	return Value{Number: v}
}

// MissingValue 缺值
var MissingValue = Value{Missing: true}

// Observation 單一觀測
type Observation struct {
	Key     Key    `json:"key"`
	Measure string `json:"measure"`
	Value   Value  `json:"value"`
}

// CleanedSeries 清理後、依時間排序的不可變觀測集合
type CleanedSeries struct {
	dataset      string
	version      string
	observations []Observation
	dropped      int
}

// New 建立序列並依 (年, 月, 地區, 量測) 排序
func New(dataset, version string, observations []Observation, dropped int) *CleanedSeries {
	obs := make([]Observation, len(observations))
	copy(obs, observations)
	sort.SliceStable(obs, func(i, j int) bool {
		a, b := obs[i].Key, obs[j].Key
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		return obs[i].Measure < obs[j].Measure
	})
	return &CleanedSeries{dataset: dataset, version: version, observations: obs, dropped: dropped}
}

// Dataset 資料集識別碼
func (s *CleanedSeries) Dataset() string { return s.dataset }

// Version 產生此序列的對應表版本
func (s *CleanedSeries) Version() string { return s.version }

// Dropped 因年月無法解析而捨棄的列數
func (s *CleanedSeries) Dropped() int { return s.dropped }

// Len 觀測數
func (s *CleanedSeries) Len() int { return len(s.observations) }

// Observations 回傳觀測的複本
func (s *CleanedSeries) Observations() []Observation {
	out := make([]Observation, len(s.observations))
	copy(out, s.observations)
	return out
}

// Each 依時間順序走訪觀測
func (s *CleanedSeries) Each(fn func(Observation)) {
	for _, o := range s.observations {
		fn(o)
	}
}

// Filter 回傳符合條件的子序列
func (s *CleanedSeries) Filter(keep func(Observation) bool) *CleanedSeries {
	var obs []Observation
	for _, o := range s.observations {
		if keep(o) {
			obs = append(obs, o)
		}
	}
	// 子集合仍維持排序
	return &CleanedSeries{dataset: s.dataset, version: s.version, observations: obs}
}

// ForRegion 單一地區的子序列
func (s *CleanedSeries) ForRegion(region string) *CleanedSeries {
	region = CanonicalRegion(region)
	return s.Filter(func(o Observation) bool { return o.Key.Region == region })
}

// ForMeasure 單一量測的子序列
func (s *CleanedSeries) ForMeasure(measure string) *CleanedSeries {
	return s.Filter(func(o Observation) bool { return o.Measure == measure })
}

// ForYear 單一年份的子序列
func (s *CleanedSeries) ForYear(year int) *CleanedSeries {
	return s.Filter(func(o Observation) bool { return o.Key.Year == year })
}

// HasRegion 檢查序列是否包含該地區（含全國）
func (s *CleanedSeries) HasRegion(region string) bool {
	region = CanonicalRegion(region)
	for _, o := range s.observations {
		if o.Key.Region == region {
			return true
		}
	}
	return false
}

// Regions 依字母排序的地區清單，不含全國欄位
func (s *CleanedSeries) Regions() []string {
	seen := make(map[string]bool)
	var regions []string
	for _, o := range s.observations {
		r := o.Key.Region
		if r == "" || r == NationalRegion || seen[r] {
			continue
		}
		seen[r] = true
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}

// Measures 依字母排序的量測清單
func (s *CleanedSeries) Measures() []string {
	seen := make(map[string]bool)
	var measures []string
	for _, o := range s.observations {
		if !seen[o.Measure] {
			seen[o.Measure] = true
			measures = append(measures, o.Measure)
		}
	}
	sort.Strings(measures)
	return measures
}

// Periods 出現過的不重複年月，依時間排序
func (s *CleanedSeries) Periods() []Period {
	var periods []Period
	for _, o := range s.observations {
		p := o.Key.Period()
		if len(periods) == 0 || periods[len(periods)-1] != p {
			periods = append(periods, p)
		}
	}
	return periods
}

// Years 出現過的年份，遞增排序
func (s *CleanedSeries) Years() []int {
	var years []int
	for _, o := range s.observations {
		if len(years) == 0 || years[len(years)-1] != o.Key.Year {
			years = append(years, o.Key.Year)
		}
	}
	return years
}

// LatestYear 有已知數值的最新年份
func (s *CleanedSeries) LatestYear() (int, bool) {
	for i := len(s.observations) - 1; i >= 0; i-- {
		if !s.observations[i].Value.Missing {
			return s.observations[i].Key.Year, true
		}
	}
	return 0, false
}

// LastKnown 最後一個已知數值
func (s *CleanedSeries) LastKnown() (Observation, bool) {
	for i := len(s.observations) - 1; i >= 0; i-- {
		if !s.observations[i].Value.Missing {
			return s.observations[i], true
		}
	}
	return Observation{}, false
}

// Aggregation 同一期間跨地區的彙總方式
type Aggregation int

const (
	// Sum 加總（集乳量）
	Sum Aggregation = iota
	// Mean 平均（價格）
	Mean
)

// National 全國序列：有全國欄位時直接使用，否則依期間彙總所有地區
func (s *CleanedSeries) National(agg Aggregation) *CleanedSeries {
	if s.HasRegion(NationalRegion) {
		return s.ForRegion(NationalRegion)
	}
	return s.Collapse(NationalRegion, agg)
}

// Collapse 將每個 (期間, 量測) 的已知數值彙總成單一觀測，全部缺值時為缺值
func (s *CleanedSeries) Collapse(region string, agg Aggregation) *CleanedSeries {
	type bucket struct {
		key     Key
		measure string
		sum     float64
		count   int
	}
	type bucketKey struct {
		period  Period
		measure string
	}
	var buckets []*bucket
	index := make(map[bucketKey]*bucket)

	for _, o := range s.observations {
		if o.Key.Region == NationalRegion {
			continue
		}
		id := bucketKey{period: o.Key.Period(), measure: o.Measure}
		b, ok := index[id]
		if !ok {
			b = &bucket{key: Key{Year: o.Key.Year, Month: o.Key.Month, Region: region}, measure: o.Measure}
			index[id] = b
			buckets = append(buckets, b)
		}
		if !o.Value.Missing {
			b.sum += o.Value.Number
			b.count++
		}
	}

	obs := make([]Observation, 0, len(buckets))
	for _, b := range buckets {
		v := MissingValue
		if b.count > 0 {
			v = Known(b.sum)
			if agg == Mean {
				v = Known(b.sum / float64(b.count))
			}
		}
		obs = append(obs, Observation{Key: b.key, Measure: b.measure, Value: v})
	}
	return New(s.dataset, s.version, obs, 0)
}

// PeriodIndex 將出現過的年月對應到 0..n-1 的序號，缺口會被壓縮
type PeriodIndex struct {
	periods  []Period
	ordinals map[Period]int
}

// NewPeriodIndex 依序列建立期間索引
func NewPeriodIndex(s *CleanedSeries) *PeriodIndex {
	periods := s.Periods()
	ordinals := make(map[Period]int, len(periods))
	for i, p := range periods {
		ordinals[p] = i
	}
	return &PeriodIndex{periods: periods, ordinals: ordinals}
}

// Ordinal 回傳期間的序號
func (idx *PeriodIndex) Ordinal(p Period) (int, bool) {
	o, ok := idx.ordinals[p]
	return o, ok
}

// Len 期間數
func (idx *PeriodIndex) Len() int { return len(idx.periods) }

// Last 最後一個期間
func (idx *PeriodIndex) Last() (Period, bool) {
	if len(idx.periods) == 0 {
		return Period{}, false
	}
	return idx.periods[len(idx.periods)-1], true
}

// Periods 回傳期間的複本
func (idx *PeriodIndex) Periods() []Period {
	out := make([]Period, len(idx.periods))
	copy(out, idx.periods)
	return out
}

// Snapshot 可序列化的序列內容，用於二級快取
type Snapshot struct {
	Dataset      string        `json:"dataset"`
	Version      string        `json:"version"`
	Observations []Observation `json:"observations"`
	Dropped      int           `json:"dropped"`
}

// Snapshot 匯出序列內容
func (s *CleanedSeries) Snapshot() Snapshot {
	return Snapshot{
		Dataset:      s.dataset,
		Version:      s.version,
		Observations: s.Observations(),
		Dropped:      s.dropped,
	}
}

// FromSnapshot 由快照重建序列
func FromSnapshot(snap Snapshot) *CleanedSeries {
	return New(snap.Dataset, snap.Version, snap.Observations, snap.Dropped)
}
