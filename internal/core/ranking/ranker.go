package ranking

import (
	"sort"

	"dairy-advisor/internal/core/series"
)

// GroupBy 排名的分組維度
type GroupBy int

const (
	// GroupByMonth 依月份（跨年份）分組
	GroupByMonth GroupBy = iota
	// GroupByRegion 依地區分組
	GroupByRegion
)

func (g GroupBy) String() string {
	if g == GroupByRegion {
		return "region"
	}
	return "month"
}

// Entry 排名項目
type Entry struct {
	Key             string  `json:"key"`
	Month           int     `json:"month,omitempty"`
	AggregateValue  float64 `json:"aggregate_value"`
	RelativePercent float64 `json:"relative_percent"`
}

type group struct {
	key   string
	month int
	sum   float64
	count int
}

// RankByAggregate 計算每組已知數值的平均，由大到小排序後取前 topN。
// 同值時月份依時間順序、地區依字母順序；RelativePercent 以回傳項目中的最大值為基準。
func RankByAggregate(s *series.CleanedSeries, by GroupBy, topN int) []Entry {
	groups := make(map[string]*group)

	s.Each(func(o series.Observation) {
		if o.Value.Missing {
			return
		}
		g := &group{key: o.Key.Region}
		if by == GroupByMonth {
			g = &group{key: series.MonthName(o.Key.Month), month: o.Key.Month}
		} else if g.key == "" || g.key == series.NationalRegion {
			return
		}

		existing, ok := groups[g.key]
		if !ok {
			groups[g.key] = g
			existing = g
		}
		existing.sum += o.Value.Number
		existing.count++
	})

	entries := make([]Entry, 0, len(groups))
	for _, g := range groups {
		entries = append(entries, Entry{
			Key:            g.key,
			Month:          g.month,
			AggregateValue: g.sum / float64(g.count),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.AggregateValue != b.AggregateValue {
			return a.AggregateValue > b.AggregateValue
		}
		if by == GroupByMonth {
			return a.Month < b.Month
		}
		return a.Key < b.Key
	})

	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}

	var peak float64
	if len(entries) > 0 {
		peak = entries[0].AggregateValue
	}
	for i := range entries {
		if peak != 0 {
			entries[i].RelativePercent = entries[i].AggregateValue / peak * 100
		}
	}

	return entries
}
