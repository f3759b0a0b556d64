package advisor

import (
	"context"
	"math"

	"dairy-advisor/internal/core/dataset"
	"dairy-advisor/internal/core/ranking"
	"dairy-advisor/internal/core/series"
)

// GroupExtreme 某年齡分組中數量最多或最少的地區
type GroupExtreme struct {
	Group  string  `json:"group"`
	Region string  `json:"region"`
	Count  float64 `json:"count"`
}

// GroupShare 全國各年齡分組的數量與占比
type GroupShare struct {
	Group   string  `json:"group"`
	Total   float64 `json:"total"`
	Percent float64 `json:"percent"`
}

// CensusOverview 牛隻普查摘要
type CensusOverview struct {
	Year         int             `json:"year"`
	TopRegions   []ranking.Entry `json:"top_regions"`
	Largest      []GroupExtreme  `json:"largest"`
	Smallest     []GroupExtreme  `json:"smallest"`
	Distribution []GroupShare    `json:"distribution"`
	LargestHerd  *GroupExtreme   `json:"largest_herd,omitempty"`
	SmallestHerd *GroupExtreme   `json:"smallest_herd,omitempty"`
}

// CensusOverview 依總頭數排名地區，並計算各年齡分組的極值與全國分布
func (e *Engine) CensusOverview(ctx context.Context, topN int) (*CensusOverview, error) {
	if topN <= 0 {
		topN = e.opts.TopRegions
	}

	census, err := e.source.Series(ctx, dataset.DatasetCensus)
	if err != nil {
		return nil, err
	}

	out := &CensusOverview{
		Largest:      []GroupExtreme{},
		Smallest:     []GroupExtreme{},
		Distribution: []GroupShare{},
	}
	if periods := census.Periods(); len(periods) > 0 {
		out.Year = periods[0].Year
	}

	totals := census.ForMeasure(dataset.MeasureTotalBovines)
	out.TopRegions = ranking.RankByAggregate(totals, ranking.GroupByRegion, topN)
	if largest, smallest, ok := extremes(totals, dataset.MeasureTotalBovines); ok {
		out.LargestHerd, out.SmallestHerd = &largest, &smallest
	}

	var grand float64
	groupTotals := make([]float64, len(dataset.CensusGroups))
	present := make([]bool, len(dataset.CensusGroups))
	for i, group := range dataset.CensusGroups {
		s := census.ForMeasure(group)
		if s.Len() == 0 {
			continue
		}
		present[i] = true
		if largest, smallest, ok := extremes(s, group); ok {
			out.Largest = append(out.Largest, largest)
			out.Smallest = append(out.Smallest, smallest)
		}
		s.Each(func(o series.Observation) {
			if !o.Value.Missing {
				groupTotals[i] += o.Value.Number
			}
		})
		grand += groupTotals[i]
	}

	for i, group := range dataset.CensusGroups {
		if !present[i] {
			continue
		}
		share := GroupShare{Group: group, Total: groupTotals[i]}
		if grand > 0 {
			share.Percent = math.Round(groupTotals[i]/grand*10000) / 100
		}
		out.Distribution = append(out.Distribution, share)
	}

	return out, nil
}

// extremes 數量最多與最少的地區，同值時取字母順序較前者
func extremes(s *series.CleanedSeries, group string) (GroupExtreme, GroupExtreme, bool) {
	var (
		largest, smallest GroupExtreme
		found             bool
	)
	s.Each(func(o series.Observation) {
		if o.Value.Missing {
			return
		}
		v := o.Value.Number
		r := o.Key.Region
		if !found {
			largest = GroupExtreme{Group: group, Region: r, Count: v}
			smallest = largest
			found = true
			return
		}
		if v > largest.Count || (v == largest.Count && r < largest.Region) {
			largest = GroupExtreme{Group: group, Region: r, Count: v}
		}
		if v < smallest.Count || (v == smallest.Count && r < smallest.Region) {
			smallest = GroupExtreme{Group: group, Region: r, Count: v}
		}
	})
	return largest, smallest, found
}
