package breed

import (
	"slices"
	"sort"

	"dairy-advisor/internal/core/series"
)

// Tier 氣候區：區內地區適合飼養的品種
type Tier struct {
	ID          int
	Name        string
	Regions     []string
	Breeds      []string
	YieldFactor float64
}

// RegionAffinity 地區與品種的適配結果
type RegionAffinity struct {
	Region      string  `json:"region"`
	Tier        int     `json:"tier"`
	YieldFactor float64 `json:"yield_factor"`
}

// Affinity 不可變的地區適配表
type Affinity struct {
	tiers []Tier
}

// DefaultTiers 高地酪農區與熱帶低地區
var DefaultTiers = []Tier{
	{
		ID:   1,
		Name: "highland",
		Regions: []string{
			"ANTIOQUIA", "BOGOTÁ DC", "BOYACÁ", "CALDAS", "CAUCA", "CUNDINAMARCA",
			"NARIÑO", "QUINDÍO", "RISARALDA", "VALLE DEL CAUCA",
		},
		Breeds:      []string{"Holstein", "Simmental Suizo", "Jersey", "Normando"},
		YieldFactor: 1.0,
	},
	{
		ID:   2,
		Name: "tropical lowland",
		Regions: []string{
			"ARAUCA", "ATLÁNTICO", "BOLIVAR", "CAQUETÁ", "CASANARE", "CESAR", "CÓRDOBA",
			"GUAVIARE", "HUILA", "LA GUAJIRA", "MAGDALENA", "META", "NORTE DE SANTANDER",
			"PUTUMAYO", "SANTANDER", "SUCRE", "TOLIMA",
		},
		Breeds:      []string{"Gyr"},
		YieldFactor: 1.0,
	},
}

// NewAffinity 建立適配表，地區名稱轉為正規化鍵，缺少係數時為 1
func NewAffinity(tiers []Tier) *Affinity {
	out := make([]Tier, len(tiers))
	for i, t := range tiers {
		regions := make([]string, len(t.Regions))
		for j, r := range t.Regions {
			regions[j] = series.CanonicalRegion(r)
		}
		breeds := make([]string, len(t.Breeds))
		for j, b := range t.Breeds {
			breeds[j] = Key(b)
		}
		if t.YieldFactor <= 0 {
			t.YieldFactor = 1.0
		}
		t.Regions, t.Breeds = regions, breeds
		out[i] = t
	}
	return &Affinity{tiers: out}
}

// DefaultAffinity 使用內建氣候區的適配表
func DefaultAffinity() *Affinity {
	return NewAffinity(DefaultTiers)
}

// RegionsFor 適合該品種的地區，依地區名稱排序
func (a *Affinity) RegionsFor(breedName string) []RegionAffinity {
	key := Key(breedName)
	seen := make(map[string]bool)
	var out []RegionAffinity
	for _, t := range a.tiers {
		if !slices.Contains(t.Breeds, key) {
			continue
		}
		for _, r := range t.Regions {
			if seen[r] {
				continue
			}
			seen[r] = true
			out = append(out, RegionAffinity{Region: r, Tier: t.ID, YieldFactor: t.YieldFactor})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}
