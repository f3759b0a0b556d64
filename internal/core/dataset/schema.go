package dataset

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"dairy-advisor/internal/pkg/common"
)

// Layout 資料表的排列方式
type Layout int

const (
	// LayoutWide 每列一個年月，每個地區一個欄位（集乳量、價格）
	LayoutWide Layout = iota
	// LayoutLong 每列一個地區，每個量測一個欄位（普查）
	LayoutLong
)

// 欄位角色
const (
	RoleYear   = "YEAR"
	RoleMonth  = "MONTH"
	RoleRegion = "REGION"
)

// Role 以子字串比對的欄位角色
type Role struct {
	Name     string
	Patterns []string
	Required bool
}

// Measure 長表中的量測欄位
type Measure struct {
	Name     string
	Patterns []string
	Required bool
}

// Schema 資料集的欄位對應表
type Schema struct {
	Dataset  string
	Version  string
	Layout   Layout
	Roles    []Role
	Measures []Measure
	// Measure 寬表中所有地區欄位共用的量測名稱
	Measure string
	// Exclude 永遠不當作地區欄位的正規化欄名
	Exclude []string
	// FixedYear/FixedMonth 沒有年月欄位的資料集使用的期間
	FixedYear  int
	FixedMonth int
}

// 量測名稱
const (
	MeasureVolume       = "VOLUME"
	MeasurePrice        = "PRICE"
	MeasureCalves       = "TERNERAS < 1 ANO"
	MeasureHeifers12    = "HEMBRAS 1 - 2 ANOS"
	MeasureHeifers23    = "HEMBRAS 2 - 3 ANOS"
	MeasureCowsOver3    = "HEMBRAS > 3 ANOS"
	MeasureTotalBovines = "TOTAL BOVINOS"
)

// 資料集識別碼
const (
	DatasetVolume = "volume"
	DatasetPrice  = "price"
	DatasetCensus = "census"
)

var (
	yearRole  = Role{Name: RoleYear, Patterns: []string{"ANO", "ANIO", "YEAR", "IAAO"}, Required: true}
	monthRole = Role{Name: RoleMonth, Patterns: []string{"MES", "MONTH"}, Required: true}

	// VolumeSchema 集乳量（Res 0017 de 2012）
	VolumeSchema = Schema{
		Dataset: DatasetVolume,
		Version: "res0017-volume/v1",
		Layout:  LayoutWide,
		Roles:   []Role{yearRole, monthRole},
		Measure: MeasureVolume,
		Exclude: []string{"MES_NUM", "FECHA", "TOTAL"},
	}

	// PriceSchema 生產者收購價格（Res 0017 de 2012）
	PriceSchema = Schema{
		Dataset: DatasetPrice,
		Version: "res0017-price/v1",
		Layout:  LayoutWide,
		Roles:   []Role{yearRole, monthRole},
		Measure: MeasurePrice,
		Exclude: []string{"MES_NUM", "FECHA"},
	}
)

// CensusSchema 牛隻普查，普查年份由設定提供
func CensusSchema(year int) Schema {
	return Schema{
		Dataset: DatasetCensus,
		Version: "censo-bovino/v1",
		Layout:  LayoutLong,
		Roles: []Role{
			{Name: RoleRegion, Patterns: []string{"DEPARTAMENTO", "DEPTO"}, Required: true},
		},
		Measures: []Measure{
			{Name: MeasureCalves, Patterns: []string{"TERNERAS"}},
			{Name: MeasureHeifers12, Patterns: []string{"HEMBRAS 1-2", "HEMBRAS 1 - 2"}},
			{Name: MeasureHeifers23, Patterns: []string{"HEMBRAS 2-3", "HEMBRAS 2 - 3"}},
			{Name: MeasureCowsOver3, Patterns: []string{"HEMBRAS >3", "HEMBRAS > 3"}},
			{Name: MeasureTotalBovines, Patterns: []string{"TOTAL BOVINOS"}, Required: true},
		},
		FixedYear:  year,
		FixedMonth: 1,
	}
}

// CensusGroups 普查的年齡分組，依年齡排序
var CensusGroups = []string{MeasureCalves, MeasureHeifers12, MeasureHeifers23, MeasureCowsOver3}

// ValueColumn 數值欄位：寬表時 Label 是地區，長表時 Label 是量測名稱
type ValueColumn struct {
	Index int
	Label string
}

// Mapping 解析後的欄位位置
type Mapping struct {
	Schema Schema
	Roles  map[string]int
	Values []ValueColumn
}

// Column 回傳角色所在的欄位索引
func (m *Mapping) Column(role string) (int, bool) {
	idx, ok := m.Roles[role]
	return idx, ok
}

// Resolve 依照對應表解析資料表欄位，缺少必要角色時回傳 SchemaError
func (s Schema) Resolve(table *RawTable) (*Mapping, error) {
	m := &Mapping{Schema: s, Roles: make(map[string]int)}
	used := make(map[int]bool)

	for _, role := range s.Roles {
		idx := matchColumn(table.Columns, role.Patterns, used)
		if idx < 0 {
			if role.Required {
				return nil, s.schemaError(table, role.Name)
			}
			continue
		}
		m.Roles[role.Name] = idx
		used[idx] = true
	}

	switch s.Layout {
	case LayoutLong:
		for _, measure := range s.Measures {
			idx := matchColumn(table.Columns, measure.Patterns, used)
			if idx < 0 {
				if measure.Required {
					return nil, s.schemaError(table, measure.Name)
				}
				continue
			}
			used[idx] = true
			m.Values = append(m.Values, ValueColumn{Index: idx, Label: measure.Name})
		}
	default:
		excluded := make(map[string]bool, len(s.Exclude))
		for _, name := range s.Exclude {
			excluded[name] = true
		}
		for idx, col := range table.Columns {
			if used[idx] || col == "" || excluded[col] {
				continue
			}
			m.Values = append(m.Values, ValueColumn{Index: idx, Label: col})
		}
		if len(m.Values) == 0 {
			return nil, s.schemaError(table, "region value")
		}
	}

	return m, nil
}

func (s Schema) schemaError(table *RawTable, role string) error {
	return &common.SchemaError{
		Dataset: s.Dataset,
		Role:    role,
		Path:    table.Path,
		Columns: table.Columns,
	}
}

// matchColumn 先找完全相同的欄名，再找包含樣式的欄名
func matchColumn(columns []string, patterns []string, used map[int]bool) int {
	for _, p := range patterns {
		p = compact(p)
		for idx, col := range columns {
			if !used[idx] && compact(col) == p {
				return idx
			}
		}
	}
	for _, p := range patterns {
		p = compact(p)
		for idx, col := range columns {
			if !used[idx] && p != "" && strings.Contains(compact(col), p) {
				return idx
			}
		}
	}
	return -1
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// NormalizeColumn 去除前後空白、轉大寫、移除重音符號並合併內部空白
func NormalizeColumn(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(strings.ToUpper(stripped)), " ")
}
