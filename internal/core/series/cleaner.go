package series

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"dairy-advisor/internal/core/dataset"
)

var (
	// 以點分隔千位的數字，例如 1.234.567,89
	thousandsPattern = regexp.MustCompile(`^[-+]?\d{1,3}(\.\d{3})+(,\d+)?$`)
	numberPattern    = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)$`)
)

// 西班牙文月份
var months = map[string]int{
	"ENERO":      1,
	"FEBRERO":    2,
	"MARZO":      3,
	"ABRIL":      4,
	"MAYO":       5,
	"JUNIO":      6,
	"JULIO":      7,
	"AGOSTO":     8,
	"SEPTIEMBRE": 9,
	"SETIEMBRE":  9,
	"OCTUBRE":    10,
	"NOVIEMBRE":  11,
	"DICIEMBRE":  12,
}

var monthNames = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthName 月份的西班牙文名稱
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// ParseLocaleNumber 解析西班牙語系格式的數字，無法解析時回傳 false。
// "1.234" 這種點號後恰好三位數字的寫法視為千分位，結果是 1234 而非 1.234；
// 只有 FormatLocaleNumber 的輸出保證解析回原值。
func ParseLocaleNumber(raw string) (float64, bool) {
	s := strings.Map(func(r rune) rune {
		if r == '$' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if s == "" || strings.EqualFold(s, "nd") {
		return 0, false
	}
	if thousandsPattern.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if !numberPattern.MatchString(s) {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseValue 將儲存格轉為數值或缺值
func ParseValue(raw string) Value {
	if v, ok := ParseLocaleNumber(raw); ok {
		return Known(v)
	}
	return MissingValue
}

// FormatLocaleNumber 以西班牙語系格式輸出有限數值，千位用點、小數用逗號
func FormatLocaleNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}

// ParseMonth 西班牙文月份名稱或 1..12 的數字
func ParseMonth(raw string) (int, bool) {
	name := dataset.NormalizeColumn(raw)
	if m, ok := months[name]; ok {
		return m, true
	}
	if n, ok := parseWhole(name); ok && n >= 1 && n <= 12 {
		return n, true
	}
	return 0, false
}

// ParseYear 接受 "2024" 或 "2024.0"
func ParseYear(raw string) (int, bool) {
	n, ok := parseWhole(strings.TrimSpace(raw))
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseWhole(s string) (int, bool) {
	if !numberPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// CanonicalRegion 地區鍵：無重音、大寫、去除標點並合併空白，各資料集共用
func CanonicalRegion(raw string) string {
	name := dataset.NormalizeColumn(raw)
	name = strings.NewReplacer(".", "", ",", "").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// 普查中的彙總列
var aggregateRows = map[string]bool{
	"TOTAL":          true,
	"TOTAL NACIONAL": true,
	NationalRegion:   true,
}

// Clean 依對應表把原始資料表轉為清理後序列，年月無法解析的列會被捨棄並計數
func Clean(table *dataset.RawTable, schema dataset.Schema) (*CleanedSeries, error) {
	mapping, err := schema.Resolve(table)
	if err != nil {
		return nil, err
	}

	var (
		obs     []Observation
		dropped int
	)

	switch schema.Layout {
	case dataset.LayoutLong:
		regionCol, _ := mapping.Column(dataset.RoleRegion)
		for _, row := range table.Rows {
			region := CanonicalRegion(dataset.Cell(row, regionCol))
			if region == "" {
				dropped++
				continue
			}
			if aggregateRows[region] {
				continue
			}
			for _, col := range mapping.Values {
				obs = append(obs, Observation{
					Key:     Key{Year: schema.FixedYear, Month: schema.FixedMonth, Region: region},
					Measure: col.Label,
					Value:   ParseValue(dataset.Cell(row, col.Index)),
				})
			}
		}
	default:
		yearCol, _ := mapping.Column(dataset.RoleYear)
		monthCol, _ := mapping.Column(dataset.RoleMonth)
		regions := make([]string, len(mapping.Values))
		for i, col := range mapping.Values {
			regions[i] = CanonicalRegion(col.Label)
		}

		for _, row := range table.Rows {
			year, ok := ParseYear(dataset.Cell(row, yearCol))
			if !ok {
				dropped++
				continue
			}
			month, ok := ParseMonth(dataset.Cell(row, monthCol))
			if !ok {
				dropped++
				continue
			}
			for i, col := range mapping.Values {
				obs = append(obs, Observation{
					Key:     Key{Year: year, Month: month, Region: regions[i]},
					Measure: schema.Measure,
					Value:   ParseValue(dataset.Cell(row, col.Index)),
				})
			}
		}
	}

	return New(schema.Dataset, schema.Version, obs, dropped), nil
}
