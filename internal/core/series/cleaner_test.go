package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairy-advisor/internal/core/dataset"
	"dairy-advisor/internal/pkg/common"
)

func TestParseLocaleNumber(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   float64
		wantOK bool
	}{
		{"thousands and decimals", "1.234.567,89", 1234567.89, true},
		{"decimal comma", "1234,5", 1234.5, true},
		{"plain integer", "42", 42, true},
		{"currency and spaces", " $ 1.500 ", 1500, true},
		{"inner spaces", "1 234,5", 1234.5, true},
		{"single thousands group", "1.234", 1234, true},
		{"dot decimal", "1.5", 1.5, true},
		{"negative", "-2.500,25", -2500.25, true},
		{"nd lower", "nd", 0, false},
		{"nd upper", " ND ", 0, false},
		{"empty", "", 0, false},
		{"garbage", "n/a", 0, false},
		{"infinity text", "Inf", 0, false},
		{"english thousands", "1,234.56", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLocaleNumber(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestFormatLocaleNumberRoundTrip(t *testing.T) {
	values := []float64{0, 1, 12, 999, 1000, 1234.5, 1234567.89, -2500.25, 0.001, 1.234, 1e15, 123456789012.75}

	for _, v := range values {
		s := FormatLocaleNumber(v)
		got, ok := ParseLocaleNumber(s)
		require.True(t, ok, "format %v -> %q", v, s)
		assert.Equal(t, v, got, "format %v -> %q", v, s)
	}

	assert.Equal(t, "1.234.567,89", FormatLocaleNumber(1234567.89))
	assert.Equal(t, "-2.500,25", FormatLocaleNumber(-2500.25))
	assert.Equal(t, "999", FormatLocaleNumber(999))

	// 點號加三位數字一律是千分位，小數必須用逗號
	assert.Equal(t, "1,234", FormatLocaleNumber(1.234))
	got, ok := ParseLocaleNumber("1.234")
	require.True(t, ok)
	assert.Equal(t, 1234.0, got)
}

func TestParseMonth(t *testing.T) {
	tests := map[string]int{
		"ENERO":       1,
		"febrero":     2,
		" Marzo ":     3,
		"SETIEMBRE":   9,
		"Septiembre":  9,
		"diciembre":   12,
		"7":           7,
		"07":          7,
		"12.0":        12,
	}
	for in, want := range tests {
		got, ok := ParseMonth(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "TRECEMBRE", "0", "13", "1.5"} {
		_, ok := ParseMonth(in)
		assert.False(t, ok, in)
	}
}

func TestParseYear(t *testing.T) {
	y, ok := ParseYear("2024")
	require.True(t, ok)
	assert.Equal(t, 2024, y)

	y, ok = ParseYear(" 2024.0 ")
	require.True(t, ok)
	assert.Equal(t, 2024, y)

	for _, in := range []string{"", "abc", "2024.5", "-1"} {
		_, ok := ParseYear(in)
		assert.False(t, ok, in)
	}
}

func TestCanonicalRegion(t *testing.T) {
	assert.Equal(t, "BOGOTA DC", CanonicalRegion("Bogotá D.C."))
	assert.Equal(t, "BOGOTA DC", CanonicalRegion("BOGOTÁ DC"))
	assert.Equal(t, "NARINO", CanonicalRegion(" nariño"))
	assert.Equal(t, "VALLE DEL CAUCA", CanonicalRegion("Valle  del   Cauca"))
	assert.Equal(t, CanonicalRegion("Córdoba"), CanonicalRegion("CORDOBA"))
}

func wideTable(rows ...[]string) *dataset.RawTable {
	return &dataset.RawTable{
		Path:    "volume.csv",
		Columns: []string{"ANO", "MES", "ANTIOQUIA", "BOGOTA DC", "NACIONAL"},
		Rows:    rows,
	}
}

func TestCleanWideTable(t *testing.T) {
	table := wideTable(
		[]string{"2024", "DICIEMBRE", "1.000", "nd", "3.000"},
		[]string{"2024", "NOVIEMBRE", "900", "50,5", "2.950,5"},
		[]string{"2024.0", "13", "1", "1", "2"},
		[]string{"año", "ENERO", "1", "1", "2"},
		[]string{"2025", "ENERO", "1.100"},
	)

	s, err := Clean(table, dataset.VolumeSchema)
	require.NoError(t, err)

	assert.Equal(t, dataset.DatasetVolume, s.Dataset())
	assert.Equal(t, 2, s.Dropped())
	assert.Equal(t, []string{"ANTIOQUIA", "BOGOTA DC"}, s.Regions())
	assert.Equal(t, []Period{{2024, 11}, {2024, 12}, {2025, 1}}, s.Periods())

	bogota := s.ForRegion("Bogotá DC").Observations()
	require.Len(t, bogota, 3)
	assert.Equal(t, Known(50.5), bogota[0].Value)
	assert.True(t, bogota[1].Value.Missing)
	assert.True(t, bogota[2].Value.Missing, "short rows yield missing cells")

	last, ok := s.ForRegion("ANTIOQUIA").LastKnown()
	require.True(t, ok)
	assert.Equal(t, 1100.0, last.Value.Number)
	assert.Equal(t, dataset.MeasureVolume, last.Measure)
}

func TestCleanIsIdempotentOnCleanData(t *testing.T) {
	table := wideTable([]string{"2024", "ENERO", "1.234,5", "10", "1.244,5"})

	first, err := Clean(table, dataset.VolumeSchema)
	require.NoError(t, err)

	var rows [][]string
	row := []string{"2024", "ENERO"}
	for _, o := range first.Observations() {
		row = append(row, FormatLocaleNumber(o.Value.Number))
	}
	rows = append(rows, row)

	second, err := Clean(wideTable(rows...), dataset.VolumeSchema)
	require.NoError(t, err)
	assert.Equal(t, first.Observations(), second.Observations())
}

func TestCleanSchemaError(t *testing.T) {
	table := &dataset.RawTable{Path: "price.csv", Columns: []string{"MES", "META"}}

	_, err := Clean(table, dataset.PriceSchema)
	var schemaErr *common.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, dataset.RoleYear, schemaErr.Role)
}

func TestCleanCensus(t *testing.T) {
	table := &dataset.RawTable{
		Path:    "censo.csv",
		Columns: []string{"DEPARTAMENTO", "TERNERAS < 1 ANO", "TOTAL BOVINOS"},
		Rows: [][]string{
			{"Antioquia", "500.000", "3.000.000"},
			{"", "1", "1"},
			{"TOTAL", "9", "9"},
			{"Meta", "nd", "2.000.000"},
		},
	}

	s, err := Clean(table, dataset.CensusSchema(2025))
	require.NoError(t, err)

	assert.Equal(t, 1, s.Dropped())
	assert.Equal(t, []string{"ANTIOQUIA", "META"}, s.Regions())
	assert.Equal(t, []Period{{2025, 1}}, s.Periods())

	totals := s.ForMeasure(dataset.MeasureTotalBovines).Observations()
	require.Len(t, totals, 2)
	assert.Equal(t, 3000000.0, totals[0].Value.Number)
	assert.True(t, s.ForRegion("META").ForMeasure(dataset.MeasureCalves).Observations()[0].Value.Missing)
}
