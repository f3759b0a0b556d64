package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairy-advisor/internal/pkg/common"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadUTF8WithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Año ;MES;Nariño;BOGOTÁ DC\n2024;ENERO;1.234,5;nd\n;;;\n2024;FEBRERO;10;20\n")...)
	path := writeFile(t, "volume.csv", data)

	table, err := Load(path, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, "utf-8", table.Encoding)
	assert.Equal(t, []string{"ANO", "MES", "NARINO", "BOGOTA DC"}, table.Columns)
	assert.Equal(t, "Año ", table.RawColumns[0])
	require.Len(t, table.Rows, 2, "blank rows are skipped")
	assert.Equal(t, "1.234,5", table.Rows[0][2])
}

func TestLoadFallsBackToLatin1(t *testing.T) {
	// "AÑO;MES;NARIÑO" encoded as ISO-8859-1
	data := []byte{'A', 0xD1, 'O', ';', 'M', 'E', 'S', ';', 'N', 'A', 'R', 'I', 0xD1, 'O', '\n', '2', '0', '2', '4', ';', '1', ';', '5', '\n'}
	path := writeFile(t, "latin.csv", data)

	table, err := Load(path, []string{"utf-8", "latin-1"}, ';')
	require.NoError(t, err)

	assert.Equal(t, "latin-1", table.Encoding)
	assert.Equal(t, []string{"ANO", "MES", "NARINO"}, table.Columns)
}

func TestLoadAllEncodingsFail(t *testing.T) {
	// 0x81 is undefined in Windows-1252 and invalid as UTF-8
	path := writeFile(t, "broken.csv", []byte{'A', ';', 0x81, '\n'})

	_, err := Load(path, []string{"utf-8", "windows-1252"}, ';')
	require.Error(t, err)

	var unreadable *common.SourceUnreadableError
	require.True(t, errors.As(err, &unreadable))
	assert.Equal(t, path, unreadable.Path)
	assert.Equal(t, []string{"utf-8", "windows-1252"}, unreadable.Tried)
	assert.Equal(t, common.ErrCodeSourceUnreadable, unreadable.Code())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"), nil, ';')

	var unreadable *common.SourceUnreadableError
	require.ErrorAs(t, err, &unreadable)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", nil)

	_, err := Load(path, nil, ';')
	var unreadable *common.SourceUnreadableError
	require.ErrorAs(t, err, &unreadable)
}

func TestNormalizeColumn(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Año", "ANO"},
		{"ANO", "ANO"},
		{"año ", "ANO"},
		{"  valle   del cauca", "VALLE DEL CAUCA"},
		{"Córdoba", "CORDOBA"},
		{"hembras > 3 años", "HEMBRAS > 3 ANOS"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColumn(tt.in))
		})
	}
}

func TestKnownEncoding(t *testing.T) {
	assert.True(t, KnownEncoding("UTF-8"))
	assert.True(t, KnownEncoding("latin1"))
	assert.True(t, KnownEncoding("ISO-8859-1"))
	assert.True(t, KnownEncoding("cp1252"))
	assert.False(t, KnownEncoding("koi8-r"))
}
