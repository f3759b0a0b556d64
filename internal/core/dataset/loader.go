package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"dairy-advisor/internal/pkg/common"
)

// DefaultEncodings 預設的編碼嘗試順序
var DefaultEncodings = []string{"utf-8", "latin-1", "iso-8859-1", "windows-1252"}

// DefaultDelimiter 政府資料集使用分號分隔
const DefaultDelimiter = ';'

// RawTable 已解碼、欄名正規化的原始資料表
type RawTable struct {
	Path       string
	Encoding   string
	RawColumns []string
	Columns    []string
	Rows       [][]string
}

// Cell 回傳列中指定欄的儲存格，超出範圍時回傳空字串
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Load 依序嘗試各編碼讀取來源檔案，第一個能乾淨解碼的編碼勝出
func Load(path string, encodings []string, delimiter rune) (*RawTable, error) {
	start := time.Now()

	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &common.SourceUnreadableError{Path: path, Err: err}
	}

	var (
		text    string
		used    string
		tried   []string
		lastErr error
	)
	for _, enc := range encodings {
		tried = append(tried, enc)
		decoded, decErr := decode(data, enc)
		if decErr != nil {
			common.LogDebug("編碼嘗試失敗",
				zap.String("path", path),
				zap.String("encoding", enc),
				zap.Error(decErr),
			)
			lastErr = decErr
			continue
		}
		text, used = decoded, enc
		break
	}
	if used == "" {
		return nil, &common.SourceUnreadableError{Path: path, Tried: tried, Err: lastErr}
	}

	table, err := parse(text, delimiter)
	if err != nil {
		return nil, &common.SourceUnreadableError{Path: path, Tried: tried, Err: err}
	}
	table.Path = path
	table.Encoding = used

	common.LogDebug("來源檔案已解碼",
		zap.String("path", path),
		zap.String("encoding", used),
		zap.Int("columns", len(table.Columns)),
		zap.Int("rows", len(table.Rows)),
		zap.Duration("耗時", time.Since(start)),
	)
	return table, nil
}

// parse 解析分隔文字，跳過完全空白的列
func parse(text string, delimiter rune) (*RawTable, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	table := &RawTable{
		RawColumns: make([]string, len(header)),
		Columns:    make([]string, len(header)),
	}
	for i, col := range header {
		table.RawColumns[i] = col
		table.Columns[i] = NormalizeColumn(col)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if blank(record) {
			continue
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
