package dataset

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// 支援的編碼別名
var charmaps = map[string]encoding.Encoding{
	"latin-1":      charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso8859-1":    charmap.ISO8859_1,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
}

// normalizeEncodingName 統一編碼名稱
func normalizeEncodingName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "_", "-")
}

// KnownEncoding 檢查是否支援該編碼
func KnownEncoding(name string) bool {
	name = normalizeEncodingName(name)
	if name == "utf-8" || name == "utf8" {
		return true
	}
	_, ok := charmaps[name]
	return ok
}

// decode 以指定編碼解碼，無法乾淨解碼時回傳錯誤
func decode(data []byte, name string) (string, error) {
	name = normalizeEncodingName(name)
	if name == "utf-8" || name == "utf8" {
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid utf-8 byte sequence")
		}
		return string(data), nil
	}

	enc, ok := charmaps[name]
	if !ok {
		return "", fmt.Errorf("unsupported encoding %q", name)
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", fmt.Errorf("undefined bytes for %s", name)
	}
	return string(decoded), nil
}
