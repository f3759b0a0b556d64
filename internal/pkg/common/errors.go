package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap 支援 errors.Is / errors.As
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"    // 408
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429
	ErrCodeInvalidInput     = "INVALID_INPUT"      // 400
	ErrCodeUnknownBreed     = "UNKNOWN_BREED"      // 404
	ErrCodeInsufficientData = "INSUFFICIENT_DATA"  // 422

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeSourceUnreadable   = "SOURCE_UNREADABLE"   // 503
	ErrCodeSchema             = "SCHEMA_ERROR"        // 503
)

// 預定義錯誤
var (
	ErrInvalidRequest     = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrNotFound           = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrTooManyRequests    = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrCacheFull          = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
	ErrCacheDisabled      = NewError("CACHE_DISABLED", "緩存已禁用", http.StatusServiceUnavailable, nil)
	ErrCacheMiss          = NewError("CACHE_MISS", "緩存未命中", http.StatusNotFound, nil)
	ErrStoreDisabled      = NewError("STORE_DISABLED", "saved queries are not enabled", http.StatusServiceUnavailable, nil)
)

// SourceUnreadableError 來源檔案不存在或所有編碼皆失敗
type SourceUnreadableError struct {
	Path  string
	Tried []string
	Err   error
}

func (e *SourceUnreadableError) Error() string {
	msg := fmt.Sprintf("source unreadable: %s", e.Path)
	if len(e.Tried) > 0 {
		msg += fmt.Sprintf(" (tried %s)", strings.Join(e.Tried, ", "))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceUnreadableError) Unwrap() error { return e.Err }

// Code 回傳穩定的錯誤代碼
func (e *SourceUnreadableError) Code() string { return ErrCodeSourceUnreadable }

// SchemaError 資料集缺少必要的欄位角色
type SchemaError struct {
	Dataset string
	Role    string
	Path    string
	Columns []string
	Row     int // 0 表示與列無關
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error: dataset %q has no %s column", e.Dataset, e.Role)
	if e.Path != "" {
		msg += fmt.Sprintf(" in %s", e.Path)
	}
	if e.Row > 0 {
		msg += fmt.Sprintf(" (row %d)", e.Row)
	}
	if len(e.Columns) > 0 {
		msg += fmt.Sprintf("; columns: [%s]", strings.Join(e.Columns, ", "))
	}
	return msg
}

// Code 回傳穩定的錯誤代碼
func (e *SchemaError) Code() string { return ErrCodeSchema }

// InsufficientDataError 可用資料點不足以擬合趨勢
type InsufficientDataError struct {
	Series string
	Points int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %d usable periods, need at least 2", e.Series, e.Points)
}

// Code 回傳穩定的錯誤代碼
func (e *InsufficientDataError) Code() string { return ErrCodeInsufficientData }

// UnknownBreedError 品種不在目錄中
type UnknownBreedError struct {
	Breed string
}

func (e *UnknownBreedError) Error() string {
	return fmt.Sprintf("unknown breed %q", e.Breed)
}

// Code 回傳穩定的錯誤代碼
func (e *UnknownBreedError) Code() string { return ErrCodeUnknownBreed }

// InvalidInputError 呼叫端輸入錯誤
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Code 回傳穩定的錯誤代碼
func (e *InvalidInputError) Code() string { return ErrCodeInvalidInput }

// IsInsufficientData 檢查是否為可降級的資料不足錯誤
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// ToCustomError 將引擎錯誤轉換為帶 HTTP 狀態碼的錯誤，訊息不含內部路徑
func ToCustomError(err error) *CustomError {
	var (
		custom     *CustomError
		invalid    *InvalidInputError
		unknown    *UnknownBreedError
		noData     *InsufficientDataError
		unreadable *SourceUnreadableError
		schema     *SchemaError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &custom):
		return custom
	case errors.As(err, &invalid):
		return NewError(ErrCodeInvalidInput, invalid.Error(), http.StatusBadRequest, err)
	case errors.As(err, &unknown):
		return NewError(ErrCodeUnknownBreed, unknown.Error(), http.StatusNotFound, err)
	case errors.As(err, &noData):
		return NewError(ErrCodeInsufficientData, "not enough historical data to build a forecast", http.StatusUnprocessableEntity, err)
	case errors.As(err, &unreadable):
		return NewError(ErrCodeSourceUnreadable, "recommendation unavailable: a data source could not be read", http.StatusServiceUnavailable, err)
	case errors.As(err, &schema):
		return NewError(ErrCodeSchema, fmt.Sprintf("recommendation unavailable: dataset %s is missing its %s column", schema.Dataset, schema.Role), http.StatusServiceUnavailable, err)
	default:
		return NewError(ErrCodeInternalError, ErrInternalError.Message, http.StatusInternalServerError, err)
	}
}
