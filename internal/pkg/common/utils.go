package common

import (
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// IsUUID 檢查字串是否為合法 UUID
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// IntPtr 回傳整數指標
func IntPtr(v int) *int {
	return &v
}

// Float64Ptr 回傳浮點數指標
func Float64Ptr(v float64) *float64 {
	return &v
}
