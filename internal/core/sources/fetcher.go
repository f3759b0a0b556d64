package sources

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"dairy-advisor/internal/infrastructure/config"
	"dairy-advisor/internal/pkg/common"
)

// Fetcher 下載遠端資料集
type Fetcher struct {
	client *resty.Client
}

// Result 單次下載的結果
type Result struct {
	URL      string        `json:"url"`
	Path     string        `json:"path"`
	Bytes    int           `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

// NewFetcher 創建下載器，5xx、429 與連線錯誤會重試
func NewFetcher(cfg *config.SourcesConfig) *Fetcher {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "text/csv, */*").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := resp.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Fetcher{client: client}
}

// Fetch 下載 url 並以暫存檔加 rename 的方式寫入 dest，失敗時保留原檔
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (*Result, error) {
	if url == "" {
		return nil, &common.InvalidInputError{Field: "url", Reason: "must not be empty"}
	}

	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("download %s returned status %d", url, resp.StatusCode())
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("download %s returned an empty body", url)
	}

	if err := writeAtomic(dest, body); err != nil {
		return nil, err
	}

	result := &Result{URL: url, Path: dest, Bytes: len(body), Duration: time.Since(start)}
	common.LogInfo("資料集已更新",
		zap.String("url", url),
		zap.String("path", dest),
		zap.Int("bytes", result.Bytes),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("failed to replace %s: %w", dest, err)
	}
	return nil
}
