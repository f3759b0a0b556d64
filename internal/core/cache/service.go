package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"dairy-advisor/internal/core/series"
	"dairy-advisor/internal/infrastructure/config"
	"dairy-advisor/internal/pkg/common"
)

// Service Redis 二級快取，讓多個程序共用清理後的序列
type Service struct {
	client *redis.Client
	config *config.RedisConfig
}

// NewService 創建緩存服務
func NewService(ctx context.Context, cfg *config.RedisConfig) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return &Service{config: cfg}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Service{
		client: client,
		config: cfg,
	}, nil
}

// Enabled 是否啟用
func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

// Get 讀取序列，未命中時回傳 common.ErrCacheMiss
func (s *Service) Get(ctx context.Context, path string, stamp Stamp) (*series.CleanedSeries, error) {
	if !s.Enabled() {
		return nil, common.ErrCacheDisabled
	}

	key := stamp.Key(path)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			common.LogCacheMiss("redis", key)
			return nil, common.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var snap series.Snapshot
	if err := common.ParseJSONBytes(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache: %w", err)
	}

	common.LogCacheHit("redis", key)
	return series.FromSnapshot(snap), nil
}

// Set 寫入序列
func (s *Service) Set(ctx context.Context, path string, stamp Stamp, value *series.CleanedSeries) error {
	if !s.Enabled() {
		return nil
	}

	data, err := json.Marshal(value.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}

	if err := s.client.Set(ctx, stamp.Key(path), data, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// Ping 檢查連線
func (s *Service) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *Service) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Close()
}
