package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairy-advisor/internal/core/series"
	"dairy-advisor/internal/infrastructure/config"
	"dairy-advisor/internal/pkg/common"
)

func TestServiceDisabled(t *testing.T) {
	ctx := context.Background()
	s, err := NewService(ctx, &config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	stamp := Stamp{ModTime: time.Unix(1700000000, 0), Size: 10}
	_, err = s.Get(ctx, "volume.csv", stamp)
	assert.ErrorIs(t, err, common.ErrCacheDisabled)
	assert.NoError(t, s.Set(ctx, "volume.csv", stamp, series.New("volume", "v1", nil, 0)))
	assert.NoError(t, s.Ping(ctx))
	assert.NoError(t, s.Close())

	var nilService *Service
	assert.False(t, nilService.Enabled())
	assert.NoError(t, nilService.Close())
}

func TestServiceUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewService(ctx, &config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
