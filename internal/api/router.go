package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	advisorHandler "dairy-advisor/internal/api/handlers/advisor"
	"dairy-advisor/internal/api/handlers/health"
	"dairy-advisor/internal/api/middleware"
	"dairy-advisor/internal/core/advisor"
	"dairy-advisor/internal/core/cache"
	"dairy-advisor/internal/infrastructure/config"
	"dairy-advisor/internal/infrastructure/storage"
	"dairy-advisor/internal/pkg/common"
)

const (
	// 超時設置
	timeoutDuration = 60 * time.Second
	// 未設定時的請求體大小限制 (1MB)
	defaultMaxBodySize = 1 << 20
)

// Dependencies 路由需要的服務，Memory、Redis 與 Queries 可為 nil
type Dependencies struct {
	Engine  *advisor.Engine
	Memory  *cache.Manager
	Redis   *cache.Service
	Queries *storage.QueryStore
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Engine == nil {
		return nil, errors.New("advisor engine is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	maxBodySize := cfg.Server.MaxBodyBytes
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 請求超時
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeoutDuration),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, common.ErrorResponse{
				Code:    common.ErrCodeRequestTimeout,
				Message: "request timeout",
			})
		}
	})

	// 健康檢查路由
	checks := map[string]health.Check{
		"datasets": deps.Engine.Ready,
	}
	if deps.Redis.Enabled() {
		checks["redis"] = deps.Redis.Ping
	}
	if deps.Queries != nil {
		checks["postgres"] = deps.Queries.Ping
	}
	healthHandler := health.NewHandler(cfg.App.Version, checks, deps.Memory.GetStats)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	var queries advisorHandler.QueryRepository
	if deps.Queries != nil {
		queries = deps.Queries
	}
	advisorHandler.NewHandler(deps.Engine, queries, cfg.App.Debug).Register(api)

	common.LogInfo("Router setup completed successfully",
		zap.Bool("redis_enabled", deps.Redis.Enabled()),
		zap.Bool("saved_queries_enabled", deps.Queries != nil),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
