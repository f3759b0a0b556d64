package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dairy-advisor/internal/api"
	"dairy-advisor/internal/core/advisor"
	"dairy-advisor/internal/core/breed"
	"dairy-advisor/internal/core/cache"
	"dairy-advisor/internal/infrastructure/config"
	"dairy-advisor/internal/infrastructure/storage"
	"dairy-advisor/internal/pkg/common"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("datasets_dir", cfg.Datasets.Dir),
		zap.Strings("encodings", cfg.Datasets.Encodings),
		zap.Int("horizon", cfg.Engine.Horizon),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("postgres_enabled", cfg.Postgres.Enabled),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// 品種目錄
	catalog, err := breed.LoadCatalog(cfg.Engine.BreedsFile)
	if err != nil {
		common.LogFatal("Failed to load breed catalog", zap.Error(err))
	}

	// 初始化快取
	memory := cache.NewManager(&cfg.Cache)
	defer memory.Close()

	var redisCache *cache.Service
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewService(startCtx, &cfg.Redis)
		if err != nil {
			// Redis 只是二級快取，連不上時繼續運作
			common.LogWarn("Redis unavailable, continuing without it", zap.Error(err))
			redisCache = nil
		}
		defer redisCache.Close()
	}

	var queries *storage.QueryStore
	if cfg.Postgres.Enabled {
		queries, err = storage.NewQueryStore(startCtx, cfg.Postgres.DSN)
		if err != nil {
			common.LogFatal("Failed to connect to postgres", zap.Error(err))
		}
		defer queries.Close()
	}

	pipeline := advisor.NewPipeline(&cfg.Datasets, memory, redisCache)
	engine := advisor.NewEngine(pipeline, catalog, breed.DefaultAffinity(), advisor.Options{
		Horizon:    cfg.Engine.Horizon,
		MaxHorizon: cfg.Engine.MaxHorizon,
		TopRegions: cfg.Engine.TopRegions,
		TopMonths:  cfg.Engine.TopMonths,
	})

	// 預先載入資料集，失敗時仍啟動並由 /ready 回報
	if err := engine.Ready(startCtx); err != nil {
		common.LogWarn("Datasets not ready at startup", zap.Error(err))
	}

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Engine:  engine,
		Memory:  memory,
		Redis:   redisCache,
		Queries: queries,
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
