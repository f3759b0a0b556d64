package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"dairy-advisor/internal/core/advisor"
	"dairy-advisor/internal/core/sources"
	"dairy-advisor/internal/infrastructure/config"
	"dairy-advisor/internal/pkg/common"
)

func main() {
	only := flag.String("dataset", "", "只更新指定資料集 (volume, price, census)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := sources.NewFetcher(&cfg.Sources)
	pipeline := advisor.NewPipeline(&cfg.Datasets, nil, nil)

	var results []*sources.Result
	failed := 0
	for _, spec := range pipeline.Specs() {
		if *only != "" && spec.ID != *only {
			continue
		}
		if spec.URL == "" {
			common.LogInfo("略過未設定網址的資料集", zap.String("dataset", spec.ID))
			continue
		}

		res, err := fetcher.Fetch(ctx, spec.URL, spec.Path)
		if err != nil {
			common.LogError("Failed to fetch dataset",
				zap.String("dataset", spec.ID),
				zap.String("url", spec.URL),
				zap.Error(err),
			)
			failed++
			continue
		}

		// 確認下載內容仍可被解析
		if _, err := pipeline.Series(ctx, spec.ID); err != nil {
			common.LogError("Downloaded dataset does not parse",
				zap.String("dataset", spec.ID),
				zap.Error(err),
			)
			failed++
			continue
		}
		results = append(results, res)
	}

	if out, err := common.ToJSON(results); err == nil {
		fmt.Println(out)
	}

	if failed > 0 {
		common.Sync()
		os.Exit(1)
	}
}
