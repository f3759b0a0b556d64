package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"dairy-advisor/internal/core/dataset"
)

// Config 應用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Datasets  DatasetsConfig  `mapstructure:"datasets"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	LogLevel  string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// DatasetsConfig 資料集設定
type DatasetsConfig struct {
	Dir       string        `mapstructure:"dir"`
	Delimiter string        `mapstructure:"delimiter"`
	Encodings []string      `mapstructure:"encodings"`
	Volume    DatasetSource `mapstructure:"volume"`
	Price     DatasetSource `mapstructure:"price"`
	Census    CensusSource  `mapstructure:"census"`
}

// DatasetSource 單一資料集來源
type DatasetSource struct {
	File string `mapstructure:"file"`
	URL  string `mapstructure:"url"`
}

// CensusSource 牛隻普查來源，普查沒有年月欄位，使用參考年份
type CensusSource struct {
	File string `mapstructure:"file"`
	URL  string `mapstructure:"url"`
	Year int    `mapstructure:"year"`
}

// EngineConfig 推薦引擎設定
type EngineConfig struct {
	Horizon    int    `mapstructure:"horizon"`
	MaxHorizon int    `mapstructure:"max_horizon"`
	TopRegions int    `mapstructure:"top_regions"`
	TopMonths  int    `mapstructure:"top_months"`
	BreedsFile string `mapstructure:"breeds_file"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 二級快取設定
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PostgresConfig 已儲存查詢的資料庫設定
type PostgresConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// SourcesConfig 遠端資料集下載設定
type SourcesConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
	UserAgent  string        `mapstructure:"user_agent"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// Path 回傳資料集檔案的完整路徑
func (d DatasetsConfig) Path(file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(d.Dir, file)
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時改用系統環境變數
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	v.BindEnv("datasets.dir", "DATASETS_DIR")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("postgres.enabled", "POSTGRES_ENABLED")
	v.BindEnv("postgres.dsn", "DATABASE_URL")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	v.BindEnv("log_level", "LOG_LEVEL")

	// 設定檔名稱和路徑
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "dairy-advisor")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// 資料集設定
	v.SetDefault("datasets.dir", "DataSheet")
	v.SetDefault("datasets.delimiter", ";")
	v.SetDefault("datasets.encodings", []string{"utf-8", "latin-1", "iso-8859-1", "windows-1252"})
	v.SetDefault("datasets.volume.file", "Volumen de Acopio Directos - Res 0017 de 2012.csv")
	v.SetDefault("datasets.price.file", "Precio Pagado al Productor - Res 0017 de 2012.csv")
	v.SetDefault("datasets.census.file", "CENSO-BOVINO-2025.csv")
	v.SetDefault("datasets.census.year", 2025)

	// 引擎設定
	v.SetDefault("engine.horizon", 6)
	v.SetDefault("engine.max_horizon", 60)
	v.SetDefault("engine.top_regions", 3)
	v.SetDefault("engine.top_months", 3)
	v.SetDefault("engine.breeds_file", "")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 16)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Redis 設定
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")

	// PostgreSQL 設定
	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.dsn", "host=localhost port=5432 user=dairy password=dairy dbname=dairy sslmode=disable")

	// 下載設定
	v.SetDefault("sources.timeout", "60s")
	v.SetDefault("sources.retry_count", 3)
	v.SetDefault("sources.user_agent", "dairy-advisor/1.0")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證資料集設定
	if len(config.Datasets.Encodings) == 0 {
		return fmt.Errorf("at least one dataset encoding is required")
	}
	for _, enc := range config.Datasets.Encodings {
		if !dataset.KnownEncoding(enc) {
			return fmt.Errorf("unsupported dataset encoding %q", enc)
		}
	}
	if len([]rune(config.Datasets.Delimiter)) != 1 {
		return fmt.Errorf("dataset delimiter must be a single character, got %q", config.Datasets.Delimiter)
	}
	if config.Datasets.Volume.File == "" || config.Datasets.Price.File == "" || config.Datasets.Census.File == "" {
		return fmt.Errorf("volume, price and census dataset files are required")
	}

	// 驗證引擎設定
	if config.Engine.Horizon <= 0 {
		return fmt.Errorf("invalid engine horizon")
	}
	if config.Engine.MaxHorizon <= 0 || config.Engine.Horizon > config.Engine.MaxHorizon {
		return fmt.Errorf("engine max_horizon must be positive and not below horizon (%d)", config.Engine.Horizon)
	}
	if config.Engine.TopRegions <= 0 || config.Engine.TopMonths <= 0 {
		return fmt.Errorf("invalid engine top-n settings")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Redis.Enabled && config.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}
	if config.Postgres.Enabled && config.Postgres.DSN == "" {
		return fmt.Errorf("postgres dsn is required when postgres is enabled")
	}

	return nil
}
